package main

import (
	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/internal/adapters/notify"
	"github.com/alejandrodnm/predictor/internal/domain"
)

func newPredictionsCmd(opts *options) *cobra.Command {
	var (
		pending  bool
		limit    int
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "List stored predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var preds []domain.Prediction
			if pending {
				preds, err = a.store.PendingPredictions(cmd.Context())
			} else {
				preds, err = a.store.RecentPredictions(cmd.Context(), limit, strategy)
			}
			if err != nil {
				return err
			}
			return notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintPredictions(preds)
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only accepted, unsettled predictions")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	cmd.Flags().StringVar(&strategy, "strategy", "", "filter by strategy")
	return cmd
}
