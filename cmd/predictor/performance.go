package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/internal/adapters/notify"
)

func newPerformanceCmd(opts *options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Accuracy, Brier score and PnL of settled predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			since := time.Now().UTC().AddDate(0, 0, -days)
			perf, err := a.store.PerformanceSummary(cmd.Context(), since)
			if err != nil {
				return err
			}
			return notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintPerformance(perf)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "look-back window in days")
	return cmd
}
