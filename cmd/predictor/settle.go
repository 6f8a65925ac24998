package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/internal/domain"
)

func newSettleCmd(opts *options) *cobra.Command {
	var (
		outcome string
		pnl     float64
	)
	cmd := &cobra.Command{
		Use:   "settle ID",
		Short: "Record the outcome of an accepted prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := domain.ParseOutcome(outcome)
			if err != nil {
				return err
			}

			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id := args[0]
			p, err := a.store.GetPrediction(ctx, id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pnl") {
				pnl = domain.SettlementPnL(p, o)
			}

			if err := a.store.SettlePrediction(ctx, id, o, pnl, time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settled %s (%s) as %s, pnl $%+.2f\n", id, p.Market, o, pnl)
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "win | loss")
	cmd.Flags().Float64Var(&pnl, "pnl", 0, "realized PnL (default: contracts × $1 − cost on win, −cost on loss)")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}
