package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/internal/adapters/notify"
	"github.com/alejandrodnm/predictor/internal/calibration"
	"github.com/alejandrodnm/predictor/internal/ports"
)

func newCalibrationCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Inspect or rebuild the calibration table",
	}
	cmd.AddCommand(newCalibrationShowCmd(opts), newCalibrationRebuildCmd(opts))
	return cmd
}

func newCalibrationShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the table in use and the latest stored snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			m := a.calibrator.Metrics(ctx)
			fmt.Fprintf(out, "Source: %s  Version: %s  Points: %d  Markets: %d  Full data: %t  Identity: %t\n",
				m.Source, m.Version, m.Points, m.TotalMarkets, m.HasFullData, m.Identity)

			snap, err := a.store.LatestCalibrationSnapshot(ctx)
			if errors.Is(err, ports.ErrNoCalibration) {
				fmt.Fprintln(out, "No stored snapshots; run 'predictor calibration rebuild'.")
				return nil
			}
			if err != nil {
				return err
			}
			return notify.NewConsoleWriter(out, true).PrintCalibration(snap)
		},
	}
}

func newCalibrationRebuildCmd(opts *options) *cobra.Command {
	var binWidth float64
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the table from settled predictions and store a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("bin-width") {
				binWidth = opts.cfg.Calibration.BinWidth
			}

			ctx := cmd.Context()
			settled, err := a.store.SettledPredictions(ctx, time.Time{})
			if err != nil {
				return err
			}
			snap, err := calibration.Build(settled, binWidth)
			if err != nil {
				return err
			}
			if snap.Table.IsEmpty() {
				return fmt.Errorf("no settled predictions to calibrate from")
			}

			id, err := a.store.SaveCalibrationSnapshot(ctx, snap)
			if err != nil {
				return err
			}
			snap.ID = id
			return notify.NewConsoleWriter(cmd.OutOrStdout(), true).PrintCalibration(snap)
		},
	}
	cmd.Flags().Float64Var(&binWidth, "bin-width", calibration.DefaultBinWidth, "raw probability bucket width")
	return cmd
}
