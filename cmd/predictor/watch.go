package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/predictor/internal/adapters/notify"
	"github.com/alejandrodnm/predictor/internal/adapters/signals"
	"github.com/alejandrodnm/predictor/internal/application/pipeline"
	"github.com/alejandrodnm/predictor/internal/metrics"
)

func newWatchCmd(opts *options) *cobra.Command {
	var (
		signalsPath string
		interval    time.Duration
		reload      time.Duration
		metricsAddr string
		dryRun      bool
		table       bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-read the signals file on an interval and evaluate each batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			path := signalsPath
			if path == "" {
				path = cfg.Pipeline.Signals
			}
			if path == "" || path == "-" {
				return fmt.Errorf("watch needs a signals file: pass --signals or set pipeline.signals")
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Interval()
			}
			if !cmd.Flags().Changed("reload") {
				reload = cfg.ReloadInterval()
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.Addr
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p := pipeline.New(
				pipeline.Config{
					Interval:       interval,
					ReloadInterval: reload,
					Workers:        cfg.Pipeline.Workers,
					DryRun:         dryRun,
				},
				a.engine,
				signals.NewFile(path),
				a.store,
				a.store,
				notify.NewConsole(table),
				pipeline.WithCalibrationReloader(a.calibrator),
				pipeline.WithRecorder(a.recorder),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return p.Run(gctx) })
			if metricsAddr != "" {
				router := metrics.NewRouter(a.recorder.Registry(), a.status)
				g.Go(func() error { return metrics.Serve(gctx, metricsAddr, router) })
			}

			err = g.Wait()
			slog.Info("predictor stopped", "err", err)
			return err
		},
	}
	cmd.Flags().StringVar(&signalsPath, "signals", "", "signals file, re-read every cycle")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between cycles")
	cmd.Flags().DurationVar(&reload, "reload", time.Hour, "calibration reload period (0 = never)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate and print, never persist")
	cmd.Flags().BoolVar(&table, "table", false, "print full table (default: compact 1-line)")
	return cmd
}
