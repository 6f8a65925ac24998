package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/internal/adapters/notify"
	"github.com/alejandrodnm/predictor/internal/adapters/signals"
	"github.com/alejandrodnm/predictor/internal/application/pipeline"
)

func newEvaluateCmd(opts *options) *cobra.Command {
	var (
		signalsPath string
		dryRun      bool
		table       bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one batch of signals and persist the decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			path := signalsPath
			if path == "" {
				path = opts.cfg.Pipeline.Signals
			}
			if path == "" {
				return fmt.Errorf("no signals file: pass --signals or set pipeline.signals")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p := pipeline.New(
				pipeline.Config{Workers: opts.cfg.Pipeline.Workers, DryRun: dryRun, Once: true},
				a.engine,
				signals.NewFile(path),
				a.store,
				a.store,
				notify.NewConsole(table),
				pipeline.WithRecorder(a.recorder),
			)
			_, err = p.RunOnce(ctx)
			return err
		},
	}
	cmd.Flags().StringVar(&signalsPath, "signals", "", "signals file (JSON or YAML, - for stdin)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate and print, never persist")
	cmd.Flags().BoolVar(&table, "table", false, "print full table (default: compact 1-line)")
	return cmd
}
