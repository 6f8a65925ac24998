package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/predictor/config"
)

// options son los flags globales.
type options struct {
	configPath string
	verbose    bool
	logFormat  string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "predictor",
		Short: "Score, calibrate and size prediction-market signals",
		Long: `predictor turns raw strategy signals into sized, risk-gated predictions.

Each signal is calibrated against historical outcomes, scored for confidence
and passed through seven sizing gates (balance floor, daily cap, position
ceiling, minimum edge, Kelly, cost per contract, contract count).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				slog.Error("failed to load config", "err", err, "path", opts.configPath)
				return err
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
			if opts.logFormat != "" {
				cfg.Log.Format = opts.logFormat
			}
			setupLogger(cfg.Log)
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults only when empty)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "set log level to debug")
	root.PersistentFlags().StringVar(&opts.logFormat, "format", "", "log format: text|json (overrides config)")

	root.AddCommand(
		newEvaluateCmd(opts),
		newWatchCmd(opts),
		newSettleCmd(opts),
		newPredictionsCmd(opts),
		newCalibrationCmd(opts),
		newPerformanceCmd(opts),
	)
	return root
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// signalContext cancela en SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
