package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kb-agent/internal/bootstrap"
	"kb-agent/internal/config"
	"kb-agent/internal/pkg/logger"
	"kb-agent/internal/tracer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "Answer legal research questions from the Laws.Africa knowledge base.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "write debug logs to stderr")
	rootCmd.PersistentFlags().String("model", "", "model as <provider>/<model> (env: MODEL)")

	rootCmd.AddCommand(
		newLegislationCmd(),
		newEventsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// withContainer loads configuration, applies the persistent flags and hands a
// fully wired container to f. The context is cancelled on SIGINT/SIGTERM.
func withContainer(f func(ctx context.Context, cfg *config.Config, c *bootstrap.Container, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg := config.Load()

		verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("failed to get verbose flag: %w", err)
		}
		model, err := cmd.Root().PersistentFlags().GetString("model")
		if err != nil {
			return fmt.Errorf("failed to get model flag: %w", err)
		}
		if model != "" {
			cfg.Ai.Model = model
		}

		consoleLevel := zap.WarnLevel
		if verbose {
			consoleLevel = zap.DebugLevel
		}
		log := logger.New(logger.Options{
			FilePath:     cfg.App.LogFilePath,
			IsProd:       cfg.IsProduction(),
			ConsoleLevel: consoleLevel,
		})
		defer log.Sync()

		shutdownTracer := tracer.InitTracer(cfg.Infra.OtelEnabled, cfg.Infra.OtelEndpoint, log)
		defer shutdownTracer(context.Background())

		c, err := bootstrap.NewContainer(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()

		return f(ctx, cfg, c, cmd, args)
	}
}
