package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"save-parser/internal/config"
	"save-parser/internal/tags"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries the process-wide dependencies shared by every command.
type app struct {
	cfg   *config.Config
	names *tags.Table
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
	}

	names, err := tags.Default()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load tag table")
		os.Exit(1)
	}

	if err := newRootCmd(&app{cfg: cfg, names: names}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "save-parser <save-file> [output-file]",
		Short: "Aggregate province demographics of a save file per country",
		Long: `Streams a save file once, extracts rural/urban population and wealth growth
of every province and writes the per-country totals as JSON.
The output file defaults to ` + a.cfg.OutputFile + `.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := a.cfg.OutputFile
			if len(args) == 2 {
				output = args[1]
			}
			tsvPath, _ := cmd.Flags().GetString("tsv")
			return a.runParse(args[0], output, tsvPath)
		},
	}
	rootCmd.Flags().String("tsv", "", "Also write a per-country TSV summary to this path")

	rootCmd.AddCommand(a.batchCmd())
	rootCmd.AddCommand(a.reportCmd())
	rootCmd.AddCommand(a.pushCmd())
	rootCmd.AddCommand(a.similarCmd())

	return rootCmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func positiveInt(name string, v int) error {
	if v < 1 {
		return fmt.Errorf("--%s must be at least 1", name)
	}
	return nil
}
