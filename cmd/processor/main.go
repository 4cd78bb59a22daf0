package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trialmerge/internal/config"
	"trialmerge/internal/infrastructure"
	"trialmerge/pkg/contracts"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// cli holds what the commands share once the root has run.
type cli struct {
	configFile string
	stdout     io.Writer
	stderr     io.Writer

	cfg    *config.Config
	logger *slog.Logger
	tel    *infrastructure.Telemetry

	closeLog func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr, closeLog: infrastructure.CloseLogFile}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	c.close()
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, "error:", err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "processor",
		Short: "Merge trial files into one master CSV",
		Long: `processor reads per-trial result files (CSV, TXT or XLSX), each holding
an item, a system type, optional ground-truth values and a rounds table,
and writes one flat master table with a row per round.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to a YAML config file")

	root.AddCommand(c.mergeCmd(), c.versionCmd())
	return root
}

// setup loads config, the logger and telemetry. Commands that need them call
// it from their PreRunE.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := infrastructure.NewLogger(cfg.Logging, c.stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	slog.SetDefault(logger)

	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	c.tel = tel

	logger.DebugContext(cmd.Context(), "configuration loaded",
		slog.String("version", contracts.Version),
		slog.String("config_file", c.configFile),
		slog.String("log_level", cfg.Logging.Level))
	return nil
}

func (c *cli) close() {
	if c.tel != nil {
		if err := c.tel.Shutdown(context.Background()); err != nil && c.logger != nil {
			c.logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}
	if err := c.closeLog(); err != nil && c.logger != nil {
		c.logger.Debug("failed to close log file", slog.String("error", err.Error()))
	}
}

func (c *cli) versionCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if full {
				fmt.Fprintln(c.stdout, contracts.GetFullVersionString())
				return nil
			}
			fmt.Fprintln(c.stdout, contracts.GetVersionString())
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include build details")
	return cmd
}
