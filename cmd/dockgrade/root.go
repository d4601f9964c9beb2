package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/logging"
)

var version = "0.1.0"

var (
	verbose   bool
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:     "dockgrade",
	Short:   "Grade the stages of a Docker build-and-run exercise",
	Version: version,
	Long: `dockgrade checks a learner's progress through a staged Docker exercise.
Each stage runs the learner's program to find their Dockerfile, inspects it,
queries the local container runtime and reports a verdict per rule.

Example:
  # Grade stage 2 with the program that prints the Dockerfile path
  dockgrade check --stage 2 -- ./solution.sh

  # Grade every stage and keep going after failures
  dockgrade check --all --keep-going -- python3 main.py`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command. The log file opened by setupLogging is
// closed on return, whether or not the command failed.
func Execute(ctx context.Context) error {
	defer closeLog()
	return rootCmd.ExecuteContext(ctx)
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("logfile", "", "Write logs to this file instead of stderr")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("backend", "", "Runtime backend: cli or sdk")
	flags.String("runtime-cli", "", "Container runtime binary used by the cli backend")
	flags.Duration("timeout", 0, "Timeout for each runtime command (0 = none)")
	flags.Duration("http-timeout", 0, "Timeout for the HTTP reachability probe")
	flags.Int("retries", 0, "Retries for the HTTP reachability probe")
	flags.String("stages-file", "", "YAML stage catalogue replacing the built-in stages")
	flags.Bool("color", true, "Colorize PASS/FAIL output")

	rootCmd.AddCommand(aboutCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(initCmd)
}

// setupLogging configures zerolog from flags, falling back to config values.
// A broken config is reported by the command itself, not here.
func setupLogging(cmd *cobra.Command, _ []string) error {
	opts := logging.Options{Verbose: verbose, Color: true}

	if cfg, err := config.Load(cmd.Flags()); err == nil {
		opts.Level = cfg.Log.Level
		opts.File = cfg.Log.File
		opts.Color = cfg.Report.Color
		opts.JSON = cfg.Log.Format == config.LogFormatJSON
	} else {
		opts.Level, _ = cmd.Flags().GetString("log-level")
		opts.File, _ = cmd.Flags().GetString("logfile")
		format, _ := cmd.Flags().GetString("log-format")
		opts.JSON = strings.EqualFold(format, config.LogFormatJSON)
	}

	closer, err := logging.Setup(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logCloser = closer
	log.Debug().Str("command", cmd.CommandPath()).Str("version", version).Msg("Starting")
	return nil
}

// loadConfig resolves configuration with the command's flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
