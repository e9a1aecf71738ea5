// Package cli is the pii-redactor command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/pii-redactor/internal/config"
)

var (
	// Version info injected via ldflags at build time
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// resolvedVersion returns Version unless it is "dev" and Go build info
// carries a real module version (e.g. from go install ...@v1.2.0).
func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// app is the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	envFile string
	verbose bool
}

// newRootCmd builds a fresh command tree.
func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "pii-redactor",
		Short: "Detect and redact personally identifiable information",
		Long: `pii-redactor finds PII in text, documents, CSV files and images.

It runs pattern recognizers (and optionally a NER model) over the input,
resolves overlapping findings, and can write a masked copy:
- PDF, HTML, text and markdown documents become redacted text
- CSV cells are anonymized column by column
- Images are OCR'd and every located value is blacked out`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./pii-redactor.yaml or ~/.pii-redactor/pii-redactor.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading PII_* variables")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	root.AddCommand(
		newAnalyzeCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newEntitiesCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves configuration and logging before any command runs.
func (a *app) setup() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogging(cfg.LogLevel, cfg.LogFormat, a.verbose)
	return nil
}

func setupLogging(logLevel, logFormat string, verbose bool) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	// All structured logs go to stderr so stdout stays clean for reports and
	// the MCP protocol.
	if logFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}
