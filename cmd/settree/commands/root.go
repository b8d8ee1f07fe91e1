// Package commands implements the settree command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dshills/settree/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// EnvPrefix starts the environment variables that override settings,
// e.g. SETTREE_SERVER_PORT.
const EnvPrefix = "SETTREE_"

// Global flags
type globalFlags struct {
	logLevel string
	noEnv    bool
	separate string
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "settree",
		Short: "Inspect and validate typed settings trees",
		Long: `settree works with the settings tree of an example server daemon.

It prints the tree's JSON Schema and defaults, checks settings files
against it, reads single values and follows files as they change.

Settings files may be TOML, YAML or JSON, chosen by extension.
Environment variables named SETTREE_<BRANCH>_<SETTING> override files.
Plugin settings live in their own JSON file, named with --separate.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(flags.logLevel, os.Stderr)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flags.noEnv, "no-env", false, "ignore SETTREE_ environment overrides")
	rootCmd.PersistentFlags().StringVar(&flags.separate, "separate", "", "JSON file holding the plugin settings")

	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newDefaultsCommand())
	rootCmd.AddCommand(newCheckCommand(&flags))
	rootCmd.AddCommand(newGetCommand(&flags))
	rootCmd.AddCommand(newWatchCommand(&flags))

	return rootCmd
}

// setupLogging configures zerolog for console output. Colour is disabled
// when out is not a terminal.
func setupLogging(level string, out *os.File) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     out,
		NoColor: !term.IsTerminal(int(out.Fd())),
	})
	return nil
}

// newSettings builds the example tree wrapped in Settings.
func newSettings(flags *globalFlags, opts ...config.Option) (*config.Settings, error) {
	root, err := exampleTree()
	if err != nil {
		return nil, err
	}
	if !flags.noEnv {
		opts = append(opts, config.WithEnvPrefix(EnvPrefix))
	}
	if flags.separate != "" {
		opts = append(opts, config.WithSeparateFile(flags.separate))
	}
	return config.New(root, opts...), nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
