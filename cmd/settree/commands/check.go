package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/dshills/settree/internal/config"
	"github.com/dshills/settree/internal/config/jsonschema"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ErrCheckFailed is returned when a checked file has problems.
var ErrCheckFailed = errors.New("settings check failed")

func newCheckCommand(flags *globalFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Check settings files against the tree",
		Long: `Check settings files against the tree.

The files are merged in order, as they would be at startup, validated
against the JSON Schema and deserialized into the tree. Every problem is
reported with its setting path.`,
		Example: `  # Check one file
  settree check settings.toml

  # Check a base file with local overrides, rejecting unknown keys
  settree check --strict base.toml local.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if _, err := os.Stat(path); err != nil {
					return err
				}
			}

			s, err := newSettings(flags, config.WithValidation(strict))
			if err != nil {
				return err
			}
			defer s.Close()

			log.Debug().Strs("files", args).Bool("strict", strict).Msg("checking settings")

			out := cmd.OutOrStdout()
			if err := s.Load(args...); err != nil {
				problems := flatten(err)
				for _, e := range problems {
					printf(out, "%v\n", e)
				}
				return fmt.Errorf("%w: %d problem(s)", ErrCheckFailed, len(problems))
			}

			printf(out, "ok\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "reject unknown settings")

	return cmd
}

// flatten expands joined errors and validation reports into their parts.
func flatten(err error) []error {
	var report *jsonschema.ValidationErrors
	if errors.As(err, &report) && len(report.Errors) > 1 {
		out := make([]error, len(report.Errors))
		for i, e := range report.Errors {
			out[i] = e
		}
		return out
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
