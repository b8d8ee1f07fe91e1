package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand(flags *globalFlags) *cobra.Command {
	var (
		files  []string
		origin bool
	)

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Print one setting",
		Long: `Print the value of one setting after loading the given files and the
environment. Lists and maps are printed as JSON.`,
		Example: `  # Print the default port
  settree get server.port

  # Print the port configured by a file
  settree get server.port --file settings.toml

  # Show whether a file or the environment set the port
  settree get server.port -f base.toml -f local.yaml --origin

  # Print the plugin search paths
  settree get plugins.paths --separate plugins.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSettings(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Load(files...); err != nil {
				return err
			}

			v, err := s.Get(args[0])
			if err != nil {
				return err
			}

			text := fmt.Sprint(v)
			switch v.(type) {
			case []any, map[string]any:
				data, err := json.Marshal(v)
				if err != nil {
					return err
				}
				text = string(data)
			}

			if origin {
				from, err := s.Origin(args[0])
				if err != nil {
					return err
				}
				text += "\t(" + from + ")"
			}
			printf(cmd.OutOrStdout(), "%s\n", text)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "settings file to load (repeatable)")
	cmd.Flags().BoolVar(&origin, "origin", false, "also print where the value came from")

	return cmd
}
