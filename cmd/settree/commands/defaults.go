package commands

import (
	"github.com/dshills/settree/internal/config/serial"
	"github.com/spf13/cobra"
)

func newDefaultsCommand() *cobra.Command {
	format := newFormatFlag(serial.YAML, serial.Formats...)

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print a settings file holding the defaults",
		Long: `Print a settings file holding every default value.

YAML output carries the setting comments. Branches stored apart from the
main file are left out.`,
		Example: `  # Start a new settings file
  settree defaults --format toml > settings.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := exampleTree()
			if err != nil {
				return err
			}

			data, err := serial.Marshal(root, format.value)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	format.register(cmd.Flags())

	return cmd
}
