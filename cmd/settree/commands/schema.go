package commands

import (
	"encoding/json"

	"github.com/dshills/settree/internal/config/jsonschema"
	"github.com/dshills/settree/internal/config/serial"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSchemaCommand() *cobra.Command {
	format := newFormatFlag(serial.JSON, serial.JSON, serial.YAML)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the settings tree",
		Example: `  # Print the schema as JSON
  settree schema

  # Print the schema as YAML
  settree schema --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := exampleTree()
			if err != nil {
				return err
			}

			data, err := jsonschema.Marshal(jsonschema.ForTree(root))
			if err != nil {
				return err
			}

			if format.value == serial.YAML {
				if data, err = jsonToYAML(data); err != nil {
					return err
				}
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	format.register(cmd.Flags())

	return cmd
}

func jsonToYAML(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
