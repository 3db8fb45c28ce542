package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/config"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for the .covey.yml settings file",
		Long: `Emit a JSON schema describing the settings file format, for IDE
autocompletion and validation.

Example usage:
  covey schema > covey.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := jsonschema.Reflector{ExpandedStruct: true}
			schema := reflector.Reflect(&config.Settings{})

			data, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling schema: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
