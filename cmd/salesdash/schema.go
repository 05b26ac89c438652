package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/salesdash/schema"
)

func (a *app) schemaCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the dataset schema as YAML",
		Long: `Print the configured dataset schema as YAML.

With --from, the schema is discovered from a CSV file instead. The output
can be pasted under "schema:" in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch := a.cfg.SchemaConfig()
			if from != "" {
				data, err := os.ReadFile(from)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", from, err)
				}
				discovered, err := schema.DiscoverFromCSV(data)
				if err != nil {
					return fmt.Errorf("schema discovery failed: %w", err)
				}
				sch = *discovered
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(sch); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Discover the schema from this CSV file")
	return cmd
}
