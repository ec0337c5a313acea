package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the schema catalog built from the field mappings",
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	catalog, err := schema.Load(cfg.Mappings.Path)
	if err != nil {
		return err
	}

	cmd.Printf("Schema catalog: %d tables, %d columns\n\n",
		len(catalog.Tables), catalog.ColumnCount())
	cmd.Print(catalog.Describe(0))

	return nil
}
