package schema

import (
	"fmt"
	"strings"
)

// MaxPromptColumns caps how many columns per table are rendered into a
// generation prompt, to respect the text service's input-size limits.
const MaxPromptColumns = 10

// Describe renders the catalog as a bounded textual schema description
// suitable for embedding in a generation prompt. At most maxColumns
// columns are rendered per table; pass MaxPromptColumns for prompts.
func (c *Catalog) Describe(maxColumns int) string {
	var sb strings.Builder

	for _, name := range c.TableNames() {
		table := c.Tables[name]

		sb.WriteString("TABLE: " + table.Name + "\n")
		sb.WriteString("Purpose: " + table.Description + "\n")
		sb.WriteString("Columns:\n")

		cols := table.Columns
		if maxColumns > 0 && len(cols) > maxColumns {
			cols = cols[:maxColumns]
		}

		for _, col := range cols {
			sb.WriteString(fmt.Sprintf("  - %s (%s): %s\n", col.Name, col.Type, col.Description))
		}

		sb.WriteString("\n")
	}

	sb.WriteString("TABLE RELATIONSHIPS:\n")

	for _, rel := range c.Relationships {
		sb.WriteString("  - " + rel.Join + "\n")
	}

	return sb.String()
}

// BusinessRules returns fixed guidance embedded alongside the schema
// description in generation prompts.
func BusinessRules() []string {
	return []string{
		"Use appropriate date fields for filtering",
		"Use LIKE '%value%' for text searches",
		"Text matching must be case-insensitive",
	}
}
