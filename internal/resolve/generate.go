package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/schema"
)

const generateMaxTokens = 500

// Generator synthesizes SQL for questions no template covers, grounding
// the generative service in a bounded schema description.
type Generator struct {
	llm     llm.Service
	catalog *schema.Catalog
	logger  *logging.Logger
}

// NewGenerator creates a generative fallback resolver
func NewGenerator(service llm.Service, catalog *schema.Catalog) *Generator {
	return &Generator{
		llm:     service,
		catalog: catalog,
		logger:  logging.GetLogger(),
	}
}

// Generate asks the text service for SQL answering the question. It
// never returns an error: on any service failure the result carries a
// comment-prefixed error marker and must not be executed.
func (g *Generator) Generate(ctx context.Context, question string) ResolvedQuery {
	prompt := g.buildPrompt(question)

	response, err := g.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   generateMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		g.logger.WithError(err).Error("SQL generation failed")

		return ResolvedQuery{
			SQL:        fmt.Sprintf("%s %v", ErrorMarker, err),
			Provenance: ProvenanceGenerated,
		}
	}

	return ResolvedQuery{
		SQL:        NormalizeSQL(sanitizeSQL(response)),
		Provenance: ProvenanceGenerated,
	}
}

func (g *Generator) buildPrompt(question string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert SQL developer. Generate a DuckDB SQL query to answer the user's question.\n\n")
	sb.WriteString("DATABASE SCHEMA:\n")
	sb.WriteString(g.catalog.Describe(schema.MaxPromptColumns))
	sb.WriteString("\n\nBUSINESS RULES:\n")

	for _, rule := range schema.BusinessRules() {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}

	sb.WriteString(`
GENERATION RULES:
1. Use DuckDB SQL syntax
2. Join tables using the declared relationships only
3. Use LIKE with LOWER() for text comparisons so matching is case-insensitive
4. Return ONLY the SQL query, no explanations and no prose
5. End the query with a semicolon

QUESTION: `)
	sb.WriteString(question)
	sb.WriteString("\n\nSQL:")

	return sb.String()
}

// sanitizeSQL strips fenced-code markers the service may wrap around
// the query and keeps only the first statement.
func sanitizeSQL(response string) string {
	sql := strings.TrimSpace(response)

	if strings.HasPrefix(sql, "```") {
		sql = strings.TrimPrefix(sql, "```sql")
		sql = strings.TrimPrefix(sql, "```SQL")
		sql = strings.TrimPrefix(sql, "```")

		if idx := strings.Index(sql, "```"); idx >= 0 {
			sql = sql[:idx]
		}
	}

	sql = strings.TrimSpace(sql)

	// Multiple statements: keep the first
	if idx := strings.Index(sql, ";"); idx >= 0 {
		sql = sql[:idx]
	}

	return sql
}
