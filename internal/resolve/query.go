// Package resolve turns a preprocessed question into executable SQL,
// either by instantiating a matched query template or by falling back
// to schema-grounded generation.
package resolve

import "strings"

// ErrorMarker prefixes the SQL text of a failed generation. Queries
// carrying this marker must never reach the execution layer.
const ErrorMarker = "-- Error generating SQL:"

// ProvenanceGenerated tags queries produced by the generative fallback
const ProvenanceGenerated = "generated"

// ResolvedQuery is the output of query resolution: the SQL text plus a
// provenance tag ("template:<id>" or "generated").
type ResolvedQuery struct {
	SQL        string
	Provenance string
}

// Valid reports whether the query is safe to execute
func (q ResolvedQuery) Valid() bool {
	sql := strings.TrimSpace(q.SQL)
	return sql != "" && !strings.HasPrefix(sql, ErrorMarker)
}

// TemplateProvenance builds the provenance tag for a template id
func TemplateProvenance(id string) string {
	return "template:" + id
}
