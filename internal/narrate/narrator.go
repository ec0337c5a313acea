// Package narrate converts tabular query results into conversational
// answers grounded in the actual retrieved values. Narration always
// succeeds: a failing text service degrades to a deterministic
// templated summary.
package narrate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
)

const (
	narrateMaxTokens = 400
	maxSampleRows    = 10
	maxDistinctEnum  = 10

	displayNull       = "N/A"
	displayTimeFormat = "2006-01-02 15:04"
)

// Column names matching these tokens are highlighted in the prompt as
// the fields most likely to answer the question directly.
var importantFieldTokens = []string{"name", "id", "status", "date", "count", "total", "amount"}

// Narrator renders result sets as natural-language answers
type Narrator struct {
	llm    llm.Service
	logger *logging.Logger
}

// New creates a narrator. The llm service may be nil, forcing the
// deterministic fallback path.
func New(service llm.Service) *Narrator {
	return &Narrator{
		llm:    service,
		logger: logging.GetLogger(),
	}
}

// Narrate produces the user-facing answer for a result set. When
// revealQuery is set, the literal SQL is appended for technical users.
func (n *Narrator) Narrate(ctx context.Context, question, query string, result *execute.ResultSet, revealQuery bool) string {
	var response string

	if result.Empty() {
		// No generation cost for a trivial case
		response = emptyResultResponse(question)
	} else {
		summary := summarize(result)
		response = n.narrateData(ctx, question, summary)
	}

	if revealQuery && query != "" {
		response += fmt.Sprintf("\n\nTechnical details - SQL query used:\n%s", query)
	}

	return response
}

// emptyResultResponse is the fixed explanatory template for zero rows
func emptyResultResponse(question string) string {
	return fmt.Sprintf(`I couldn't find any data matching your question: "%s"

This could mean:
- No records exist for the criteria you specified
- The time period you asked about has no data
- The names or terms might be spelled differently in the database

Try rephrasing your question or broadening the criteria.`, question)
}

func (n *Narrator) narrateData(ctx context.Context, question string, summary dataSummary) string {
	if n.llm == nil {
		return fallbackResponse(question, summary)
	}

	response, err := n.llm.Complete(ctx, llm.Request{
		Prompt:      buildNarrationPrompt(question, summary),
		MaxTokens:   narrateMaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Narration service failed, using deterministic fallback")
		return fallbackResponse(question, summary)
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return fallbackResponse(question, summary)
	}

	return response
}

// dataSummary is the bounded view of a result set fed to narration
type dataSummary struct {
	RowCount    int
	ColumnCount int
	Columns     []string
	SampleRows  [][]string
	Insights    []columnInsight
}

type insightKind int

const (
	insightNumeric insightKind = iota
	insightEnumerated
	insightDistinctCount
)

type columnInsight struct {
	Column        string
	Kind          insightKind
	Min, Max, Avg float64
	Values        []string
	DistinctCount int
}

func (i columnInsight) String() string {
	switch i.Kind {
	case insightNumeric:
		return fmt.Sprintf("%s: min %s, max %s, avg %s",
			i.Column, formatNumber(i.Min), formatNumber(i.Max), formatNumber(i.Avg))
	case insightEnumerated:
		return fmt.Sprintf("%s: values are %s", i.Column, strings.Join(i.Values, ", "))
	default:
		return fmt.Sprintf("%s: %d distinct values", i.Column, i.DistinctCount)
	}
}

// summarize builds the bounded data summary for a non-empty result set
func summarize(result *execute.ResultSet) dataSummary {
	summary := dataSummary{
		RowCount:    result.RowCount(),
		ColumnCount: len(result.Columns),
		Columns:     result.Columns,
	}

	sampleCount := len(result.Rows)
	if sampleCount > maxSampleRows {
		sampleCount = maxSampleRows
	}

	for _, row := range result.Rows[:sampleCount] {
		display := make([]string, len(row))
		for i, value := range row {
			display[i] = displayValue(value)
		}

		summary.SampleRows = append(summary.SampleRows, display)
	}

	for col := range result.Columns {
		if insight, ok := inspectColumn(result, col); ok {
			summary.Insights = append(summary.Insights, insight)
		}
	}

	return summary
}

// displayValue coerces a raw database value to a display-safe string
func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return displayNull
	case time.Time:
		return v.Format(displayTimeFormat)
	case float64:
		if math.IsNaN(v) {
			return displayNull
		}

		return formatNumber(v)
	case float32:
		if math.IsNaN(float64(v)) {
			return displayNull
		}

		return formatNumber(float64(v))
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// inspectColumn derives a per-column insight: numeric ranges for number
// columns, value enumeration for low-cardinality text, distinct counts
// otherwise. Returns false when the column holds no usable values.
func inspectColumn(result *execute.ResultSet, col int) (columnInsight, bool) {
	var numbers []float64

	distinct := make(map[string]bool)
	numeric := true

	for _, row := range result.Rows {
		value := row[col]
		if value == nil {
			continue
		}

		if f, ok := asFloat(value); ok && !math.IsNaN(f) {
			numbers = append(numbers, f)
		} else {
			numeric = false
		}

		distinct[displayValue(value)] = true
	}

	if len(distinct) == 0 {
		return columnInsight{}, false
	}

	name := result.Columns[col]

	if numeric && len(numbers) > 0 {
		minVal, maxVal, sum := numbers[0], numbers[0], 0.0
		for _, f := range numbers {
			if f < minVal {
				minVal = f
			}

			if f > maxVal {
				maxVal = f
			}

			sum += f
		}

		return columnInsight{
			Column: name,
			Kind:   insightNumeric,
			Min:    minVal,
			Max:    maxVal,
			Avg:    sum / float64(len(numbers)),
		}, true
	}

	if len(distinct) <= maxDistinctEnum {
		values := make([]string, 0, len(distinct))
		for v := range distinct {
			values = append(values, v)
		}

		sort.Strings(values)

		return columnInsight{
			Column: name,
			Kind:   insightEnumerated,
			Values: values,
		}, true
	}

	return columnInsight{
		Column:        name,
		Kind:          insightDistinctCount,
		DistinctCount: len(distinct),
	}, true
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.0f", f)
	}

	return fmt.Sprintf("%.2f", f)
}

// importantColumns selects the columns most likely to answer directly
func importantColumns(columns []string) []string {
	var important []string

	for _, col := range columns {
		colLower := strings.ToLower(col)
		for _, token := range importantFieldTokens {
			if strings.Contains(colLower, token) {
				important = append(important, col)
				break
			}
		}
	}

	return important
}

func buildNarrationPrompt(question string, summary dataSummary) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful data analyst. Answer the user's question using ONLY the query results below.\n\n")
	fmt.Fprintf(&sb, "QUESTION: %s\n\n", question)
	fmt.Fprintf(&sb, "RESULTS: %d rows, %d columns (%s)\n",
		summary.RowCount, summary.ColumnCount, strings.Join(summary.Columns, ", "))

	if important := importantColumns(summary.Columns); len(important) > 0 {
		fmt.Fprintf(&sb, "KEY FIELDS: %s\n", strings.Join(important, ", "))
	}

	sb.WriteString("\nSAMPLE DATA:\n")

	for _, row := range summary.SampleRows {
		sb.WriteString("  ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}

	if len(summary.Insights) > 0 {
		sb.WriteString("\nDATA INSIGHTS:\n")

		for _, insight := range summary.Insights {
			sb.WriteString("  - ")
			sb.WriteString(insight.String())
			sb.WriteString("\n")
		}
	}

	sb.WriteString(`
STYLE:
1. Start with a friendly opener
2. Answer the question directly first
3. Be concise and conversational
4. Ground every statement in the actual values above, never invent data
5. Close by offering more detail if needed`)

	return sb.String()
}

// fallbackResponse is the deterministic narration used when the text
// service is unavailable. Built purely from the data summary.
func fallbackResponse(question string, summary dataSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "I found %d result", summary.RowCount)
	if summary.RowCount != 1 {
		sb.WriteString("s")
	}

	fmt.Fprintf(&sb, " for your question: \"%s\"\n\n", question)
	fmt.Fprintf(&sb, "The data includes %d columns: %s.\n",
		summary.ColumnCount, strings.Join(summary.Columns, ", "))

	if len(summary.Insights) > 0 {
		sb.WriteString("\nHighlights:\n")

		for _, insight := range summary.Insights {
			sb.WriteString("- ")
			sb.WriteString(insight.String())
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nLet me know if you'd like more detail on any of these results.")

	return sb.String()
}
