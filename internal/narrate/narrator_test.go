package narrate

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/llm"
)

// recordingService captures prompts and returns a canned answer
type recordingService struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (r *recordingService) Complete(_ context.Context, req llm.Request) (string, error) {
	r.calls++
	r.prompts = append(r.prompts, req.Prompt)

	return r.response, r.err
}

func TestNarrateEmptyResultSkipsService(t *testing.T) {
	service := &recordingService{response: "should not be used"}
	narrator := New(service)

	result := &execute.ResultSet{Columns: []string{"well_name"}}

	response := narrator.Narrate(context.Background(), "Which wells are active?", "SELECT 1;", result, false)

	if service.calls != 0 {
		t.Errorf("Expected no service calls for empty result, got %d", service.calls)
	}

	if !strings.Contains(response, "couldn't find any data") {
		t.Errorf("Expected fixed explanatory template, got %q", response)
	}

	for _, reason := range []string{
		"No records exist",
		"time period",
		"spelled differently",
	} {
		if !strings.Contains(response, reason) {
			t.Errorf("Expected explanatory phrase %q in %q", reason, response)
		}
	}
}

func TestNarrateUsesServiceResponse(t *testing.T) {
	service := &recordingService{response: "Hi! You have 2 active wells: Alpha-1 and Beta-2."}
	narrator := New(service)

	result := &execute.ResultSet{
		Columns: []string{"well_name", "status"},
		Rows: [][]any{
			{"Alpha-1", "active"},
			{"Beta-2", "active"},
		},
	}

	response := narrator.Narrate(context.Background(), "Which wells are active?", "", result, false)

	if response != service.response {
		t.Errorf("Expected service response, got %q", response)
	}

	if service.calls != 1 {
		t.Fatalf("Expected 1 service call, got %d", service.calls)
	}

	prompt := service.prompts[0]

	for _, fragment := range []string{
		"Which wells are active?",
		"2 rows, 2 columns",
		"Alpha-1 | active",
		"KEY FIELDS: well_name, status",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("Prompt missing %q", fragment)
		}
	}
}

func TestNarrateServiceFailureFallsBack(t *testing.T) {
	service := &recordingService{err: errors.New(errors.ErrTypeGeneration, "service down")}
	narrator := New(service)

	result := &execute.ResultSet{
		Columns: []string{"depth"},
		Rows:    [][]any{{float64(100)}, {float64(300)}},
	}

	response := narrator.Narrate(context.Background(), "How deep are the wells?", "", result, false)

	if !strings.Contains(response, "I found 2 results") {
		t.Errorf("Expected deterministic fallback, got %q", response)
	}

	if !strings.Contains(response, "depth: min 100, max 300, avg 200") {
		t.Errorf("Expected numeric insight in fallback, got %q", response)
	}
}

func TestNarrateRevealQueryAppendsSQL(t *testing.T) {
	narrator := New(nil)

	result := &execute.ResultSet{
		Columns: []string{"n"},
		Rows:    [][]any{{int64(1)}},
	}

	response := narrator.Narrate(context.Background(), "count?", "SELECT COUNT(*) FROM wells;", result, true)

	if !strings.Contains(response, "SELECT COUNT(*) FROM wells;") {
		t.Errorf("Expected SQL disclosure, got %q", response)
	}
}

func TestDisplayValue(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "N/A"},
		{"NaN", math.NaN(), "N/A"},
		{"timestamp", ts, "2025-03-14 09:26"},
		{"integer float", float64(42), "42"},
		{"fraction", 3.14159, "3.14"},
		{"bytes", []byte("raw"), "raw"},
		{"string", "hello", "hello"},
		{"int64", int64(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayValue(tt.value); got != tt.want {
				t.Errorf("displayValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSummarizeCapsSampleRows(t *testing.T) {
	result := &execute.ResultSet{Columns: []string{"n"}}
	for i := 0; i < 25; i++ {
		result.Rows = append(result.Rows, []any{int64(i)})
	}

	summary := summarize(result)

	if summary.RowCount != 25 {
		t.Errorf("Expected row count 25, got %d", summary.RowCount)
	}

	if len(summary.SampleRows) != maxSampleRows {
		t.Errorf("Expected %d sample rows, got %d", maxSampleRows, len(summary.SampleRows))
	}
}

func TestInspectColumn(t *testing.T) {
	t.Run("low cardinality text enumerates values", func(t *testing.T) {
		result := &execute.ResultSet{
			Columns: []string{"status"},
			Rows:    [][]any{{"active"}, {"active"}, {"suspended"}},
		}

		insight, ok := inspectColumn(result, 0)
		if !ok {
			t.Fatal("Expected an insight")
		}

		if insight.Kind != insightEnumerated {
			t.Fatalf("Expected enumerated insight, got %v", insight.Kind)
		}

		if got := insight.String(); got != "status: values are active, suspended" {
			t.Errorf("Unexpected insight: %q", got)
		}
	})

	t.Run("high cardinality text counts distincts", func(t *testing.T) {
		result := &execute.ResultSet{Columns: []string{"well_name"}}
		for i := 0; i < 15; i++ {
			result.Rows = append(result.Rows, []any{string(rune('a' + i))})
		}

		insight, ok := inspectColumn(result, 0)
		if !ok {
			t.Fatal("Expected an insight")
		}

		if insight.Kind != insightDistinctCount || insight.DistinctCount != 15 {
			t.Errorf("Expected 15 distinct values, got %+v", insight)
		}
	})

	t.Run("all null column yields no insight", func(t *testing.T) {
		result := &execute.ResultSet{
			Columns: []string{"notes"},
			Rows:    [][]any{{nil}, {nil}},
		}

		if _, ok := inspectColumn(result, 0); ok {
			t.Error("Expected no insight for all-null column")
		}
	})
}

func TestImportantColumns(t *testing.T) {
	columns := []string{"well_name", "depth", "status", "created_date", "operator"}

	got := importantColumns(columns)
	want := []string{"well_name", "status", "created_date"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at %d, got %q", want[i], i, got[i])
		}
	}
}
