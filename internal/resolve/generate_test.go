package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/schema"
)

// cannedService returns one fixed completion or error
type cannedService struct {
	response string
	err      error
	prompts  []string
}

func (c *cannedService) Complete(_ context.Context, req llm.Request) (string, error) {
	c.prompts = append(c.prompts, req.Prompt)
	return c.response, c.err
}

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()

	catalog, err := schema.Build([]byte(`{
		"field_mappings": {
			"operations": {
				"well_name": {"table": "wells", "column": "well_name", "description": "Well identifier"},
				"status": {"table": "wells", "column": "status", "description": "Current status"}
			}
		},
		"table_relationships": {
			"primary_joins": {
				"wells_crews": "wells.well_id = crews.well_id"
			}
		}
	}`))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return catalog
}

func TestGenerateStripsFencesAndNormalizes(t *testing.T) {
	service := &cannedService{response: "```sql\nSELECT * FROM items\n```"}
	gen := NewGenerator(service, testCatalog(t))

	query := gen.Generate(context.Background(), "show me all data")

	if query.SQL != "SELECT * FROM items;" {
		t.Errorf("Expected %q, got %q", "SELECT * FROM items;", query.SQL)
	}

	if query.Provenance != ProvenanceGenerated {
		t.Errorf("Unexpected provenance: %q", query.Provenance)
	}

	if !query.Valid() {
		t.Error("Expected generated query to be valid")
	}
}

func TestGenerateKeepsFirstStatementOnly(t *testing.T) {
	service := &cannedService{response: "SELECT 1; DROP TABLE wells;"}
	gen := NewGenerator(service, testCatalog(t))

	query := gen.Generate(context.Background(), "anything")

	if query.SQL != "SELECT 1;" {
		t.Errorf("Expected first statement only, got %q", query.SQL)
	}
}

func TestGenerateServiceFailureReturnsErrorMarker(t *testing.T) {
	service := &cannedService{err: errors.New(errors.ErrTypeGeneration, "service down")}
	gen := NewGenerator(service, testCatalog(t))

	query := gen.Generate(context.Background(), "show me all data")

	if !strings.HasPrefix(query.SQL, ErrorMarker) {
		t.Errorf("Expected error marker prefix, got %q", query.SQL)
	}

	if query.Valid() {
		t.Error("Error-marker query must not be valid for execution")
	}

	if query.Provenance != ProvenanceGenerated {
		t.Errorf("Unexpected provenance: %q", query.Provenance)
	}
}

func TestGeneratePromptIsSchemaGrounded(t *testing.T) {
	service := &cannedService{response: "SELECT 1"}
	gen := NewGenerator(service, testCatalog(t))

	gen.Generate(context.Background(), "which wells are active?")

	if len(service.prompts) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(service.prompts))
	}

	prompt := service.prompts[0]

	for _, fragment := range []string{
		"TABLE: wells",
		"wells.well_id = crews.well_id",
		"which wells are active?",
		"Return ONLY the SQL query",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("Prompt missing %q", fragment)
		}
	}
}
