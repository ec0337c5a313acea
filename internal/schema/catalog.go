// Package schema builds an immutable schema catalog from a declarative
// field-mapping document. The catalog is constructed once at startup and
// shared read-only across concurrent requests.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

// ColumnType is an inferred data-type tag for a catalog column
type ColumnType string

const (
	TypeDatetime  ColumnType = "datetime"
	TypeDecimal   ColumnType = "decimal"
	TypeInteger   ColumnType = "integer"
	TypeShortText ColumnType = "short-text"
	TypeLongText  ColumnType = "long-text"
)

// Column describes a single mapped database column
type Column struct {
	Name        string
	FieldName   string
	Description string
	Keywords    []string
	Type        ColumnType
	Category    string
}

// Table describes a database table assembled from field mappings
type Table struct {
	Name        string
	Description string
	Columns     []Column
	Categories  []string
}

// Relationship is a declared join between two tables
type Relationship struct {
	Name string
	Join string
}

// Catalog is the immutable schema model shared by the resolver
type Catalog struct {
	Tables        map[string]*Table
	Relationships []Relationship
}

// fieldMapping is the on-disk shape of a single field declaration
type fieldMapping struct {
	Table       string   `json:"table"`
	Column      string   `json:"column"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// mappingDocument is the on-disk shape of the field-mapping document
type mappingDocument struct {
	FieldMappings      map[string]map[string]fieldMapping `json:"field_mappings"`
	TableRelationships *struct {
		PrimaryJoins map[string]string `json:"primary_joins"`
	} `json:"table_relationships"`
}

// Load reads and builds a catalog from a field-mapping document on disk
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to read field mappings from %s", path)
	}

	return Build(data)
}

// Build constructs a catalog from raw field-mapping document bytes
func Build(data []byte) (*Catalog, error) {
	var doc mappingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "field mappings document is not well-formed JSON")
	}

	if doc.FieldMappings == nil {
		return nil, errors.NewConfigError("missing required key", "field_mappings")
	}

	catalog := &Catalog{
		Tables: make(map[string]*Table),
	}

	// Iterate categories in sorted order so column ordering is stable
	// across runs; the document itself is an unordered map.
	for _, category := range sortedKeys(doc.FieldMappings) {
		fields := doc.FieldMappings[category]
		for _, fieldName := range sortedKeys(fields) {
			info := fields[fieldName]
			if info.Table == "" || info.Column == "" {
				return nil, errors.NewConfigError(
					fmt.Sprintf("field %q must declare both table and column", fieldName), category)
			}

			table, ok := catalog.Tables[info.Table]
			if !ok {
				table = &Table{
					Name:        info.Table,
					Description: describeTable(info.Table),
				}
				catalog.Tables[info.Table] = table
			}

			// Duplicate (table, column) declarations are merged; the first
			// declaration wins for descriptive metadata.
			if !table.hasColumn(info.Column) {
				table.Columns = append(table.Columns, Column{
					Name:        info.Column,
					FieldName:   fieldName,
					Description: info.Description,
					Keywords:    info.Keywords,
					Type:        InferColumnType(info.Column, fieldName),
					Category:    category,
				})
			}

			if !contains(table.Categories, category) {
				table.Categories = append(table.Categories, category)
			}
		}
	}

	// Declared relationships are advisory metadata for prompt construction
	// only; references to unknown tables are kept rather than rejected.
	if doc.TableRelationships != nil {
		for _, name := range sortedKeys(doc.TableRelationships.PrimaryJoins) {
			catalog.Relationships = append(catalog.Relationships, Relationship{
				Name: name,
				Join: doc.TableRelationships.PrimaryJoins[name],
			})
		}
	}

	return catalog, nil
}

// InferColumnType guesses a column's data type from name patterns.
// Rule order is significant: earlier rules win on overlapping matches,
// so "date_id" infers datetime rather than integer.
func InferColumnType(column, fieldName string) ColumnType {
	columnLower := strings.ToLower(column)
	if columnLower == "" {
		columnLower = strings.ToLower(fieldName)
	}

	switch {
	case strings.Contains(columnLower, "date") || strings.Contains(columnLower, "time"):
		return TypeDatetime
	case containsAny(columnLower, "depth", "pressure", "temperature", "weight"):
		return TypeDecimal
	case strings.Contains(columnLower, "id"):
		return TypeInteger
	case strings.Contains(columnLower, "name") || strings.Contains(columnLower, "description"):
		return TypeLongText
	default:
		return TypeShortText
	}
}

// TableNames returns the catalog's table names in sorted order
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ColumnCount returns the total number of columns across all tables
func (c *Catalog) ColumnCount() int {
	total := 0
	for _, table := range c.Tables {
		total += len(table.Columns)
	}

	return total
}

func (t *Table) hasColumn(name string) bool {
	for _, col := range t.Columns {
		if col.Name == name {
			return true
		}
	}

	return false
}

// describeTable provides a human description for known tables
func describeTable(table string) string {
	return "Database table: " + table
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

func contains(slice []string, value string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}

	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
