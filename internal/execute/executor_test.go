package execute

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/askdb/askdb/internal/errors"
)

func newMockExecutor(t *testing.T, maxRows int) (*DuckDBExecutor, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return newExecutor(db, 5*time.Second, maxRows), mock
}

func TestExecuteReturnsOrderedColumnsAndRows(t *testing.T) {
	executor, mock := newMockExecutor(t, 0)

	mock.ExpectQuery("SELECT well_name, status FROM wells;").
		WillReturnRows(sqlmock.NewRows([]string{"well_name", "status"}).
			AddRow("Alpha-1", "active").
			AddRow("Beta-2", "suspended"))

	result, err := executor.Execute(context.Background(), "SELECT well_name, status FROM wells;")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Columns) != 2 || result.Columns[0] != "well_name" || result.Columns[1] != "status" {
		t.Errorf("Unexpected columns: %v", result.Columns)
	}

	if result.RowCount() != 2 {
		t.Fatalf("Expected 2 rows, got %d", result.RowCount())
	}

	if result.Rows[0][0] != "Alpha-1" {
		t.Errorf("Unexpected first row: %v", result.Rows[0])
	}

	if result.Empty() {
		t.Error("Expected non-empty result set")
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	executor, mock := newMockExecutor(t, 0)

	mock.ExpectQuery("SELECT \\* FROM wells WHERE 1=0;").
		WillReturnRows(sqlmock.NewRows([]string{"well_name"}))

	result, err := executor.Execute(context.Background(), "SELECT * FROM wells WHERE 1=0;")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Empty() {
		t.Errorf("Expected empty result set, got %d rows", result.RowCount())
	}
}

func TestExecuteTruncatesAtRowLimit(t *testing.T) {
	executor, mock := newMockExecutor(t, 2)

	rows := sqlmock.NewRows([]string{"n"})
	for i := 0; i < 5; i++ {
		rows.AddRow(i)
	}

	mock.ExpectQuery("SELECT n FROM numbers;").WillReturnRows(rows)

	result, err := executor.Execute(context.Background(), "SELECT n FROM numbers;")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.RowCount() != 2 {
		t.Errorf("Expected result truncated to 2 rows, got %d", result.RowCount())
	}
}

func TestExecuteQueryErrorIsExecutionError(t *testing.T) {
	executor, mock := newMockExecutor(t, 0)

	mock.ExpectQuery("SELECT \\* FROM missing;").
		WillReturnError(errors.New(errors.ErrTypeExecution, "table missing does not exist"))

	_, err := executor.Execute(context.Background(), "SELECT * FROM missing;")
	if err == nil {
		t.Fatal("Expected error for failing query")
	}

	if !errors.IsType(err, errors.ErrTypeExecution) {
		t.Errorf("Expected execution error, got %v", errors.GetType(err))
	}
}
