// Package execute runs resolved SQL against the DuckDB store and
// returns tabular results. The resolver never touches connections
// itself; this package owns the pool and its limits.
package execute

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
)

// ResultSet is a bounded tabular query result with ordered columns
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the result set has no rows
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// RowCount returns the number of rows in the result set
func (r *ResultSet) RowCount() int {
	if r == nil {
		return 0
	}

	return len(r.Rows)
}

// Executor runs a SQL query and returns its result set
type Executor interface {
	Execute(ctx context.Context, query string) (*ResultSet, error)
}

// DuckDBExecutor implements Executor over a pooled DuckDB connection
type DuckDBExecutor struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
	logger  *logging.Logger
}

// NewDuckDBExecutor opens the database at the configured path and
// verifies connectivity.
func NewDuckDBExecutor(cfg config.DatabaseConfig) (*DuckDBExecutor, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeExecution, "failed to open database at %s", cfg.Path)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	timeout, err := time.ParseDuration(cfg.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid query timeout")
	}

	executor := newExecutor(db, timeout, cfg.MaxResultRows)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrTypeExecution, "failed to connect to database at %s", cfg.Path)
	}

	return executor, nil
}

// newExecutor wraps an existing handle; tests inject mock databases here
func newExecutor(db *sql.DB, timeout time.Duration, maxRows int) *DuckDBExecutor {
	return &DuckDBExecutor{
		db:      db,
		timeout: timeout,
		maxRows: maxRows,
		logger:  logging.GetLogger(),
	}
}

// Execute runs the query under the configured timeout and collects up
// to the configured maximum number of rows.
func (e *DuckDBExecutor) Execute(ctx context.Context, query string) (*ResultSet, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read result columns")
	}

	result := &ResultSet{Columns: columns}

	for rows.Next() {
		if e.maxRows > 0 && len(result.Rows) >= e.maxRows {
			e.logger.WithField("max_rows", e.maxRows).Warn("Result truncated at row limit")
			break
		}

		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan result row")
		}

		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "result iteration failed")
	}

	e.logger.WithFields(map[string]interface{}{
		"rows":        len(result.Rows),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Query executed")

	return result, nil
}

// Close releases the underlying connection pool
func (e *DuckDBExecutor) Close() error {
	return e.db.Close()
}
