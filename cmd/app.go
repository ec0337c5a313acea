package cmd

import (
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/narrate"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/preprocess"
	"github.com/askdb/askdb/internal/querylog"
	"github.com/askdb/askdb/internal/resolve"
	"github.com/askdb/askdb/internal/schema"
)

// app bundles the assembled pipeline and its closeable resources
type app struct {
	pipeline *pipeline.Pipeline
	executor *execute.DuckDBExecutor
}

// buildApp assembles the full pipeline from configuration
func buildApp(cfg *config.Config) (*app, error) {
	catalog, err := schema.Load(cfg.Mappings.Path)
	if err != nil {
		return nil, err
	}

	library, err := resolve.LoadLibrary(cfg.Templates.Path)
	if err != nil {
		return nil, err
	}

	manager, err := llm.NewManagerFromConfig(cfg.LLM)
	if err != nil {
		return nil, err
	}

	executor, err := execute.NewDuckDBExecutor(cfg.Database)
	if err != nil {
		return nil, err
	}

	queryLog, err := querylog.NewLogger(cfg.QueryLog.Directory)
	if err != nil {
		executor.Close()
		return nil, err
	}

	var preprocessService llm.Service
	if cfg.Preprocess.Enabled {
		preprocessService = manager
	}

	return &app{
		pipeline: pipeline.New(
			preprocess.New(preprocessService),
			library,
			resolve.NewInstantiator(library, nil),
			resolve.NewGenerator(manager, catalog),
			executor,
			narrate.New(manager),
			queryLog,
		),
		executor: executor,
	}, nil
}

func (a *app) Close() {
	a.executor.Close()
}

// buildQueryLog opens just the query log, for log inspection commands
// that don't need a database or model connection.
func buildQueryLog(cfg *config.Config) (*querylog.Logger, error) {
	return querylog.NewLogger(cfg.QueryLog.Directory)
}
