// Package pipeline orchestrates the full question-to-answer flow:
// preprocess, resolve (template or generative), execute, narrate, log.
// Failures degrade stage by stage; the caller always receives a
// natural-language answer.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/narrate"
	"github.com/askdb/askdb/internal/preprocess"
	"github.com/askdb/askdb/internal/querylog"
	"github.com/askdb/askdb/internal/resolve"
)

// Answer is the outcome of one question
type Answer struct {
	SessionID     string
	Question      string
	FinalQuestion string
	Improvements  []string
	Query         resolve.ResolvedQuery
	ResultCount   int
	Response      string
	Duration      time.Duration
	Success       bool
	ErrorMessage  string
}

// Options tune per-question behavior
type Options struct {
	// RevealSQL appends the executed query to the answer text
	RevealSQL bool
	// SkipPreprocess bypasses question preprocessing
	SkipPreprocess bool
}

// Pipeline wires the resolution stages together. All dependencies are
// injected; the pipeline holds no mutable state of its own.
type Pipeline struct {
	preprocessor *preprocess.Preprocessor
	library      *resolve.Library
	instantiator *resolve.Instantiator
	generator    *resolve.Generator
	executor     execute.Executor
	narrator     *narrate.Narrator
	queryLog     *querylog.Logger
	logger       *logging.Logger
}

// New assembles a pipeline from its stages. queryLog may be nil to
// disable interaction logging.
func New(
	preprocessor *preprocess.Preprocessor,
	library *resolve.Library,
	instantiator *resolve.Instantiator,
	generator *resolve.Generator,
	executor execute.Executor,
	narrator *narrate.Narrator,
	queryLog *querylog.Logger,
) *Pipeline {
	return &Pipeline{
		preprocessor: preprocessor,
		library:      library,
		instantiator: instantiator,
		generator:    generator,
		executor:     executor,
		narrator:     narrator,
		queryLog:     queryLog,
		logger:       logging.GetLogger(),
	}
}

// Ask answers one question end to end
func (p *Pipeline) Ask(ctx context.Context, question string, opts Options) *Answer {
	start := time.Now()

	answer := &Answer{
		SessionID:     uuid.NewString(),
		Question:      question,
		FinalQuestion: question,
		Success:       true,
	}

	preprocessed := !opts.SkipPreprocess

	if preprocessed {
		result := p.preprocessor.Preprocess(ctx, question)
		answer.FinalQuestion = result.Final
		answer.Improvements = result.Improvements
	}

	answer.Query = p.resolveQuery(ctx, answer.FinalQuestion)

	result := p.executeQuery(ctx, answer)
	answer.ResultCount = result.RowCount()

	answer.Response = p.narrator.Narrate(ctx, answer.FinalQuestion, answer.Query.SQL, result, opts.RevealSQL)
	answer.Duration = time.Since(start)

	p.record(answer, preprocessed)

	return answer
}

// resolveQuery tries the template library first and falls back to
// generative resolution.
func (p *Pipeline) resolveQuery(ctx context.Context, question string) resolve.ResolvedQuery {
	if templateID, ok := resolve.Match(question, p.library); ok {
		query, err := p.instantiator.Instantiate(ctx, templateID, question)
		if err == nil {
			p.logger.WithField("template", templateID).Debug("Question matched a template")
			return query
		}

		p.logger.WithError(err).WithField("template", templateID).
			Warn("Template instantiation failed, falling back to generation")
	}

	return p.generator.Generate(ctx, question)
}

// executeQuery runs the resolved query. An invalid query is never sent
// to the executor; execution errors collapse to an empty result so
// narration reports "no results" instead of crashing the request.
func (p *Pipeline) executeQuery(ctx context.Context, answer *Answer) *execute.ResultSet {
	if !answer.Query.Valid() {
		err := errors.New(errors.ErrTypeMalformedQuery, "resolved query is empty or marked as failed")

		answer.Success = false
		answer.ErrorMessage = err.Error()
		p.logger.WithField("provenance", answer.Query.Provenance).Warn("Skipping execution of invalid query")

		return &execute.ResultSet{}
	}

	result, err := p.executor.Execute(ctx, answer.Query.SQL)
	if err != nil {
		answer.Success = false
		answer.ErrorMessage = err.Error()
		p.logger.WithError(err).Warn("Query execution failed")

		return &execute.ResultSet{}
	}

	return result
}

// record appends the interaction to the query log. Logging failures
// never surface to the user.
func (p *Pipeline) record(answer *Answer, preprocessed bool) {
	if p.queryLog == nil {
		return
	}

	// The log stores the bare template id, not the provenance tag
	templateUsed := "none"
	if id, ok := strings.CutPrefix(answer.Query.Provenance, "template:"); ok {
		templateUsed = id
	}

	err := p.queryLog.Append(querylog.Record{
		Timestamp:         time.Now(),
		SessionID:         answer.SessionID,
		OriginalQuestion:  answer.Question,
		ImprovedQuestion:  answer.FinalQuestion,
		TemplateUsed:      templateUsed,
		SQLQuery:          answer.Query.SQL,
		ResultsCount:      answer.ResultCount,
		Response:          answer.Response,
		ProcessingTimeMS:  answer.Duration.Milliseconds(),
		Success:           answer.Success,
		ErrorMessage:      answer.ErrorMessage,
		PreprocessingUsed: preprocessed,
	})
	if err != nil {
		p.logger.WithError(err).Warn("Failed to append query log record")
	}
}
