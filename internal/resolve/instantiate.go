package resolve

import (
	"context"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
)

// FilterExtractor pulls structured filter values out of a question for
// binding into template placeholders. Extraction is domain-specific;
// deployments plug in their own rules.
type FilterExtractor interface {
	Extract(ctx context.Context, question string, params []Param) (map[string]string, error)
}

// defaultExtractor extracts nothing, so every param falls back to its
// declared default (or the always-true predicate).
type defaultExtractor struct{}

func (defaultExtractor) Extract(_ context.Context, _ string, params []Param) (map[string]string, error) {
	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.Name] = defaultValue(p)
	}

	return values, nil
}

// Instantiator binds extracted filters into matched templates
type Instantiator struct {
	lib       *Library
	extractor FilterExtractor
	logger    *logging.Logger
}

// NewInstantiator creates an instantiator. A nil extractor selects the
// default no-extraction behavior.
func NewInstantiator(lib *Library, extractor FilterExtractor) *Instantiator {
	if extractor == nil {
		extractor = defaultExtractor{}
	}

	return &Instantiator{
		lib:       lib,
		extractor: extractor,
		logger:    logging.GetLogger(),
	}
}

// Instantiate renders the template for the given id against filters
// extracted from the question, then normalizes the resulting SQL.
func (i *Instantiator) Instantiate(ctx context.Context, templateID, question string) (ResolvedQuery, error) {
	tmpl, ok := i.lib.Get(templateID)
	if !ok {
		return ResolvedQuery{}, errors.Newf(errors.ErrTypeInternal, "unknown template id: %s", templateID)
	}

	values, err := i.extractor.Extract(ctx, question, tmpl.Params)
	if err != nil {
		// Extraction is advisory; fall back to defaults
		i.logger.WithError(err).WithField("template", templateID).
			Warn("Filter extraction failed, using defaults")

		values, _ = defaultExtractor{}.Extract(ctx, question, tmpl.Params)
	}

	for _, p := range tmpl.Params {
		if values[p.Name] == "" {
			values[p.Name] = defaultValue(p)
		}
	}

	sql, err := render(tmpl, values)
	if err != nil {
		return ResolvedQuery{}, err
	}

	return ResolvedQuery{
		SQL:        NormalizeSQL(sql),
		Provenance: TemplateProvenance(templateID),
	}, nil
}
