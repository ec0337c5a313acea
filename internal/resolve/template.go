package resolve

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askdb/askdb/internal/errors"
)

// ParamKind describes the value expected for a template placeholder
type ParamKind string

const (
	ParamText      ParamKind = "text"
	ParamNumber    ParamKind = "number"
	ParamDate      ParamKind = "date"
	ParamPredicate ParamKind = "predicate"
)

// alwaysTrue is the innocuous default for an absent filter predicate
const alwaysTrue = "1=1"

// Param declares one named placeholder of a template
type Param struct {
	Name    string    `yaml:"name"`
	Kind    ParamKind `yaml:"kind"`
	Default string    `yaml:"default,omitempty"`
}

// Template is a pre-authored, parameterized query paired with the
// trigger keywords that select it.
type Template struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Keywords    []string `yaml:"keywords"`
	SQL         string   `yaml:"sql"`
	Params      []Param  `yaml:"params,omitempty"`
}

// Library holds the template set in declaration order. Immutable after
// load; safe for concurrent readers.
type Library struct {
	templates []Template
	byID      map[string]int
}

type templateDocument struct {
	Templates []Template `yaml:"templates"`
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// LoadLibrary reads a template library from a YAML file. A missing
// file yields an empty library, since templates are an optional
// shortcut in front of generative resolution.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Library{byID: map[string]int{}}, nil
		}

		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to read template file %s", path)
	}

	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "malformed template file")
	}

	return NewLibrary(doc.Templates)
}

// NewLibrary validates a template set and indexes it by id. Every
// placeholder in a template's SQL must be declared as a param and every
// declared param must appear in the SQL, so drift between the two is a
// load-time error rather than a silent no-op at instantiation.
func NewLibrary(templates []Template) (*Library, error) {
	lib := &Library{
		templates: templates,
		byID:      make(map[string]int, len(templates)),
	}

	for i, tmpl := range templates {
		if tmpl.ID == "" {
			return nil, errors.Newf(errors.ErrTypeConfig, "template at position %d has no id", i)
		}

		if _, exists := lib.byID[tmpl.ID]; exists {
			return nil, errors.Newf(errors.ErrTypeConfig, "duplicate template id: %s", tmpl.ID)
		}

		if strings.TrimSpace(tmpl.SQL) == "" {
			return nil, errors.Newf(errors.ErrTypeConfig, "template %s has empty sql", tmpl.ID)
		}

		if err := validateParams(tmpl); err != nil {
			return nil, err
		}

		lib.byID[tmpl.ID] = i
	}

	return lib, nil
}

func validateParams(tmpl Template) error {
	declared := make(map[string]bool, len(tmpl.Params))
	for _, p := range tmpl.Params {
		if p.Name == "" {
			return errors.Newf(errors.ErrTypeConfig, "template %s declares an unnamed param", tmpl.ID)
		}

		if declared[p.Name] {
			return errors.Newf(errors.ErrTypeConfig, "template %s declares param %s twice", tmpl.ID, p.Name)
		}

		declared[p.Name] = true
	}

	used := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl.SQL, -1) {
		used[m[1]] = true
	}

	for name := range used {
		if !declared[name] {
			return errors.Newf(errors.ErrTypeConfig,
				"template %s references undeclared placeholder {%s}", tmpl.ID, name)
		}
	}

	var unused []string

	for name := range declared {
		if !used[name] {
			unused = append(unused, name)
		}
	}

	if len(unused) > 0 {
		sort.Strings(unused)
		return errors.Newf(errors.ErrTypeConfig,
			"template %s declares params never used in sql: %s", tmpl.ID, strings.Join(unused, ", "))
	}

	return nil
}

// Templates returns the template set in declaration order
func (l *Library) Templates() []Template {
	return l.templates
}

// Get looks up a template by id
func (l *Library) Get(id string) (Template, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Template{}, false
	}

	return l.templates[i], true
}

// Len returns the number of templates in the library
func (l *Library) Len() int {
	return len(l.templates)
}

// render substitutes param values into the template SQL. Values must
// cover every declared param; validateParams guarantees the placeholder
// and param sets coincide.
func render(tmpl Template, values map[string]string) (string, error) {
	var missing []string

	sql := placeholderRe.ReplaceAllStringFunc(tmpl.SQL, func(match string) string {
		name := match[1 : len(match)-1]

		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}

		return value
	})

	if len(missing) > 0 {
		return "", errors.Newf(errors.ErrTypeMalformedQuery,
			"template %s has unbound placeholders: %s", tmpl.ID, strings.Join(missing, ", "))
	}

	return sql, nil
}

// defaultValue resolves the innocuous fallback for an unextracted param
func defaultValue(p Param) string {
	if p.Default != "" {
		return p.Default
	}

	if p.Kind == ParamPredicate {
		return alwaysTrue
	}

	return ""
}

func (p Param) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.Kind)
}
