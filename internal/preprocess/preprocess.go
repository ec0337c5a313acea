// Package preprocess cleans and linguistically repairs a raw question
// before it reaches query resolution. Every stage is fail-open: an
// unavailable text service degrades to passing the question through
// unchanged rather than blocking resolution.
package preprocess

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
)

const grammarMaxTokens = 150

// Result records each stage of the preprocessing pipeline. Stages are
// strictly sequential; each consumes the prior stage's output.
type Result struct {
	Original     string
	Cleaned      string
	Improved     string
	Enhanced     string
	Final        string
	Improvements []string
}

// Summary returns the human-readable improvement summary
func (r Result) Summary() string {
	return strings.Join(r.Improvements, "; ")
}

// rewrite is a whole-word, case-insensitive substitution rule
type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

// Shorthand expansions applied during basic cleanup. Ordered so that
// longer phrases are rewritten before their sub-words.
var shorthandRewrites = []rewrite{
	{regexp.MustCompile(`(?i)\bwho r\b`), "who are"},
	{regexp.MustCompile(`(?i)\bppl\b`), "people"},
	{regexp.MustCompile(`(?i)\bwhrs\b`), "hours"},
	{regexp.MustCompile(`(?i)\bhrs\b`), "hours"},
	{regexp.MustCompile(`(?i)\bhr\b`), "hour"},
	{regexp.MustCompile(`(?i)\bmgr\b`), "manager"},
	{regexp.MustCompile(`(?i)\bsup\b`), "supervisor"},
	{regexp.MustCompile(`(?i)\beng\b`), "engineer"},
	{regexp.MustCompile(`(?i)\bwat\b`), "what"},
}

// Domain-term canonicalization applied after grammar improvement.
// Currently identity mappings; the stage exists as an extension point
// for deployment-specific vocabulary.
var domainRewrites = []rewrite{
	{regexp.MustCompile(`(?i)\bcurrent status\b`), "current status"},
	{regexp.MustCompile(`(?i)\bpeople\b`), "people"},
	{regexp.MustCompile(`(?i)\bmanager\b`), "manager"},
	{regexp.MustCompile(`(?i)\bsupervisor\b`), "supervisor"},
	{regexp.MustCompile(`(?i)\bengineer\b`), "engineer"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

var interrogativeWords = []string{"who", "what", "where", "when", "which", "how"}

// Preprocessor normalizes raw questions through a four-stage pipeline
type Preprocessor struct {
	llm    llm.Service
	logger *logging.Logger
}

// New creates a preprocessor. The llm service may be nil, in which case
// the grammar-improvement stage is a pass-through.
func New(service llm.Service) *Preprocessor {
	return &Preprocessor{
		llm:    service,
		logger: logging.GetLogger(),
	}
}

// Preprocess runs the full pipeline over a raw question. It never fails.
func (p *Preprocessor) Preprocess(ctx context.Context, raw string) Result {
	cleaned := basicCleanup(raw)
	improved := p.improveGrammar(ctx, cleaned)
	enhanced := domainEnhance(improved)
	final := finalValidation(enhanced)

	return Result{
		Original:     raw,
		Cleaned:      cleaned,
		Improved:     improved,
		Enhanced:     enhanced,
		Final:        final,
		Improvements: explainImprovements(raw, final),
	}
}

// basicCleanup collapses whitespace and expands domain shorthand
func basicCleanup(question string) string {
	question = whitespaceRe.ReplaceAllString(strings.TrimSpace(question), " ")

	for _, r := range shorthandRewrites {
		question = r.pattern.ReplaceAllString(question, r.replacement)
	}

	return question
}

// improveGrammar delegates to the text service for grammar and clarity
// fixes only; on any service failure the input passes through unchanged.
func (p *Preprocessor) improveGrammar(ctx context.Context, question string) string {
	if p.llm == nil {
		return question
	}

	prompt := buildGrammarPrompt(question)

	improved, err := p.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   grammarMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		p.logger.WithError(err).Warn("Grammar improvement unavailable, passing question through")
		return question
	}

	improved = strings.TrimSpace(improved)

	// The service sometimes wraps its answer in quotes
	improved = strings.Trim(improved, `"'`)

	if improved == "" {
		return question
	}

	return improved
}

func buildGrammarPrompt(question string) string {
	return fmt.Sprintf(`You are a query improvement specialist. Take user questions that may have grammatical errors, unclear phrasing, or awkward wording and improve them while preserving the original intent.

RULES FOR IMPROVEMENT:
1. Fix grammatical errors (spelling, punctuation, verb tense)
2. Improve clarity and readability
3. Preserve the original question intent completely
4. Use natural, professional language
5. Keep the same level of specificity

IMPORTANT: Only improve grammar and clarity. Do NOT:
- Change the fundamental question being asked
- Add new information or constraints not in the original
- Remove specific details or names

Original query: "%s"

Return ONLY the improved query with no explanations or additional text:`, question)
}

// domainEnhance applies the domain-term canonicalization dictionary
func domainEnhance(question string) string {
	for _, r := range domainRewrites {
		question = r.pattern.ReplaceAllString(question, r.replacement)
	}

	return question
}

// finalValidation ensures terminal punctuation and leading
// capitalization. Output is never empty; blank input collapses to a
// bare terminator.
func finalValidation(question string) string {
	question = whitespaceRe.ReplaceAllString(strings.TrimSpace(question), " ")
	if question == "" {
		return "."
	}

	if !strings.HasSuffix(question, "?") &&
		!strings.HasSuffix(question, ".") &&
		!strings.HasSuffix(question, "!") {
		if isInterrogative(question) {
			question += "?"
		} else {
			question += "."
		}
	}

	runes := []rune(question)
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}

func isInterrogative(question string) bool {
	questionLower := strings.ToLower(question)
	for _, word := range interrogativeWords {
		if strings.Contains(questionLower, word) {
			return true
		}
	}

	return false
}

// explainImprovements compares original and final text across four axes
// and produces one phrase per axis that changed.
func explainImprovements(original, final string) []string {
	var improvements []string

	if original == "" {
		return []string{"No changes needed"}
	}

	if !strings.EqualFold(original, final) {
		improvements = append(improvements, "Grammar and clarity improved")
	}

	if len(strings.Fields(original)) != len(strings.Fields(final)) {
		improvements = append(improvements, "Wording optimized")
	}

	if !hasTerminalPunctuation(original) && hasTerminalPunctuation(final) {
		improvements = append(improvements, "Added proper punctuation")
	}

	origRunes := []rune(original)
	finalRunes := []rune(final)

	if len(origRunes) > 0 && len(finalRunes) > 0 &&
		unicode.IsLower(origRunes[0]) && unicode.IsUpper(finalRunes[0]) {
		improvements = append(improvements, "Capitalized first letter")
	}

	if len(improvements) == 0 {
		improvements = append(improvements, "No changes needed")
	}

	return improvements
}

func hasTerminalPunctuation(s string) bool {
	return strings.HasSuffix(s, "?") || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!")
}

// Example pairs a raw question with its expected preprocessed form,
// for front-end display.
type Example struct {
	Before string
	After  string
}

// Examples returns canonical before/after preprocessing pairs
func Examples() []Example {
	return []Example{
		{"wat is current status", "What is current status?"},
		{"list all jobs for mgr smith", "List all jobs for manager smith."},
		{"who r the managers", "Who are the managers?"},
		{"how many ppl today", "How many people today?"},
	}
}
