package resolve

import (
	"regexp"
	"strings"
)

var (
	sqlWhitespaceRe = regexp.MustCompile(`\s+`)
	strayWhereAndRe = regexp.MustCompile(`(?i)\bWHERE\s+AND\b`)
	doubledAndRe    = regexp.MustCompile(`(?i)\bAND(\s+AND)+\b`)
)

// NormalizeSQL applies the shared post-processing contract for every
// produced query regardless of origin: collapse whitespace, drop a
// stray AND directly after WHERE, collapse doubled ANDs, and ensure
// exactly one trailing semicolon. Idempotent.
func NormalizeSQL(sql string) string {
	sql = sqlWhitespaceRe.ReplaceAllString(strings.TrimSpace(sql), " ")
	if sql == "" {
		return ""
	}

	// Doubled ANDs collapse first so WHERE AND AND resolves fully in
	// one application.
	sql = doubledAndRe.ReplaceAllString(sql, "AND")
	sql = strayWhereAndRe.ReplaceAllString(sql, "WHERE")

	sql = strings.TrimRight(sql, "; ")

	return sql + ";"
}
