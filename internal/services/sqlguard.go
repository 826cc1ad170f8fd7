package services

import (
	"regexp"
	"strings"
)

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// forbiddenKeywords are matched as substrings of the normalized query, not
// as tokens. This over-rejects identifiers that happen to contain one of
// the words (kept as-is for compatibility with the existing clients).
var forbiddenKeywords = []string{
	"drop", "delete", "update", "insert", "alter", "truncate",
	"create", "grant", "revoke", "execute", "exec", "call",
	"copy", "pg_", "information_schema", "pg_catalog",
}

// IsSafeQuery reports whether a candidate query may be executed. Only a
// single read-only SELECT statement passes. Pure; must be called
// immediately before every execution, including repaired queries.
func IsSafeQuery(sql string) bool {
	if sql == "" {
		return false
	}

	normalized := lineCommentRe.ReplaceAllString(sql, "")
	normalized = blockCommentRe.ReplaceAllString(normalized, "")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !strings.HasPrefix(normalized, "select") {
		return false
	}

	for _, keyword := range forbiddenKeywords {
		if strings.Contains(normalized, keyword) {
			return false
		}
	}

	// A semicolon is allowed only as the final character; anything else is
	// statement stacking.
	if idx := strings.Index(normalized, ";"); idx >= 0 && idx < len(normalized)-1 {
		return false
	}

	return true
}
