// Package search provides query understanding, scoring, and response
// shaping for the hybrid retrieval pipeline.
package search

import (
	"regexp"
	"strings"
)

// Intent classifies what a query is asking for.
type Intent string

// Intent values.
const (
	IntentSearch        Intent = "search"
	IntentNavigation    Intent = "navigation"
	IntentRelations     Intent = "relations"
	IntentDocumentation Intent = "documentation"
	IntentExamples      Intent = "examples"
)

// String returns the intent name.
func (i Intent) String() string { return string(i) }

// Compiled patterns for intent detection. Order matters: relations and
// navigation phrasing is more specific than documentation phrasing.
var (
	relationsPattern = regexp.MustCompile(`(?i)\b(what calls|who calls|who uses|what uses|who overrides|callers of|references to|implementations? of|usages? of|depends on|dependencies of)\b`)

	navigationPattern = regexp.MustCompile(`(?i)\b(where is|where'?s|show me the definition|go ?to definition|definition of|find the (class|method|function|symbol)|locate)\b`)

	documentationPattern = regexp.MustCompile(`(?i)\b(explain|how does|how do|what does|what is the purpose|describe|why does)\b`)

	examplesPattern = regexp.MustCompile(`(?i)\b(examples? of|show me how to use|sample usage|usage example|how to call)\b`)

	// Identifier shapes: CamelCase, snake_case, dotted qualified names.
	camelCasePattern  = regexp.MustCompile(`^[a-z]+([A-Z][a-z0-9]*)+$`)
	pascalCasePattern = regexp.MustCompile(`^([A-Z][a-z0-9]*){2,}$`)
	snakeCasePattern  = regexp.MustCompile(`^[a-z]+(_[a-z0-9]+)+$`)
	qualifiedPattern  = regexp.MustCompile(`^\w+(\.\w+)+$`)
)

// DetectIntent maps a raw query to an Intent using keyword heuristics.
// The default is Search. A bare identifier is treated as Navigation.
func DetectIntent(query string) Intent {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return IntentSearch
	}

	switch {
	case relationsPattern.MatchString(trimmed):
		return IntentRelations
	case navigationPattern.MatchString(trimmed):
		return IntentNavigation
	case examplesPattern.MatchString(trimmed):
		return IntentExamples
	case documentationPattern.MatchString(trimmed):
		return IntentDocumentation
	}

	if IsIdentifier(trimmed) {
		return IntentNavigation
	}

	return IntentSearch
}

// IsIdentifier reports whether the text looks like a single code identifier
// (CamelCase, PascalCase, snake_case, or dotted qualified name).
func IsIdentifier(text string) bool {
	if strings.ContainsAny(text, " \t\n") {
		return false
	}
	return camelCasePattern.MatchString(text) ||
		pascalCasePattern.MatchString(text) ||
		snakeCasePattern.MatchString(text) ||
		qualifiedPattern.MatchString(text)
}
