package search

import (
	"regexp"
	"strings"
)

// stopWords are filtered from keyword extraction.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "show": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "use": {}, "used": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {}, "you": {},
}

var (
	wordPattern     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_\.]*`)
	pathHintPattern = regexp.MustCompile(`[\w\-./\\]+\.[A-Za-z0-9]{1,10}`)
)

// ParsedQuery is the structured form of a raw natural-language query.
type ParsedQuery struct {
	raw         string
	intent      Intent
	keywords    []string
	identifiers []string
	pathHints   []string
}

// Parse extracts intent, stop-word-filtered keywords, identifier candidates,
// and file-path hints from a raw query.
func Parse(raw string) ParsedQuery {
	q := ParsedQuery{
		raw:    raw,
		intent: DetectIntent(raw),
	}

	for _, hint := range pathHintPattern.FindAllString(raw, -1) {
		if strings.ContainsAny(hint, "/\\") {
			q.pathHints = append(q.pathHints, hint)
		}
	}

	seenKeyword := make(map[string]struct{})
	seenIdent := make(map[string]struct{})
	for _, word := range wordPattern.FindAllString(raw, -1) {
		word = strings.Trim(word, ".")
		if word == "" {
			continue
		}

		if IsIdentifier(word) {
			if _, dup := seenIdent[word]; !dup {
				q.identifiers = append(q.identifiers, word)
				seenIdent[word] = struct{}{}
			}
		}

		lower := strings.ToLower(word)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if _, dup := seenKeyword[lower]; dup {
			continue
		}
		q.keywords = append(q.keywords, lower)
		seenKeyword[lower] = struct{}{}
	}

	return q
}

// Raw returns the original query text.
func (q ParsedQuery) Raw() string { return q.raw }

// Intent returns the detected intent.
func (q ParsedQuery) Intent() Intent { return q.intent }

// Keywords returns stop-word-filtered lower-cased terms.
func (q ParsedQuery) Keywords() []string {
	result := make([]string, len(q.keywords))
	copy(result, q.keywords)
	return result
}

// Identifiers returns CamelCase/snake_case/qualified identifier candidates.
func (q ParsedQuery) Identifiers() []string {
	result := make([]string, len(q.identifiers))
	copy(result, q.identifiers)
	return result
}

// PathHints returns file-path-looking fragments of the query.
func (q ParsedQuery) PathHints() []string {
	result := make([]string, len(q.pathHints))
	copy(result, q.pathHints)
	return result
}

// PrimaryIdentifier returns the first identifier candidate, or the longest
// keyword when no identifier shape was found.
func (q ParsedQuery) PrimaryIdentifier() string {
	if len(q.identifiers) > 0 {
		return q.identifiers[0]
	}
	best := ""
	for _, kw := range q.keywords {
		if len(kw) > len(best) {
			best = kw
		}
	}
	return best
}

// KeywordText joins the keywords for lexical retrieval, falling back to the
// raw query when everything was filtered.
func (q ParsedQuery) KeywordText() string {
	if len(q.keywords) == 0 {
		return q.raw
	}
	return strings.Join(q.keywords, " ")
}
