package search

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Budgets are the three outbound response limits applied before emission.
type Budgets struct {
	maxResults      int
	maxSnippetChars int
	maxBytes        int
}

// NewBudgets creates response Budgets. Non-positive values disable the
// corresponding limit.
func NewBudgets(maxResults, maxSnippetChars, maxBytes int) Budgets {
	return Budgets{
		maxResults:      maxResults,
		maxSnippetChars: maxSnippetChars,
		maxBytes:        maxBytes,
	}
}

// MaxResults returns the result-count budget.
func (b Budgets) MaxResults() int { return b.maxResults }

// MaxSnippetChars returns the total snippet character budget.
func (b Budgets) MaxSnippetChars() int { return b.maxSnippetChars }

// MaxBytes returns the serialized response byte budget.
func (b Budgets) MaxBytes() int { return b.maxBytes }

// Compact enforces the three budgets on a response: result count first, then
// the total snippet character budget (truncating lower-ranked content first,
// preserving symbol headers), then the serialized byte budget (dropping
// lowest-scored tail items). Truncated is set whenever anything was cut.
// Results are assumed sorted by score descending.
func (b Budgets) Compact(resp Response) Response {
	if resp.Results == nil {
		resp.Results = []Result{}
	}

	if b.maxResults > 0 && len(resp.Results) > b.maxResults {
		resp.Results = resp.Results[:b.maxResults]
		resp.Truncated = true
	}

	if b.maxSnippetChars > 0 {
		resp = b.applySnippetBudget(resp)
	}

	if b.maxBytes > 0 {
		resp = b.applyByteBudget(resp)
	}

	resp.TotalResults = len(resp.Results)
	return resp
}

// applySnippetBudget trims content from the tail until the total snippet
// character count fits. The first line of a snippet (the symbol header) is
// kept even when the rest is cut.
func (b Budgets) applySnippetBudget(resp Response) Response {
	total := 0
	for _, r := range resp.Results {
		total += utf8.RuneCountInString(r.Content)
	}
	if total <= b.maxSnippetChars {
		return resp
	}

	over := total - b.maxSnippetChars
	for i := len(resp.Results) - 1; i >= 0 && over > 0; i-- {
		content := resp.Results[i].Content
		length := utf8.RuneCountInString(content)
		if length == 0 {
			continue
		}

		header := firstLine(content)
		headerLen := utf8.RuneCountInString(header)

		keep := length - over
		if keep < headerLen {
			keep = headerLen
		}

		if keep < length {
			resp.Results[i].Content = truncateRunes(content, keep)
			over -= length - keep
			resp.Truncated = true
		}
	}
	return resp
}

// applyByteBudget drops tail items until the serialized response fits.
func (b Budgets) applyByteBudget(resp Response) Response {
	for {
		encoded, err := json.Marshal(resp)
		if err != nil || len(encoded) <= b.maxBytes {
			return resp
		}
		if len(resp.Results) == 0 {
			// Nothing left to drop; emit as-is rather than an invalid payload.
			return resp
		}
		resp.Results = resp.Results[:len(resp.Results)-1]
		resp.TotalResults = len(resp.Results)
		resp.Truncated = true
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// truncateRunes cuts a string to n runes without splitting UTF-8 sequences.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
