package search

import "fmt"

// maxSuggestions caps the number of follow-up prompts per response.
const maxSuggestions = 4

// SuggestQueries synthesizes follow-up prompts from top-result symbol names.
func SuggestQueries(intent Intent, results []Result) []string {
	suggestions := []string{}
	seen := make(map[string]struct{})

	for _, r := range results {
		if len(suggestions) >= maxSuggestions {
			break
		}
		name := r.SymbolName
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		switch intent {
		case IntentRelations:
			suggestions = append(suggestions, fmt.Sprintf("Where is %s defined?", name))
		case IntentNavigation:
			suggestions = append(suggestions, fmt.Sprintf("What calls %s?", name))
		default:
			suggestions = append(suggestions, fmt.Sprintf("Show me how %s is used", name))
		}
	}

	return suggestions
}
