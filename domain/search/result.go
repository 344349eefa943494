package search

// ResultType distinguishes symbol hits from chunk hits.
type ResultType string

// ResultType values.
const (
	ResultTypeSymbol ResultType = "symbol"
	ResultTypeChunk  ResultType = "code_chunk"
)

// RelatedSymbol is a kind-tagged neighbor attached to a Relations result.
type RelatedSymbol struct {
	Name         string `json:"name"`
	Kind         string `json:"kind,omitempty"`
	RelationType string `json:"relationType"`
	Direction    string `json:"direction,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
}

// Result is one entry of a query response. Fields are the outbound JSON
// contract (camelCase).
type Result struct {
	ID            int64           `json:"id"`
	Type          ResultType      `json:"type"`
	Repository    string          `json:"repository"`
	Branch        string          `json:"branch"`
	FilePath      string          `json:"filePath"`
	Language      string          `json:"language,omitempty"`
	SymbolName    string          `json:"symbolName,omitempty"`
	SymbolKind    string          `json:"symbolKind,omitempty"`
	Content       string          `json:"content"`
	StartLine     int             `json:"startLine"`
	EndLine       int             `json:"endLine"`
	Score         float64         `json:"score"`
	BM25Score     *float64        `json:"bm25Score,omitempty"`
	VectorScore   *float64        `json:"vectorScore,omitempty"`
	GraphScore    *float64        `json:"graphScore,omitempty"`
	Signature     string          `json:"signature,omitempty"`
	Documentation string          `json:"documentation,omitempty"`
	Related       []RelatedSymbol `json:"relatedSymbols,omitempty"`
}

// Metadata echoes query understanding back to the caller.
type Metadata struct {
	Keywords   []string `json:"keywords"`
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
}

// Response is the outbound payload of the unified query entry point.
type Response struct {
	Query            string   `json:"query"`
	Intent           string   `json:"intent"`
	Repository       string   `json:"repository"`
	Branch           string   `json:"branch"`
	TotalResults     int      `json:"totalResults"`
	ExecutionTimeMs  int64    `json:"executionTimeMs"`
	Results          []Result `json:"results"`
	SuggestedQueries []string `json:"suggestedQueries"`
	Metadata         Metadata `json:"metadata"`
	Truncated        bool     `json:"truncated,omitempty"`
}

// EmptyResponse returns a well-formed response with no results, used for
// cancellation and empty retrievals. The result array is non-nil.
func EmptyResponse(query string, intent Intent, repo, branch string, keywords []string) Response {
	if keywords == nil {
		keywords = []string{}
	}
	return Response{
		Query:            query,
		Intent:           intent.String(),
		Repository:       repo,
		Branch:           branch,
		Results:          []Result{},
		SuggestedQueries: []string{},
		Metadata: Metadata{
			Keywords:   keywords,
			Repository: repo,
			Branch:     branch,
		},
	}
}

// Float64Ptr returns a pointer to v, for optional score fields.
func Float64Ptr(v float64) *float64 { return &v }
