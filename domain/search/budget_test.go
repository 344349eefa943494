package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResults(n, contentLen int) []Result {
	results := make([]Result, n)
	for i := range results {
		results[i] = Result{
			ID:         int64(i + 1),
			Type:       ResultTypeChunk,
			Repository: "demo",
			Branch:     "main",
			FilePath:   fmt.Sprintf("src/file%d.cs", i),
			Content:    "// header\n" + strings.Repeat("x", contentLen),
			Score:      float64(n - i),
		}
	}
	return results
}

func TestCompact_MaxResults(t *testing.T) {
	resp := EmptyResponse("q", IntentSearch, "demo", "main", nil)
	resp.Results = makeResults(10, 50)

	out := NewBudgets(3, 0, 0).Compact(resp)

	assert.Len(t, out.Results, 3)
	assert.Equal(t, 3, out.TotalResults)
	assert.True(t, out.Truncated)
}

func TestCompact_ByteBudget(t *testing.T) {
	resp := EmptyResponse("q", IntentSearch, "demo", "main", nil)
	resp.Results = makeResults(10, 200)

	out := NewBudgets(3, 0, 1024).Compact(resp)

	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(encoded), 1024)
	assert.LessOrEqual(t, len(out.Results), 3)
	assert.True(t, out.Truncated)
}

func TestCompact_SnippetBudget_PreservesHeaders(t *testing.T) {
	resp := EmptyResponse("q", IntentSearch, "demo", "main", nil)
	resp.Results = makeResults(4, 100)

	out := NewBudgets(0, 120, 0).Compact(resp)

	assert.True(t, out.Truncated)
	// The lowest-ranked snippet is cut first but keeps its header line.
	last := out.Results[len(out.Results)-1].Content
	assert.True(t, strings.HasPrefix(last, "// header"))

	total := 0
	for _, r := range out.Results {
		total += len(r.Content)
	}
	assert.LessOrEqual(t, total, 4*len("// header")+120)
}

func TestCompact_NoTruncationWhenUnderBudget(t *testing.T) {
	resp := EmptyResponse("q", IntentSearch, "demo", "main", nil)
	resp.Results = makeResults(2, 10)

	out := NewBudgets(10, 10000, 100000).Compact(resp)

	assert.False(t, out.Truncated)
	assert.Equal(t, 2, out.TotalResults)
}

func TestCompact_EmptyResults(t *testing.T) {
	resp := EmptyResponse("q", IntentSearch, "demo", "main", nil)

	out := NewBudgets(3, 100, 1024).Compact(resp)

	assert.NotNil(t, out.Results)
	assert.Equal(t, 0, out.TotalResults)
	assert.False(t, out.Truncated)
}

func TestTruncateRunes_UTF8Safe(t *testing.T) {
	s := "héllo wörld"
	cut := truncateRunes(s, 3)
	assert.Equal(t, "hél", cut)
	assert.Equal(t, s, truncateRunes(s, 100))
}
