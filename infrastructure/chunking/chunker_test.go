package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
)

func classAt(name string, start, end int) symbol.Symbol {
	return symbol.NewSymbol(1, "main", "sha", "user/UserService.cs", name, name, symbol.KindClass, "csharp").
		WithSpan(start, end, 0, 0).WithID(int64(start))
}

func TestChunkFile_ContextPadding(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "line"
	}
	content := []byte(strings.Join(lines, "\n"))

	chunker := NewChunker(Params{ContextLinesBefore: 5, ContextLinesAfter: 5, MaxChunkChars: 30000})
	chunks := chunker.ChunkFile(1, "main", "sha", "user/UserService.cs", "csharp", content,
		[]symbol.Symbol{classAt("UserService", 10, 20)}, nil)

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, 5, c.StartLine())
	assert.Equal(t, 25, c.EndLine())
	assert.Equal(t, 10, c.SymbolStartLine())
	assert.Equal(t, 20, c.SymbolEndLine())
	// Invariant: chunkStart <= symbolStart <= symbolEnd <= chunkEnd.
	assert.LessOrEqual(t, c.StartLine(), c.SymbolStartLine())
	assert.LessOrEqual(t, c.SymbolEndLine(), c.EndLine())
}

func TestChunkFile_ClampsToFileBounds(t *testing.T) {
	content := []byte("a\nb\nc\nd")
	chunker := NewChunker(Params{ContextLinesBefore: 10, ContextLinesAfter: 10, MaxChunkChars: 30000})
	chunks := chunker.ChunkFile(1, "main", "sha", "f.cs", "csharp", content,
		[]symbol.Symbol{classAt("A", 2, 3)}, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine())
	assert.Equal(t, 4, chunks[0].EndLine())
}

func TestChunkFile_CharacterCap(t *testing.T) {
	long := strings.Repeat("x", 200)
	content := []byte(long + "\n" + long + "\n" + long)

	chunker := NewChunker(Params{MaxChunkChars: 150})
	chunks := chunker.ChunkFile(1, "main", "sha", "f.cs", "csharp", content,
		[]symbol.Symbol{classAt("A", 1, 3)}, nil)

	require.Len(t, chunks, 1)
	assert.LessOrEqual(t, len(chunks[0].Content()), 150)
}

func TestChunkFile_WholeFileFallback(t *testing.T) {
	content := []byte("just\nsome\ntext")
	chunker := NewChunker(DefaultParams())
	chunks := chunker.ChunkFile(1, "main", "sha", "notes.txt", "unknown", content, nil, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine())
	assert.Equal(t, 3, chunks[0].EndLine())
	assert.Equal(t, "just\nsome\ntext", chunks[0].Content())
}

func TestChunkFile_DeduplicatesSpans(t *testing.T) {
	content := []byte(strings.Repeat("line\n", 30))
	chunker := NewChunker(Params{ContextLinesBefore: 2, ContextLinesAfter: 2, MaxChunkChars: 30000})

	// Two anchors with the same expanded span coalesce into one chunk.
	chunks := chunker.ChunkFile(1, "main", "sha", "f.cs", "csharp", content,
		[]symbol.Symbol{classAt("A", 10, 12), classAt("B", 10, 12)}, nil)

	assert.Len(t, chunks, 1)
}

func TestChunkFile_SkipsNonAnchorSymbols(t *testing.T) {
	content := []byte(strings.Repeat("line\n", 10))
	field := symbol.NewSymbol(1, "main", "sha", "f.cs", "count", "A.count", symbol.KindField, "csharp").
		WithSpan(3, 3, 0, 0)

	chunker := NewChunker(DefaultParams())
	chunks := chunker.ChunkFile(1, "main", "sha", "f.cs", "csharp", content,
		[]symbol.Symbol{field}, nil)

	// No anchors: the file contributes one whole-file chunk instead.
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(0), chunks[0].SymbolID())
}

func TestTruncateChars_UTF8Boundary(t *testing.T) {
	s := "héllo"
	cut := truncateChars(s, 2)
	assert.True(t, len(cut) <= 2)
	for _, r := range cut {
		assert.NotEqual(t, '�', r)
	}
}

func TestEstimateTokens(t *testing.T) {
	chunker := NewChunker(DefaultParams())
	chunks := chunker.ChunkFile(1, "main", "sha", "f.txt", "unknown", []byte(strings.Repeat("abcd", 25)), nil, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 25, chunks[0].TokenCount())
}
