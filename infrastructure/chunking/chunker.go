// Package chunking slices parsed files into overlapping, symbol-centered
// chunks for embedding and retrieval.
package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
)

// Params configures the chunking algorithm.
type Params struct {
	ContextLinesBefore int
	ContextLinesAfter  int
	MaxChunkChars      int
}

// DefaultParams returns the default chunking configuration.
func DefaultParams() Params {
	return Params{
		ContextLinesBefore: 5,
		ContextLinesAfter:  5,
		MaxChunkChars:      30_000,
	}
}

// Chunker builds CodeChunks from a file and its parsed symbols.
type Chunker struct {
	params Params
}

// NewChunker creates a Chunker.
func NewChunker(params Params) Chunker {
	if params.MaxChunkChars <= 0 {
		params.MaxChunkChars = DefaultParams().MaxChunkChars
	}
	return Chunker{params: params}
}

// anchorKinds are symbol kinds that center a chunk.
var anchorKinds = map[symbol.Kind]struct{}{
	symbol.KindClass:       {},
	symbol.KindInterface:   {},
	symbol.KindStruct:      {},
	symbol.KindEnum:        {},
	symbol.KindMethod:      {},
	symbol.KindFunction:    {},
	symbol.KindConstructor: {},
	symbol.KindDelegate:    {},
}

// ChunkFile produces one chunk per anchor symbol, each extended by the
// configured context lines and clamped to the file and the character cap.
// A file with no anchor symbols yields one whole-file chunk. Duplicate
// (path, startLine, endLine) spans are coalesced.
func (c Chunker) ChunkFile(
	repoID int64,
	branch, commitSHA, filePath, languageTag string,
	content []byte,
	symbols []symbol.Symbol,
	parentNames map[int64]string,
) []chunk.CodeChunk {
	lines := strings.Split(string(content), "\n")

	var chunks []chunk.CodeChunk
	seen := make(map[[2]int]struct{})

	for _, sym := range symbols {
		if _, anchor := anchorKinds[sym.Kind()]; !anchor {
			continue
		}
		if sym.StartLine() < 1 || sym.StartLine() > len(lines) {
			continue
		}

		startLine := sym.StartLine() - c.params.ContextLinesBefore
		if startLine < 1 {
			startLine = 1
		}
		endLine := sym.EndLine() + c.params.ContextLinesAfter
		if endLine > len(lines) {
			endLine = len(lines)
		}
		if endLine < startLine {
			endLine = startLine
		}

		span := [2]int{startLine, endLine}
		if _, dup := seen[span]; dup {
			continue
		}
		seen[span] = struct{}{}

		text := truncateChars(strings.Join(lines[startLine-1:endLine], "\n"), c.params.MaxChunkChars)

		ck := chunk.NewCodeChunk(repoID, branch, commitSHA, filePath, text).
			WithSymbol(sym).
			WithSpan(startLine, endLine)
		if ck.Language() == "" {
			ck = ck.WithLanguage(languageTag)
		}
		if parent, ok := parentNames[sym.ID()]; ok {
			ck = ck.WithParentSymbol(parent)
		}
		chunks = append(chunks, ck)
	}

	if len(chunks) == 0 && len(content) > 0 {
		text := truncateChars(string(content), c.params.MaxChunkChars)
		ck := chunk.NewCodeChunk(repoID, branch, commitSHA, filePath, text).
			WithLanguage(languageTag).
			WithSpan(1, len(lines)).
			WithSymbolSpan(1, len(lines))
		chunks = append(chunks, ck)
	}

	return chunks
}

// truncateChars cuts trailing content so the chunk fits the character cap,
// never splitting a UTF-8 sequence.
func truncateChars(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := s[:maxChars]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
