// Package chunk provides code-chunk and embedding domain types.
package chunk

import (
	"time"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
)

// CodeChunk is a contiguous, context-padded slice of source text centered on
// a symbol, or a whole file when no symbols were parsed. It is the unit of
// dense embedding.
type CodeChunk struct {
	id         int64
	repoID     int64
	branch     string
	commitSHA  string
	filePath   string
	symbolID   int64 // 0 for whole-file chunks
	symbolName string
	symbolKind symbol.Kind
	language   string
	content    string
	// symbolStart/EndLine span the primary symbol; startLine/endLine span
	// the chunk including context lines.
	symbolStartLine int
	symbolEndLine   int
	startLine       int
	endLine         int
	tokenCount      int
	parentSymbol    string
	signature       string
	documentation   string
	createdAt       time.Time
}

// NewCodeChunk creates a new CodeChunk. The token count is approximated as
// one token per four characters.
func NewCodeChunk(repoID int64, branch, commitSHA, filePath, content string) CodeChunk {
	return CodeChunk{
		repoID:     repoID,
		branch:     branch,
		commitSHA:  commitSHA,
		filePath:   filePath,
		content:    content,
		tokenCount: EstimateTokens(content),
		symbolKind: symbol.KindUnknown,
		createdAt:  time.Now().UTC(),
	}
}

// EstimateTokens approximates a token count as chars/4, minimum 1 for
// non-empty content.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	n := len(content) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// ID returns the database identifier.
func (c CodeChunk) ID() int64 { return c.id }

// RepoID returns the owning repository's identifier.
func (c CodeChunk) RepoID() int64 { return c.repoID }

// Branch returns the branch this row belongs to.
func (c CodeChunk) Branch() string { return c.branch }

// CommitSHA returns the commit the chunk was produced at.
func (c CodeChunk) CommitSHA() string { return c.commitSHA }

// FilePath returns the repository-relative file path.
func (c CodeChunk) FilePath() string { return c.filePath }

// SymbolID returns the primary symbol's id, 0 for whole-file chunks.
func (c CodeChunk) SymbolID() int64 { return c.symbolID }

// SymbolName returns the primary symbol's name.
func (c CodeChunk) SymbolName() string { return c.symbolName }

// SymbolKind returns the primary symbol's kind.
func (c CodeChunk) SymbolKind() symbol.Kind { return c.symbolKind }

// Language returns the source language tag.
func (c CodeChunk) Language() string { return c.language }

// Content returns the chunk text.
func (c CodeChunk) Content() string { return c.content }

// SymbolStartLine returns the primary symbol's first line.
func (c CodeChunk) SymbolStartLine() int { return c.symbolStartLine }

// SymbolEndLine returns the primary symbol's last line.
func (c CodeChunk) SymbolEndLine() int { return c.symbolEndLine }

// StartLine returns the chunk's first line including context.
func (c CodeChunk) StartLine() int { return c.startLine }

// EndLine returns the chunk's last line including context.
func (c CodeChunk) EndLine() int { return c.endLine }

// TokenCount returns the approximate token count.
func (c CodeChunk) TokenCount() int { return c.tokenCount }

// ParentSymbol returns the enclosing symbol's name, if any.
func (c CodeChunk) ParentSymbol() string { return c.parentSymbol }

// Signature returns the primary symbol's signature, if any.
func (c CodeChunk) Signature() string { return c.signature }

// Documentation returns the primary symbol's documentation, if any.
func (c CodeChunk) Documentation() string { return c.documentation }

// CreatedAt returns when the chunk was produced.
func (c CodeChunk) CreatedAt() time.Time { return c.createdAt }

// WithSymbol returns a copy annotated with its primary symbol.
func (c CodeChunk) WithSymbol(sym symbol.Symbol) CodeChunk {
	c.symbolID = sym.ID()
	c.symbolName = sym.Name()
	c.symbolKind = sym.Kind()
	c.language = sym.Language()
	c.symbolStartLine = sym.StartLine()
	c.symbolEndLine = sym.EndLine()
	c.signature = sym.Signature()
	c.documentation = sym.Documentation()
	return c
}

// WithSpan returns a copy with the chunk line span set.
func (c CodeChunk) WithSpan(startLine, endLine int) CodeChunk {
	c.startLine = startLine
	c.endLine = endLine
	return c
}

// WithSymbolSpan returns a copy with the primary symbol span set.
func (c CodeChunk) WithSymbolSpan(startLine, endLine int) CodeChunk {
	c.symbolStartLine = startLine
	c.symbolEndLine = endLine
	return c
}

// WithLanguage returns a copy with the language set.
func (c CodeChunk) WithLanguage(language string) CodeChunk {
	c.language = language
	return c
}

// WithParentSymbol returns a copy with the enclosing symbol name set.
func (c CodeChunk) WithParentSymbol(name string) CodeChunk {
	c.parentSymbol = name
	return c
}

// WithID returns a copy with the database identifier set.
func (c CodeChunk) WithID(id int64) CodeChunk {
	c.id = id
	return c
}

// HydrateCodeChunk reconstructs a CodeChunk from stored values.
func HydrateCodeChunk(
	id, repoID int64,
	branch, commitSHA, filePath string,
	symbolID int64,
	symbolName string,
	kind symbol.Kind,
	language, content string,
	symbolStartLine, symbolEndLine, startLine, endLine, tokenCount int,
	parentSymbol, signature, documentation string,
	createdAt time.Time,
) CodeChunk {
	return CodeChunk{
		id:              id,
		repoID:          repoID,
		branch:          branch,
		commitSHA:       commitSHA,
		filePath:        filePath,
		symbolID:        symbolID,
		symbolName:      symbolName,
		symbolKind:      kind,
		language:        language,
		content:         content,
		symbolStartLine: symbolStartLine,
		symbolEndLine:   symbolEndLine,
		startLine:       startLine,
		endLine:         endLine,
		tokenCount:      tokenCount,
		parentSymbol:    parentSymbol,
		signature:       signature,
		documentation:   documentation,
		createdAt:       createdAt,
	}
}
