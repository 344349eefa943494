package language

import (
	"context"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
)

// ParseInput carries one file into a parser.
type ParseInput struct {
	RepoID    int64
	Branch    string
	CommitSHA string
	Path      string
	Content   []byte
	Language  string
}

// EdgeSpec is an edge emitted during parsing. SourceIndex addresses the
// emitting symbol within ParseResult.Symbols; TargetIndex addresses a target
// found in the same file, or -1 when the target is only known by qualified
// name and must be resolved against the committed symbol table later.
type EdgeSpec struct {
	SourceIndex int
	TargetIndex int
	TargetName  string
	Kind        symbol.EdgeKind
	Line        int
}

// ParseResult is the outcome of parsing one file. Symbols preserve source
// order and parents precede their children; ParentIndex is parallel to
// Symbols with -1 for top-level symbols. Parsers never panic into the
// pipeline: failures set Success=false and ErrorMessage, and the pipeline
// continues with other files.
type ParseResult struct {
	Symbols      []symbol.Symbol
	ParentIndex  []int
	Edges        []EdgeSpec
	Success      bool
	ErrorMessage string
}

// FailedParse builds a failure result.
func FailedParse(message string) ParseResult {
	return ParseResult{Success: false, ErrorMessage: message}
}

// Parser extracts symbols and edges from one language.
type Parser interface {
	// Language returns the language tag this parser handles.
	Language() string

	// Parse extracts symbols and edges from a file.
	Parse(ctx context.Context, input ParseInput) ParseResult
}

// Registry routes files to the semantic parser for the primary language and
// textual parsers for everything else.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a Registry from the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Language()] = p
	}
	return r
}

// ParserFor returns the parser for a language tag.
func (r *Registry) ParserFor(language string) (Parser, bool) {
	p, ok := r.parsers[language]
	return p, ok
}

// Parse routes the input to the matching parser. Files in languages without
// a parser produce an empty successful result so they still get a whole-file
// chunk downstream.
func (r *Registry) Parse(ctx context.Context, input ParseInput) ParseResult {
	p, ok := r.parsers[input.Language]
	if !ok {
		return ParseResult{Success: true}
	}
	return p.Parse(ctx, input)
}
