package symbol

import (
	"context"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
)

// SymbolHit is a symbol search result with a relevance score.
type SymbolHit struct {
	symbol Symbol
	score  float64
}

// NewSymbolHit creates a SymbolHit.
func NewSymbolHit(sym Symbol, score float64) SymbolHit {
	return SymbolHit{symbol: sym, score: score}
}

// Symbol returns the matched symbol.
func (h SymbolHit) Symbol() Symbol { return h.symbol }

// Score returns the relevance score.
func (h SymbolHit) Score() float64 { return h.score }

// CallChainEntry is one row of a breadth-first call traversal.
type CallChainEntry struct {
	symbol Symbol
	depth  int
}

// NewCallChainEntry creates a CallChainEntry.
func NewCallChainEntry(sym Symbol, depth int) CallChainEntry {
	return CallChainEntry{symbol: sym, depth: depth}
}

// Symbol returns the symbol at this traversal step.
func (e CallChainEntry) Symbol() Symbol { return e.symbol }

// Depth returns the traversal depth from the start symbol.
func (e CallChainEntry) Depth() int { return e.depth }

// SymbolStore persists symbols and answers graph and search queries.
type SymbolStore interface {
	Find(ctx context.Context, options ...repository.Option) ([]Symbol, error)
	SaveBatch(ctx context.Context, symbols []Symbol) ([]Symbol, error)
	DeleteBy(ctx context.Context, options ...repository.Option) error
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// Search performs exact (case-insensitive) or fuzzy trigram matching on
	// symbol names. An empty query returns no rows.
	Search(ctx context.Context, query string, repoID int64, branch string, kind Kind, fuzzy bool, limit int) ([]SymbolHit, error)

	// ResolveQualified looks up symbols by lower-cased qualified name.
	ResolveQualified(ctx context.Context, repoID int64, branch, qualifiedName string) ([]Symbol, error)
}

// EdgeStore persists edges and answers graph queries.
type EdgeStore interface {
	Find(ctx context.Context, options ...repository.Option) ([]Edge, error)
	SaveBatch(ctx context.Context, edges []Edge) error
	DeleteBy(ctx context.Context, options ...repository.Option) error
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// FindReferences returns incoming edges for a target symbol.
	FindReferences(ctx context.Context, targetID int64, kind EdgeKind, limit int) ([]Edge, error)

	// FindDependencies returns outgoing edges for a source symbol.
	FindDependencies(ctx context.Context, sourceID int64, kind EdgeKind, limit int) ([]Edge, error)

	// FindCallChain walks Calls edges breadth-first from a start symbol,
	// halting at maxDepth.
	FindCallChain(ctx context.Context, startID int64, maxDepth int) ([]CallChainEntry, error)

	// ResolveTargets fills in target symbol ids for unresolved edges on a
	// branch by matching lower-cased qualified names. Returns the number of
	// edges resolved.
	ResolveTargets(ctx context.Context, repoID int64, branch string) (int64, error)

	// DegreeCounts returns incoming and outgoing edge counts per symbol id.
	DegreeCounts(ctx context.Context, symbolIDs []int64) (map[int64]Degree, error)
}

// Degree holds incoming and outgoing edge counts for a symbol.
type Degree struct {
	In  int64
	Out int64
}

// SearchEntryStore persists sparse symbol-search rows.
type SearchEntryStore interface {
	SaveBatch(ctx context.Context, entries []SearchEntry) error
	DeleteBy(ctx context.Context, options ...repository.Option) error
}

// FingerprintStore persists symbol fingerprints and answers LSH lookups.
type FingerprintStore interface {
	SaveBatch(ctx context.Context, fingerprints []Fingerprint) error
	DeleteBy(ctx context.Context, options ...repository.Option) error

	// Get returns the fingerprint of one symbol.
	Get(ctx context.Context, symbolID int64) (Fingerprint, error)

	// FindCandidates returns fingerprints matching any of the given bands
	// (union over the four band indexes).
	FindCandidates(ctx context.Context, repoID int64, branch, language string, kind Kind, fpKind FingerprintKind, bands [BandCount]uint16, limit int) ([]Fingerprint, error)
}
