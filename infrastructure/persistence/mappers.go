package persistence

import (
	"strings"
	"time"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// RepositoryMapper maps between domain Repository and RepositoryModel.
type RepositoryMapper struct{}

// ToDomain converts a RepositoryModel to a domain Repository.
func (RepositoryMapper) ToDomain(e RepositoryModel) repository.Repository {
	return repository.HydrateRepository(e.ID, e.Name, e.RemoteURL, e.DefaultBranch, e.CreatedAt, e.UpdatedAt)
}

// ToModel converts a domain Repository to a RepositoryModel.
func (RepositoryMapper) ToModel(r repository.Repository) RepositoryModel {
	return RepositoryModel{
		ID:            r.ID(),
		Name:          r.Name(),
		RemoteURL:     r.RemoteURL(),
		DefaultBranch: r.DefaultBranch(),
		CreatedAt:     r.CreatedAt(),
		UpdatedAt:     r.UpdatedAt(),
	}
}

// BranchMapper maps between domain Branch and BranchModel.
type BranchMapper struct{}

// ToDomain converts a BranchModel to a domain Branch.
func (BranchMapper) ToDomain(e BranchModel) repository.Branch {
	indexedSHA := ""
	if e.IndexedSHA != nil {
		indexedSHA = *e.IndexedSHA
	}
	lastIndexed := time.Time{}
	if e.LastIndexedAt != nil {
		lastIndexed = *e.LastIndexedAt
	}
	return repository.HydrateBranch(
		e.ID, e.RepoID, e.Name, e.HeadSHA, indexedSHA,
		repository.IndexState(e.State),
		lastIndexed, e.LastAccessedAt, e.CreatedAt, e.UpdatedAt,
	)
}

// ToModel converts a domain Branch to a BranchModel.
func (BranchMapper) ToModel(b repository.Branch) BranchModel {
	model := BranchModel{
		ID:             b.ID(),
		RepoID:         b.RepoID(),
		Name:           b.Name(),
		HeadSHA:        b.HeadSHA(),
		State:          b.State().String(),
		LastAccessedAt: b.LastAccessedAt(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
	if sha := b.IndexedSHA(); sha != "" {
		model.IndexedSHA = &sha
	}
	if t := b.LastIndexedAt(); !t.IsZero() {
		model.LastIndexedAt = &t
	}
	return model
}

// CommitMapper maps between domain Commit and CommitModel.
type CommitMapper struct{}

// ToDomain converts a CommitModel to a domain Commit.
func (CommitMapper) ToDomain(e CommitModel) repository.Commit {
	return repository.HydrateCommit(
		e.ID, e.RepoID, e.SHA, e.Branch,
		repository.NewAuthor(e.AuthorName, e.AuthorEmail),
		e.Message, e.CommittedAt,
	)
}

// ToModel converts a domain Commit to a CommitModel.
func (CommitMapper) ToModel(c repository.Commit) CommitModel {
	return CommitModel{
		ID:          c.ID(),
		RepoID:      c.RepoID(),
		SHA:         c.SHA(),
		Branch:      c.Branch(),
		AuthorName:  c.Author().Name(),
		AuthorEmail: c.Author().Email(),
		Message:     c.Message(),
		CommittedAt: c.CommittedAt(),
	}
}

// FileMapper maps between domain File and FileModel.
type FileMapper struct{}

// ToDomain converts a FileModel to a domain File.
func (FileMapper) ToDomain(e FileModel) repository.File {
	return repository.HydrateFile(e.ID, e.RepoID, e.Branch, e.CommitSHA, e.Path, e.Language, e.Size, e.LineCount, e.IndexedAt)
}

// ToModel converts a domain File to a FileModel.
func (FileMapper) ToModel(f repository.File) FileModel {
	return FileModel{
		ID:        f.ID(),
		RepoID:    f.RepoID(),
		Branch:    f.Branch(),
		CommitSHA: f.CommitSHA(),
		Path:      f.Path(),
		Language:  f.Language(),
		Size:      f.Size(),
		LineCount: f.LineCount(),
		IndexedAt: f.IndexedAt(),
	}
}

// SymbolMapper maps between domain Symbol and SymbolModel.
type SymbolMapper struct{}

// ToDomain converts a SymbolModel to a domain Symbol.
func (SymbolMapper) ToDomain(e SymbolModel) symbol.Symbol {
	var modifiers []string
	if e.Modifiers != "" {
		modifiers = strings.Split(e.Modifiers, ",")
	}
	parentID := int64(0)
	if e.ParentID != nil {
		parentID = *e.ParentID
	}
	return symbol.HydrateSymbol(
		e.ID, e.RepoID, e.Branch, e.CommitSHA, e.FilePath, e.Name, e.QualifiedName,
		symbol.ParseKind(e.Kind),
		e.StartLine, e.EndLine, e.StartColumn, e.EndColumn,
		e.Signature, e.Documentation, modifiers, parentID, e.Language, e.IndexedAt,
	)
}

// ToModel converts a domain Symbol to a SymbolModel.
func (SymbolMapper) ToModel(s symbol.Symbol) SymbolModel {
	model := SymbolModel{
		ID:            s.ID(),
		RepoID:        s.RepoID(),
		Branch:        s.Branch(),
		CommitSHA:     s.CommitSHA(),
		FilePath:      s.FilePath(),
		Name:          s.Name(),
		QualifiedName: s.QualifiedName(),
		Kind:          s.Kind().String(),
		StartLine:     s.StartLine(),
		EndLine:       s.EndLine(),
		StartColumn:   s.StartColumn(),
		EndColumn:     s.EndColumn(),
		Signature:     s.Signature(),
		Documentation: s.Documentation(),
		Modifiers:     strings.Join(s.Modifiers(), ","),
		Language:      s.Language(),
		IndexedAt:     s.IndexedAt(),
	}
	if pid := s.ParentID(); pid != 0 {
		model.ParentID = &pid
	}
	return model
}

// EdgeMapper maps between domain Edge and EdgeModel.
type EdgeMapper struct{}

// ToDomain converts an EdgeModel to a domain Edge.
func (EdgeMapper) ToDomain(e EdgeModel) symbol.Edge {
	targetID := int64(0)
	if e.TargetID != nil {
		targetID = *e.TargetID
	}
	return symbol.HydrateEdge(
		e.ID, e.SourceID, targetID, e.TargetName,
		symbol.EdgeKind(e.Kind),
		e.RepoID, e.Branch, e.CommitSHA, e.FilePath, e.Line,
	)
}

// ToModel converts a domain Edge to an EdgeModel.
func (EdgeMapper) ToModel(e symbol.Edge) EdgeModel {
	model := EdgeModel{
		ID:         e.ID(),
		SourceID:   e.SourceID(),
		TargetName: e.TargetName(),
		Kind:       e.Kind().String(),
		RepoID:     e.RepoID(),
		Branch:     e.Branch(),
		CommitSHA:  e.CommitSHA(),
		FilePath:   e.FilePath(),
		Line:       e.Line(),
	}
	if tid := e.TargetID(); tid != 0 {
		model.TargetID = &tid
	}
	return model
}

// ChunkMapper maps between domain CodeChunk and ChunkModel.
type ChunkMapper struct{}

// ToDomain converts a ChunkModel to a domain CodeChunk.
func (ChunkMapper) ToDomain(e ChunkModel) chunk.CodeChunk {
	symbolID := int64(0)
	if e.SymbolID != nil {
		symbolID = *e.SymbolID
	}
	return chunk.HydrateCodeChunk(
		e.ID, e.RepoID, e.Branch, e.CommitSHA, e.FilePath,
		symbolID, e.SymbolName, symbol.ParseKind(e.SymbolKind),
		e.Language, e.Content,
		e.SymbolStartLine, e.SymbolEndLine, e.StartLine, e.EndLine, e.TokenCount,
		e.ParentSymbol, e.Signature, e.Documentation, e.CreatedAt,
	)
}

// ToModel converts a domain CodeChunk to a ChunkModel.
func (ChunkMapper) ToModel(c chunk.CodeChunk) ChunkModel {
	model := ChunkModel{
		ID:              c.ID(),
		RepoID:          c.RepoID(),
		Branch:          c.Branch(),
		CommitSHA:       c.CommitSHA(),
		FilePath:        c.FilePath(),
		SymbolName:      c.SymbolName(),
		SymbolKind:      c.SymbolKind().String(),
		Language:        c.Language(),
		Content:         c.Content(),
		SymbolStartLine: c.SymbolStartLine(),
		SymbolEndLine:   c.SymbolEndLine(),
		StartLine:       c.StartLine(),
		EndLine:         c.EndLine(),
		TokenCount:      c.TokenCount(),
		ParentSymbol:    c.ParentSymbol(),
		Signature:       c.Signature(),
		Documentation:   c.Documentation(),
		CreatedAt:       c.CreatedAt(),
	}
	if sid := c.SymbolID(); sid != 0 {
		model.SymbolID = &sid
	}
	return model
}

// EmbeddingMapper maps between domain Embedding and EmbeddingModel.
type EmbeddingMapper struct{}

// ToDomain converts an EmbeddingModel to a domain Embedding.
func (EmbeddingMapper) ToDomain(e EmbeddingModel) chunk.Embedding {
	return chunk.HydrateEmbedding(
		e.ID, e.ChunkID, e.RepoID, e.Branch, e.CommitSHA,
		e.Embedding.Floats(), e.Model, e.ModelVersion, e.GeneratedAt,
	)
}

// ToModel converts a domain Embedding to an EmbeddingModel.
func (EmbeddingMapper) ToModel(e chunk.Embedding) EmbeddingModel {
	return EmbeddingModel{
		ID:           e.ID(),
		ChunkID:      e.ChunkID(),
		RepoID:       e.RepoID(),
		Branch:       e.Branch(),
		CommitSHA:    e.CommitSHA(),
		Embedding:    database.NewPgVector(e.Vector()),
		Dims:         e.Dims(),
		Model:        e.Model(),
		ModelVersion: e.ModelVersion(),
		GeneratedAt:  e.GeneratedAt(),
	}
}

// SearchEntryMapper maps between domain SearchEntry and SymbolSearchModel.
type SearchEntryMapper struct{}

// ToModel converts a domain SearchEntry to a SymbolSearchModel.
func (SearchEntryMapper) ToModel(e symbol.SearchEntry) SymbolSearchModel {
	return SymbolSearchModel{
		SymbolID:      e.SymbolID(),
		RepoID:        e.RepoID(),
		Branch:        e.Branch(),
		CommitSHA:     e.CommitSHA(),
		FilePath:      e.FilePath(),
		Language:      e.Language(),
		Kind:          e.Kind().String(),
		Name:          e.Name(),
		QualifiedName: e.QualifiedName(),
		Signature:     e.Signature(),
		Documentation: e.Documentation(),
		Literals:      e.Literals(),
		Snippet:       e.Snippet(),
	}
}

// FingerprintMapper maps between domain Fingerprint and FingerprintModel.
type FingerprintMapper struct{}

// ToDomain converts a FingerprintModel to a domain Fingerprint.
func (FingerprintMapper) ToDomain(e FingerprintModel) symbol.Fingerprint {
	return symbol.HydrateFingerprint(
		e.SymbolID, e.RepoID, e.Branch, e.CommitSHA, e.FilePath, e.Language,
		symbol.ParseKind(e.Kind), symbol.FingerprintKind(e.FPKind),
		uint64(e.Fingerprint), e.IndexedAt,
	)
}

// ToModel converts a domain Fingerprint to a FingerprintModel.
func (FingerprintMapper) ToModel(f symbol.Fingerprint) FingerprintModel {
	bands := f.Bands()
	return FingerprintModel{
		SymbolID:    f.SymbolID(),
		RepoID:      f.RepoID(),
		Branch:      f.Branch(),
		CommitSHA:   f.CommitSHA(),
		FilePath:    f.FilePath(),
		Language:    f.Language(),
		Kind:        f.Kind().String(),
		FPKind:      string(f.FingerprintKind()),
		Fingerprint: int64(f.Bits()),
		Band0:       int32(bands[0]),
		Band1:       int32(bands[1]),
		Band2:       int32(bands[2]),
		Band3:       int32(bands[3]),
		IndexedAt:   f.IndexedAt(),
	}
}
