package chunk

import "time"

// Embedding is the dense vector for one CodeChunk. A chunk without an
// embedding is still reachable through the lexical path.
type Embedding struct {
	id           int64
	chunkID      int64
	repoID       int64
	branch       string
	commitSHA    string
	vector       []float64
	dims         int
	model        string
	modelVersion string
	generatedAt  time.Time
}

// NewEmbedding creates an Embedding for a chunk.
func NewEmbedding(c CodeChunk, vector []float64, model, modelVersion string) Embedding {
	cp := make([]float64, len(vector))
	copy(cp, vector)
	return Embedding{
		chunkID:      c.ID(),
		repoID:       c.RepoID(),
		branch:       c.Branch(),
		commitSHA:    c.CommitSHA(),
		vector:       cp,
		dims:         len(cp),
		model:        model,
		modelVersion: modelVersion,
		generatedAt:  time.Now().UTC(),
	}
}

// HydrateEmbedding reconstructs an Embedding from stored values.
func HydrateEmbedding(id, chunkID, repoID int64, branch, commitSHA string, vector []float64, model, modelVersion string, generatedAt time.Time) Embedding {
	return Embedding{
		id:           id,
		chunkID:      chunkID,
		repoID:       repoID,
		branch:       branch,
		commitSHA:    commitSHA,
		vector:       vector,
		dims:         len(vector),
		model:        model,
		modelVersion: modelVersion,
		generatedAt:  generatedAt,
	}
}

// ID returns the database identifier.
func (e Embedding) ID() int64 { return e.id }

// ChunkID returns the owning chunk's id (one-to-one).
func (e Embedding) ChunkID() int64 { return e.chunkID }

// RepoID returns the owning repository's identifier.
func (e Embedding) RepoID() int64 { return e.repoID }

// Branch returns the branch this row belongs to.
func (e Embedding) Branch() string { return e.branch }

// CommitSHA returns the commit the embedding was generated at.
func (e Embedding) CommitSHA() string { return e.commitSHA }

// Vector returns a copy of the dense vector.
func (e Embedding) Vector() []float64 {
	cp := make([]float64, len(e.vector))
	copy(cp, e.vector)
	return cp
}

// Dims returns the vector dimensionality.
func (e Embedding) Dims() int { return e.dims }

// Model returns the embedding model name.
func (e Embedding) Model() string { return e.model }

// ModelVersion returns the model version, if reported.
func (e Embedding) ModelVersion() string { return e.modelVersion }

// GeneratedAt returns when the vector was produced.
func (e Embedding) GeneratedAt() time.Time { return e.generatedAt }
