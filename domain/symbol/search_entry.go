package symbol

// SearchEntry is the sparse-index row produced alongside a Symbol. The
// weighted fields feed a BM25-style text search: name and qualified name
// carry the highest weight, then signature, then documentation and literals.
type SearchEntry struct {
	symbolID      int64
	repoID        int64
	branch        string
	commitSHA     string
	filePath      string
	language      string
	kind          Kind
	name          string
	qualifiedName string
	signature     string
	documentation string
	literals      string
	snippet       string
}

// NewSearchEntry derives a SearchEntry from a Symbol and its source snippet.
func NewSearchEntry(sym Symbol, literals, snippet string) SearchEntry {
	return SearchEntry{
		symbolID:      sym.ID(),
		repoID:        sym.RepoID(),
		branch:        sym.Branch(),
		commitSHA:     sym.CommitSHA(),
		filePath:      sym.FilePath(),
		language:      sym.Language(),
		kind:          sym.Kind(),
		name:          sym.Name(),
		qualifiedName: sym.QualifiedName(),
		signature:     sym.Signature(),
		documentation: sym.Documentation(),
		literals:      literals,
		snippet:       snippet,
	}
}

// SymbolID returns the indexed symbol's id.
func (e SearchEntry) SymbolID() int64 { return e.symbolID }

// RepoID returns the owning repository's identifier.
func (e SearchEntry) RepoID() int64 { return e.repoID }

// Branch returns the branch this row belongs to.
func (e SearchEntry) Branch() string { return e.branch }

// CommitSHA returns the commit the entry was produced at.
func (e SearchEntry) CommitSHA() string { return e.commitSHA }

// FilePath returns the symbol's file path.
func (e SearchEntry) FilePath() string { return e.filePath }

// Language returns the symbol's language.
func (e SearchEntry) Language() string { return e.language }

// Kind returns the symbol's kind.
func (e SearchEntry) Kind() Kind { return e.kind }

// Name returns the weighted name field.
func (e SearchEntry) Name() string { return e.name }

// QualifiedName returns the weighted qualified-name field.
func (e SearchEntry) QualifiedName() string { return e.qualifiedName }

// Signature returns the weighted signature field.
func (e SearchEntry) Signature() string { return e.signature }

// Documentation returns the weighted documentation field.
func (e SearchEntry) Documentation() string { return e.documentation }

// Literals returns string literals found in the symbol body.
func (e SearchEntry) Literals() string { return e.literals }

// Snippet returns a short source excerpt for display.
func (e SearchEntry) Snippet() string { return e.snippet }
