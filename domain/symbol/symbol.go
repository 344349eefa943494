// Package symbol provides source-code symbol and relationship domain types.
package symbol

import "time"

// Kind classifies a declarable source construct.
type Kind string

// Kind values.
const (
	KindNamespace     Kind = "namespace"
	KindClass         Kind = "class"
	KindInterface     Kind = "interface"
	KindStruct        Kind = "struct"
	KindEnum          Kind = "enum"
	KindMethod        Kind = "method"
	KindFunction      Kind = "function"
	KindProperty      Kind = "property"
	KindField         Kind = "field"
	KindVariable      Kind = "variable"
	KindParameter     Kind = "parameter"
	KindConstant      Kind = "constant"
	KindEvent         Kind = "event"
	KindDelegate      Kind = "delegate"
	KindConstructor   Kind = "constructor"
	KindDestructor    Kind = "destructor"
	KindModule        Kind = "module"
	KindPackage       Kind = "package"
	KindTypeParameter Kind = "type_parameter"
	KindUnknown       Kind = "unknown"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// ParseKind maps a string to a Kind, defaulting to Unknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindNamespace, KindClass, KindInterface, KindStruct, KindEnum,
		KindMethod, KindFunction, KindProperty, KindField, KindVariable,
		KindParameter, KindConstant, KindEvent, KindDelegate,
		KindConstructor, KindDestructor, KindModule, KindPackage,
		KindTypeParameter:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Symbol represents a named source construct with its location span.
type Symbol struct {
	id            int64
	repoID        int64
	branch        string
	commitSHA     string
	filePath      string
	name          string
	qualifiedName string
	kind          Kind
	startLine     int
	endLine       int
	startColumn   int
	endColumn     int
	signature     string
	documentation string
	modifiers     []string
	parentID      int64 // 0 when the symbol has no parent
	language      string
	indexedAt     time.Time
}

// NewSymbol creates a new Symbol.
func NewSymbol(repoID int64, branch, commitSHA, filePath, name, qualifiedName string, kind Kind, language string) Symbol {
	return Symbol{
		repoID:        repoID,
		branch:        branch,
		commitSHA:     commitSHA,
		filePath:      filePath,
		name:          name,
		qualifiedName: qualifiedName,
		kind:          kind,
		language:      language,
		indexedAt:     time.Now().UTC(),
	}
}

// ID returns the database identifier.
func (s Symbol) ID() int64 { return s.id }

// RepoID returns the owning repository's identifier.
func (s Symbol) RepoID() int64 { return s.repoID }

// Branch returns the branch this row belongs to.
func (s Symbol) Branch() string { return s.branch }

// CommitSHA returns the commit the symbol was indexed at.
func (s Symbol) CommitSHA() string { return s.commitSHA }

// FilePath returns the repository-relative file path.
func (s Symbol) FilePath() string { return s.filePath }

// Name returns the simple symbol name.
func (s Symbol) Name() string { return s.name }

// QualifiedName returns the fully qualified name.
func (s Symbol) QualifiedName() string { return s.qualifiedName }

// Kind returns the symbol classification.
func (s Symbol) Kind() Kind { return s.kind }

// StartLine returns the 1-based first line of the declaration.
func (s Symbol) StartLine() int { return s.startLine }

// EndLine returns the 1-based last line of the declaration.
func (s Symbol) EndLine() int { return s.endLine }

// StartColumn returns the 0-based start column.
func (s Symbol) StartColumn() int { return s.startColumn }

// EndColumn returns the 0-based end column.
func (s Symbol) EndColumn() int { return s.endColumn }

// Signature returns the declaration signature, if extracted.
func (s Symbol) Signature() string { return s.signature }

// Documentation returns the attached doc comment, if any.
func (s Symbol) Documentation() string { return s.documentation }

// Modifiers returns declaration modifiers (public, static, ...).
func (s Symbol) Modifiers() []string {
	result := make([]string, len(s.modifiers))
	copy(result, s.modifiers)
	return result
}

// ParentID returns the enclosing symbol's id, 0 when top level.
func (s Symbol) ParentID() int64 { return s.parentID }

// Language returns the source language tag.
func (s Symbol) Language() string { return s.language }

// IndexedAt returns when the row was produced.
func (s Symbol) IndexedAt() time.Time { return s.indexedAt }

// WithSpan returns a copy with the location span set.
func (s Symbol) WithSpan(startLine, endLine, startCol, endCol int) Symbol {
	s.startLine = startLine
	s.endLine = endLine
	s.startColumn = startCol
	s.endColumn = endCol
	return s
}

// WithSignature returns a copy with the signature set.
func (s Symbol) WithSignature(sig string) Symbol {
	s.signature = sig
	return s
}

// WithDocumentation returns a copy with documentation set.
func (s Symbol) WithDocumentation(doc string) Symbol {
	s.documentation = doc
	return s
}

// WithModifiers returns a copy with modifiers set.
func (s Symbol) WithModifiers(mods []string) Symbol {
	cp := make([]string, len(mods))
	copy(cp, mods)
	s.modifiers = cp
	return s
}

// WithParentID returns a copy with the enclosing symbol id set.
func (s Symbol) WithParentID(id int64) Symbol {
	s.parentID = id
	return s
}

// WithID returns a copy with the database identifier set.
func (s Symbol) WithID(id int64) Symbol {
	s.id = id
	return s
}

// HydrateSymbol reconstructs a Symbol from stored values.
func HydrateSymbol(
	id, repoID int64,
	branch, commitSHA, filePath, name, qualifiedName string,
	kind Kind,
	startLine, endLine, startCol, endCol int,
	signature, documentation string,
	modifiers []string,
	parentID int64,
	language string,
	indexedAt time.Time,
) Symbol {
	s := NewSymbol(repoID, branch, commitSHA, filePath, name, qualifiedName, kind, language)
	s.id = id
	s.startLine = startLine
	s.endLine = endLine
	s.startColumn = startCol
	s.endColumn = endCol
	s.signature = signature
	s.documentation = documentation
	s.modifiers = modifiers
	s.parentID = parentID
	s.indexedAt = indexedAt
	return s
}
