package symbol

// EdgeKind classifies a directed relationship between symbols.
type EdgeKind string

// EdgeKind values.
const (
	EdgeImport     EdgeKind = "import"
	EdgeInherits   EdgeKind = "inherits"
	EdgeImplements EdgeKind = "implements"
	EdgeCalls      EdgeKind = "calls"
	EdgeReferences EdgeKind = "references"
	EdgeDefines    EdgeKind = "defines"
	EdgeContains   EdgeKind = "contains"
	EdgeOverrides  EdgeKind = "overrides"
	EdgeTypeOf     EdgeKind = "type_of"
	EdgeReturns    EdgeKind = "returns"
	EdgeUnknown    EdgeKind = "unknown"
)

// String returns the edge kind name.
func (k EdgeKind) String() string { return string(k) }

// primitiveTypes are built-in types deliberately excluded from TypeOf and
// Returns edges. Covers the primary semantic language plus common aliases.
var primitiveTypes = map[string]struct{}{
	"void": {}, "bool": {}, "boolean": {}, "byte": {}, "sbyte": {},
	"char": {}, "short": {}, "ushort": {}, "int": {}, "uint": {},
	"long": {}, "ulong": {}, "nint": {}, "nuint": {}, "float": {},
	"double": {}, "decimal": {}, "string": {}, "object": {}, "dynamic": {},
	"var": {},
	"int8": {}, "int16": {}, "int32": {}, "int64": {},
	"uint8": {}, "uint16": {}, "uint32": {}, "uint64": {},
	"float32": {}, "float64": {}, "rune": {}, "any": {}, "error": {},
	"none": {}, "str": {}, "number": {}, "undefined": {}, "null": {},
}

// IsPrimitiveType reports whether a type name is a built-in primitive.
// The check is case-insensitive on the bare name (no generic arguments).
func IsPrimitiveType(name string) bool {
	_, ok := primitiveTypes[lowerASCII(name)]
	return ok
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Edge represents a directed, kind-tagged relationship from a source symbol
// to either a resolved symbol id or an unresolved qualified name. Unresolved
// edges are retained for textual retrieval and resolved in a later pass.
type Edge struct {
	id         int64
	sourceID   int64
	targetID   int64 // 0 while unresolved
	targetName string
	kind       EdgeKind
	repoID     int64
	branch     string
	commitSHA  string
	filePath   string
	line       int
}

// NewEdge creates an edge whose target is not yet resolved to a symbol id.
func NewEdge(sourceID int64, targetName string, kind EdgeKind, repoID int64, branch, commitSHA, filePath string, line int) Edge {
	return Edge{
		sourceID:   sourceID,
		targetName: targetName,
		kind:       kind,
		repoID:     repoID,
		branch:     branch,
		commitSHA:  commitSHA,
		filePath:   filePath,
		line:       line,
	}
}

// HydrateEdge reconstructs an Edge from stored values.
func HydrateEdge(id, sourceID, targetID int64, targetName string, kind EdgeKind, repoID int64, branch, commitSHA, filePath string, line int) Edge {
	return Edge{
		id:         id,
		sourceID:   sourceID,
		targetID:   targetID,
		targetName: targetName,
		kind:       kind,
		repoID:     repoID,
		branch:     branch,
		commitSHA:  commitSHA,
		filePath:   filePath,
		line:       line,
	}
}

// ID returns the database identifier.
func (e Edge) ID() int64 { return e.id }

// SourceID returns the source symbol's id.
func (e Edge) SourceID() int64 { return e.sourceID }

// TargetID returns the resolved target symbol id, 0 while unresolved.
func (e Edge) TargetID() int64 { return e.targetID }

// TargetName returns the target's qualified name for later resolution.
func (e Edge) TargetName() string { return e.targetName }

// Kind returns the relationship classification.
func (e Edge) Kind() EdgeKind { return e.kind }

// RepoID returns the owning repository's identifier.
func (e Edge) RepoID() int64 { return e.repoID }

// Branch returns the branch this row belongs to.
func (e Edge) Branch() string { return e.branch }

// CommitSHA returns the commit the edge was extracted at.
func (e Edge) CommitSHA() string { return e.commitSHA }

// FilePath returns the source file the edge originates from.
func (e Edge) FilePath() string { return e.filePath }

// Line returns the 1-based source line of the relationship.
func (e Edge) Line() int { return e.line }

// Resolved reports whether the target has been resolved to a symbol id.
func (e Edge) Resolved() bool { return e.targetID != 0 }

// WithSourceID returns a copy with the source symbol id set.
func (e Edge) WithSourceID(id int64) Edge {
	e.sourceID = id
	return e
}

// WithTargetID returns a copy with the target resolved.
func (e Edge) WithTargetID(id int64) Edge {
	e.targetID = id
	return e
}
