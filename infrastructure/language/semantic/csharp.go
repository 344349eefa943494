// Package semantic provides the AST-backed parser for the primary language.
package semantic

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

// CSharpParser extracts symbols and edges from C# source using tree-sitter.
type CSharpParser struct {
	lang *sitter.Language
}

// NewCSharpParser creates a CSharpParser.
func NewCSharpParser() *CSharpParser {
	return &CSharpParser{lang: csharp.GetLanguage()}
}

// Language returns the language tag.
func (p *CSharpParser) Language() string { return language.CSharp }

// Parse extracts symbols and edges from one C# file. The parser never
// panics into the pipeline; failures produce Success=false.
func (p *CSharpParser) Parse(ctx context.Context, input language.ParseInput) (result language.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = language.FailedParse(fmt.Sprintf("csharp parser panic: %v", r))
		}
	}()

	parser := sitter.NewParser()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, input.Content)
	if err != nil {
		return language.FailedParse(fmt.Sprintf("csharp parse: %v", err))
	}
	defer tree.Close()

	b := &csharpBuilder{
		input:  input,
		source: input.Content,
	}
	b.walk(tree.RootNode(), -1, nil)
	b.resolveSameFileTargets()

	return language.ParseResult{
		Symbols:     b.symbols,
		ParentIndex: b.parents,
		Edges:       b.edges,
		Success:     true,
	}
}

// csharpBuilder accumulates symbols and edges during the AST walk.
type csharpBuilder struct {
	input   language.ParseInput
	source  []byte
	symbols []symbol.Symbol
	parents []int
	edges   []language.EdgeSpec
}

// declarationKinds maps tree-sitter node types to symbol kinds.
var declarationKinds = map[string]symbol.Kind{
	"namespace_declaration":             symbol.KindNamespace,
	"file_scoped_namespace_declaration": symbol.KindNamespace,
	"class_declaration":                 symbol.KindClass,
	"record_declaration":                symbol.KindClass,
	"interface_declaration":             symbol.KindInterface,
	"struct_declaration":                symbol.KindStruct,
	"enum_declaration":                  symbol.KindEnum,
	"method_declaration":                symbol.KindMethod,
	"constructor_declaration":           symbol.KindConstructor,
	"destructor_declaration":            symbol.KindDestructor,
	"property_declaration":              symbol.KindProperty,
	"delegate_declaration":              symbol.KindDelegate,
	"event_declaration":                 symbol.KindEvent,
}

func (b *csharpBuilder) walk(node *sitter.Node, parentIdx int, scope []string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		b.visit(child, parentIdx, scope)
	}
}

func (b *csharpBuilder) visit(node *sitter.Node, parentIdx int, scope []string) {
	nodeType := node.Type()

	if kind, ok := declarationKinds[nodeType]; ok {
		b.declare(node, kind, parentIdx, scope)
		return
	}

	switch nodeType {
	case "field_declaration":
		b.declareFields(node, parentIdx, scope, false)
	case "event_field_declaration":
		b.declareFields(node, parentIdx, scope, true)
	case "enum_member_declaration":
		if name := b.fieldText(node, "name"); name != "" {
			b.addSymbol(node, name, symbol.KindConstant, parentIdx, scope)
		}
	case "local_declaration_statement":
		b.declareLocals(node, parentIdx, scope)
	default:
		b.walk(node, parentIdx, scope)
	}
}

// declare emits a symbol for a named declaration and recurses into its body.
func (b *csharpBuilder) declare(node *sitter.Node, kind symbol.Kind, parentIdx int, scope []string) {
	name := b.fieldText(node, "name")
	if name == "" && kind == symbol.KindDestructor {
		name = "~" + lastScope(scope)
	}
	if name == "" {
		b.walk(node, parentIdx, scope)
		return
	}

	idx := b.addSymbol(node, name, kind, parentIdx, scope)
	childScope := append(append([]string(nil), scope...), name)

	switch kind {
	case symbol.KindClass, symbol.KindStruct, symbol.KindInterface:
		b.declareTypeParameters(node, idx, childScope)
		b.emitBaseEdges(node, idx, kind)
		if body := node.ChildByFieldName("body"); body != nil {
			b.walk(body, idx, childScope)
		}
	case symbol.KindNamespace:
		if body := node.ChildByFieldName("body"); body != nil {
			b.walk(body, idx, childScope)
		} else {
			// File-scoped namespaces have declarations as siblings.
			b.walk(node, idx, childScope)
		}
	case symbol.KindEnum:
		if body := node.ChildByFieldName("body"); body != nil {
			b.walk(body, idx, childScope)
		}
	case symbol.KindMethod, symbol.KindConstructor, symbol.KindDestructor:
		b.declareTypeParameters(node, idx, childScope)
		b.emitReturnsEdge(node, idx)
		b.emitParameterTypeEdges(node, idx)
		b.emitOverridesEdge(node, idx, name)
		if body := node.ChildByFieldName("body"); body != nil {
			b.emitBodyEdges(body, idx)
			b.walk(body, idx, childScope)
		}
	case symbol.KindProperty:
		b.emitTypeOfEdge(node, idx)
		if body := node.ChildByFieldName("accessors"); body != nil {
			b.emitBodyEdges(body, idx)
		}
	case symbol.KindDelegate:
		b.emitReturnsEdge(node, idx)
		b.emitParameterTypeEdges(node, idx)
	case symbol.KindEvent:
		b.emitTypeOfEdge(node, idx)
	}
}

// declareFields emits one symbol per declarator in a field declaration.
// Fields with a const modifier become constants.
func (b *csharpBuilder) declareFields(node *sitter.Node, parentIdx int, scope []string, isEvent bool) {
	kind := symbol.KindField
	if isEvent {
		kind = symbol.KindEvent
	} else if hasModifier(node, b.source, "const") {
		kind = symbol.KindConstant
	}

	decl := findChildOfType(node, "variable_declaration")
	if decl == nil {
		return
	}

	typeName := b.fieldText(decl, "type")
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child == nil || child.Type() != "variable_declarator" {
			continue
		}
		name := b.fieldText(child, "name")
		if name == "" {
			name = b.firstIdentifier(child)
		}
		if name == "" {
			continue
		}
		idx := b.addSymbol(node, name, kind, parentIdx, scope)
		b.emitTypeEdge(idx, typeName, symbol.EdgeTypeOf, int(node.StartPoint().Row)+1)
	}
}

// declareLocals emits variable symbols for locals inside method bodies.
func (b *csharpBuilder) declareLocals(node *sitter.Node, parentIdx int, scope []string) {
	if parentIdx < 0 {
		return
	}
	decl := findChildOfType(node, "variable_declaration")
	if decl == nil {
		return
	}
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child == nil || child.Type() != "variable_declarator" {
			continue
		}
		name := b.fieldText(child, "name")
		if name == "" {
			name = b.firstIdentifier(child)
		}
		if name == "" {
			continue
		}
		kind := symbol.KindVariable
		if hasModifier(node, b.source, "const") {
			kind = symbol.KindConstant
		}
		b.addSymbol(node, name, kind, parentIdx, scope)
	}
}

func (b *csharpBuilder) declareTypeParameters(node *sitter.Node, parentIdx int, scope []string) {
	params := node.ChildByFieldName("type_parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child == nil || child.Type() != "type_parameter" {
			continue
		}
		name := b.firstIdentifier(child)
		if name != "" {
			b.addSymbol(child, name, symbol.KindTypeParameter, parentIdx, scope)
		}
	}
}

// addSymbol appends a symbol built from the node and returns its index.
func (b *csharpBuilder) addSymbol(node *sitter.Node, name string, kind symbol.Kind, parentIdx int, scope []string) int {
	qualified := name
	if len(scope) > 0 {
		qualified = strings.Join(scope, ".") + "." + name
	}

	sym := symbol.NewSymbol(
		b.input.RepoID, b.input.Branch, b.input.CommitSHA, b.input.Path,
		name, qualified, kind, language.CSharp,
	).WithSpan(
		int(node.StartPoint().Row)+1,
		int(node.EndPoint().Row)+1,
		int(node.StartPoint().Column),
		int(node.EndPoint().Column),
	)

	if sig := b.signatureOf(node); sig != "" {
		sym = sym.WithSignature(sig)
	}
	if doc := b.docCommentOf(node); doc != "" {
		sym = sym.WithDocumentation(doc)
	}
	if mods := modifiersOf(node, b.source); len(mods) > 0 {
		sym = sym.WithModifiers(mods)
	}

	b.symbols = append(b.symbols, sym)
	b.parents = append(b.parents, parentIdx)
	return len(b.symbols) - 1
}

// emitBaseEdges emits Inherits/Implements for a type's base list. Without
// semantic binding the I-prefix convention separates interfaces from base
// classes; interfaces always inherit.
func (b *csharpBuilder) emitBaseEdges(node *sitter.Node, idx int, kind symbol.Kind) {
	bases := node.ChildByFieldName("bases")
	if bases == nil {
		bases = findChildOfType(node, "base_list")
	}
	if bases == nil {
		return
	}

	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(bases.NamedChildCount()); i++ {
		child := bases.NamedChild(i)
		if child == nil {
			continue
		}
		baseName := baseTypeName(b.nodeText(child))
		if baseName == "" {
			continue
		}

		edgeKind := symbol.EdgeInherits
		if kind != symbol.KindInterface && looksLikeInterface(baseName) {
			edgeKind = symbol.EdgeImplements
		}
		b.edges = append(b.edges, language.EdgeSpec{
			SourceIndex: idx,
			TargetIndex: -1,
			TargetName:  baseName,
			Kind:        edgeKind,
			Line:        line,
		})
	}
}

// emitBodyEdges collects Calls and References edges from a body subtree.
func (b *csharpBuilder) emitBodyEdges(body *sitter.Node, idx int) {
	walkTree(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "invocation_expression":
			callee := b.calleeName(n)
			if callee != "" {
				b.edges = append(b.edges, language.EdgeSpec{
					SourceIndex: idx,
					TargetIndex: -1,
					TargetName:  callee,
					Kind:        symbol.EdgeCalls,
					Line:        int(n.StartPoint().Row) + 1,
				})
			}
		case "member_access_expression":
			// Skip accesses that are the function part of an invocation;
			// those already produced a Calls edge.
			if parent := n.Parent(); parent != nil && parent.Type() == "invocation_expression" {
				fn := parent.ChildByFieldName("function")
				if fn != nil && fn.StartByte() == n.StartByte() && fn.EndByte() == n.EndByte() {
					return true
				}
			}
			name := b.fieldText(n, "name")
			if name != "" {
				b.edges = append(b.edges, language.EdgeSpec{
					SourceIndex: idx,
					TargetIndex: -1,
					TargetName:  name,
					Kind:        symbol.EdgeReferences,
					Line:        int(n.StartPoint().Row) + 1,
				})
			}
		}
		return true
	})
}

func (b *csharpBuilder) emitReturnsEdge(node *sitter.Node, idx int) {
	// Method declarations carry the return type in the "returns" field;
	// delegate declarations use "type".
	typeExpr := b.fieldText(node, "returns")
	if typeExpr == "" {
		typeExpr = b.fieldText(node, "type")
	}
	returnType := baseTypeName(typeExpr)
	b.emitTypeEdge(idx, returnType, symbol.EdgeReturns, int(node.StartPoint().Row)+1)
}

func (b *csharpBuilder) emitTypeOfEdge(node *sitter.Node, idx int) {
	typeName := baseTypeName(b.fieldText(node, "type"))
	b.emitTypeEdge(idx, typeName, symbol.EdgeTypeOf, int(node.StartPoint().Row)+1)
}

func (b *csharpBuilder) emitParameterTypeEdges(node *sitter.Node, idx int) {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child == nil || child.Type() != "parameter" {
			continue
		}
		typeName := baseTypeName(b.fieldText(child, "type"))
		b.emitTypeEdge(idx, typeName, symbol.EdgeTypeOf, int(child.StartPoint().Row)+1)
	}
}

// emitTypeEdge emits a TypeOf/Returns edge unless the target is a built-in
// primitive, which are deliberately excluded.
func (b *csharpBuilder) emitTypeEdge(idx int, typeName string, kind symbol.EdgeKind, line int) {
	if typeName == "" || symbol.IsPrimitiveType(typeName) {
		return
	}
	b.edges = append(b.edges, language.EdgeSpec{
		SourceIndex: idx,
		TargetIndex: -1,
		TargetName:  typeName,
		Kind:        kind,
		Line:        line,
	})
}

// emitOverridesEdge emits an Overrides edge for members carrying the
// override modifier. The target stays a bare name for later resolution.
func (b *csharpBuilder) emitOverridesEdge(node *sitter.Node, idx int, name string) {
	if !hasModifier(node, b.source, "override") {
		return
	}
	b.edges = append(b.edges, language.EdgeSpec{
		SourceIndex: idx,
		TargetIndex: -1,
		TargetName:  name,
		Kind:        symbol.EdgeOverrides,
		Line:        int(node.StartPoint().Row) + 1,
	})
}

// resolveSameFileTargets fills in TargetIndex for edges whose target name
// matches a symbol declared in the same file. Overrides edges stay
// unresolved: their target lives in a base type.
func (b *csharpBuilder) resolveSameFileTargets() {
	byName := make(map[string]int, len(b.symbols))
	for i, sym := range b.symbols {
		if _, taken := byName[sym.Name()]; !taken {
			byName[sym.Name()] = i
		}
	}

	for i := range b.edges {
		if b.edges[i].Kind == symbol.EdgeOverrides {
			continue
		}
		target := b.edges[i].TargetName
		if dot := strings.LastIndexByte(target, '.'); dot >= 0 {
			target = target[dot+1:]
		}
		if idx, ok := byName[target]; ok && idx != b.edges[i].SourceIndex {
			b.edges[i].TargetIndex = idx
		}
	}
}

// calleeName extracts the called name from an invocation expression.
func (b *csharpBuilder) calleeName(node *sitter.Node) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "member_access_expression":
		return b.fieldText(fn, "name")
	case "identifier", "generic_name":
		return baseTypeName(b.nodeText(fn))
	default:
		return b.firstIdentifier(fn)
	}
}

// signatureOf returns the declaration header: source text up to the body or
// terminating semicolon, whitespace-collapsed.
func (b *csharpBuilder) signatureOf(node *sitter.Node) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	} else if accessors := node.ChildByFieldName("accessors"); accessors != nil {
		end = accessors.StartByte()
	}

	start := node.StartByte()
	if start >= end || int(end) > len(b.source) {
		return ""
	}

	sig := strings.Join(strings.Fields(string(b.source[start:end])), " ")
	sig = strings.TrimSuffix(sig, ";")
	sig = strings.TrimSpace(sig)
	if len(sig) > 300 {
		sig = sig[:300]
	}
	return sig
}

// docCommentOf collects /// doc comments immediately preceding the node.
func (b *csharpBuilder) docCommentOf(node *sitter.Node) string {
	var lines []string
	for prev := node.PrevNamedSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevNamedSibling() {
		text := strings.TrimSpace(b.nodeText(prev))
		if !strings.HasPrefix(text, "///") {
			break
		}
		lines = append([]string{strings.TrimSpace(strings.TrimPrefix(text, "///"))}, lines...)
	}
	return strings.Join(lines, "\n")
}

func (b *csharpBuilder) fieldText(node *sitter.Node, field string) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return b.nodeText(child)
}

func (b *csharpBuilder) nodeText(node *sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(b.source) || start >= end {
		return ""
	}
	return string(b.source[start:end])
}

func (b *csharpBuilder) firstIdentifier(node *sitter.Node) string {
	var name string
	walkTree(node, func(n *sitter.Node) bool {
		if n.Type() == "identifier" {
			name = b.nodeText(n)
			return false
		}
		return true
	})
	return name
}

// walkTree visits the subtree depth-first; the callback returns false to
// stop descending.
func walkTree(node *sitter.Node, fn func(*sitter.Node) bool) {
	if !fn(node) {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil {
			walkTree(child, fn)
		}
	}
}

func findChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func modifiersOf(node *sitter.Node, source []byte) []string {
	var mods []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "modifier" {
			start, end := child.StartByte(), child.EndByte()
			if int(end) <= len(source) && start < end {
				mods = append(mods, string(source[start:end]))
			}
		}
	}
	return mods
}

func hasModifier(node *sitter.Node, source []byte, modifier string) bool {
	for _, m := range modifiersOf(node, source) {
		if m == modifier {
			return true
		}
	}
	return false
}

// looksLikeInterface applies the I-prefix naming convention used to split
// Implements from Inherits without semantic binding.
func looksLikeInterface(name string) bool {
	return len(name) >= 2 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// lastScope returns the innermost scope name, or "" if scope is empty.
func lastScope(scope []string) string {
	if len(scope) == 0 {
		return ""
	}
	return scope[len(scope)-1]
}

// baseTypeName strips generic arguments, arrays, and nullability markers
// from a type expression, returning the bare rightmost type name.
func baseTypeName(typeExpr string) string {
	typeExpr = strings.TrimSpace(typeExpr)
	if idx := strings.IndexByte(typeExpr, '<'); idx >= 0 {
		typeExpr = typeExpr[:idx]
	}
	typeExpr = strings.TrimSuffix(typeExpr, "?")
	for strings.HasSuffix(typeExpr, "[]") {
		typeExpr = strings.TrimSuffix(typeExpr, "[]")
	}
	if dot := strings.LastIndexByte(typeExpr, '.'); dot >= 0 {
		typeExpr = typeExpr[dot+1:]
	}
	return strings.TrimSpace(typeExpr)
}

// Ensure CSharpParser implements Parser.
var _ language.Parser = (*CSharpParser)(nil)
