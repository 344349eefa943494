// Package textual provides regex-based parsers for languages without a
// semantic parser. They extract class/function/method granularity symbols
// with approximate spans; edges are limited to what textual patterns yield
// reliably (imports and declared inheritance).
package textual

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

// rule matches one declaration shape on a single line.
type rule struct {
	kind    symbol.Kind
	pattern *regexp.Regexp // first capture group is the symbol name
	// methodWhenNested switches the kind to Method when the declaration is
	// indented inside an enclosing container symbol.
	methodWhenNested bool
}

// blockStyle selects how a declaration's end line is approximated.
type blockStyle int

const (
	// braceBlocks tracks {} nesting from the declaration line.
	braceBlocks blockStyle = iota
	// indentBlocks extends the span while lines are indented deeper than
	// the declaration.
	indentBlocks
	// keywordEndBlocks tracks do/def/class/module ... end nesting.
	keywordEndBlocks
)

// languageRules bundles everything a textual parser needs for one language.
type languageRules struct {
	language      string
	style         blockStyle
	rules         []rule
	importPattern *regexp.Regexp // first capture group is the imported module
	basesPattern  *regexp.Regexp // declaration line → inherited type list
}

// Parser is a regex parser for one language.
type Parser struct {
	rules languageRules
}

// Language returns the language tag.
func (p *Parser) Language() string { return p.rules.language }

// Parse extracts symbols and edges from one file.
func (p *Parser) Parse(ctx context.Context, input language.ParseInput) (result language.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = language.FailedParse(fmt.Sprintf("%s parser panic: %v", p.rules.language, r))
		}
	}()

	lines := strings.Split(string(input.Content), "\n")

	b := builder{input: input, lang: p.rules.language}
	moduleIdx := b.addModuleSymbol(len(lines))

	// Container stack tracks enclosing class/module symbols by indentation.
	type container struct {
		index  int
		indent int
	}
	var stack []container

	for lineNo, line := range lines {
		if lineNo%256 == 0 && ctx.Err() != nil {
			return language.FailedParse(ctx.Err().Error())
		}

		if p.rules.importPattern != nil {
			if m := p.rules.importPattern.FindStringSubmatch(line); m != nil {
				if target := firstGroup(m); target != "" {
					b.addEdge(moduleIdx, -1, target, symbol.EdgeImport, lineNo+1)
					continue
				}
			}
		}

		for _, r := range p.rules.rules {
			m := r.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			indent := indentOf(line)

			// Pop containers we have left.
			for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
				stack = stack[:len(stack)-1]
			}

			kind := r.kind
			parentIdx := moduleIdx
			if len(stack) > 0 {
				parentIdx = stack[len(stack)-1].index
				if r.methodWhenNested {
					kind = symbol.KindMethod
				}
			}

			endLine := p.blockEnd(lines, lineNo, indent)
			idx := b.addSymbol(name, kind, parentIdx, lineNo+1, endLine, strings.TrimSpace(line))

			if isContainerKind(kind) {
				stack = append(stack, container{index: idx, indent: indent})
			}

			if p.rules.basesPattern != nil && isContainerKind(kind) {
				if bm := p.rules.basesPattern.FindStringSubmatch(line); bm != nil {
					for _, base := range splitBases(bm[1]) {
						b.addEdge(idx, -1, base, symbol.EdgeInherits, lineNo+1)
					}
				}
			}
			break
		}
	}

	return language.ParseResult{
		Symbols:     b.symbols,
		ParentIndex: b.parents,
		Edges:       b.edges,
		Success:     true,
	}
}

// blockEnd approximates the last line of a declaration starting at startLine.
func (p *Parser) blockEnd(lines []string, startLine, indent int) int {
	switch p.rules.style {
	case indentBlocks:
		end := startLine + 1
		for i := startLine + 1; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			if trimmed == "" {
				continue
			}
			if indentOf(lines[i]) <= indent {
				break
			}
			end = i + 1
		}
		return end
	case keywordEndBlocks:
		depth := 0
		for i := startLine; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			depth += strings.Count(" "+trimmed+" ", " do ")
			if blockOpenerPattern.MatchString(trimmed) {
				depth++
			}
			if trimmed == "end" || strings.HasPrefix(trimmed, "end ") || strings.HasSuffix(trimmed, " end") {
				depth--
				if depth <= 0 {
					return i + 1
				}
			}
		}
		return startLine + 1
	default: // braceBlocks
		depth := 0
		opened := false
		for i := startLine; i < len(lines) && i < startLine+2000; i++ {
			for _, ch := range lines[i] {
				switch ch {
				case '{':
					depth++
					opened = true
				case '}':
					depth--
					if opened && depth == 0 {
						return i + 1
					}
				}
			}
			// Declarations without a body (e.g. abstract methods) end on
			// their own line.
			if !opened && strings.HasSuffix(strings.TrimSpace(lines[i]), ";") {
				return i + 1
			}
		}
		return startLine + 1
	}
}

var blockOpenerPattern = regexp.MustCompile(`^(class|module|def|if|unless|while|until|case|begin)\b`)

// builder accumulates parse output.
type builder struct {
	input   language.ParseInput
	lang    string
	symbols []symbol.Symbol
	parents []int
	edges   []language.EdgeSpec
}

// addModuleSymbol emits the per-file module anchor that import edges hang
// off, spanning the whole file.
func (b *builder) addModuleSymbol(lineCount int) int {
	name := strings.TrimSuffix(path.Base(b.input.Path), path.Ext(b.input.Path))
	if lineCount < 1 {
		lineCount = 1
	}
	sym := symbol.NewSymbol(
		b.input.RepoID, b.input.Branch, b.input.CommitSHA, b.input.Path,
		name, b.input.Path, symbol.KindModule, b.lang,
	).WithSpan(1, lineCount, 0, 0)
	b.symbols = append(b.symbols, sym)
	b.parents = append(b.parents, -1)
	return 0
}

func (b *builder) addSymbol(name string, kind symbol.Kind, parentIdx, startLine, endLine int, signature string) int {
	qualified := name
	if parentIdx >= 0 && b.symbols[parentIdx].Kind() != symbol.KindModule {
		qualified = b.symbols[parentIdx].QualifiedName() + "." + name
	}
	if endLine < startLine {
		endLine = startLine
	}

	sym := symbol.NewSymbol(
		b.input.RepoID, b.input.Branch, b.input.CommitSHA, b.input.Path,
		name, qualified, kind, b.lang,
	).WithSpan(startLine, endLine, 0, 0).WithSignature(signature)

	b.symbols = append(b.symbols, sym)
	b.parents = append(b.parents, parentIdx)
	return len(b.symbols) - 1
}

func (b *builder) addEdge(sourceIdx, targetIdx int, targetName string, kind symbol.EdgeKind, line int) {
	b.edges = append(b.edges, language.EdgeSpec{
		SourceIndex: sourceIdx,
		TargetIndex: targetIdx,
		TargetName:  targetName,
		Kind:        kind,
		Line:        line,
	})
}

func isContainerKind(kind symbol.Kind) bool {
	switch kind {
	case symbol.KindClass, symbol.KindInterface, symbol.KindStruct,
		symbol.KindEnum, symbol.KindModule, symbol.KindNamespace:
		return true
	default:
		return false
	}
}

func indentOf(line string) int {
	indent := 0
	for _, ch := range line {
		switch ch {
		case ' ':
			indent++
		case '\t':
			indent += 4
		default:
			return indent
		}
	}
	return indent
}

// firstGroup returns the first non-empty capture group of a regexp match.
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func splitBases(list string) []string {
	var bases []string
	for _, part := range strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '(' || r == ')'
	}) {
		part = strings.TrimSpace(part)
		if part == "" || part == "extends" || part == "implements" || part == "object" {
			continue
		}
		if idx := strings.IndexByte(part, '<'); idx >= 0 {
			part = part[:idx]
		}
		bases = append(bases, part)
	}
	return bases
}

// Ensure Parser implements language.Parser.
var _ language.Parser = (*Parser)(nil)
