package textual

import (
	"regexp"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

// NewGo creates the textual parser for Go source.
func NewGo() *Parser {
	return &Parser{rules: languageRules{
		language: language.Go,
		style:    braceBlocks,
		rules: []rule{
			{kind: symbol.KindMethod, pattern: regexp.MustCompile(`^func\s+\([^)]+\)\s+(\w+)\s*\(`)},
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^func\s+(\w+)\s*[\(\[]`)},
			{kind: symbol.KindStruct, pattern: regexp.MustCompile(`^type\s+(\w+)\s+struct\b`)},
			{kind: symbol.KindInterface, pattern: regexp.MustCompile(`^type\s+(\w+)\s+interface\b`)},
			{kind: symbol.KindVariable, pattern: regexp.MustCompile(`^var\s+(\w+)\b`)},
			{kind: symbol.KindConstant, pattern: regexp.MustCompile(`^const\s+(\w+)\b`)},
		},
		importPattern: regexp.MustCompile(`^\s*import\s+"([^"]+)"`),
	}}
}

// NewPython creates the textual parser for Python source.
func NewPython() *Parser {
	return &Parser{rules: languageRules{
		language: language.Python,
		style:    indentBlocks,
		rules: []rule{
			{kind: symbol.KindClass, pattern: regexp.MustCompile(`^\s*class\s+(\w+)`)},
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`), methodWhenNested: true},
		},
		importPattern: regexp.MustCompile(`^\s*(?:from\s+([\w\.]+)\s+import|import\s+([\w\.]+))`),
		basesPattern:  regexp.MustCompile(`^\s*class\s+\w+\s*\(([^)]*)\)`),
	}}
}

// NewJavaScript creates the textual parser for JavaScript source.
func NewJavaScript() *Parser {
	return newECMAScript(language.JavaScript)
}

// NewTypeScript creates the textual parser for TypeScript source.
func NewTypeScript() *Parser {
	p := newECMAScript(language.TypeScript)
	p.rules.rules = append(p.rules.rules,
		rule{kind: symbol.KindInterface, pattern: regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)`)},
		rule{kind: symbol.KindEnum, pattern: regexp.MustCompile(`^\s*(?:export\s+)?enum\s+(\w+)`)},
	)
	return p
}

func newECMAScript(lang string) *Parser {
	return &Parser{rules: languageRules{
		language: lang,
		style:    braceBlocks,
		rules: []rule{
			{kind: symbol.KindClass, pattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`)},
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`), methodWhenNested: true},
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`)},
		},
		importPattern: regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
		basesPattern:  regexp.MustCompile(`class\s+\w+\s+extends\s+([\w\.]+)`),
	}}
}

// NewJava creates the textual parser for Java source.
func NewJava() *Parser {
	return &Parser{rules: languageRules{
		language: language.Java,
		style:    braceBlocks,
		rules: []rule{
			{kind: symbol.KindClass, pattern: regexp.MustCompile(`^\s*(?:public\s+|protected\s+|private\s+)?(?:abstract\s+|final\s+|static\s+)*class\s+(\w+)`)},
			{kind: symbol.KindInterface, pattern: regexp.MustCompile(`^\s*(?:public\s+)?interface\s+(\w+)`)},
			{kind: symbol.KindEnum, pattern: regexp.MustCompile(`^\s*(?:public\s+)?enum\s+(\w+)`)},
			{kind: symbol.KindMethod, pattern: regexp.MustCompile(`^\s+(?:public|protected|private)\s+(?:static\s+|final\s+|abstract\s+|synchronized\s+)*[\w\<\>\[\],\s]+?\s(\w+)\s*\([^;]*$`), methodWhenNested: true},
		},
		importPattern: regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w\.]+)\s*;`),
		basesPattern:  regexp.MustCompile(`(?:extends|implements)\s+([\w\.,\s<>]+?)\s*\{?\s*$`),
	}}
}

// NewRuby creates the textual parser for Ruby source.
func NewRuby() *Parser {
	return &Parser{rules: languageRules{
		language: language.Ruby,
		style:    keywordEndBlocks,
		rules: []rule{
			{kind: symbol.KindClass, pattern: regexp.MustCompile(`^\s*class\s+(\w+)`)},
			{kind: symbol.KindModule, pattern: regexp.MustCompile(`^\s*module\s+(\w+)`)},
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^\s*def\s+(?:self\.)?([\w?!]+)`), methodWhenNested: true},
		},
		importPattern: regexp.MustCompile(`^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`),
		basesPattern:  regexp.MustCompile(`^\s*class\s+\w+\s*<\s*([\w:]+)`),
	}}
}

// NewRust creates the textual parser for Rust source.
func NewRust() *Parser {
	return &Parser{rules: languageRules{
		language: language.Rust,
		style:    braceBlocks,
		rules: []rule{
			{kind: symbol.KindFunction, pattern: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`), methodWhenNested: true},
			{kind: symbol.KindStruct, pattern: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`)},
			{kind: symbol.KindEnum, pattern: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`)},
			{kind: symbol.KindInterface, pattern: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?trait\s+(\w+)`)},
			{kind: symbol.KindClass, pattern: regexp.MustCompile(`^\s*impl(?:<[^>]*>)?\s+(?:\w+\s+for\s+)?(\w+)`)},
		},
		importPattern: regexp.MustCompile(`^\s*use\s+([\w:]+)`),
	}}
}

// All returns textual parsers for every supported secondary language.
func All() []language.Parser {
	return []language.Parser{
		NewGo(), NewPython(), NewJavaScript(), NewTypeScript(),
		NewJava(), NewRuby(), NewRust(),
	}
}
