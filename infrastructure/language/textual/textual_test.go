package textual

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

func parseWith(t *testing.T, p *Parser, path, source string) language.ParseResult {
	t.Helper()
	result := p.Parse(context.Background(), language.ParseInput{
		RepoID:    1,
		Branch:    "main",
		CommitSHA: "sha",
		Path:      path,
		Content:   []byte(source),
		Language:  p.Language(),
	})
	require.True(t, result.Success, "parse failed: %s", result.ErrorMessage)
	return result
}

func symbolNames(result language.ParseResult) map[string]symbol.Kind {
	names := make(map[string]symbol.Kind, len(result.Symbols))
	for _, s := range result.Symbols {
		names[s.Name()] = s.Kind()
	}
	return names
}

func TestGoParser(t *testing.T) {
	source := `package auth

import "crypto/sha256"

type Hasher struct {
	salt string
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

func (h *Hasher) Hash(input string) string {
	return input
}
`
	result := parseWith(t, NewGo(), "auth/hasher.go", source)
	names := symbolNames(result)

	assert.Equal(t, symbol.KindStruct, names["Hasher"])
	assert.Equal(t, symbol.KindFunction, names["NewHasher"])
	assert.Equal(t, symbol.KindMethod, names["Hash"])

	// The import hangs off the per-file module symbol.
	var imports []string
	for _, e := range result.Edges {
		if e.Kind == symbol.EdgeImport {
			imports = append(imports, e.TargetName)
		}
	}
	assert.Contains(t, imports, "crypto/sha256")
}

func TestPythonParser(t *testing.T) {
	source := `import hashlib

class UserService(BaseService):
    def login(self, username):
        return username

    def logout(self):
        pass

def helper():
    return 1
`
	result := parseWith(t, NewPython(), "services/user.py", source)
	names := symbolNames(result)

	assert.Equal(t, symbol.KindClass, names["UserService"])
	assert.Equal(t, symbol.KindMethod, names["login"])
	assert.Equal(t, symbol.KindMethod, names["logout"])
	assert.Equal(t, symbol.KindFunction, names["helper"])

	// Class bases produce Inherits edges.
	var inherits []string
	for _, e := range result.Edges {
		if e.Kind == symbol.EdgeInherits {
			inherits = append(inherits, e.TargetName)
		}
	}
	assert.Contains(t, inherits, "BaseService")
}

func TestPythonParser_MethodParents(t *testing.T) {
	source := `class A:
    def m(self):
        pass
`
	result := parseWith(t, NewPython(), "a.py", source)

	var classIdx, methodIdx = -1, -1
	for i, s := range result.Symbols {
		switch s.Name() {
		case "A":
			classIdx = i
		case "m":
			methodIdx = i
		}
	}
	require.GreaterOrEqual(t, classIdx, 0)
	require.GreaterOrEqual(t, methodIdx, 0)
	assert.Equal(t, classIdx, result.ParentIndex[methodIdx])
	assert.Equal(t, "A.m", result.Symbols[methodIdx].QualifiedName())
}

func TestTypeScriptParser(t *testing.T) {
	source := `import { api } from "./api"

export interface User {
  id: number
}

export class UserStore {
  load(): User {
    return api.get()
  }
}

export const fetchUser = async (id: number) => {
  return api.get(id)
}
`
	result := parseWith(t, NewTypeScript(), "store.ts", source)
	names := symbolNames(result)

	assert.Equal(t, symbol.KindInterface, names["User"])
	assert.Equal(t, symbol.KindClass, names["UserStore"])
	assert.Equal(t, symbol.KindFunction, names["fetchUser"])
}

func TestRubyParser_BlockEnds(t *testing.T) {
	source := `class UserService
  def login(name)
    name
  end
end
`
	result := parseWith(t, NewRuby(), "user_service.rb", source)
	names := symbolNames(result)
	assert.Equal(t, symbol.KindClass, names["UserService"])
	assert.Equal(t, symbol.KindMethod, names["login"])

	for _, s := range result.Symbols {
		if s.Name() == "UserService" {
			assert.Equal(t, 1, s.StartLine())
			assert.Equal(t, 5, s.EndLine())
		}
	}
}

func TestParser_SymbolsPreserveSourceOrder(t *testing.T) {
	source := `func A() {}

func B() {}
`
	result := parseWith(t, NewGo(), "ab.go", source)

	var lines []int
	for _, s := range result.Symbols {
		if s.Kind() == symbol.KindFunction {
			lines = append(lines, s.StartLine())
		}
	}
	require.Len(t, lines, 2)
	assert.Less(t, lines[0], lines[1])
}
