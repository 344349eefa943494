package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

const userServiceSource = `using System;

namespace Acme.Auth
{
    /// <summary>Handles user authentication.</summary>
    public class UserService : BaseService, IUserService
    {
        private readonly string connectionString;

        public const int MaxAttempts = 3;

        public UserService(string connectionString)
        {
            this.connectionString = connectionString;
        }

        public Session Login(string username, string password)
        {
            var hashed = HashPassword(password);
            return CreateSession(username, hashed);
        }

        public override string ToString()
        {
            return connectionString;
        }

        private string HashPassword(string input)
        {
            return input;
        }

        private Session CreateSession(string username, string hash)
        {
            return new Session();
        }

        public string ConnectionString { get; set; }
    }

    public interface IUserService
    {
        Session Login(string username, string password);
    }

    public enum Role
    {
        Admin,
        Member
    }
}
`

func parseCSharp(t *testing.T, source string) language.ParseResult {
	t.Helper()
	p := NewCSharpParser()
	result := p.Parse(context.Background(), language.ParseInput{
		RepoID:    1,
		Branch:    "main",
		CommitSHA: "sha",
		Path:      "user/UserService.cs",
		Content:   []byte(source),
		Language:  language.CSharp,
	})
	require.True(t, result.Success, "parse failed: %s", result.ErrorMessage)
	return result
}

func findSymbol(result language.ParseResult, name string, kind symbol.Kind) (symbol.Symbol, int, bool) {
	for i, s := range result.Symbols {
		if s.Name() == name && s.Kind() == kind {
			return s, i, true
		}
	}
	return symbol.Symbol{}, -1, false
}

func TestCSharpParser_Symbols(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	wantKinds := map[string]symbol.Kind{
		"Acme.Auth":        symbol.KindNamespace,
		"UserService":      symbol.KindClass,
		"IUserService":     symbol.KindInterface,
		"Role":             symbol.KindEnum,
		"Login":            symbol.KindMethod,
		"HashPassword":     symbol.KindMethod,
		"ToString":         symbol.KindMethod,
		"ConnectionString": symbol.KindProperty,
		"connectionString": symbol.KindField,
		"MaxAttempts":      symbol.KindConstant,
		"Admin":            symbol.KindConstant,
	}
	for name, kind := range wantKinds {
		if _, _, ok := findSymbol(result, name, kind); !ok {
			t.Errorf("missing symbol %s (%s)", name, kind)
		}
	}

	// Constructors take the class name.
	if _, _, ok := findSymbol(result, "UserService", symbol.KindConstructor); !ok {
		t.Error("missing constructor symbol")
	}
}

func TestCSharpParser_ParentsAndQualifiedNames(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	login, loginIdx, ok := findSymbol(result, "Login", symbol.KindMethod)
	require.True(t, ok)
	assert.Equal(t, "Acme.Auth.UserService.Login", login.QualifiedName())

	parentIdx := result.ParentIndex[loginIdx]
	require.GreaterOrEqual(t, parentIdx, 0)
	assert.Equal(t, "UserService", result.Symbols[parentIdx].Name())

	// Parents precede their children in the emitted order.
	assert.Less(t, parentIdx, loginIdx)

	// Symbol spans lie within the file and are well-formed.
	for _, s := range result.Symbols {
		assert.LessOrEqual(t, s.StartLine(), s.EndLine(), "symbol %s", s.Name())
		assert.GreaterOrEqual(t, s.StartLine(), 1, "symbol %s", s.Name())
	}
}

func TestCSharpParser_Edges(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	_, loginIdx, ok := findSymbol(result, "Login", symbol.KindMethod)
	require.True(t, ok)
	_, hashIdx, ok := findSymbol(result, "HashPassword", symbol.KindMethod)
	require.True(t, ok)

	var loginCalls []language.EdgeSpec
	for _, e := range result.Edges {
		if e.SourceIndex == loginIdx && e.Kind == symbol.EdgeCalls {
			loginCalls = append(loginCalls, e)
		}
	}

	foundHashCall := false
	for _, e := range loginCalls {
		if e.TargetName == "HashPassword" {
			foundHashCall = true
			// Same-file targets resolve to an index during parsing.
			assert.Equal(t, hashIdx, e.TargetIndex)
		}
	}
	assert.True(t, foundHashCall, "Login should have a Calls edge to HashPassword")
}

func TestCSharpParser_BaseEdges(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	_, classIdx, ok := findSymbol(result, "UserService", symbol.KindClass)
	require.True(t, ok)

	kinds := make(map[string]symbol.EdgeKind)
	for _, e := range result.Edges {
		if e.SourceIndex == classIdx && (e.Kind == symbol.EdgeInherits || e.Kind == symbol.EdgeImplements) {
			kinds[e.TargetName] = e.Kind
		}
	}
	assert.Equal(t, symbol.EdgeInherits, kinds["BaseService"])
	assert.Equal(t, symbol.EdgeImplements, kinds["IUserService"])
}

func TestCSharpParser_PrimitiveTypesExcluded(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	for _, e := range result.Edges {
		if e.Kind == symbol.EdgeTypeOf || e.Kind == symbol.EdgeReturns {
			assert.False(t, symbol.IsPrimitiveType(e.TargetName),
				"primitive %q leaked into %s edge", e.TargetName, e.Kind)
		}
	}

	// Non-primitive return types do appear.
	foundSession := false
	for _, e := range result.Edges {
		if e.Kind == symbol.EdgeReturns && e.TargetName == "Session" {
			foundSession = true
		}
	}
	assert.True(t, foundSession, "Login should have a Returns edge to Session")
}

func TestCSharpParser_OverridesEdge(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	_, toStringIdx, ok := findSymbol(result, "ToString", symbol.KindMethod)
	require.True(t, ok)

	found := false
	for _, e := range result.Edges {
		if e.SourceIndex == toStringIdx && e.Kind == symbol.EdgeOverrides {
			found = true
		}
	}
	assert.True(t, found, "override modifier should emit an Overrides edge")
}

func TestCSharpParser_Documentation(t *testing.T) {
	result := parseCSharp(t, userServiceSource)

	class, _, ok := findSymbol(result, "UserService", symbol.KindClass)
	require.True(t, ok)
	assert.Contains(t, class.Documentation(), "Handles user authentication")
}

func TestCSharpParser_MalformedInputStillSucceeds(t *testing.T) {
	// Tree-sitter produces a partial tree for broken source; the parser
	// must not fail the pipeline.
	result := parseCSharp(t, "public class Broken {{{ void X( }")
	assert.True(t, result.Success)
}
