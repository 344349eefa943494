package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codeatlas-ai/codeatlas/application/service"
)

const mcpInstructions = "This server indexes Git repositories and answers natural-language " +
	"questions about their code through a single query tool:\n\n" +
	"- query(repository, text, branch?, maxResults?, profile?) - hybrid code search\n" +
	"- similar_symbols(repository, symbol) - fingerprint-based near-duplicate lookup\n" +
	"- call_chain(repository, symbol, maxDepth?) - breadth-first call traversal\n" +
	"- list_repositories() - discover available repository names (call this first)\n\n" +
	"Profiles: Fast (lexical only), Hybrid (default), Semantic (dense only)."

// MCPServer exposes the unified query entry point as an MCP tool.
type MCPServer struct {
	mcpServer *server.MCPServer
	queries   *service.QueryService
	names     func() []string
	logger    *slog.Logger
}

// NewMCPServer creates the MCP facade.
func NewMCPServer(queries *service.QueryService, repositoryNames func() []string, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &MCPServer{
		queries: queries,
		names:   repositoryNames,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"codeatlas",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(mcpInstructions),
	)

	mcpServer.AddTool(mcp.NewTool("query",
		mcp.WithDescription("Query indexed repositories with hybrid lexical+semantic code search"),
		mcp.WithString("repository",
			mcp.Required(),
			mcp.Description("Repository name to search"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Natural language query or identifier"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to search (default: the repository's default branch)"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results"),
		),
		mcp.WithString("profile",
			mcp.Description("Retrieval profile: Fast, Hybrid, or Semantic"),
		),
	), s.handleQuery)

	mcpServer.AddTool(mcp.NewTool("similar_symbols",
		mcp.WithDescription("Find near-duplicate symbols of a named symbol via fingerprint similarity"),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name to find near-duplicates of")),
		mcp.WithString("branch", mcp.Description("Branch to search")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of candidates")),
	), s.handleSimilarSymbols)

	mcpServer.AddTool(mcp.NewTool("call_chain",
		mcp.WithDescription("Walk outgoing call edges breadth-first from a named symbol"),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name to start from")),
		mcp.WithString("branch", mcp.Description("Branch to search")),
		mcp.WithNumber("maxDepth", mcp.Description("Traversal depth limit (default 3)")),
	), s.handleCallChain)

	mcpServer.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List repository names available for querying"),
	), s.handleListRepositories)

	s.mcpServer = mcpServer
	return s
}

// handleQuery runs a query and returns the response as JSON text. Errors
// become structured JSON payloads, never protocol failures.
func (s *MCPServer) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repository, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository is required: %v", err)), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("text is required: %v", err)), nil
	}

	resp, err := s.queries.Query(ctx, service.QueryRequest{
		Repository: repository,
		Text:       text,
		Branch:     request.GetString("branch", ""),
		MaxResults: request.GetInt("maxResults", 0),
		Profile:    request.GetString("profile", ""),
	})
	if err != nil {
		_, payload := errorPayload(err)
		encoded, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return mcp.NewToolResultError(marshalErr.Error()), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func (s *MCPServer) handleSimilarSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repository, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository is required: %v", err)), nil
	}
	symbolName, err := request.RequireString("symbol")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("symbol is required: %v", err)), nil
	}

	results, err := s.queries.SimilarSymbols(ctx, repository,
		request.GetString("branch", ""), symbolName, request.GetInt("limit", 0))
	if err != nil {
		_, payload := errorPayload(err)
		encoded, _ := json.Marshal(payload)
		return mcp.NewToolResultText(string(encoded)), nil
	}

	encoded, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func (s *MCPServer) handleCallChain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repository, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository is required: %v", err)), nil
	}
	symbolName, err := request.RequireString("symbol")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("symbol is required: %v", err)), nil
	}

	results, err := s.queries.CallChain(ctx, repository,
		request.GetString("branch", ""), symbolName, request.GetInt("maxDepth", 0))
	if err != nil {
		_, payload := errorPayload(err)
		encoded, _ := json.Marshal(payload)
		return mcp.NewToolResultText(string(encoded)), nil
	}

	encoded, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func (s *MCPServer) handleListRepositories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(map[string]any{"repositories": s.names()})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

// ServeStdio runs the MCP server on stdio.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler returns an HTTP handler speaking the streamable MCP transport.
func (s *MCPServer) Handler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer)
}
