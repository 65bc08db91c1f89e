// Package mcp exposes the pipeline as an MCP tool over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/gateway"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
)

// ToolAsk is the question answering tool name.
const ToolAsk = "ask_product_question"

// Querier answers a pipeline request.
type Querier interface {
	Query(ctx context.Context, req domain.QueryRequest) domain.Response
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Defaults domain.QueryOptions
}

// Server wraps the MCP server with the pipeline.
type Server struct {
	mcpServer *server.MCPServer
	querier   Querier
	gateway   *gateway.Gateway
	defaults  domain.QueryOptions
	logger    *zap.Logger
}

// NewServer creates an MCP server with the ask tool registered.
func NewServer(cfg Config, querier Querier, gw *gateway.Gateway, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	defaults := cfg.Defaults
	if defaults.TopK <= 0 {
		defaults = domain.DefaultQueryOptions()
	}
	s := &Server{
		mcpServer: mcpServer,
		querier:   querier,
		gateway:   gw,
		defaults:  defaults,
		logger:    logger,
	}

	askTool := mcp.NewTool(ToolAsk,
		mcp.WithDescription("Answer a customer question about the shop's products using the product knowledge base. "+
			"Returns the answer, cited sources and pipeline metadata as JSON."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The customer question, Dutch or English"),
		),
		mcp.WithString("product_id",
			mcp.Description("Restrict retrieval to documents about this product"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	return s
}

// askHandler handles the ask_product_question tool call.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	gw, err := s.gateway.Process(question)
	if err != nil {
		return mcp.NewToolResultError(response.SanitizeError(err)), nil
	}

	resp := s.querier.Query(ctx, domain.QueryRequest{
		Query:     gw.Query,
		ProductID: req.GetString("product_id", ""),
		Options:   s.defaults,
	})
	if len(gw.Findings) > 0 {
		resp.Warnings = append(resp.Warnings, "suspicious_input")
	}
	if !resp.Success {
		return mcp.NewToolResultError(resp.Error), nil
	}

	result, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal response", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
