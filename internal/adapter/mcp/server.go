// Package mcp exposes the todo list to assistants over the Model Context
// Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/nextup/internal/domain/desirability"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/service"
)

// TodoReader is the slice of the todo service the tools need.
type TodoReader interface {
	List(ctx context.Context) ([]todo.Todo, error)
	Desirabilities(ctx context.Context, limit todo.TimeEstimate) (desirability.Scores, error)
	WeightedRandom(ctx context.Context, n int, limit todo.TimeEstimate) ([]service.ScoredTodo, error)
}

// ServerConfig names the server in the MCP handshake.
type ServerConfig struct {
	Name    string
	Version string
}

// ServerDeps are the services behind the tools. A nil dependency makes
// its tools return an error result.
type ServerDeps struct {
	Todos TodoReader
}

// Server is an MCP server mounted on the main HTTP router.
type Server struct {
	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer
	deps      ServerDeps
}

// NewServer builds the MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
		deps: deps,
	}
	s.registerTools()
	s.registerResources()
	s.http = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(carryUser),
	)
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP endpoint. It must sit behind the
// auth middleware: tools act on behalf of the request user.
func (s *Server) Handler() http.Handler {
	return s.http
}

// carryUser copies the authenticated user onto the tool call context.
func carryUser(ctx context.Context, r *http.Request) context.Context {
	if u := middleware.UserFromContext(r.Context()); u != nil {
		return middleware.ContextWithUser(ctx, u)
	}
	return ctx
}
