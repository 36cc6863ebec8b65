package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/nextup/internal/middleware"
)

const todosResourceURI = "nextup://todos"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			todosResourceURI,
			"Todo List",
			mcplib.WithResourceDescription("The user's todos in list order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTodosResource,
	)
}

func (s *Server) handleTodosResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Todos == nil {
		return nil, errors.New("todo service not configured")
	}
	if middleware.UserFromContext(ctx) == nil {
		return nil, errors.New("not authenticated")
	}
	todos, err := s.deps.Todos.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(todos)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
