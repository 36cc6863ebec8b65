package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/nextup/internal/domain/pick"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/middleware"
)

const estimateHelp = "Largest time estimate to consider: 1-min, 5-mins, 15-mins, 30-mins, 1-hour, 2-hours, half-day, one-day or project"

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTodosTool(),
		s.desirabilitiesTool(),
		s.pickTodoTool(),
	)
}

func (s *Server) listTodosTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_todos",
		mcplib.WithDescription("List the user's todos in list order"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTodos}
}

func (s *Server) desirabilitiesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("desirabilities",
		mcplib.WithDescription("Score every todo that can be chosen right now; higher is more worth doing next. Todos without an estimate score null"),
		mcplib.WithString("max_time_estimate", mcplib.Description(estimateHelp)),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleDesirabilities}
}

func (s *Server) pickTodoTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("pick_todo",
		mcplib.WithDescription("Suggest what to do next: draws todos at random, weighted by desirability"),
		mcplib.WithNumber("n", mcplib.Description("How many distinct todos to suggest (default 1)")),
		mcplib.WithString("max_time_estimate", mcplib.Description(estimateHelp)),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handlePickTodo}
}

func (s *Server) handleListTodos(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if res := s.precheck(ctx); res != nil {
		return res, nil
	}
	todos, err := s.deps.Todos.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list todos", err), nil
	}
	return toolResultJSON(todos)
}

func (s *Server) handleDesirabilities(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if res := s.precheck(ctx); res != nil {
		return res, nil
	}
	limit, err := estimateArg(req)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	scores, err := s.deps.Todos.Desirabilities(ctx, limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to score todos", err), nil
	}
	return toolResultJSON(scores)
}

func (s *Server) handlePickTodo(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if res := s.precheck(ctx); res != nil {
		return res, nil
	}
	limit, err := estimateArg(req)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	n := req.GetInt("n", 1)
	if n < 1 {
		return mcplib.NewToolResultError("n must be at least 1"), nil
	}
	picked, err := s.deps.Todos.WeightedRandom(ctx, n, limit)
	if errors.Is(err, pick.ErrNothingToSelect) {
		return mcplib.NewToolResultText("No todo fits right now."), nil
	}
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to pick a todo", err), nil
	}
	return toolResultJSON(picked)
}

// precheck returns an error result when the server cannot serve the call.
func (s *Server) precheck(ctx context.Context) *mcplib.CallToolResult {
	if s.deps.Todos == nil {
		return mcplib.NewToolResultError("todo service not configured")
	}
	if middleware.UserFromContext(ctx) == nil {
		return mcplib.NewToolResultError("not authenticated")
	}
	return nil
}

func estimateArg(req mcplib.CallToolRequest) (todo.TimeEstimate, error) { //nolint:gocritic // hugeParam: mcp-go request type
	raw := req.GetString("max_time_estimate", "")
	if raw == "" {
		return todo.Project, nil
	}
	return todo.ParseTimeEstimate(raw)
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
