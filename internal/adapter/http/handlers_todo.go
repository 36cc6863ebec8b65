package http

import (
	"net/http"

	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/service"
)

const defaultPickCount = 1

// GenerateBreakUps handles POST /api/v1/todos/generate-break-up-todos
// and returns the full list afterwards.
func (h *Handlers) GenerateBreakUps(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Todos.GenerateBreakUps(r.Context())
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// Desirabilities handles GET /api/v1/todos/desirabilities
func (h *Handlers) Desirabilities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryEstimate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scores, err := h.Todos.Desirabilities(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// WeightedRandomTodos handles GET /api/v1/todos/weighted-random
func (h *Handlers) WeightedRandomTodos(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultPickCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryEstimate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	picked, err := h.Todos.WeightedRandom(r.Context(), n, limit)
	if err != nil {
		writeDomainError(w, err, "nothing to select")
		return
	}
	if picked == nil {
		picked = []service.ScoredTodo{}
	}
	writeJSON(w, http.StatusOK, picked)
}

// StartTimer handles POST /api/v1/todos/{id}/timer/start
func (h *Handlers) StartTimer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Todos.StartTimer(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// StopTimer handles POST /api/v1/todos/{id}/timer/stop
func (h *Handlers) StopTimer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Todos.StopTimer(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// OverrideTimer handles POST /api/v1/todos/{id}/timer/override
func (h *Handlers) OverrideTimer(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[todo.TimerOverrideRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	t, err := h.Todos.OverrideTimer(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
