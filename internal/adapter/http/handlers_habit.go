package http

import (
	"net/http"

	"github.com/Strob0t/nextup/internal/domain/todo"
)

// LogHabit handles POST /api/v1/habits/{id}/logs. An empty body logs today.
func (h *Handlers) LogHabit(w http.ResponseWriter, r *http.Request) {
	var req todo.LogHabitRequest
	if r.ContentLength > 0 {
		var ok bool
		if req, ok = readJSON[todo.LogHabitRequest](w, r, maxRequestBodySize); !ok {
			return
		}
	}
	entry, err := h.Habits.Log(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "habit not found")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// UnlogHabit handles DELETE /api/v1/habits/{id}/logs/{date}
func (h *Handlers) UnlogHabit(w http.ResponseWriter, r *http.Request) {
	if err := h.Habits.Unlog(r.Context(), urlParam(r, "id"), urlParam(r, "date")); err != nil {
		writeDomainError(w, err, "habit log not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
