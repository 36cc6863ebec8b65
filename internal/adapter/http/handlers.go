package http

import (
	"net/http"
	"time"

	"github.com/Strob0t/nextup/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Handlers holds the services behind the REST API.
type Handlers struct {
	Auth   *service.AuthService
	Todos  *service.TodoService
	Habits *service.HabitService
	Funs   *service.FunService
	Notes  *service.NoteService

	// Version is reported by GET /api/v1/.
	Version string
	// SecureCookies marks the refresh cookie Secure. Disable only for
	// plain-HTTP development.
	SecureCookies bool
	// RefreshTokenExpiry sets the refresh cookie lifetime.
	RefreshTokenExpiry time.Duration
}

// GetVersion handles GET /api/v1/
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}
