package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/nextup/internal/domain/user"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/service"
)

const (
	refreshCookieName = "nextup_refresh"
	refreshCookiePath = "/api/v1/auth"
)

// setRefreshCookie stores the refresh token in an httpOnly cookie. An empty
// token clears it.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	maxAge := int(h.RefreshTokenExpiry / time.Second)
	if token == "" {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	resp, rawRefresh, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeDomainError(w, err, "invalid credentials")
		return
	}

	h.setRefreshCookie(w, rawRefresh)
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no refresh token")
		return
	}

	resp, newRawRefresh, err := h.Auth.RefreshTokens(r.Context(), cookie.Value)
	if err != nil {
		slog.Debug("token refresh failed", "error", err)
		h.setRefreshCookie(w, "")
		writeDomainError(w, err, "invalid or expired refresh token")
		return
	}

	h.setRefreshCookie(w, newRawRefresh)
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var jti string
	var tokenExpiry time.Time
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		jti = claims.JTI
		tokenExpiry = time.Unix(claims.Expiry, 0)
	}

	if err := h.Auth.Logout(r.Context(), u.ID, jti, tokenExpiry); err != nil {
		writeInternalError(w, err)
		return
	}

	h.setRefreshCookie(w, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[user.ChangePasswordRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), u.ID, req); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		writeDomainError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// GetCurrentUser handles GET /api/v1/auth/me
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	full, err := h.Auth.GetUser(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, full)
}
