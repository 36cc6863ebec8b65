package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.GetVersion)

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
			r.Post("/change-password", h.ChangePassword)
		})

		// Todos
		r.Route("/todos", func(r chi.Router) {
			r.Get("/", handleList(h.Todos.List))
			r.Post("/", handleCreate(maxRequestBodySize, h.Todos.Create))
			r.Post("/generate-break-up-todos", h.GenerateBreakUps)
			r.Get("/desirabilities", h.Desirabilities)
			r.Get("/weighted-random", h.WeightedRandomTodos)
			r.Get("/{id}", handleGet(h.Todos.Get, "todo not found"))
			r.Put("/{id}", handleUpdate(maxRequestBodySize, h.Todos.Update, "todo not found"))
			r.Delete("/{id}", handleDelete(h.Todos.Delete, "todo not found"))
			r.Post("/{id}/reorder", handleReorder(h.Todos.Reorder, "todo not found"))
			r.Post("/{id}/timer/start", h.StartTimer)
			r.Post("/{id}/timer/stop", h.StopTimer)
			r.Post("/{id}/timer/override", h.OverrideTimer)
		})

		// Habits
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", handleList(h.Habits.List))
			r.Post("/", handleCreate(maxRequestBodySize, h.Habits.Create))
			r.Put("/{id}", handleUpdate(maxRequestBodySize, h.Habits.Update, "habit not found"))
			r.Delete("/{id}", handleDelete(h.Habits.Delete, "habit not found"))
			r.Post("/{id}/logs", h.LogHabit)
			r.Delete("/{id}/logs/{date}", h.UnlogHabit)
		})

		// Funs
		r.Route("/funs", func(r chi.Router) {
			r.Get("/", handleList(h.Funs.List))
			r.Post("/", handleCreate(maxRequestBodySize, h.Funs.Create))
			r.Get("/weighted-random", h.WeightedRandomFuns)
			r.Get("/{id}", handleGet(h.Funs.Get, "fun not found"))
			r.Put("/{id}", handleUpdate(maxRequestBodySize, h.Funs.Update, "fun not found"))
			r.Delete("/{id}", handleDelete(h.Funs.Delete, "fun not found"))
			r.Post("/{id}/reorder", handleReorder(h.Funs.Reorder, "fun not found"))
		})

		// Notes
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", handleList(h.Notes.List))
			r.Post("/", handleCreate(maxRequestBodySize, h.Notes.Create))
			r.Get("/{id}", handleGet(h.Notes.Get, "note not found"))
			r.Put("/{id}", handleUpdate(maxRequestBodySize, h.Notes.Update, "note not found"))
			r.Delete("/{id}", handleDelete(h.Notes.Delete, "note not found"))
		})
	})
}
