// Package pages provides the server-rendered HTML handlers of the front-end.
package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/guard"
	"github.com/ashureev/eventdash/internal/middleware"
	"github.com/ashureev/eventdash/internal/session"
)

// AuditReader lists recorded audit entries.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
	ForActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error)
	Ping(ctx context.Context) error
}

// Handler serves every page and form submission.
type Handler struct {
	actions *action.Actions
	audit   AuditReader
	pages   *renderer
	paths   guard.Paths
	logger  *slog.Logger
}

// NewHandler parses the templates in fsys and creates a Handler. audit may be nil.
func NewHandler(actions *action.Actions, audit AuditReader, fsys fs.FS, assetURL string, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rd, err := newRenderer(fsys, assetURL)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return &Handler{
		actions: actions,
		audit:   audit,
		pages:   rd,
		paths:   guard.DefaultPaths(),
		logger:  logger,
	}, nil
}

// RegisterRoutes registers all page routes. authLimit, when non-nil, wraps
// the public auth form submissions.
func (h *Handler) RegisterRoutes(r chi.Router, authLimit func(http.Handler) http.Handler) {
	r.Get("/", h.Home)
	r.Get("/api/health", h.Health)

	r.Group(func(r chi.Router) {
		if authLimit != nil {
			r.Use(authLimit)
		}
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Get("/forget-password", h.ForgetPasswordPage)
		r.Post("/forget-password", h.ForgetPassword)
		r.Get("/reset-password", h.ResetPasswordPage)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Post("/logout", h.Logout)
	r.Get("/auth/dashboard", h.Dashboard)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Get("/", h.AdminDashboard)
		r.Get("/audit", h.AuditLog)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/create", h.CreateUserPage)
			r.Post("/create", h.CreateUser)
			r.Get("/{id}", h.ShowUser)
			r.Get("/{id}/edit", h.EditUserPage)
			r.Post("/{id}/edit", h.UpdateUser)
			r.Post("/{id}/delete", h.DeleteUser)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Get("/profile", h.ProfilePage)
		r.Post("/profile", h.UpdateProfile)
	})

	r.NotFound(h.NotFound)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Health reports whether the audit store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok", "audit": "disabled"}
	if h.audit != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.audit.Ping(ctx); err != nil {
			h.logger.Warn("Audit store health check failed", "error", err)
			status["status"], status["audit"] = "degraded", "unreachable"
			JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["audit"] = "ok"
	}
	JSON(w, http.StatusOK, status)
}

// Home renders the landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", &view{})
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error", &view{Title: "Page not found"})
}

// render fills in the session claims and writes the page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v *view) {
	v.Claims = session.FromContext(r.Context()).Claims()
	if v.Notice == "" {
		v.Notice = r.URL.Query().Get("notice")
	}
	if err := h.pages.render(w, status, page, v); err != nil {
		h.logger.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// redirect sends a 303 so the browser follows with GET after a form POST.
func redirect(w http.ResponseWriter, r *http.Request, target, notice string) {
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// actionContext carries the caller's IP into audit entries.
func actionContext(r *http.Request) context.Context {
	return action.WithClientIP(r.Context(), middleware.ClientIP(r))
}
