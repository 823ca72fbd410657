package pages

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
)

const auditPageSize = 100

// AdminDashboard renders user statistics and the most recent users.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	res := h.actions.DashboardStats(actionContext(r), session.FromContext(r.Context()))
	v := &view{Title: "Admin Dashboard"}
	if res.Success {
		v.Data = res.Data
	} else {
		v.Error = res.Message
	}
	h.render(w, r, http.StatusOK, "admin_dashboard", v)
}

// ListUsers renders the user table.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res := h.actions.ListUsers(actionContext(r), session.FromContext(r.Context()))
	v := &view{Title: "Users"}
	if res.Success {
		v.Data = *res.Data
	} else {
		v.Error = res.Message
	}
	h.render(w, r, http.StatusOK, "users", v)
}

// ShowUser renders one user's details.
func (h *Handler) ShowUser(w http.ResponseWriter, r *http.Request) {
	res := h.actions.GetUser(actionContext(r), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if !res.Success {
		h.render(w, r, http.StatusNotFound, "user_detail", &view{Title: "User", Error: res.Message})
		return
	}
	h.render(w, r, http.StatusOK, "user_detail", &view{Title: res.Data.FullName(), Data: res.Data})
}

// CreateUserPage renders the empty create-user form.
func (h *Handler) CreateUserPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "user_form", &view{
		Title: "Create user",
		Form:  map[string]string{"role": string(domain.RoleUser)},
	})
}

// CreateUser submits the create-user form.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "user_form", "Create user", err)
		return
	}
	image, err := formImage(r)
	if err != nil {
		h.render(w, r, http.StatusUnprocessableEntity, "user_form", &view{Title: "Create user", Error: err.Error(), Form: form})
		return
	}

	res := h.actions.CreateUser(actionContext(r), session.FromContext(r.Context()), action.CreateUserInput{
		FirstName:       form["firstName"],
		LastName:        form["lastName"],
		Email:           form["email"],
		Password:        form["password"],
		ConfirmPassword: form["confirmPassword"],
		Role:            form["role"],
		Image:           image,
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "user_form", &view{
			Title: "Create user", Error: res.Message, Fields: res.Fields, Form: form,
		})
		return
	}
	redirect(w, r, "/admin/users", res.Message)
}

// EditUserPage renders the edit form prefilled with the user's data.
func (h *Handler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	res := h.actions.GetUser(actionContext(r), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if !res.Success {
		h.render(w, r, http.StatusNotFound, "user_form", &view{Title: "Edit user", Error: res.Message})
		return
	}
	u := res.Data
	h.render(w, r, http.StatusOK, "user_form", &view{
		Title: "Edit user",
		Data:  u,
		Form: map[string]string{
			"firstName": u.FirstName,
			"lastName":  u.LastName,
			"email":     u.Email,
			"role":      strings.ToLower(string(u.Role)),
		},
	})
}

// UpdateUser submits the edit form.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "user_form", "Edit user", err)
		return
	}
	image, err := formImage(r)
	if err != nil {
		h.render(w, r, http.StatusUnprocessableEntity, "user_form", &view{Title: "Edit user", Error: err.Error(), Form: form})
		return
	}

	res := h.actions.UpdateUser(actionContext(r), session.FromContext(r.Context()), id, action.UpdateUserInput{
		FirstName:       form["firstName"],
		LastName:        form["lastName"],
		Email:           form["email"],
		Role:            form["role"],
		Password:        form["password"],
		ConfirmPassword: form["confirmPassword"],
		Image:           image,
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "user_form", &view{
			Title: "Edit user", Error: res.Message, Fields: res.Fields, Form: form,
		})
		return
	}
	redirect(w, r, "/admin/users/"+url.PathEscape(id), res.Message)
}

// DeleteUser removes a user and returns to the user table.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	res := h.actions.DeleteUser(actionContext(r), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if !res.Success {
		h.render(w, r, http.StatusBadGateway, "users", &view{Title: "Users", Error: res.Message})
		return
	}
	redirect(w, r, "/admin/users", res.Message)
}

// AuditLog renders the newest audit entries.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "Audit log"}
	if h.audit == nil {
		v.Error = "Audit trail is disabled"
		h.render(w, r, http.StatusOK, "audit", v)
		return
	}
	var (
		entries []*domain.AuditEntry
		err     error
	)
	if actor := strings.TrimSpace(r.URL.Query().Get("actor")); actor != "" {
		v.Form = map[string]string{"actor": actor}
		entries, err = h.audit.ForActor(r.Context(), actor, auditPageSize)
	} else {
		entries, err = h.audit.Recent(r.Context(), auditPageSize)
	}
	if err != nil {
		h.logger.Error("Failed to load audit entries", "error", err)
		v.Error = "Failed to load audit entries"
	} else {
		v.Data = entries
	}
	h.render(w, r, http.StatusOK, "audit", v)
}
