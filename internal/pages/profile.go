package pages

import (
	"context"
	"net/http"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
)

const activityLimit = 10

// ProfilePage renders the profile form prefilled from the session, followed
// by the signed-in user's recent audited activity.
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "My profile"}
	if p := session.FromContext(r.Context()).Profile(); p != nil {
		v.Form = map[string]string{"firstName": p.FirstName, "lastName": p.LastName, "email": p.Email}
		v.Data = h.recentActivity(r.Context(), p.ID)
	} else {
		v.Error = "User data not found"
	}
	h.render(w, r, http.StatusOK, "profile", v)
}

func (h *Handler) recentActivity(ctx context.Context, actorID string) []*domain.AuditEntry {
	if h.audit == nil || actorID == "" {
		return nil
	}
	entries, err := h.audit.ForActor(ctx, actorID, activityLimit)
	if err != nil {
		h.logger.Warn("Failed to load recent activity", "actor", actorID, "error", err)
		return nil
	}
	return entries
}

// UpdateProfile submits the profile form.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "profile", "My profile", err)
		return
	}
	image, err := formImage(r)
	if err != nil {
		h.render(w, r, http.StatusUnprocessableEntity, "profile", &view{Title: "My profile", Error: err.Error(), Form: form})
		return
	}

	res := h.actions.UpdateProfile(actionContext(r), session.FromContext(r.Context()), action.ProfileInput{
		FirstName:       form["firstName"],
		LastName:        form["lastName"],
		Email:           form["email"],
		Password:        form["password"],
		ConfirmPassword: form["confirmPassword"],
		Image:           image,
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "profile", &view{
			Title: "My profile", Error: res.Message, Fields: res.Fields, Form: form,
		})
		return
	}
	redirect(w, r, "/user/profile", res.Message)
}
