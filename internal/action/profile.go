package action

import (
	"context"
	"strings"

	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/validate"
)

// ProfileInput is the self-service profile form.
type ProfileInput struct {
	FirstName string          `form:"firstName" validate:"required"`
	LastName  string          `form:"lastName" validate:"required"`
	Email     string          `form:"email" validate:"required,email"`
	Image     *apiclient.File `form:"-" validate:"-"`

	// Password is optional; an empty value keeps the current password.
	Password        string `form:"password" validate:"omitempty,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

// UpdateProfile edits the signed-in user's own profile and refreshes the
// copy kept in the session.
func (a *Actions) UpdateProfile(ctx context.Context, sess *session.Store, in ProfileInput) Result[domain.UserProfile] {
	token, found := sess.Token()
	if !found {
		return fail[domain.UserProfile](MsgNoToken)
	}
	current := sess.Profile()
	if current == nil || current.ID == "" {
		return fail[domain.UserProfile]("User data not found")
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[domain.UserProfile](err)
	}

	form := &apiclient.Form{Image: in.Image}
	form.Add("firstName", strings.TrimSpace(in.FirstName))
	form.Add("lastName", strings.TrimSpace(in.LastName))
	form.Add("email", in.Email)
	if in.Password != "" {
		form.Add("password", in.Password)
		form.Add("confirmPassword", in.ConfirmPassword)
	}

	reply, err := a.gw.UpdateProfile(ctx, token, current.ID, form)
	if err != nil {
		return finish(ctx, a, "update_profile", sess, current.ID, fail[domain.UserProfile](apiclient.MessageOf(err, "Failed to update profile")))
	}

	updated := reply.Data
	if updated == nil {
		merged := *current
		merged.FirstName = strings.TrimSpace(in.FirstName)
		merged.LastName = strings.TrimSpace(in.LastName)
		merged.Email = in.Email
		updated = &merged
	}
	if updated.Role == "" {
		updated.Role = current.Role
	}
	if err := sess.SetProfile(updated); err != nil {
		a.logger.Error("Failed to refresh profile in session", "error", err)
	}

	return finish(ctx, a, "update_profile", sess, current.ID, ok(orDefault(reply.Message, "Profile updated successfully"), updated))
}
