package action

import (
	"context"
	"strings"

	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/validate"
)

// CreateUserInput is the admin create-user form.
type CreateUserInput struct {
	FirstName       string          `form:"firstName" validate:"required"`
	LastName        string          `form:"lastName" validate:"required"`
	Email           string          `form:"email" validate:"required,email"`
	Password        string          `form:"password" validate:"required,min=6"`
	ConfirmPassword string          `form:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string          `form:"role" validate:"omitempty,oneof=admin user"`
	Image           *apiclient.File `form:"-" validate:"-"`
}

// UpdateUserInput is the admin edit-user form. An empty Password leaves the
// password unchanged.
type UpdateUserInput struct {
	FirstName       string          `form:"firstName" validate:"required"`
	LastName        string          `form:"lastName" validate:"required"`
	Email           string          `form:"email" validate:"required,email"`
	Role            string          `form:"role" validate:"omitempty,oneof=admin user"`
	Password        string          `form:"password" validate:"omitempty,min=6"`
	ConfirmPassword string          `form:"confirmPassword" validate:"eqfield=Password"`
	Image           *apiclient.File `form:"-" validate:"-"`
}

// ListUsers fetches every user.
func (a *Actions) ListUsers(ctx context.Context, sess *session.Store) Result[[]domain.UserProfile] {
	token, found := sess.Token()
	if !found {
		return fail[[]domain.UserProfile](MsgNoToken)
	}

	reply, err := a.gw.ListUsers(ctx, token)
	if err != nil {
		return finish(ctx, a, "list_users", sess, "", fail[[]domain.UserProfile](apiclient.MessageOf(err, "Failed to fetch users")))
	}
	users := reply.Data
	if users == nil {
		users = &[]domain.UserProfile{}
	}
	return ok(orDefault(reply.Message, "Users fetched successfully"), users)
}

// DashboardStats fetches every user and summarizes them for the admin dashboard.
func (a *Actions) DashboardStats(ctx context.Context, sess *session.Store) Result[domain.UserStats] {
	users := a.ListUsers(ctx, sess)
	if !users.Success {
		return fail[domain.UserStats](users.Message)
	}
	stats := domain.ComputeUserStats(*users.Data)
	return ok("Stats computed", &stats)
}

// GetUser fetches one user by id.
func (a *Actions) GetUser(ctx context.Context, sess *session.Store, id string) Result[domain.UserProfile] {
	token, found := sess.Token()
	if !found {
		return fail[domain.UserProfile](MsgNoToken)
	}
	if strings.TrimSpace(id) == "" {
		return fail[domain.UserProfile]("User ID is required")
	}

	reply, err := a.gw.GetUser(ctx, token, id)
	if err != nil {
		return fail[domain.UserProfile](apiclient.MessageOf(err, "Failed to fetch user"))
	}
	if reply.Data == nil {
		return fail[domain.UserProfile](orDefault(reply.Message, "User not found"))
	}
	return ok(orDefault(reply.Message, "User fetched successfully"), reply.Data)
}

// CreateUser creates a user. Mismatched passwords are rejected before any
// backend call.
func (a *Actions) CreateUser(ctx context.Context, sess *session.Store, in CreateUserInput) Result[domain.UserProfile] {
	token, found := sess.Token()
	if !found {
		return fail[domain.UserProfile](MsgNoToken)
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[domain.UserProfile](err)
	}

	form := &apiclient.Form{Image: in.Image}
	form.Add("firstName", strings.TrimSpace(in.FirstName))
	form.Add("lastName", strings.TrimSpace(in.LastName))
	form.Add("email", in.Email)
	form.Add("password", in.Password)
	form.Add("confirmPassword", in.ConfirmPassword)
	form.Add("role", orDefault(in.Role, string(domain.RoleUser)))

	reply, err := a.gw.CreateUser(ctx, token, form)
	if err != nil {
		return finish(ctx, a, "create_user", sess, "", fail[domain.UserProfile](apiclient.MessageOf(err, "Failed to create user")))
	}

	target := ""
	if reply.Data != nil {
		target = reply.Data.ID
	}
	return finish(ctx, a, "create_user", sess, target, ok(orDefault(reply.Message, "User created successfully"), reply.Data))
}

// UpdateUser edits a user by id.
func (a *Actions) UpdateUser(ctx context.Context, sess *session.Store, id string, in UpdateUserInput) Result[domain.UserProfile] {
	token, found := sess.Token()
	if !found {
		return fail[domain.UserProfile](MsgNoToken)
	}
	if strings.TrimSpace(id) == "" {
		return fail[domain.UserProfile]("User ID is required")
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[domain.UserProfile](err)
	}

	form := &apiclient.Form{Image: in.Image}
	form.Add("firstName", strings.TrimSpace(in.FirstName))
	form.Add("lastName", strings.TrimSpace(in.LastName))
	form.Add("email", in.Email)
	if in.Role != "" {
		form.Add("role", in.Role)
	}
	if in.Password != "" {
		form.Add("password", in.Password)
		form.Add("confirmPassword", in.ConfirmPassword)
	}

	reply, err := a.gw.UpdateUser(ctx, token, id, form)
	if err != nil {
		return finish(ctx, a, "update_user", sess, id, fail[domain.UserProfile](apiclient.MessageOf(err, "Failed to update user")))
	}
	return finish(ctx, a, "update_user", sess, id, ok(orDefault(reply.Message, "User updated successfully"), reply.Data))
}

// DeleteUser removes a user by id.
func (a *Actions) DeleteUser(ctx context.Context, sess *session.Store, id string) Result[Empty] {
	token, found := sess.Token()
	if !found {
		return fail[Empty](MsgNoToken)
	}
	if strings.TrimSpace(id) == "" {
		return fail[Empty]("User ID is required")
	}

	reply, err := a.gw.DeleteUser(ctx, token, id)
	if err != nil {
		return finish(ctx, a, "delete_user", sess, id, fail[Empty](apiclient.MessageOf(err, "Failed to delete user")))
	}
	return finish(ctx, a, "delete_user", sess, id, ok(orDefault(reply.Message, "User deleted successfully"), &Empty{}))
}
