package action

import (
	"context"
	"strings"

	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/validate"
)

// LoginInput is the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName       string `form:"firstName" validate:"required"`
	LastName        string `form:"lastName" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

// ForgetPasswordInput is the password-reset request form.
type ForgetPasswordInput struct {
	Email string `form:"email" validate:"required,email"`
}

// ResetPasswordInput is the new-password form reached from the mailed link.
type ResetPasswordInput struct {
	Token           string `form:"token"`
	NewPassword     string `form:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// Empty is the data type of actions that return no payload.
type Empty struct{}

// Login authenticates and, on success, stores the token and profile in sess.
func (a *Actions) Login(ctx context.Context, sess *session.Store, in LoginInput) Result[domain.UserProfile] {
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[domain.UserProfile](err)
	}

	reply, err := a.gw.Login(ctx, apiclient.Credentials{Email: in.Email, Password: in.Password})
	if err != nil {
		return finish(ctx, a, "login", sess, "", fail[domain.UserProfile](apiclient.MessageOf(err, "Login failed")))
	}
	if !reply.Success || reply.Data == nil {
		return finish(ctx, a, "login", sess, "", fail[domain.UserProfile](orDefault(reply.Message, "Login failed")))
	}

	if reply.Data.Token != "" {
		sess.SetToken(reply.Data.Token)
	}
	if reply.Data.Profile != nil {
		if err := sess.SetProfile(reply.Data.Profile); err != nil {
			a.logger.Error("Failed to store profile in session", "error", err)
		}
	}

	return finish(ctx, a, "login", sess, "", ok("Login successful", reply.Data.Profile))
}

// Register creates a new account. It does not sign the user in.
func (a *Actions) Register(ctx context.Context, sess *session.Store, in RegisterInput) Result[domain.UserProfile] {
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[domain.UserProfile](err)
	}

	reply, err := a.gw.Register(ctx, apiclient.Registration{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		return finish(ctx, a, "register", sess, "", fail[domain.UserProfile](apiclient.MessageOf(err, "Registration failed")))
	}
	if !reply.Success {
		return finish(ctx, a, "register", sess, "", fail[domain.UserProfile](orDefault(reply.Message, "Registration failed")))
	}

	target := ""
	if reply.Data != nil {
		target = reply.Data.ID
	}
	return finish(ctx, a, "register", sess, target, ok("Registration successful", reply.Data))
}

// ForgetPassword requests a password-reset email.
func (a *Actions) ForgetPassword(ctx context.Context, in ForgetPasswordInput) Result[Empty] {
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return invalid[Empty](err)
	}

	reply, err := a.gw.ForgetPassword(ctx, in.Email)
	if err != nil {
		return finish(ctx, a, "forget_password", nil, "", fail[Empty](apiclient.MessageOf(err, "Failed to send reset link.")))
	}
	if !reply.Success {
		return finish(ctx, a, "forget_password", nil, "", fail[Empty](orDefault(reply.Message, "Failed to send reset link.")))
	}
	return finish(ctx, a, "forget_password", nil, "", ok[Empty]("Password reset link sent to your email!", &Empty{}))
}

// ResetPassword sets a new password using the token from the reset link.
func (a *Actions) ResetPassword(ctx context.Context, in ResetPasswordInput) Result[Empty] {
	if strings.TrimSpace(in.Token) == "" {
		return fail[Empty]("Invalid or expired reset link.")
	}
	if err := validate.Struct(in); err != nil {
		return invalid[Empty](err)
	}

	reply, err := a.gw.ResetPassword(ctx, in.Token, in.NewPassword)
	if err != nil {
		return finish(ctx, a, "reset_password", nil, "", fail[Empty](apiclient.MessageOf(err, "Failed to reset password.")))
	}
	if !reply.Success {
		return finish(ctx, a, "reset_password", nil, "", fail[Empty](orDefault(reply.Message, "Failed to reset password.")))
	}
	return finish(ctx, a, "reset_password", nil, "", ok[Empty]("Password reset successfully!", &Empty{}))
}

// Logout clears the session.
func (a *Actions) Logout(ctx context.Context, sess *session.Store) Result[Empty] {
	a.record(ctx, "logout", sess, "", true, "Logged out")
	sess.Clear()
	return ok[Empty]("Logged out successfully", &Empty{})
}
