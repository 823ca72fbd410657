package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ashureev/eventdash/internal/domain"
)

const (
	pathRegister       = "/api/auth/register"
	pathLogin          = "/api/auth/login"
	pathForgetPassword = "/api/auth/forget-password"
	pathResetPassword  = "/api/auth/reset-password/"
	pathProfile        = "/api/auth/"
	pathAdminUsers     = "/api/admin/users"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the self-service sign-up payload.
type Registration struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Session is the typed result of a successful login.
type Session struct {
	Token   string
	Profile *domain.UserProfile
	Message string
}

// Reply is a typed envelope: Data is nil when the backend sent none.
type Reply[T any] struct {
	Success bool
	Message string
	Data    *T
}

func decodeReply[T any](env *Envelope) (*Reply[T], error) {
	r := &Reply[T]{Success: env.Success, Message: env.Message}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return r, nil
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	r.Data = &v
	return r, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) (*Reply[domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathRegister, JSON: reg, Fallback: "Registration failed"})
	if err != nil {
		return nil, err
	}
	return decodeReply[domain.UserProfile](env)
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Reply[Session], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathLogin, JSON: creds, Fallback: "Login failed"})
	if err != nil {
		return nil, err
	}
	profile, err := decodeReply[domain.UserProfile](env)
	if err != nil {
		return nil, err
	}
	r := &Reply[Session]{Success: env.Success, Message: env.Message}
	if env.Success {
		r.Data = &Session{Token: env.Token, Profile: profile.Data, Message: env.Message}
	}
	return r, nil
}

// ForgetPassword asks the backend to mail a reset link.
func (c *Client) ForgetPassword(ctx context.Context, email string) (*Reply[json.RawMessage], error) {
	env, err := c.Do(ctx, Request{
		Method:   http.MethodPost,
		Path:     pathForgetPassword,
		JSON:     map[string]string{"email": email},
		Fallback: "Failed to send reset link",
	})
	if err != nil {
		return nil, err
	}
	return decodeReply[json.RawMessage](env)
}

// ResetPassword sets a new password using a mailed reset token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) (*Reply[json.RawMessage], error) {
	env, err := c.Do(ctx, Request{
		Method:   http.MethodPost,
		Path:     pathResetPassword + url.PathEscape(resetToken),
		JSON:     map[string]string{"newPassword": newPassword},
		Fallback: "Failed to reset password",
	})
	if err != nil {
		return nil, err
	}
	return decodeReply[json.RawMessage](env)
}

// ListUsers returns every user (admin only).
func (c *Client) ListUsers(ctx context.Context, token string) (*Reply[[]domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodGet, Path: pathAdminUsers, Token: token, Fallback: "Failed to fetch users"})
	if err != nil {
		return nil, err
	}
	return decodeReply[[]domain.UserProfile](env)
}

// GetUser returns one user (admin only).
func (c *Client) GetUser(ctx context.Context, token, id string) (*Reply[domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodGet, Path: userPath(id), Token: token, Fallback: "Failed to fetch user"})
	if err != nil {
		return nil, err
	}
	return decodeReply[domain.UserProfile](env)
}

// CreateUser creates a user from a multipart form (admin only).
func (c *Client) CreateUser(ctx context.Context, token string, form *Form) (*Reply[domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathAdminUsers, Token: token, Form: form, Fallback: "Failed to create user"})
	if err != nil {
		return nil, err
	}
	return decodeReply[domain.UserProfile](env)
}

// UpdateUser updates a user from a multipart form (admin only).
func (c *Client) UpdateUser(ctx context.Context, token, id string, form *Form) (*Reply[domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodPut, Path: userPath(id), Token: token, Form: form, Fallback: "Failed to update user"})
	if err != nil {
		return nil, err
	}
	return decodeReply[domain.UserProfile](env)
}

// DeleteUser removes a user (admin only).
func (c *Client) DeleteUser(ctx context.Context, token, id string) (*Reply[json.RawMessage], error) {
	env, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: userPath(id), Token: token, Fallback: "Failed to delete user"})
	if err != nil {
		return nil, err
	}
	return &Reply[json.RawMessage]{Success: env.Success, Message: env.Message}, nil
}

// UpdateProfile updates the caller's own profile.
func (c *Client) UpdateProfile(ctx context.Context, token, id string, form *Form) (*Reply[domain.UserProfile], error) {
	env, err := c.Do(ctx, Request{
		Method:   http.MethodPut,
		Path:     pathProfile + url.PathEscape(id),
		Token:    token,
		Form:     form,
		Fallback: "Failed to update profile",
	})
	if err != nil {
		return nil, err
	}
	return decodeReply[domain.UserProfile](env)
}

func userPath(id string) string {
	return pathAdminUsers + "/" + url.PathEscape(id)
}
