// Package action turns form submissions into backend calls and shapes every
// outcome into a Result. Actions never return errors: failures are reported
// through Result.Success and Result.Message.
package action

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/validate"
)

// MsgNoToken is returned by actions that require a session when none exists.
const MsgNoToken = "No authentication token found"

// Result is the uniform envelope every action returns.
type Result[T any] struct {
	Success bool
	Message string
	Data    *T
	// Fields holds per-field validation messages for inline display.
	Fields validate.Errors
}

func ok[T any](msg string, data *T) Result[T] {
	return Result[T]{Success: true, Message: msg, Data: data}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Message: msg}
}

func invalid[T any](err error) Result[T] {
	fields := validate.FieldErrors(err)
	return Result[T]{Message: err.Error(), Fields: fields}
}

// Gateway is the subset of the backend client the actions use.
type Gateway interface {
	Register(ctx context.Context, reg apiclient.Registration) (*apiclient.Reply[domain.UserProfile], error)
	Login(ctx context.Context, creds apiclient.Credentials) (*apiclient.Reply[apiclient.Session], error)
	ForgetPassword(ctx context.Context, email string) (*apiclient.Reply[json.RawMessage], error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) (*apiclient.Reply[json.RawMessage], error)
	ListUsers(ctx context.Context, token string) (*apiclient.Reply[[]domain.UserProfile], error)
	GetUser(ctx context.Context, token, id string) (*apiclient.Reply[domain.UserProfile], error)
	CreateUser(ctx context.Context, token string, form *apiclient.Form) (*apiclient.Reply[domain.UserProfile], error)
	UpdateUser(ctx context.Context, token, id string, form *apiclient.Form) (*apiclient.Reply[domain.UserProfile], error)
	DeleteUser(ctx context.Context, token, id string) (*apiclient.Reply[json.RawMessage], error)
	UpdateProfile(ctx context.Context, token, id string, form *apiclient.Form) (*apiclient.Reply[domain.UserProfile], error)
}

// Recorder stores audit entries.
type Recorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// Actions bundles the gateway and audit recorder shared by every action.
type Actions struct {
	gw     Gateway
	audit  Recorder
	logger *slog.Logger
}

// New creates the action layer. audit may be nil.
func New(gw Gateway, audit Recorder, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{gw: gw, audit: audit, logger: logger}
}

type clientIPKey struct{}

// WithClientIP attaches the caller's IP for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// record writes an audit entry; failures are logged and otherwise ignored.
func (a *Actions) record(ctx context.Context, name string, sess *session.Store, target string, success bool, msg string) {
	if a.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		Action:   name,
		TargetID: target,
		Success:  success,
		Message:  msg,
		RemoteIP: clientIP(ctx),
	}
	if sess != nil {
		if p := sess.Profile(); p != nil {
			entry.ActorID = p.ID
		}
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		a.logger.Warn("Failed to record audit entry", "action", name, "error", err)
	}
}

// finish records the outcome and returns r unchanged.
func finish[T any](ctx context.Context, a *Actions, name string, sess *session.Store, target string, r Result[T]) Result[T] {
	a.record(ctx, name, sess, target, r.Success, r.Message)
	if !r.Success {
		a.logger.Info("Action failed", "action", name, "message", r.Message)
	}
	return r
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
