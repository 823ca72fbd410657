// Package guard decides, before any page handler runs, whether a request may
// reach an admin or user page or must be redirected.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/eventdash/internal/session"
)

// Paths configures the guarded prefixes and redirect targets.
type Paths struct {
	AdminPrefix string
	UserPrefix  string
	Login       string
	Landing     string
}

// DefaultPaths returns the prefixes and targets used by the web front-end.
func DefaultPaths() Paths {
	return Paths{
		AdminPrefix: "/admin",
		UserPrefix:  "/user",
		Login:       "/login",
		Landing:     "/auth/dashboard",
	}
}

// Decision is the outcome of evaluating a request. An empty Redirect means pass.
type Decision struct {
	Redirect string
	Reason   string
}

// Pass reports whether the request may proceed.
func (d Decision) Pass() bool {
	return d.Redirect == ""
}

// Evaluate decides what to do with a request for path given the session claims.
// It has no side effects: equal inputs always produce equal decisions.
func (p Paths) Evaluate(path string, claims session.Claims) Decision {
	switch {
	case hasSegmentPrefix(path, p.AdminPrefix):
		if !claims.Authenticated() {
			return Decision{Redirect: p.loginURL(path), Reason: "unauthenticated"}
		}
		if !claims.IsAdmin() {
			return Decision{Redirect: p.Landing, Reason: "not_admin"}
		}
	case hasSegmentPrefix(path, p.UserPrefix):
		if !claims.Authenticated() {
			return Decision{Redirect: p.loginURL(path), Reason: "unauthenticated"}
		}
	}
	return Decision{}
}

// Evaluate applies DefaultPaths.
func Evaluate(path string, claims session.Claims) Decision {
	return DefaultPaths().Evaluate(path, claims)
}

func (p Paths) loginURL(path string) string {
	return p.Login + "?" + url.Values{"redirect": {path}}.Encode()
}

// hasSegmentPrefix matches prefix itself or prefix followed by "/".
func hasSegmentPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Middleware redirects requests the decision rejects.
func Middleware(p Paths) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := p.Evaluate(r.URL.Path, session.ClaimsFromRequest(r))
			if !d.Pass() {
				slog.Debug("Route guard redirect", "path", r.URL.Path, "to", d.Redirect, "reason", d.Reason)
				http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SafeRedirect returns target when it is a local absolute path, else fallback.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}
