package session

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ashureev/eventdash/internal/domain"
)

// Claims is the canonical view of a session used for authorization decisions.
type Claims struct {
	Token     string
	Profile   *domain.UserProfile
	Role      domain.Role
	Admin     bool
	ExpiresAt time.Time
}

// Authenticated reports whether a usable token is present.
func (c Claims) Authenticated() bool {
	return c.Token != ""
}

// IsAdmin reports whether the session is a complete admin session. A token
// without a readable profile never counts as admin.
func (c Claims) IsAdmin() bool {
	return c.Authenticated() && c.Profile != nil && c.Admin
}

func buildClaims(token, profileRaw string, now time.Time) Claims {
	var c Claims
	if token != "" {
		exp, ok := tokenExpiry(token)
		if ok {
			c.ExpiresAt = exp
		}
		if !ok || exp.After(now) {
			c.Token = token
		}
	}

	env := decodeEnvelope(profileRaw)
	if env == nil {
		return c
	}
	c.Profile = env.profile()
	c.Role = env.role()
	c.Admin = c.Role.IsAdmin() || bytes.Equal(env.IsAdmin, []byte("true"))
	return c
}

// envelope accepts the profile itself as well as the {user: ...} and
// {data: ...} wrappers some backend versions returned.
type envelope struct {
	Role    json.RawMessage `json:"role"`
	IsAdmin json.RawMessage `json:"isAdmin"`
	User    json.RawMessage `json:"user"`
	Data    json.RawMessage `json:"data"`

	raw []byte
}

func decodeEnvelope(raw string) *envelope {
	if raw == "" {
		return nil
	}
	if env, ok := parseEnvelope([]byte(raw)); ok {
		return env
	}
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	if env, ok := parseEnvelope([]byte(unescaped)); ok {
		return env
	}
	return nil
}

func parseEnvelope(data []byte) (*envelope, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	env.raw = data
	return &env, true
}

func (e *envelope) role() domain.Role {
	if r := stringValue(e.Role); r != "" {
		return domain.Role(r)
	}
	for _, nested := range []json.RawMessage{e.User, e.Data} {
		var inner struct {
			Role json.RawMessage `json:"role"`
		}
		if len(nested) == 0 || json.Unmarshal(nested, &inner) != nil {
			continue
		}
		if r := stringValue(inner.Role); r != "" {
			return domain.Role(r)
		}
	}
	return ""
}

func (e *envelope) profile() *domain.UserProfile {
	var top *domain.UserProfile
	for i, raw := range []json.RawMessage{e.raw, e.User, e.Data} {
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var p domain.UserProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			if i == 0 {
				return nil
			}
			continue
		}
		if i == 0 {
			top = &p
		}
		if hasIdentity(&p) {
			return &p
		}
	}
	return top
}

func hasIdentity(p *domain.UserProfile) bool {
	return p.ID != "" || p.Email != "" || p.Role != "" || p.FirstName != "" || p.LastName != ""
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature;
// the backend verifies tokens, the front-end only avoids sending stale ones.
func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func tokenExpired(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	return ok && !exp.After(now)
}
