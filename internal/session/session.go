// Package session keeps the authenticated client's bearer token and cached
// profile in cookies and decodes them into canonical claims.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ashureev/eventdash/internal/domain"
)

const (
	TokenCookieName   = "auth_token"
	ProfileCookieName = "user_data"
	defaultMaxAge     = 7 * 24 * time.Hour
)

// Options controls the attributes of the cookies the store writes.
type Options struct {
	MaxAge time.Duration
	Secure bool
}

// Store is the session of a single request. Reads see the incoming cookies
// overlaid with any writes made earlier in the same request; writes are sent
// back to the client as Set-Cookie headers.
type Store struct {
	w    http.ResponseWriter
	opts Options

	token      string
	profileRaw string
	tokenSet   bool
	profileSet bool
	rawCookies map[string]string
	now        func() time.Time
}

// New binds a store to the request's cookies and the response writer.
func New(w http.ResponseWriter, r *http.Request, opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	s := &Store{
		w:          w,
		opts:       opts,
		rawCookies: make(map[string]string, 2),
		now:        time.Now,
	}
	for _, name := range []string{TokenCookieName, ProfileCookieName} {
		if c, err := r.Cookie(name); err == nil {
			s.rawCookies[name] = c.Value
		}
	}
	return s
}

// SetToken stores the bearer token.
func (s *Store) SetToken(token string) {
	s.token = token
	s.tokenSet = true
	s.write(TokenCookieName, token)
}

// Token returns the stored bearer token. Expired JWTs are reported as absent.
func (s *Store) Token() (string, bool) {
	token := s.rawToken()
	if token == "" || tokenExpired(token, s.now()) {
		return "", false
	}
	return token, true
}

// SetProfile stores a snapshot of the user's profile.
func (s *Store) SetProfile(p *domain.UserProfile) error {
	if p == nil {
		s.profileRaw = ""
		s.profileSet = true
		s.expire(ProfileCookieName)
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.profileRaw = string(data)
	s.profileSet = true
	s.write(ProfileCookieName, url.QueryEscape(s.profileRaw))
	return nil
}

// Profile returns the cached profile, or nil when absent or unreadable.
func (s *Store) Profile() *domain.UserProfile {
	raw := s.profileRaw
	if !s.profileSet {
		raw = s.rawCookies[ProfileCookieName]
	}
	env := decodeEnvelope(raw)
	if env == nil {
		return nil
	}
	return env.profile()
}

// Claims returns the canonical view of the session.
func (s *Store) Claims() Claims {
	raw := s.profileRaw
	if !s.profileSet {
		raw = s.rawCookies[ProfileCookieName]
	}
	return buildClaims(s.rawToken(), raw, s.now())
}

// Clear removes both session cookies.
func (s *Store) Clear() {
	s.token, s.tokenSet = "", true
	s.profileRaw, s.profileSet = "", true
	s.expire(TokenCookieName)
	s.expire(ProfileCookieName)
}

func (s *Store) rawToken() string {
	if s.tokenSet {
		return s.token
	}
	return s.rawCookies[TokenCookieName]
}

func (s *Store) write(name, value string) {
	if s.w == nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.opts.MaxAge.Seconds()),
		Expires:  s.now().Add(s.opts.MaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.opts.Secure,
	})
}

func (s *Store) expire(name string) {
	if s.w == nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.opts.Secure,
	})
}

// ClaimsFromRequest decodes the session cookies of r without binding a writer.
func ClaimsFromRequest(r *http.Request) Claims {
	var token, profile string
	if c, err := r.Cookie(TokenCookieName); err == nil {
		token = c.Value
	}
	if c, err := r.Cookie(ProfileCookieName); err == nil {
		profile = c.Value
	}
	return buildClaims(token, profile, time.Now())
}

type contextKey int

const storeKey contextKey = iota

// Middleware binds a Store to every request so handlers can read it with FromContext.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := New(w, r, opts)
			ctx := context.WithValue(r.Context(), storeKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request's Store. Outside Middleware it returns a
// write-less store so callers never deal with nil.
func FromContext(ctx context.Context) *Store {
	if s, ok := ctx.Value(storeKey).(*Store); ok {
		return s
	}
	slog.Debug("session store missing from context")
	return &Store{rawCookies: map[string]string{}, now: time.Now, opts: Options{MaxAge: defaultMaxAge}}
}
