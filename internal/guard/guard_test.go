package guard

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/eventdash/internal/session"
)

func request(path, token, profile string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: token})
	}
	if profile != "" {
		req.AddCookie(&http.Cookie{Name: session.ProfileCookieName, Value: url.QueryEscape(profile)})
	}
	return req
}

func decide(path, token, profile string) Decision {
	return Evaluate(path, session.ClaimsFromRequest(request(path, token, profile)))
}

func TestEvaluate(t *testing.T) {
	const admin = `{"_id":"1","role":"admin"}`
	const user = `{"_id":"2","role":"user"}`

	tests := []struct {
		name     string
		path     string
		token    string
		profile  string
		redirect string
	}{
		{"admin without token", "/admin/users", "", "", "/login?redirect=%2Fadmin%2Fusers"},
		{"admin root without token", "/admin", "", admin, "/login?redirect=%2Fadmin"},
		{"admin as user", "/admin/users", "tok", user, "/auth/dashboard"},
		{"admin with no role", "/admin/users", "tok", `{"_id":"3"}`, "/auth/dashboard"},
		{"admin with token only", "/admin/users", "tok", "", "/auth/dashboard"},
		{"admin as admin", "/admin/users/42/edit", "tok", admin, ""},
		{"admin via isAdmin flag", "/admin", "tok", `{"_id":"1","isAdmin":true}`, ""},
		{"admin case-insensitive", "/admin", "tok", `{"user":{"role":"ADMIN"}}`, ""},
		{"user without token", "/user/profile", "", "", "/login?redirect=%2Fuser%2Fprofile"},
		{"user with token", "/user/profile", "tok", "", ""},
		{"admin can open user pages", "/user/profile", "tok", admin, ""},
		{"public page", "/login", "", "", ""},
		{"lookalike prefix", "/administrator", "", "", ""},
		{"lookalike user prefix", "/users", "", "", ""},
		{"landing page", "/auth/dashboard", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(tt.path, tt.token, tt.profile)
			assert.Equal(t, tt.redirect, d.Redirect)
			assert.Equal(t, tt.redirect == "", d.Pass())
		})
	}
}

func TestLoginRedirectCarriesOriginalPath(t *testing.T) {
	d := decide("/user/profile", "", "")
	u, err := url.Parse(d.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
	assert.Equal(t, "/user/profile", u.Query().Get("redirect"))
}

func TestMalformedProfileIsNeverAdmin(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	alphabet := []byte(`{}[]":,%abcdefrole admin0123\`)
	for i := 0; i < 500; i++ {
		b := make([]byte, r.Intn(40))
		for j := range b {
			b[j] = alphabet[r.Intn(len(alphabet))]
		}
		raw := string(b)

		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: "tok"})
		req.AddCookie(&http.Cookie{Name: session.ProfileCookieName, Value: url.QueryEscape(raw)})

		var d Decision
		require.NotPanics(t, func() { d = Evaluate("/admin/users", session.ClaimsFromRequest(req)) })
		if d.Pass() {
			// Only a well-formed admin envelope may pass.
			c := session.ClaimsFromRequest(req)
			assert.True(t, c.IsAdmin(), "raw=%q", raw)
		}
	}
}

func TestUnguardedPathsPass(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	segments := []string{"", "login", "register", "auth", "dashboard", "static", "adminx", "userland", "api", "x"}
	for i := 0; i < 300; i++ {
		path := ""
		for n := 1 + r.Intn(3); n > 0; n-- {
			path += "/" + segments[r.Intn(len(segments))]
		}
		for _, tok := range []string{"", "tok"} {
			d := decide(path, tok, "not json")
			assert.True(t, d.Pass(), "path=%q", path)
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	claims := session.ClaimsFromRequest(request("/admin", "tok", `{"role":"user"}`))
	first := Evaluate("/admin", claims)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate("/admin", claims))
	}
}

func TestMiddleware(t *testing.T) {
	var reached bool
	h := Middleware(DefaultPaths())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, request("/user/profile", "", ""))
	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login?redirect=%2Fuser%2Fprofile", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, request("/user/profile", "tok", ""))
	assert.True(t, reached)
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/user/profile", SafeRedirect("/user/profile", "/"))
	assert.Equal(t, "/admin?tab=1", SafeRedirect("/admin?tab=1", "/"))
	for _, bad := range []string{"", "https://evil.example", "//evil.example", "/\\evil", "relative"} {
		assert.Equal(t, "/fallback", SafeRedirect(bad, "/fallback"), bad)
	}
}
