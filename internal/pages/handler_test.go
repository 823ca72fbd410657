package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/apiclient"
	"github.com/ashureev/eventdash/internal/domain"
	"github.com/ashureev/eventdash/internal/guard"
	"github.com/ashureev/eventdash/internal/middleware"
	"github.com/ashureev/eventdash/internal/ratelimit"
	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/web"
)

const adminProfile = `{"_id":"a1","email":"root@example.com","firstName":"Root","lastName":"Admin","role":"admin"}`

type backend struct {
	hits    atomic.Int32
	handler http.HandlerFunc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestRouter(t *testing.T, api http.HandlerFunc, authLimit func(http.Handler) http.Handler) (http.Handler, *backend) {
	t.Helper()
	return newTestRouterWithAudit(t, api, authLimit, nil)
}

func newTestRouterWithAudit(t *testing.T, api http.HandlerFunc, authLimit func(http.Handler) http.Handler, audit AuditReader) (http.Handler, *backend) {
	t.Helper()
	be := &backend{handler: api}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		be.hits.Add(1)
		be.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	h, err := NewHandler(action.New(client, nil, nil), audit, web.Templates(), srv.URL, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(session.Middleware(session.Options{}))
	r.Use(guard.Middleware(guard.DefaultPaths()))
	h.RegisterRoutes(r, authLimit)
	return r, be
}

func adminCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: session.TokenCookieName, Value: "tok-admin"},
		{Name: session.ProfileCookieName, Value: url.QueryEscape(adminProfile)},
	}
}

func do(h http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAdminPageRequiresLogin(t *testing.T) {
	h, be := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Fusers", rr.Header().Get("Location"))
	assert.Zero(t, be.hits.Load())
}

func TestLoginStoresSessionAndRedirectsAdmin(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-1",
			"data":    json.RawMessage(adminProfile),
		})
	}, nil)

	rr := do(h, postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"secret1"}}))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/users", rr.Header().Get("Location"))

	token := cookieByName(rr, session.TokenCookieName)
	require.NotNil(t, token)
	assert.Equal(t, "tok-1", token.Value)
	assert.True(t, token.HttpOnly)
	require.NotNil(t, cookieByName(rr, session.ProfileCookieName))
}

func TestLoginHonoursLocalRedirect(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-1",
			"data":    map[string]any{"_id": "u1", "email": "u@example.com", "role": "user"},
		})
	}, nil)

	form := url.Values{"email": {"u@example.com"}, "password": {"secret1"}, "redirect": {"/user/profile"}}
	rr := do(h, postForm("/login", form))
	assert.Equal(t, "/user/profile", rr.Header().Get("Location"))

	form.Set("redirect", "https://evil.example/")
	rr = do(h, postForm("/login", form))
	assert.Equal(t, "/auth/dashboard", rr.Header().Get("Location"))
}

func TestLoginFailureRendersMessage(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
	}, nil)

	rr := do(h, postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"bad"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid credentials")
	assert.Contains(t, rr.Body.String(), `value="root@example.com"`)
	assert.Nil(t, cookieByName(rr, session.TokenCookieName))
}

func TestListUsersRendersTable(t *testing.T) {
	var auth string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"_id": "u1", "firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "role": "user"},
				{"_id": "u2", "firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "role": "admin", "image": "uploads/g.png"},
			},
		})
	}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/admin/users", nil), adminCookies()...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bearer tok-admin", auth)
	body := rr.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "/admin/users/u2/edit")
	assert.Contains(t, body, "/uploads/g.png")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestNonAdminBouncedToLanding(t *testing.T) {
	h, be := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/admin", nil),
		&http.Cookie{Name: session.TokenCookieName, Value: "tok"},
		&http.Cookie{Name: session.ProfileCookieName, Value: url.QueryEscape(`{"_id":"u1","role":"user"}`)},
	)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/auth/dashboard", rr.Header().Get("Location"))
	assert.Zero(t, be.hits.Load())
}

func TestCreateUserPasswordMismatchSkipsBackend(t *testing.T) {
	h, be := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	}, nil)

	form := url.Values{
		"firstName": {"Grace"}, "lastName": {"Hopper"}, "email": {"grace@example.com"},
		"password": {"secret1"}, "confirmPassword": {"secret2"}, "role": {"user"},
	}
	rr := do(h, postForm("/admin/users/create", form), adminCookies()...)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Passwords do not match")
	assert.Zero(t, be.hits.Load())
}

func TestCreateUserForwardsImage(t *testing.T) {
	var gotImage, gotRole string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotRole = r.FormValue("role")
		if f, _, err := r.FormFile("image"); err == nil {
			data, _ := io.ReadAll(f)
			gotImage = string(data)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "User created", "data": map[string]any{"_id": "u9"}})
	}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com",
		"password": "secret1", "confirmPassword": "secret1", "role": "admin",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "g.gif")
	require.NoError(t, err)
	_, _ = part.Write([]byte("GIF89a-image-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/users/create", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := do(h, req, adminCookies()...)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/users?notice=User+created", rr.Header().Get("Location"))
	assert.Equal(t, "admin", gotRole)
	assert.Equal(t, "GIF89a-image-bytes", gotImage)
}

func TestDeleteUserRedirects(t *testing.T) {
	var method, path string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User deleted"})
	}, nil)

	rr := do(h, httptest.NewRequest(http.MethodPost, "/admin/users/u3/delete", nil), adminCookies()...)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/admin/users/u3", path)
}

func TestLogoutExpiresCookies(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodPost, "/logout", nil), adminCookies()...)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	token := cookieByName(rr, session.TokenCookieName)
	require.NotNil(t, token)
	assert.Equal(t, -1, token.MaxAge)
}

func TestResetPasswordPageWithoutToken(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/reset-password", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid or has expired")
}

func TestResetPasswordPostsToken(t *testing.T) {
	var path string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, nil)

	rr := do(h, postForm("/reset-password", url.Values{
		"token": {"abc123"}, "newPassword": {"secret1"}, "confirmPassword": {"secret1"},
	}))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/api/auth/reset-password/abc123", path)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login?notice="))
}

func TestAuthFormsAreRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	t.Cleanup(limiter.Close)
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	}, middleware.RateLimit(limiter, "auth", time.Minute))

	form := url.Values{"email": {"a@b.co"}, "password": {"x"}}
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, postForm("/login", form)).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, postForm("/login", form)).Code)
	assert.Equal(t, http.StatusOK, do(h, httptest.NewRequest(http.MethodGet, "/login", nil)).Code)
}

func TestHealthWithoutAudit(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "disabled", got["audit"])
}

func TestUnknownPageIs404(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Page not found")
}

type auditStub struct {
	entries []*domain.AuditEntry
	actors  []string
}

func (a *auditStub) Recent(_ context.Context, limit int) ([]*domain.AuditEntry, error) {
	return a.entries, nil
}

func (a *auditStub) ForActor(_ context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	a.actors = append(a.actors, actorID)
	var out []*domain.AuditEntry
	for _, e := range a.entries {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *auditStub) Ping(context.Context) error { return nil }

func userCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: session.TokenCookieName, Value: "tok-user"},
		{Name: session.ProfileCookieName, Value: url.QueryEscape(`{"_id":"u5","email":"ada@example.com","firstName":"Ada","lastName":"Lovelace","role":"user"}`)},
	}
}

func TestLoginAcceptsNumericTimestamps(t *testing.T) {
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-1",
			"data": map[string]any{
				"_id": "a1", "email": "root@example.com", "role": "admin",
				"createdAt": 1718000000000, "updatedAt": nil,
			},
		})
	}, nil)

	rr := do(h, postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"secret1"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/users", rr.Header().Get("Location"))

	profile := cookieByName(rr, session.ProfileCookieName)
	require.NotNil(t, profile)
	token := cookieByName(rr, session.TokenCookieName)
	require.NotNil(t, token)

	rr = do(h, httptest.NewRequest(http.MethodGet, "/admin/audit", nil), token, profile)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Audit trail is disabled")
}

func TestUpdateUserRedirectsToDetail(t *testing.T) {
	var method, path string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User updated"})
	}, nil)

	form := url.Values{"firstName": {"Grace"}, "lastName": {"Hopper"}, "email": {"grace@example.com"}, "role": {"admin"}}
	rr := do(h, postForm("/admin/users/u3/edit", form), adminCookies()...)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/users/u3?notice=User+updated", rr.Header().Get("Location"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/admin/users/u3", path)
}

func TestProfileUpdateForwardsPassword(t *testing.T) {
	var gotPassword, gotConfirm string
	h, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPassword, gotConfirm = r.FormValue("password"), r.FormValue("confirmPassword")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Profile updated"})
	}, nil)

	form := url.Values{
		"firstName": {"Ada"}, "lastName": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"newsecret"}, "confirmPassword": {"newsecret"},
	}
	rr := do(h, postForm("/user/profile", form), userCookies()...)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/user/profile?notice=Profile+updated", rr.Header().Get("Location"))
	assert.Equal(t, "newsecret", gotPassword)
	assert.Equal(t, "newsecret", gotConfirm)
}

func TestProfileUpdatePasswordMismatchSkipsBackend(t *testing.T) {
	h, be := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, nil)

	form := url.Values{
		"firstName": {"Ada"}, "lastName": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"newsecret"}, "confirmPassword": {"different"},
	}
	rr := do(h, postForm("/user/profile", form), userCookies()...)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Passwords do not match")
	assert.Zero(t, be.hits.Load())
}

func TestProfilePageShowsRecentActivity(t *testing.T) {
	audit := &auditStub{entries: []*domain.AuditEntry{
		{Action: "update_profile", ActorID: "u5", Success: true, Message: "Profile updated", CreatedAt: time.Now()},
		{Action: "delete_user", ActorID: "a1", Success: true, Message: "User deleted", CreatedAt: time.Now()},
	}}
	h, _ := newTestRouterWithAudit(t, func(w http.ResponseWriter, r *http.Request) {}, nil, audit)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/user/profile", nil), userCookies()...)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Recent activity")
	assert.Contains(t, body, "update_profile")
	assert.NotContains(t, body, "delete_user")
	assert.Equal(t, []string{"u5"}, audit.actors)
}

func TestAuditLogFiltersByActor(t *testing.T) {
	audit := &auditStub{entries: []*domain.AuditEntry{
		{Action: "update_profile", ActorID: "u5", Success: true, CreatedAt: time.Now()},
		{Action: "delete_user", ActorID: "a1", Success: false, CreatedAt: time.Now()},
	}}
	h, _ := newTestRouterWithAudit(t, func(w http.ResponseWriter, r *http.Request) {}, nil, audit)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/admin/audit?actor=a1", nil), adminCookies()...)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "delete_user")
	assert.NotContains(t, body, "update_profile")
	assert.Contains(t, body, `value="a1"`)
	assert.Equal(t, []string{"a1"}, audit.actors)

	rr = do(h, httptest.NewRequest(http.MethodGet, "/admin/audit", nil), adminCookies()...)
	assert.Contains(t, rr.Body.String(), "update_profile")
	assert.Len(t, audit.actors, 1)
}
