package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigpwny/sveltia-github-auth/internal/config"
	"github.com/sigpwny/sveltia-github-auth/internal/cookie"
	"github.com/sigpwny/sveltia-github-auth/internal/crypto"
	"github.com/sigpwny/sveltia-github-auth/internal/github"
)

const testCSRFToken = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{
		Addr:               ":8080",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
		GitHubHostname:     "github.com",
		AllowedDomains:     []string{"*.example.com"},
	}
}

func newTestHandlers(cfg config.Config, providerURL string) *AuthHandlers {
	gh := github.NewClient(cfg.GitHubClientID, string(cfg.GitHubClientSecret), cfg.GitHubHostname)
	if providerURL != "" {
		gh = gh.WithBaseURL(providerURL)
	}
	return NewAuthHandlers(cfg, gh)
}

// requireCookieCleared asserts the terminal response deletes the CSRF
// cookie so the token cannot be replayed.
func requireCookieCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.CSRFCookie {
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
			return
		}
	}
	t.Fatal("response does not delete the csrf-token cookie")
}

func TestAuthorizeRedirect(t *testing.T) {
	h := newTestHandlers(testConfig(), "")

	rec := httptest.NewRecorder()
	h.AuthorizeHandler(rec, httptest.NewRequest(http.MethodGet, "/oauth?site_id=blog.example.com", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", loc.Host)
	assert.Equal(t, "/login/oauth/authorize", loc.Path)

	q := loc.Query()
	assert.Equal(t, "test-client-id", q.Get("client_id"))
	assert.Equal(t, "repo,user", q.Get("scope"))

	state := q.Get("state")
	assert.True(t, crypto.IsCSRFToken(state), "state must be 32 lowercase hex chars")

	// The cookie binds the callback to this redirect
	var csrf *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.CSRFCookie {
			csrf = c
		}
	}
	require.NotNil(t, csrf, "redirect must set the csrf-token cookie")
	assert.Equal(t, state, csrf.Value)
	assert.Equal(t, cookie.CSRFMaxAge, csrf.MaxAge)
	assert.True(t, csrf.HttpOnly)
}

func TestAuthorizeUnsupportedDomain(t *testing.T) {
	h := newTestHandlers(testConfig(), "")

	tests := []struct {
		name   string
		siteID string
	}{
		{"unknown domain", "evil.com"},
		{"apex of wildcard", "example.com"},
		{"empty site_id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.AuthorizeHandler(rec, httptest.NewRequest(http.MethodGet, "/oauth?site_id="+tt.siteID, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("Location"), "no redirect may happen")
			assert.Contains(t, rec.Body.String(), string(ErrUnsupportedDomain))
			assert.Contains(t, rec.Body.String(), "authorization:github:error:")
			requireCookieCleared(t, rec)
		})
	}
}

func TestAuthorizeNoAllowListAcceptsAnyDomain(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedDomains = nil
	h := newTestHandlers(cfg, "")

	for _, siteID := range []string{"anything.example.net", ""} {
		rec := httptest.NewRecorder()
		h.AuthorizeHandler(rec, httptest.NewRequest(http.MethodGet, "/oauth?site_id="+siteID, nil))
		assert.Equal(t, http.StatusFound, rec.Code)
	}
}

func TestAuthorizeMisconfiguredClient(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubClientSecret = ""
	h := newTestHandlers(cfg, "")

	rec := httptest.NewRecorder()
	h.AuthorizeHandler(rec, httptest.NewRequest(http.MethodGet, "/oauth?site_id=blog.example.com", nil))

	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), string(ErrMisconfiguredClient))
	requireCookieCleared(t, rec)
}

func callbackRequest(target, cookieValue string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieValue != "" {
		r.AddCookie(&http.Cookie{Name: cookie.CSRFCookie, Value: cookieValue})
	}
	return r
}

func TestCallbackMissingParams(t *testing.T) {
	h := newTestHandlers(testConfig(), "")

	tests := []struct {
		name   string
		target string
		cookie string
	}{
		{"missing code", "/callback?state=" + testCSRFToken, testCSRFToken},
		{"missing state", "/callback?code=abc", testCSRFToken},
		{"missing both", "/callback", testCSRFToken},
		// Ordering: the missing-parameter check precedes the CSRF check
		// even when both would fail.
		{"missing code and cookie", "/callback?state=" + testCSRFToken, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CallbackHandler(rec, callbackRequest(tt.target, tt.cookie))

			assert.Contains(t, rec.Body.String(), string(ErrAuthCodeRequestFailed))
			assert.NotContains(t, rec.Body.String(), string(ErrCSRFDetected))
			requireCookieCleared(t, rec)
		})
	}
}

func TestCallbackCSRFDetected(t *testing.T) {
	h := newTestHandlers(testConfig(), "")

	tests := []struct {
		name   string
		state  string
		cookie string
	}{
		{"no cookie", testCSRFToken, ""},
		{"state mismatch", testCSRFToken, "ffffffffffffffffffffffffffffffff"},
		{"cookie not a well-formed token", testCSRFToken, "not-hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+tt.state, tt.cookie))

			assert.Contains(t, rec.Body.String(), string(ErrCSRFDetected))
			requireCookieCleared(t, rec)
		})
	}
}

func TestCallbackMisconfiguredClient(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubClientID = ""
	h := newTestHandlers(cfg, "")

	rec := httptest.NewRecorder()
	h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+testCSRFToken, testCSRFToken))

	assert.Contains(t, rec.Body.String(), string(ErrMisconfiguredClient))
	requireCookieCleared(t, rec)
}

func TestCallbackSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok123"}`))
	}))
	defer srv.Close()

	h := newTestHandlers(testConfig(), srv.URL)

	rec := httptest.NewRecorder()
	h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+testCSRFToken, testCSRFToken))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `authorization:github:success:{"provider":"github","token":"tok123"}`)
	assert.Contains(t, body, "'authorizing:github'")
	assert.NotContains(t, body, "errorCode")
	assert.NotContains(t, body, "test-client-secret", "client secret must never reach the browser")
	requireCookieCleared(t, rec)
}

func TestCallbackProviderErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
	}))
	defer srv.Close()

	h := newTestHandlers(testConfig(), srv.URL)

	rec := httptest.NewRecorder()
	h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+testCSRFToken, testCSRFToken))

	body := rec.Body.String()
	// The provider's own error travels verbatim, with no error code of ours
	assert.Contains(t, body, `authorization:github:error:{"provider":"github","error":"bad_verification_code"}`)
	assert.NotContains(t, body, "errorCode")
	requireCookieCleared(t, rec)
}

func TestCallbackMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer srv.Close()

	h := newTestHandlers(testConfig(), srv.URL)

	rec := httptest.NewRecorder()
	h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+testCSRFToken, testCSRFToken))

	assert.Contains(t, rec.Body.String(), string(ErrMalformedResponse))
	requireCookieCleared(t, rec)
}

func TestCallbackTokenRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // all exchange attempts are refused

	h := newTestHandlers(testConfig(), srv.URL)

	rec := httptest.NewRecorder()
	h.CallbackHandler(rec, callbackRequest("/callback?code=abc&state="+testCSRFToken, testCSRFToken))

	assert.Contains(t, rec.Body.String(), string(ErrTokenRequestFailed))
	requireCookieCleared(t, rec)
}
