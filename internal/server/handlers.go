package server

import (
	"errors"
	"net/http"

	"github.com/sigpwny/sveltia-github-auth/internal/config"
	"github.com/sigpwny/sveltia-github-auth/internal/cookie"
	"github.com/sigpwny/sveltia-github-auth/internal/crypto"
	"github.com/sigpwny/sveltia-github-auth/internal/domain"
	"github.com/sigpwny/sveltia-github-auth/internal/github"
	"github.com/sigpwny/sveltia-github-auth/internal/log"
)

// Terminal error messages delivered to the opener window alongside the
// error code. Kept aligned with what the CMS client shows to users.
const (
	msgUnsupportedDomain     = "Your domain is not allowed to use the authenticator."
	msgMisconfiguredClient   = "OAuth app client ID or client secret is not configured."
	msgAuthCodeRequestFailed = "Failed to receive an authorization code. Please double-check the OAuth app configuration."
	msgCSRFDetected          = "Potential CSRF attack detected. Please try again from the content management system."
	msgTokenRequestFailed    = "Failed to request an access token. Please try again later."
	msgMalformedResponse     = "Server responded with malformed data. Please try again later."
)

// AuthHandlers provides the two OAuth relay endpoints with dependency
// injection.
type AuthHandlers struct {
	cfg    config.Config
	github *github.Client
}

// NewAuthHandlers creates relay handlers for the given configuration and
// provider client.
func NewAuthHandlers(cfg config.Config, gh *github.Client) *AuthHandlers {
	return &AuthHandlers{cfg: cfg, github: gh}
}

// AuthorizeHandler begins the flow: it checks the requesting site against
// the allow-list, mints the CSRF token, and redirects the popup to the
// provider's authorization endpoint.
func (h *AuthHandlers) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site_id")

	if len(h.cfg.AllowedDomains) > 0 && !domain.Match(siteID, h.cfg.AllowedDomains) {
		log.LogWarnWithFields("auth", "Requesting domain not in allow-list", map[string]any{
			"site_id": siteID,
		})
		renderPopup(w, Failure(github.Provider, msgUnsupportedDomain, ErrUnsupportedDomain))
		return
	}

	if !h.cfg.HasCredentials() {
		log.LogError("OAuth app credentials are not configured")
		renderPopup(w, Failure(github.Provider, msgMisconfiguredClient, ErrMisconfiguredClient))
		return
	}

	csrfToken, err := crypto.GenerateCSRFToken()
	if err != nil {
		log.LogError("Failed to generate CSRF token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cookie.SetCSRF(w, csrfToken)
	http.Redirect(w, r, h.github.AuthCodeURL(csrfToken), http.StatusFound)
}

// CallbackHandler completes the flow: it validates the code and state
// against the CSRF cookie, exchanges the code server-to-server, and renders
// the result for the opener window. Every outcome, success or failure,
// deletes the cookie.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")

	csrfToken, err := cookie.GetCSRF(r)
	if err != nil || !crypto.IsCSRFToken(csrfToken) {
		csrfToken = ""
	}

	// Missing-parameter check runs before the CSRF comparison; the order
	// only matters when both fail, and then the missing code is the more
	// actionable report.
	if code == "" || state == "" {
		log.LogWarn("Callback missing code or state parameter")
		renderPopup(w, Failure(github.Provider, msgAuthCodeRequestFailed, ErrAuthCodeRequestFailed))
		return
	}

	if csrfToken == "" || csrfToken != state {
		log.LogWarn("Callback state does not match CSRF cookie")
		renderPopup(w, Failure(github.Provider, msgCSRFDetected, ErrCSRFDetected))
		return
	}

	if !h.cfg.HasCredentials() {
		log.LogError("OAuth app credentials are not configured")
		renderPopup(w, Failure(github.Provider, msgMisconfiguredClient, ErrMisconfiguredClient))
		return
	}

	token, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		var authErr *github.AuthError
		switch {
		case errors.As(err, &authErr):
			// Provider-reported logical error, surfaced verbatim with
			// no error code of our own.
			log.LogWarnWithFields("auth", "Provider rejected the token exchange", map[string]any{
				"error": authErr.Code,
			})
			renderPopup(w, Failure(github.Provider, authErr.Code, ""))
		case errors.Is(err, github.ErrMalformedResponse):
			log.LogError("Token exchange returned malformed body: %v", err)
			renderPopup(w, Failure(github.Provider, msgMalformedResponse, ErrMalformedResponse))
		default:
			log.LogError("Token exchange failed: %v", err)
			renderPopup(w, Failure(github.Provider, msgTokenRequestFailed, ErrTokenRequestFailed))
		}
		return
	}

	log.LogInfoWithFields("auth", "Login flow completed", map[string]any{
		"provider": github.Provider,
	})
	renderPopup(w, Success(github.Provider, token.AccessToken))
}
