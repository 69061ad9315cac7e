package cookie

import (
	"net/http"

	"github.com/sigpwny/sveltia-github-auth/internal/config"
)

// CSRFCookie carries the state token between the authorize redirect and the
// provider callback. It is the only state the relay keeps, and it lives on
// the client.
const CSRFCookie = "csrf-token"

// CSRFMaxAge bounds a single login attempt to 10 minutes.
const CSRFMaxAge = 600

// SetCSRF sets the CSRF token cookie for the duration of one login attempt.
func SetCSRF(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !config.DevMode(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   CSRFMaxAge,
	})
}

// ClearCSRF deletes the CSRF cookie. Serialized with Max-Age=0 so the
// browser drops it immediately, preventing reuse across attempts.
func ClearCSRF(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   CSRFCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// GetCSRF retrieves the CSRF cookie value from the request.
func GetCSRF(r *http.Request) (string, error) {
	c, err := r.Cookie(CSRFCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
