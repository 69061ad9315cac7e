package server

import (
	"net/http"
)

// NewRouter builds the relay's HTTP surface: two handlers reachable under
// two path aliases each, everything else a 404 with an empty body.
func NewRouter(h *AuthHandlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth", getOnly(h.AuthorizeHandler))
	mux.HandleFunc("/oauth/authorize", getOnly(h.AuthorizeHandler))
	mux.HandleFunc("/callback", getOnly(h.CallbackHandler))
	mux.HandleFunc("/oauth/redirect", getOnly(h.CallbackHandler))

	mux.HandleFunc("/", notFound)

	return mux
}

// getOnly restricts a handler to GET. Anything else falls through to the
// same empty 404 as an unknown path, not a 405.
func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			notFound(w, r)
			return
		}
		next(w, r)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
