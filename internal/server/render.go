package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/sigpwny/sveltia-github-auth/internal/cookie"
	"github.com/sigpwny/sveltia-github-auth/internal/github"
	"github.com/sigpwny/sveltia-github-auth/internal/log"
)

//go:embed templates/popup.html
var popupTemplateHTML string

var popupTemplate = template.Must(template.New("popup").Parse(popupTemplateHTML))

// ErrorCode enumerates the terminal failure modes of a login attempt. Every
// failure is delivered to the opener window through the rendered popup, not
// as a raw HTTP error status.
type ErrorCode string

const (
	ErrUnsupportedDomain     ErrorCode = "UNSUPPORTED_DOMAIN"
	ErrMisconfiguredClient   ErrorCode = "MISCONFIGURED_CLIENT"
	ErrAuthCodeRequestFailed ErrorCode = "AUTH_CODE_REQUEST_FAILED"
	ErrCSRFDetected          ErrorCode = "CSRF_DETECTED"
	ErrTokenRequestFailed    ErrorCode = "TOKEN_REQUEST_FAILED"
	ErrMalformedResponse     ErrorCode = "MALFORMED_RESPONSE"
)

// RenderResult is the outcome handed to the popup renderer: either a token
// or an error, never both. Use Success or Failure to construct it.
type RenderResult struct {
	provider string
	token    string
	errMsg   string
	errCode  ErrorCode
	failed   bool
}

// Success builds a result carrying the provider access token.
func Success(provider, token string) RenderResult {
	return RenderResult{provider: provider, token: token}
}

// Failure builds a terminal error result. The code is empty when the
// message is a verbatim provider error.
func Failure(provider, message string, code ErrorCode) RenderResult {
	return RenderResult{provider: provider, errMsg: message, errCode: code, failed: true}
}

type successPayload struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

type errorPayload struct {
	Provider  string `json:"provider"`
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type popupData struct {
	Script template.JS
}

// popupScript implements the postMessage handshake the CMS expects: the
// popup announces "authorizing:<provider>" to the opener, waits for the
// opener to echo it back, then delivers the result restricted to the
// opener's reported origin.
const popupScript = `(() => {
  window.addEventListener('message', ({ data, origin }) => {
    if (data === %[1]s) {
      window.opener.postMessage(%[2]s, origin);
    }
  });

  window.opener.postMessage(%[1]s, '*');
})();`

// renderPopup writes the handshake page and deletes the CSRF cookie so the
// token cannot be replayed on a later attempt.
func renderPopup(w http.ResponseWriter, res RenderResult) {
	if res.provider == "" {
		res.provider = github.Provider
	}

	state := "success"
	var payload any = successPayload{Provider: res.provider, Token: res.token}
	if res.failed {
		state = "error"
		payload = errorPayload{Provider: res.provider, Error: res.errMsg, ErrorCode: string(res.errCode)}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.LogError("Failed to encode popup payload: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	handshake := "authorizing:" + res.provider
	message := fmt.Sprintf("authorization:%s:%s:%s", res.provider, state, raw)
	script := fmt.Sprintf(popupScript, jsString(handshake), jsString(message))

	cookie.ClearCSRF(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := popupTemplate.Execute(w, popupData{Script: template.JS(script)}); err != nil {
		log.LogError("Failed to render popup: %v", err)
	}
}

// jsEscaper covers the characters that would terminate a single-quoted JS
// string or the surrounding script element. Double quotes stay untouched so
// the JSON payload survives verbatim inside the message.
var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
	"</", `<\/`,
)

// jsString renders s as a single-quoted JavaScript string literal.
func jsString(s string) string {
	return "'" + jsEscaper.Replace(s) + "'"
}
