package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// csrfTokenPattern matches the exact cookie/state wire format: 32 lowercase
// hexadecimal characters.
var csrfTokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// GenerateCSRFToken creates a cryptographically secure random token binding
// the authorize redirect to its callback. The result is 32 lowercase hex
// characters (16 random bytes), suitable for both the state parameter and
// the csrf-token cookie.
func GenerateCSRFToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsCSRFToken reports whether s is a well-formed CSRF token.
func IsCSRFToken(s string) bool {
	return csrfTokenPattern.MatchString(s)
}
