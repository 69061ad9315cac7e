// Package domain implements the allow-list check for requesting sites.
//
// A pattern is either a literal domain or a single "*." wildcard prefix.
// The wildcard matches one or more subdomain labels but never the bare
// apex: "*.example.com" matches "blog.example.com" and
// "docs.api.example.com", not "example.com".
package domain

import (
	"net"
	"strings"
)

// Match reports whether host matches at least one allow-list pattern.
// Comparison is case-insensitive and ignores any port on either side.
func Match(host string, patterns []string) bool {
	host = stripPort(strings.ToLower(host))
	for _, p := range patterns {
		p = stripPort(strings.ToLower(p))
		if p == host {
			return true
		}
		if strings.HasPrefix(p, "*.") {
			suffix := p[1:] // ".example.com"
			if strings.HasSuffix(host, suffix) && host != suffix[1:] {
				return true
			}
		}
	}
	return false
}

func stripPort(host string) string {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}
