// Package network fetches responses from the page origin and classifies
// them the way a browser would before they reach the cache.
package network

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidOrigin is returned for origins that are not absolute http(s) URLs.
var ErrInvalidOrigin = errors.New("invalid origin")

// ParseOrigin parses an absolute http or https URL and keeps only its
// scheme, host and port.
func ParseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrigin, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	return &url.URL{Scheme: scheme, Host: strings.ToLower(u.Host)}, nil
}

// SameOrigin compares scheme, host and port, treating an omitted port as
// the scheme's default.
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// Resolve resolves ref against origin. Absolute references are kept as is.
func Resolve(origin *url.URL, ref string) (*url.URL, error) {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", ref, err)
	}
	return origin.ResolveReference(r), nil
}

// Target returns the URL an intercepted request is for. Absolute-form
// request targets, as sent to a forward proxy, are kept; anything else is
// taken to be a path on origin.
func Target(origin *url.URL, u *url.URL) *url.URL {
	if u.IsAbs() && u.Host != "" {
		t := *u
		t.User = nil
		return &t
	}
	return &url.URL{
		Scheme:   origin.Scheme,
		Host:     origin.Host,
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: u.RawQuery,
	}
}

// ForwardAllowed reports whether target may be fetched on a client's
// behalf: it is on origin, or its host is listed in allowed. An entry with
// a port must match host and port; one without matches the hostname on
// any port. Matching is case-insensitive.
func ForwardAllowed(target, origin *url.URL, allowed []string) bool {
	if SameOrigin(target, origin) {
		return true
	}
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.Contains(a, ":") {
			if strings.EqualFold(a, target.Host) {
				return true
			}
			continue
		}
		if strings.EqualFold(a, target.Hostname()) {
			return true
		}
	}
	return false
}

// HostExcluded reports whether host contains any of the exclusion
// substrings. Matching is case-insensitive; empty entries never match.
func HostExcluded(host string, exclusions []string) bool {
	host = strings.ToLower(host)
	for _, e := range exclusions {
		if e == "" {
			continue
		}
		if strings.Contains(host, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// clientIP extracts the address used for X-Forwarded-For.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
