package model

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestIdentity is the key a generation store files snapshots under.
type RequestIdentity struct {
	Method string `bson:"method" json:"method"`
	URL    string `bson:"url" json:"url"`
}

// NewRequestIdentity builds an identity for method and an absolute URL.
// The fragment is dropped since it never reaches the network.
func NewRequestIdentity(method string, u *url.URL) RequestIdentity {
	if method == "" {
		method = http.MethodGet
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return RequestIdentity{Method: strings.ToUpper(method), URL: c.String()}
}

// IdentityFromRequest returns the identity of an outgoing request.
func IdentityFromRequest(r *http.Request) RequestIdentity {
	return NewRequestIdentity(r.Method, r.URL)
}

// Key is the flat string form used by key-value backends.
func (id RequestIdentity) Key() string {
	return id.Method + " " + id.URL
}

// String implements fmt.Stringer.
func (id RequestIdentity) String() string {
	return id.Key()
}

// ParseKey reverses Key.
func ParseKey(key string) (RequestIdentity, bool) {
	method, u, ok := strings.Cut(key, " ")
	if !ok || method == "" || u == "" {
		return RequestIdentity{}, false
	}
	return RequestIdentity{Method: method, URL: u}, true
}
