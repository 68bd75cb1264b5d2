// Package model provides domain models for the shell cache.
package model

import (
	"net/http"
	"time"
)

// ResponseType mirrors the fetch response types a page can observe.
type ResponseType string

const (
	// ResponseTypeBasic is a same-origin response whose status and body are inspectable.
	ResponseTypeBasic ResponseType = "basic"
	// ResponseTypeCORS is a cross-origin response the origin explicitly shared.
	ResponseTypeCORS ResponseType = "cors"
	// ResponseTypeOpaque is a cross-origin response that cannot be validated.
	ResponseTypeOpaque ResponseType = "opaque"
	// ResponseTypeOpaqueRedirect is an unfollowed redirect.
	ResponseTypeOpaqueRedirect ResponseType = "opaqueredirect"
	// ResponseTypeError is a network error materialised as a response.
	ResponseTypeError ResponseType = "error"
)

// Snapshot is a fully buffered copy of a response that can be replayed
// any number of times. Once stored it is never mutated, only replaced.
type Snapshot struct {
	Status   int          `bson:"status" json:"status"`
	Header   http.Header  `bson:"header,omitempty" json:"header,omitempty"`
	Body     []byte       `bson:"body,omitempty" json:"body,omitempty"`
	Type     ResponseType `bson:"type" json:"type"`
	URL      string       `bson:"url" json:"url"`
	StoredAt time.Time    `bson:"stored_at" json:"stored_at"`
}

// OK reports whether the status is in the 2xx range.
func (s *Snapshot) OK() bool {
	return s != nil && s.Status >= 200 && s.Status <= 299
}

// Cacheable reports whether the snapshot may be written during a
// background refresh: a plain 200 from the page's own origin.
func (s *Snapshot) Cacheable() bool {
	return s != nil && s.Status == http.StatusOK && s.Type == ResponseTypeBasic
}

// Clone returns a deep copy so callers can hand the snapshot out while the
// store keeps its own.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Header = s.Header.Clone()
	if s.Body != nil {
		c.Body = append([]byte(nil), s.Body...)
	}
	return &c
}
