// Package dto defines Data Transfer Objects for the admin API.
//
// DTOs decouple the HTTP layer from the domain model and carry the JSON
// shape and binding rules of each endpoint.
package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/shell-cache/internal/domain/model"
)

// DeployRequest is the body of POST /_cache/deploy. Omitted fields fall
// back to the configured defaults.
type DeployRequest struct {
	Version      string   `json:"version" binding:"required" example:"v2"`
	Manifest     []string `json:"manifest,omitempty"`
	ExcludeHosts []string `json:"exclude_hosts,omitempty"`
	SkipWaiting  *bool    `json:"skip_waiting,omitempty"`
	Claim        *bool    `json:"claim,omitempty"`
}

// ErrInvalidDeploy is returned by DeployRequest.Validate.
var ErrInvalidDeploy = errors.New("invalid deploy request")

// Validate checks the fields binding cannot express.
func (r *DeployRequest) Validate() error {
	r.Version = strings.TrimSpace(r.Version)
	if r.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidDeploy)
	}
	for i, entry := range r.Manifest {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("%w: manifest entry %d is empty", ErrInvalidDeploy, i)
		}
	}
	return nil
}

// GenerationResponse describes one installed generation.
type GenerationResponse struct {
	Version      string               `json:"version"`
	StoreName    string               `json:"store_name"`
	State        model.LifecycleState `json:"state" swaggertype:"string" example:"activated"`
	Entries      int                  `json:"entries"`
	Manifest     []string             `json:"manifest"`
	ExcludeHosts []string             `json:"exclude_hosts"`
	SkipWaiting  bool                 `json:"skip_waiting"`
	Claim        bool                 `json:"claim"`
}

// NewGenerationResponse builds the response for gen.
func NewGenerationResponse(gen model.Generation, state model.LifecycleState, entries int) *GenerationResponse {
	return &GenerationResponse{
		Version:      gen.Version,
		StoreName:    gen.StoreName,
		State:        state,
		Entries:      entries,
		Manifest:     nonNil(gen.Manifest),
		ExcludeHosts: nonNil(gen.ExcludeHosts),
		SkipWaiting:  gen.SkipWaiting,
		Claim:        gen.Claim,
	}
}

// StatusResponse is returned by GET /_cache/status.
type StatusResponse struct {
	Origin  string              `json:"origin"`
	Backend string              `json:"backend"`
	Active  *GenerationResponse `json:"active"`
	Waiting *GenerationResponse `json:"waiting"`
}

// DeployResponse is returned by POST /_cache/deploy and /_cache/promote.
type DeployResponse struct {
	Generation *GenerationResponse `json:"generation"`
	Activated  bool                `json:"activated"`
	// Warning carries a non-fatal cleanup failure.
	Warning string `json:"warning,omitempty"`
}

// StoresResponse is returned by GET /_cache/stores.
type StoresResponse struct {
	Stores []string `json:"stores"`
}

// EntryResponse is one stored request identity.
type EntryResponse struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// EntriesResponse is returned by GET /_cache/stores/:name/entries.
type EntriesResponse struct {
	Store   string          `json:"store"`
	Entries []EntryResponse `json:"entries"`
}

// NewEntriesResponse converts identities for the API.
func NewEntriesResponse(store string, ids []model.RequestIdentity) EntriesResponse {
	entries := make([]EntryResponse, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, EntryResponse{Method: id.Method, URL: id.URL})
	}
	return EntriesResponse{Store: store, Entries: entries}
}

// DeleteEntryResponse is returned by DELETE /_cache/entries.
type DeleteEntryResponse struct {
	URL     string `json:"url"`
	Deleted bool   `json:"deleted"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
