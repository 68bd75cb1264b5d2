package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guttosm/shell-cache/internal/domain/model"
)

// DefaultMaxBodyBytes bounds how much of a response body is buffered.
const DefaultMaxBodyBytes int64 = 64 << 20

var (
	// ErrFetchFailed wraps transport-level failures: DNS, refused
	// connections, TLS errors, truncated bodies.
	ErrFetchFailed = errors.New("network fetch failed")
	// ErrBodyTooLarge is returned when a body exceeds the buffering limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Fetcher performs a request against the network and returns a fully
// buffered snapshot. A non-2xx status is a response, not an error.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*model.Snapshot, error)
}

// HTTPFetcher fetches over an http.Client and types responses relative
// to the page origin.
type HTTPFetcher struct {
	client       *http.Client
	origin       *url.URL
	maxBodyBytes int64
	now          func() time.Time
}

// NewHTTPFetcher creates a fetcher for pages served from origin. A nil
// client uses a plain http.Client with no overall timeout; redirects are
// followed.
func NewHTTPFetcher(origin *url.URL, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{
		client:       client,
		origin:       origin,
		maxBodyBytes: DefaultMaxBodyBytes,
		now:          time.Now,
	}
}

// Fetch sends req and buffers the response. The response is typed basic
// when the final URL, after redirects, is on the page origin and opaque
// otherwise. Opaque snapshots keep their real status and body so they can
// be relayed, but they are never stored.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*model.Snapshot, error) {
	req = req.WithContext(ctx)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrFetchFailed, req.Method, req.URL.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetchFailed, req.URL.Redacted(), err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, req.URL.Redacted(), f.maxBodyBytes)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	header := resp.Header.Clone()
	RemoveHopHeaders(header)
	header.Del("Content-Length")

	typ := model.ResponseTypeOpaque
	if SameOrigin(finalURL, f.origin) {
		typ = model.ResponseTypeBasic
	}

	return &model.Snapshot{
		Status:   resp.StatusCode,
		Header:   header,
		Body:     body,
		Type:     typ,
		URL:      finalURL.String(),
		StoredAt: f.now().UTC(),
	}, nil
}

// NewGetRequest builds a bodyless GET for target, as used to prefetch the
// app-shell manifest.
func NewGetRequest(ctx context.Context, target *url.URL) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
}

// OutboundRequest copies an intercepted request for sending to target.
// Hop-by-hop headers are dropped and Accept-Encoding is left to the
// transport so bodies arrive decoded.
func OutboundRequest(ctx context.Context, in *http.Request, target *url.URL) (*http.Request, error) {
	var body io.Reader
	if in.Body != nil && in.Body != http.NoBody && in.Method != http.MethodGet && in.Method != http.MethodHead {
		body = in.Body
	}

	out, err := http.NewRequestWithContext(ctx, in.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", target.Redacted(), err)
	}
	if body != nil {
		out.ContentLength = in.ContentLength
	}

	out.Header = in.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	RemoveHopHeaders(out.Header)
	out.Header.Del("Accept-Encoding")

	if ip := clientIP(in.RemoteAddr); ip != "" {
		if prior := out.Header.Values("X-Forwarded-For"); len(prior) > 0 {
			ip = strings.Join(append(prior, ip), ", ")
		}
		out.Header.Set("X-Forwarded-For", ip)
	}
	return out, nil
}
