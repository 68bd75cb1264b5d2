package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Asset is one scripted origin response.
type Asset struct {
	Status      int
	Body        string
	ContentType string
}

// Origin is an httptest server whose responses can be changed while a
// test runs. Assets are keyed by request URI, query included; unknown
// paths answer 404.
type Origin struct {
	*httptest.Server

	mu     sync.Mutex
	assets map[string]Asset
	hits   map[string]int
	gate   chan struct{}
}

// NewOrigin starts an origin that is closed when the test ends.
func NewOrigin(t testing.TB) *Origin {
	t.Helper()
	o := &Origin{
		assets: make(map[string]Asset),
		hits:   make(map[string]int),
	}
	o.Server = httptest.NewServer(http.HandlerFunc(o.serve))
	t.Cleanup(func() {
		o.Release()
		o.Close()
	})
	return o
}

// Set serves body with status 200 at uri.
func (o *Origin) Set(uri, body string) {
	o.SetAsset(uri, Asset{Status: http.StatusOK, Body: body})
}

// SetAsset replaces the response served at uri.
func (o *Origin) SetAsset(uri string, a Asset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assets[uri] = a
}

// Remove makes uri answer 404.
func (o *Origin) Remove(uri string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.assets, uri)
}

// Hits returns how many requests reached uri.
func (o *Origin) Hits(uri string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[uri]
}

// Block holds every response until Release is called.
func (o *Origin) Block() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gate == nil {
		o.gate = make(chan struct{})
	}
}

// Release lets blocked responses through.
func (o *Origin) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gate != nil {
		close(o.gate)
		o.gate = nil
	}
}

func (o *Origin) serve(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.RequestURI()

	o.mu.Lock()
	o.hits[uri]++
	asset, ok := o.assets[uri]
	gate := o.gate
	o.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if !ok {
		http.NotFound(w, r)
		return
	}
	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	status := asset.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(asset.Body))
}
