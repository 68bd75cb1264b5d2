package network

import (
	"context"
	"net/http"
	"net/url"

	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/domain/model"
)

// FetcherWithCircuitBreaker stops calling an origin that keeps failing at
// the transport level. Error statuses are responses and never trip it.
// Requests for any other origin go straight to the wrapped fetcher, so a
// failing third party cannot open the circuit.
type FetcherWithCircuitBreaker struct {
	fetcher        Fetcher
	origin         *url.URL
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewFetcherWithCircuitBreaker wraps fetcher with cb for requests to origin.
func NewFetcherWithCircuitBreaker(fetcher Fetcher, origin *url.URL, cb *circuitbreaker.CircuitBreaker) *FetcherWithCircuitBreaker {
	return &FetcherWithCircuitBreaker{fetcher: fetcher, origin: origin, circuitBreaker: cb}
}

// Fetch delegates to the wrapped fetcher unless req targets the origin and
// the circuit is open.
func (f *FetcherWithCircuitBreaker) Fetch(ctx context.Context, req *http.Request) (*model.Snapshot, error) {
	if !SameOrigin(req.URL, f.origin) {
		return f.fetcher.Fetch(ctx, req)
	}

	var snap *model.Snapshot
	err := f.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		snap, cbErr = f.fetcher.Fetch(ctx, req)
		return cbErr
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (f *FetcherWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return f.circuitBreaker
}
