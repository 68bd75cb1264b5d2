package repository

import (
	"context"
	"errors"

	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/domain/model"
)

// StorageWithCircuitBreaker wraps a CacheStorage with circuit breaker protection.
type StorageWithCircuitBreaker struct {
	storage        CacheStorage
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewStorageWithCircuitBreaker creates a new storage wrapper with circuit breaker.
func NewStorageWithCircuitBreaker(storage CacheStorage, cb *circuitbreaker.CircuitBreaker) *StorageWithCircuitBreaker {
	return &StorageWithCircuitBreaker{
		storage:        storage,
		circuitBreaker: cb,
	}
}

// Open opens a store with circuit breaker protection.
func (s *StorageWithCircuitBreaker) Open(ctx context.Context, name string) (Store, error) {
	var result Store
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.storage.Open(ctx, name)
		return cbErr
	})
	if err != nil {
		return nil, err
	}
	return &storeWithCircuitBreaker{store: result, circuitBreaker: s.circuitBreaker}, nil
}

// Has checks for a store with circuit breaker protection.
func (s *StorageWithCircuitBreaker) Has(ctx context.Context, name string) (bool, error) {
	var result bool
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.storage.Has(ctx, name)
		return cbErr
	})
	return result, err
}

// Keys lists stores with circuit breaker protection.
func (s *StorageWithCircuitBreaker) Keys(ctx context.Context) ([]string, error) {
	var result []string
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.storage.Keys(ctx)
		return cbErr
	})
	return result, err
}

// Delete removes a store with circuit breaker protection.
func (s *StorageWithCircuitBreaker) Delete(ctx context.Context, name string) (bool, error) {
	var result bool
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.storage.Delete(ctx, name)
		return cbErr
	})
	return result, err
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (s *StorageWithCircuitBreaker) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes the wrapped storage.
func (s *StorageWithCircuitBreaker) Close(ctx context.Context) error {
	return s.storage.Close(ctx)
}

// Backend returns the wrapped backend name.
func (s *StorageWithCircuitBreaker) Backend() string {
	return s.storage.Backend()
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (s *StorageWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return s.circuitBreaker
}

type storeWithCircuitBreaker struct {
	store          Store
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func (s *storeWithCircuitBreaker) Name() string { return s.store.Name() }

// Match reports a miss while the circuit is open so requests fall
// through to the network instead of failing.
func (s *storeWithCircuitBreaker) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	var result *model.Snapshot
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.store.Match(ctx, id)
		return cbErr
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, nil
	}
	return result, err
}

func (s *storeWithCircuitBreaker) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	return s.circuitBreaker.Execute(ctx, func() error {
		return s.store.Put(ctx, id, snap)
	})
}

func (s *storeWithCircuitBreaker) Keys(ctx context.Context) ([]model.RequestIdentity, error) {
	var result []model.RequestIdentity
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.store.Keys(ctx)
		return cbErr
	})
	return result, err
}

func (s *storeWithCircuitBreaker) Delete(ctx context.Context, id model.RequestIdentity) (bool, error) {
	var result bool
	err := s.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = s.store.Delete(ctx, id)
		return cbErr
	})
	return result, err
}

// IsStorageFailure reports whether err should count against a storage
// circuit breaker. Caller mistakes such as a bad store name or a write to
// a deleted store say nothing about backend health.
func IsStorageFailure(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, ErrStoreNotFound) &&
		!errors.Is(err, ErrInvalidStoreName)
}
