package repository

import (
	"context"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/metrics"
)

// InstrumentedStorage records a metric for every storage and store call.
type InstrumentedStorage struct {
	CacheStorage
}

// NewInstrumentedStorage wraps storage with operation metrics.
func NewInstrumentedStorage(storage CacheStorage) *InstrumentedStorage {
	return &InstrumentedStorage{CacheStorage: storage}
}

func (s *InstrumentedStorage) Open(ctx context.Context, name string) (Store, error) {
	st, err := s.CacheStorage.Open(ctx, name)
	metrics.RecordStoreOperation(s.Backend(), "open", err)
	if err != nil {
		return nil, err
	}
	return &instrumentedStore{Store: st, backend: s.Backend()}, nil
}

func (s *InstrumentedStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := s.CacheStorage.Keys(ctx)
	metrics.RecordStoreOperation(s.Backend(), "keys", err)
	return names, err
}

func (s *InstrumentedStorage) Delete(ctx context.Context, name string) (bool, error) {
	ok, err := s.CacheStorage.Delete(ctx, name)
	metrics.RecordStoreOperation(s.Backend(), "delete_store", err)
	return ok, err
}

type instrumentedStore struct {
	Store
	backend string
}

func (s *instrumentedStore) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	snap, err := s.Store.Match(ctx, id)
	metrics.RecordStoreOperation(s.backend, "match", err)
	return snap, err
}

func (s *instrumentedStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	err := s.Store.Put(ctx, id, snap)
	metrics.RecordStoreOperation(s.backend, "put", err)
	return err
}
