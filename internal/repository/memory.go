package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/guttosm/shell-cache/internal/domain/model"
)

const (
	// defaultNumShards is the default number of shards per memory store.
	defaultNumShards = 16
)

// MemoryStorage keeps generations in process memory. Nothing survives a
// restart, so a fresh install runs on every start.
type MemoryStorage struct {
	mu        sync.RWMutex
	stores    map[string]*memoryStore
	numShards int
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return NewShardedMemoryStorage(defaultNumShards)
}

// NewShardedMemoryStorage creates an in-memory storage whose stores spread
// entries over numShards locks.
func NewShardedMemoryStorage(numShards int) *MemoryStorage {
	if numShards <= 0 {
		numShards = defaultNumShards
	}
	return &MemoryStorage{
		stores:    make(map[string]*memoryStore),
		numShards: numShards,
	}
}

// Open returns the named store, creating it when absent.
func (m *MemoryStorage) Open(_ context.Context, name string) (Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	s := newMemoryStore(name, m.numShards)
	m.stores[name] = s
	return s, nil
}

// Has reports whether the named store exists.
func (m *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.stores[name]
	return ok, nil
}

// Keys lists store names in lexical order.
func (m *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names, nil
}

// Delete removes a store. Handles still held on it stop accepting writes.
func (m *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[name]
	if !ok {
		return false, nil
	}
	s.deleted.Store(true)
	delete(m.stores, name)
	return true, nil
}

// Ping always succeeds.
func (m *MemoryStorage) Ping(context.Context) error { return nil }

// Close drops every store.
func (m *MemoryStorage) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stores {
		s.deleted.Store(true)
	}
	m.stores = make(map[string]*memoryStore)
	return nil
}

// Backend returns "memory".
func (m *MemoryStorage) Backend() string { return "memory" }

type memoryEntry struct {
	id   model.RequestIdentity
	snap *model.Snapshot
}

// memoryShard is a single lock domain of a memory store.
type memoryShard struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryStore struct {
	name      string
	shards    []*memoryShard
	numShards int
	deleted   atomic.Bool
}

func newMemoryStore(name string, numShards int) *memoryStore {
	shards := make([]*memoryShard, numShards)
	for i := range shards {
		shards[i] = &memoryShard{entries: make(map[string]memoryEntry)}
	}
	return &memoryStore{name: name, shards: shards, numShards: numShards}
}

// getShard returns the shard for the given key using FNV hash.
func (s *memoryStore) getShard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(s.numShards)]
}

func (s *memoryStore) Name() string { return s.name }

func (s *memoryStore) Match(_ context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	if s.deleted.Load() {
		return nil, nil
	}
	key := id.Key()
	shard := s.getShard(key)
	shard.mu.RLock()
	e, ok := shard.entries[key]
	shard.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return e.snap.Clone(), nil
}

func (s *memoryStore) Put(_ context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	if s.deleted.Load() {
		return ErrStoreNotFound
	}
	key := id.Key()
	shard := s.getShard(key)
	shard.mu.Lock()
	shard.entries[key] = memoryEntry{id: id, snap: snap.Clone()}
	shard.mu.Unlock()
	return nil
}

func (s *memoryStore) Keys(_ context.Context) ([]model.RequestIdentity, error) {
	var ids []model.RequestIdentity
	for _, shard := range s.shards {
		shard.mu.RLock()
		for _, e := range shard.entries {
			ids = append(ids, e.id)
		}
		shard.mu.RUnlock()
	}
	sortIdentities(ids)
	return ids, nil
}

func (s *memoryStore) Delete(_ context.Context, id model.RequestIdentity) (bool, error) {
	key := id.Key()
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, ok := shard.entries[key]; !ok {
		return false, nil
	}
	delete(shard.entries, key)
	return true, nil
}

func sortIdentities(ids []model.RequestIdentity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
}
