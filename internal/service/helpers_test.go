package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/guttosm/shell-cache/internal/service"
	"github.com/guttosm/shell-cache/internal/testutil"
)

const (
	prefix  = "app-"
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// spyStorage counts entry reads and writes across every store it opens.
type spyStorage struct {
	repository.CacheStorage
	matches atomic.Int64
	puts    atomic.Int64
}

func (s *spyStorage) Open(ctx context.Context, name string) (repository.Store, error) {
	store, err := s.CacheStorage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &spyStore{Store: store, spy: s}, nil
}

type spyStore struct {
	repository.Store
	spy *spyStorage
}

func (s *spyStore) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	s.spy.matches.Add(1)
	return s.Store.Match(ctx, id)
}

func (s *spyStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	s.spy.puts.Add(1)
	return s.Store.Put(ctx, id, snap)
}

// flakyStorage fails writes for one URL path while armed.
type flakyStorage struct {
	repository.CacheStorage
	failPath string
	armed    atomic.Bool
}

func (s *flakyStorage) Open(ctx context.Context, name string) (repository.Store, error) {
	store, err := s.CacheStorage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &flakyStore{Store: store, storage: s}, nil
}

type flakyStore struct {
	repository.Store
	storage *flakyStorage
}

func (s *flakyStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	if s.storage.armed.Load() {
		if u, err := url.Parse(id.URL); err == nil && u.Path == s.storage.failPath {
			return errors.New("disk full")
		}
	}
	return s.Store.Put(ctx, id, snap)
}

type rig struct {
	origin  *testutil.Origin
	url     *url.URL
	storage *repository.MemoryStorage
	fetcher *network.HTTPFetcher
}

func newRig(t *testing.T) *rig {
	t.Helper()
	origin := testutil.NewOrigin(t)
	u, err := network.ParseOrigin(origin.URL)
	require.NoError(t, err)
	return &rig{
		origin:  origin,
		url:     u,
		storage: repository.NewMemoryStorage(),
		fetcher: network.NewHTTPFetcher(u, origin.Client()),
	}
}

func (r *rig) generation(version string, manifest ...string) model.Generation {
	return model.Generation{
		Version:     version,
		StoreName:   model.StoreName(prefix, version),
		Manifest:    manifest,
		SkipWaiting: true,
		Claim:       true,
	}
}

func (r *rig) manager(t *testing.T, gen model.Generation) *service.Manager {
	t.Helper()
	m, err := service.NewManager(gen, r.url, r.storage, r.fetcher)
	require.NoError(t, err)
	return m
}

func (r *rig) registration(opts service.Options) *service.Registration {
	if opts.Prefix == "" {
		opts.Prefix = prefix
	}
	return service.NewRegistration(r.storage, r.fetcher, r.url, opts)
}

// get builds an absolute GET for a path on the rig's origin.
func (r *rig) get(t *testing.T, path string) *http.Request {
	t.Helper()
	return newRequest(t, http.MethodGet, r.origin.URL+path)
}

func newRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, target, nil)
	require.NoError(t, err)
	return req
}

// stored returns the snapshot held for path in the named store.
func (r *rig) stored(t *testing.T, store, path string) *model.Snapshot {
	t.Helper()
	ctx := context.Background()
	ok, err := r.storage.Has(ctx, store)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	s, err := r.storage.Open(ctx, store)
	require.NoError(t, err)
	u, err := url.Parse(r.origin.URL + path)
	require.NoError(t, err)
	snap, err := s.Match(ctx, model.NewRequestIdentity(http.MethodGet, u))
	require.NoError(t, err)
	return snap
}

func (r *rig) storeNames(t *testing.T) []string {
	t.Helper()
	names, err := r.storage.Keys(context.Background())
	require.NoError(t, err)
	return names
}

func (r *rig) entryCount(t *testing.T, store string) int {
	t.Helper()
	s, err := r.storage.Open(context.Background(), store)
	require.NoError(t, err)
	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	return len(keys)
}

func wait(t *testing.T, w interface{ Wait(context.Context) error }) {
	t.Helper()
	require.NoError(t, w.Wait(context.Background()))
}
