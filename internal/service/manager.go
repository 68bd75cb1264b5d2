package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/logger"
	"github.com/guttosm/shell-cache/internal/metrics"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/repository"
)

// installConcurrency bounds parallel manifest fetches.
const installConcurrency = 8

// Outcome describes how a request was answered.
type Outcome string

const (
	// OutcomeHit means the stored snapshot was returned.
	OutcomeHit Outcome = "hit"
	// OutcomeMiss means the caller waited for the network.
	OutcomeMiss Outcome = "miss"
	// OutcomeBypass means the request never touched the store.
	OutcomeBypass Outcome = "bypass"
)

// Manager owns one cache generation: its store, its manifest and the
// stale-while-revalidate policy for requests it admits.
type Manager struct {
	gen     model.Generation
	origin  *url.URL
	storage repository.CacheStorage
	fetcher network.Fetcher
	log     zerolog.Logger

	mu    sync.RWMutex
	state model.LifecycleState
	store repository.Store

	// inflight counts serves and the background refreshes they start.
	inflight sync.WaitGroup
}

// NewManager creates a manager for gen. The store is not touched until
// Install or the first Serve.
func NewManager(gen model.Generation, origin *url.URL, storage repository.CacheStorage, fetcher network.Fetcher) (*Manager, error) {
	if gen.Version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidGeneration)
	}
	if err := repository.ValidateStoreName(gen.StoreName); err != nil {
		return nil, fmt.Errorf("%w: store name %q: %w", ErrInvalidGeneration, gen.StoreName, err)
	}
	if origin == nil {
		return nil, fmt.Errorf("%w: origin is required", ErrInvalidGeneration)
	}

	gen.Manifest = append([]string(nil), gen.Manifest...)
	gen.ExcludeHosts = append([]string(nil), gen.ExcludeHosts...)

	return &Manager{
		gen:     gen,
		origin:  origin,
		storage: storage,
		fetcher: fetcher,
		log:     logger.ForGeneration(gen.Version, gen.StoreName),
		state:   model.StateParsed,
	}, nil
}

// Generation returns the generation this manager serves.
func (m *Manager) Generation() model.Generation {
	return m.gen
}

// State returns the lifecycle state.
func (m *Manager) State() model.LifecycleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s model.LifecycleState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// openStore returns the generation store, opening it on first use.
func (m *Manager) openStore(ctx context.Context) (repository.Store, error) {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		return m.store, nil
	}
	store, err := m.storage.Open(ctx, m.gen.StoreName)
	if err != nil {
		return nil, err
	}
	m.store = store
	return store, nil
}

type prefetched struct {
	id   model.RequestIdentity
	snap *model.Snapshot
}

// Install fetches every manifest entry and writes the responses into the
// generation store. It is all-or-nothing: if any entry fails to fetch,
// answers outside 2xx, or cannot be written, ErrInstallFailed is returned.
// A store created by this install is removed again; in a store that
// already existed the entries written so far are rolled back.
func (m *Manager) Install(ctx context.Context) (err error) {
	m.setState(model.StateInstalling)
	start := time.Now()
	defer func() {
		metrics.RecordLifecycle("install", err)
		if err != nil {
			m.setState(model.StateRedundant)
			m.log.Error().Err(err).Msg("Install failed")
			return
		}
		m.setState(model.StateInstalled)
		m.log.Info().
			Int("entries", len(m.gen.Manifest)).
			Dur("duration", time.Since(start)).
			Msg("Generation installed")
	}()

	targets := make([]*url.URL, len(m.gen.Manifest))
	for i, entry := range m.gen.Manifest {
		u, err := network.Resolve(m.origin, entry)
		if err != nil {
			return fmt.Errorf("%w: manifest entry %q: %w", ErrInstallFailed, entry, err)
		}
		targets[i] = u
	}

	results := make([]prefetched, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for i, target := range targets {
		g.Go(func() error {
			req, err := network.NewGetRequest(gctx, target)
			if err != nil {
				return err
			}
			snap, err := m.fetcher.Fetch(gctx, req)
			if err != nil {
				return err
			}
			if !snap.OK() {
				return fmt.Errorf("%s: unexpected status %d", target.Redacted(), snap.Status)
			}
			results[i] = prefetched{id: model.NewRequestIdentity(http.MethodGet, target), snap: snap}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	existed, err := m.storage.Has(ctx, m.gen.StoreName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	store, err := m.openStore(ctx)
	if err != nil {
		return fmt.Errorf("%w: open store: %w", ErrInstallFailed, err)
	}
	if !existed {
		for _, r := range results {
			if err := store.Put(ctx, r.id, r.snap); err != nil {
				m.discardStore()
				return fmt.Errorf("%w: store %s: %w", ErrInstallFailed, r.id, err)
			}
		}
		return nil
	}

	// previous holds what each written entry replaced; nil means absent.
	previous := make([]prefetched, 0, len(results))
	for _, r := range results {
		prev, err := store.Match(ctx, r.id)
		if err == nil {
			err = store.Put(ctx, r.id, r.snap)
		}
		if err != nil {
			m.rollback(store, previous)
			return fmt.Errorf("%w: store %s: %w", ErrInstallFailed, r.id, err)
		}
		previous = append(previous, prefetched{id: r.id, snap: prev})
	}
	return nil
}

// rollback restores entries overwritten by a failed install into an
// existing store, newest first.
func (m *Manager) rollback(store repository.Store, previous []prefetched) {
	ctx := context.Background()
	for i := len(previous) - 1; i >= 0; i-- {
		p := previous[i]
		var err error
		if p.snap == nil {
			_, err = store.Delete(ctx, p.id)
		} else {
			err = store.Put(ctx, p.id, p.snap)
		}
		if err != nil {
			m.log.Warn().Err(err).Str("key", p.id.Key()).Msg("Failed to roll back installed entry")
		}
	}
}

// discardStore removes a store this manager created during a failed install.
func (m *Manager) discardStore() {
	if _, err := m.storage.Delete(context.Background(), m.gen.StoreName); err != nil {
		m.log.Warn().Err(err).Msg("Failed to remove partially installed store")
	}
	m.mu.Lock()
	m.store = nil
	m.mu.Unlock()
}

// Activate deletes every store other than this generation's. A failed
// deletion is logged and the remaining stores are still attempted; the
// joined errors are returned wrapped in ErrCleanupFailed. Running it again
// leaves the same single store.
func (m *Manager) Activate(ctx context.Context) (err error) {
	m.setState(model.StateActivating)
	defer func() {
		metrics.RecordLifecycle("activate", err)
	}()

	names, err := m.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("%w: list stores: %w", ErrCleanupFailed, err)
	}

	var errs []error
	deleted := 0
	for _, name := range names {
		if name == m.gen.StoreName {
			continue
		}
		if _, err := m.storage.Delete(ctx, name); err != nil {
			m.log.Error().Err(err).Str("stale_store", name).Msg("Failed to delete stale store")
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		deleted++
		m.log.Info().Str("stale_store", name).Msg("Deleted stale store")
	}

	m.setState(model.StateActivated)
	m.log.Info().Int("deleted", deleted).Msg("Generation activated")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCleanupFailed, errors.Join(errs...))
	}
	return nil
}

// Admits reports whether req is eligible for the cache: a GET for the page
// origin whose hostname matches no exclusion entry. Anything else passes
// straight to the network.
func (m *Manager) Admits(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if !network.SameOrigin(req.URL, m.origin) {
		return false
	}
	return !network.HostExcluded(req.URL.Hostname(), m.gen.ExcludeHosts)
}

// track registers an in-flight serve; the returned func ends it.
func (m *Manager) track() func() {
	m.inflight.Add(1)
	return m.inflight.Done
}

// Serve answers req. req.URL must be absolute.
//
// Admitted requests follow stale-while-revalidate: a stored snapshot is
// returned at once while a refresh runs in the background; without one
// the caller waits for the network. Only a 200 from the page origin is
// written back. A network failure is returned only when nothing was
// stored; a non-cacheable response is returned as is.
func (m *Manager) Serve(ctx context.Context, req *http.Request) (*model.Snapshot, Outcome, error) {
	defer m.track()()
	return m.serve(ctx, req)
}

type refreshResult struct {
	snap *model.Snapshot
	err  error
}

func (m *Manager) serve(ctx context.Context, req *http.Request) (snap *model.Snapshot, outcome Outcome, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServe(string(outcome), time.Since(start))
	}()

	if !m.Admits(req) {
		snap, err = m.fetcher.Fetch(ctx, req)
		return snap, OutcomeBypass, err
	}

	id := model.IdentityFromRequest(req)

	var cached *model.Snapshot
	store, err := m.openStore(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Store unavailable - serving from network")
	} else if cached, err = store.Match(ctx, id); err != nil {
		m.log.Warn().Err(err).Str("key", id.Key()).Msg("Store lookup failed - treating as miss")
		cached = nil
	}

	done := make(chan refreshResult, 1)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		snap, err := m.refresh(context.WithoutCancel(ctx), req, store, id)
		done <- refreshResult{snap: snap, err: err}
	}()

	if cached != nil {
		return cached, OutcomeHit, nil
	}

	select {
	case r := <-done:
		return r.snap, OutcomeMiss, r.err
	case <-ctx.Done():
		return nil, OutcomeMiss, ctx.Err()
	}
}

// refresh fetches req and, when the response is cacheable, overwrites the
// stored snapshot. It runs detached from the caller.
func (m *Manager) refresh(ctx context.Context, req *http.Request, store repository.Store, id model.RequestIdentity) (*model.Snapshot, error) {
	snap, err := m.fetcher.Fetch(ctx, req)
	if err != nil {
		metrics.RecordRefresh("failed")
		m.log.Debug().Err(err).Str("key", id.Key()).Msg("Refresh failed")
		return nil, err
	}

	if !snap.Cacheable() || store == nil {
		metrics.RecordRefresh("skipped")
		return snap, nil
	}

	switch err := store.Put(ctx, id, snap); {
	case err == nil:
		metrics.RecordRefresh("stored")
	case errors.Is(err, repository.ErrStoreNotFound):
		metrics.RecordRefresh("skipped")
		m.log.Debug().Str("key", id.Key()).Msg("Store removed before refresh completed")
	default:
		metrics.RecordRefresh("store_error")
		m.log.Warn().Err(err).Str("key", id.Key()).Msg("Failed to store refreshed response")
	}
	return snap, nil
}

// Wait blocks until every in-flight serve and background refresh has
// finished, or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries lists the identities stored for this generation.
func (m *Manager) Entries(ctx context.Context) ([]model.RequestIdentity, error) {
	store, err := m.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.Keys(ctx)
}

// DeleteEntry removes the snapshot stored for a GET of rawURL, resolved
// against the page origin.
func (m *Manager) DeleteEntry(ctx context.Context, rawURL string) (bool, error) {
	target, err := network.Resolve(m.origin, rawURL)
	if err != nil {
		return false, err
	}
	store, err := m.openStore(ctx)
	if err != nil {
		return false, err
	}
	return store.Delete(ctx, model.NewRequestIdentity(http.MethodGet, target))
}
