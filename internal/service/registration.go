package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/metrics"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/repository"
)

// Options are the generation defaults a Registration deploys with.
type Options struct {
	Prefix       string
	Version      string
	Manifest     []string
	ExcludeHosts []string
	SkipWaiting  bool
	Claim        bool
}

// DeploySpec describes a generation to deploy. Nil fields fall back to
// the registration's Options.
type DeploySpec struct {
	Version      string
	Manifest     []string
	ExcludeHosts []string
	SkipWaiting  *bool
	Claim        *bool
}

// GenerationStatus is a point-in-time view of one generation.
type GenerationStatus struct {
	Generation model.Generation
	State      model.LifecycleState
	Entries    int
}

// Status reports the active and waiting generations. Either may be nil.
type Status struct {
	Active  *GenerationStatus
	Waiting *GenerationStatus
}

// Registration hosts the generations of one deployment: at most one
// active manager that serves requests and at most one installed manager
// waiting for promotion.
type Registration struct {
	storage repository.CacheStorage
	fetcher network.Fetcher
	origin  *url.URL
	opts    Options

	// lifecycle serialises install, activation and promotion.
	lifecycle sync.Mutex

	mu      sync.RWMutex
	active  *Manager
	waiting *Manager

	background sync.WaitGroup
}

// NewRegistration creates a registration with no active generation.
func NewRegistration(storage repository.CacheStorage, fetcher network.Fetcher, origin *url.URL, opts Options) *Registration {
	return &Registration{
		storage: storage,
		fetcher: fetcher,
		origin:  origin,
		opts:    opts,
	}
}

// Storage returns the backing storage.
func (r *Registration) Storage() repository.CacheStorage {
	return r.storage
}

// Origin returns the page origin.
func (r *Registration) Origin() *url.URL {
	return r.origin
}

// Active returns the serving manager, or nil.
func (r *Registration) Active() *Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Waiting returns the manager awaiting promotion, or nil.
func (r *Registration) Waiting() *Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.waiting
}

func (r *Registration) generation(spec DeploySpec) model.Generation {
	gen := model.Generation{
		Version:      spec.Version,
		StoreName:    model.StoreName(r.opts.Prefix, spec.Version),
		Manifest:     r.opts.Manifest,
		ExcludeHosts: r.opts.ExcludeHosts,
		SkipWaiting:  r.opts.SkipWaiting,
		Claim:        r.opts.Claim,
	}
	if spec.Manifest != nil {
		gen.Manifest = spec.Manifest
	}
	if spec.ExcludeHosts != nil {
		gen.ExcludeHosts = spec.ExcludeHosts
	}
	if spec.SkipWaiting != nil {
		gen.SkipWaiting = *spec.SkipWaiting
	}
	if spec.Claim != nil {
		gen.Claim = *spec.Claim
	}
	return gen
}

// Start deploys the configured generation. When the install fails but a
// store for the same generation survives from an earlier run, that store
// is adopted instead. Without any active generation every request passes
// through to the network.
func (r *Registration) Start(ctx context.Context) error {
	spec := DeploySpec{Version: r.opts.Version}
	_, err := r.Deploy(ctx, spec)
	if err == nil || errors.Is(err, ErrCleanupFailed) {
		return err
	}
	if !errors.Is(err, ErrInstallFailed) {
		return err
	}

	gen := r.generation(spec)
	exists, herr := r.storage.Has(ctx, gen.StoreName)
	if herr != nil || !exists {
		log.Warn().Err(err).Str("version", gen.Version).Msg("No usable generation - requests pass through to the network")
		return err
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	m, merr := NewManager(gen, r.origin, r.storage, r.fetcher)
	if merr != nil {
		return merr
	}
	log.Warn().Err(err).Str("store", gen.StoreName).Msg("Install failed - adopting persisted store")
	return r.promote(ctx, m)
}

// Deploy installs a new generation. If the install fails the active
// generation is left untouched. A generation that skips waiting, or that
// finds no active generation, is activated at once; otherwise it waits
// for Promote.
func (r *Registration) Deploy(ctx context.Context, spec DeploySpec) (*Manager, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	m, err := NewManager(r.generation(spec), r.origin, r.storage, r.fetcher)
	if err != nil {
		return nil, err
	}
	if err := m.Install(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	hasActive := r.active != nil
	if hasActive && !m.gen.SkipWaiting {
		if r.waiting != nil {
			r.waiting.setState(model.StateRedundant)
		}
		r.waiting = m
		r.mu.Unlock()
		m.log.Info().Msg("Generation installed - waiting for promotion")
		return m, nil
	}
	r.mu.Unlock()

	return m, r.promote(ctx, m)
}

// Promote activates the waiting generation.
func (r *Registration) Promote(ctx context.Context) (*Manager, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	m := r.Waiting()
	if m == nil {
		return nil, ErrNoWaitingGeneration
	}
	return m, r.promote(ctx, m)
}

// promote makes m the active manager. With Claim, or when nothing was
// active, stale stores are purged immediately. Otherwise the purge waits
// until the previous manager's in-flight requests and refreshes finish.
// The caller holds r.lifecycle.
func (r *Registration) promote(ctx context.Context, m *Manager) error {
	m.setState(model.StateActivating)

	r.mu.Lock()
	prev := r.active
	r.active = m
	if r.waiting != nil {
		if r.waiting != m {
			r.waiting.setState(model.StateRedundant)
		}
		r.waiting = nil
	}
	r.mu.Unlock()

	metrics.SetActiveGeneration(m.gen.Version)
	metrics.RecordLifecycle("promote", nil)
	m.log.Info().Bool("claim", m.gen.Claim).Msg("Generation promoted")

	if prev != nil && prev != m {
		prev.setState(model.StateRedundant)
	}

	if prev == nil || prev == m || m.gen.Claim {
		if prev != nil && prev != m {
			r.drain(prev)
		}
		return m.Activate(ctx)
	}

	r.background.Add(1)
	go func() {
		defer r.background.Done()
		bctx := context.WithoutCancel(ctx)
		_ = prev.Wait(bctx)

		r.lifecycle.Lock()
		defer r.lifecycle.Unlock()
		if r.Active() != m {
			return
		}
		if err := m.Activate(bctx); err != nil {
			m.log.Error().Err(err).Msg("Deferred activation incomplete")
		}
	}()
	return nil
}

// drain waits in the background for a retired manager so Wait covers its
// refreshes.
func (r *Registration) drain(prev *Manager) {
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		_ = prev.Wait(context.Background())
	}()
}

// Serve answers req through the active generation, or straight from the
// network when there is none.
func (r *Registration) Serve(ctx context.Context, req *http.Request) (*model.Snapshot, Outcome, error) {
	r.mu.RLock()
	m := r.active
	var done func()
	if m != nil {
		done = m.track()
	}
	r.mu.RUnlock()

	if m == nil {
		snap, err := r.fetcher.Fetch(ctx, req)
		return snap, OutcomeBypass, err
	}
	defer done()
	return m.serve(ctx, req)
}

// Wait blocks until deferred activations, retired managers and the active
// manager have no work in flight, or ctx is done.
func (r *Registration) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		r.background.Wait()
		close(idle)
	}()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	if m := r.Active(); m != nil {
		return m.Wait(ctx)
	}
	return nil
}

// Status reports the active and waiting generations with entry counts.
func (r *Registration) Status(ctx context.Context) (Status, error) {
	r.mu.RLock()
	active, waiting := r.active, r.waiting
	r.mu.RUnlock()

	var status Status
	var err error
	if status.Active, err = describe(ctx, active); err != nil {
		return Status{}, err
	}
	if status.Waiting, err = describe(ctx, waiting); err != nil {
		return Status{}, err
	}
	return status, nil
}

func describe(ctx context.Context, m *Manager) (*GenerationStatus, error) {
	if m == nil {
		return nil, nil
	}
	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", m.gen.StoreName, err)
	}
	return &GenerationStatus{
		Generation: m.Generation(),
		State:      m.State(),
		Entries:    len(entries),
	}, nil
}

// Stores lists every store in the backing storage.
func (r *Registration) Stores(ctx context.Context) ([]string, error) {
	return r.storage.Keys(ctx)
}

// StoreEntries lists the identities in the named store without creating
// it. It returns repository.ErrStoreNotFound for unknown stores.
func (r *Registration) StoreEntries(ctx context.Context, name string) ([]model.RequestIdentity, error) {
	ok, err := r.storage.Has(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrStoreNotFound
	}
	store, err := r.storage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return store.Keys(ctx)
}

// DeleteEntry removes one URL from the active generation's store.
func (r *Registration) DeleteEntry(ctx context.Context, rawURL string) (bool, error) {
	m := r.Active()
	if m == nil {
		return false, ErrNoActiveGeneration
	}
	return m.DeleteEntry(ctx, rawURL)
}
