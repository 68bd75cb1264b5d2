package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/repository"
)

// ErrUnknownBackend is returned for an unsupported STORE_BACKEND.
var ErrUnknownBackend = errors.New("unknown store backend")

// StorageComponents holds the cache storage and its resilience wiring.
type StorageComponents struct {
	Storage repository.CacheStorage
	// CircuitBreaker guards remote backends; nil for local ones.
	CircuitBreaker *circuitbreaker.CircuitBreaker
}

// InitializeStorage opens the configured storage backend. Every backend is
// instrumented; MongoDB is additionally wrapped in a circuit breaker.
func InitializeStorage(cfg config.Config) (*StorageComponents, error) {
	var (
		storage repository.CacheStorage
		cb      *circuitbreaker.CircuitBreaker
	)

	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		storage = repository.NewMemoryStorage()
	case config.BackendDisk:
		disk, err := repository.NewDiskStorage(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		storage = disk
	case config.BackendSQLite:
		db, err := repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		storage = db
	case config.BackendMongoDB:
		db, err := repository.NewMongoDB(cfg.Database.URI, cfg.Database.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		log.Info().Str("database", cfg.Database.DatabaseName).Msg("Connected to MongoDB")

		cb = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.Database.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.Database.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.Database.CircuitBreakerTimeout,
			Name:             "mongodb-cache",
			IsFailure:        repository.IsStorageFailure,
		})
		storage = repository.NewStorageWithCircuitBreaker(repository.NewMongoStorage(db), cb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Store.Backend)
	}

	log.Info().Str("backend", storage.Backend()).Str("path", cfg.Store.Path).Msg("Cache storage ready")

	return &StorageComponents{
		Storage:        repository.NewInstrumentedStorage(storage),
		CircuitBreaker: cb,
	}, nil
}
