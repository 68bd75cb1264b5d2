package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/guttosm/shell-cache/internal/service"
)

// ServiceComponents holds the cache lifecycle and its origin client.
type ServiceComponents struct {
	Registration         *service.Registration
	OriginCircuitBreaker *circuitbreaker.CircuitBreaker
}

// InitializeServices builds the origin fetcher and the registration, then
// installs the configured generation. A failed install is logged and the
// service starts in pass-through mode so it can be fixed with a deploy.
func InitializeServices(ctx context.Context, cfg config.Config, storage repository.CacheStorage) (*ServiceComponents, error) {
	origin, err := network.ParseOrigin(cfg.Origin.URL)
	if err != nil {
		return nil, err
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Origin.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.Origin.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.Origin.CircuitBreakerTimeout,
		Name:             "origin",
	})
	fetcher := network.NewFetcherWithCircuitBreaker(network.NewHTTPFetcher(origin, &http.Client{}), origin, cb)

	registration := service.NewRegistration(storage, fetcher, origin, service.Options{
		Prefix:       cfg.Cache.Prefix,
		Version:      cfg.Cache.Version,
		Manifest:     cfg.Cache.Manifest,
		ExcludeHosts: cfg.Cache.ExcludeHosts,
		SkipWaiting:  cfg.Cache.SkipWaiting,
		Claim:        cfg.Cache.Claim,
	})

	switch err := registration.Start(ctx); {
	case err == nil:
	case errors.Is(err, service.ErrCleanupFailed):
		log.Warn().Err(err).Msg("Generation active with stale stores left behind")
	case errors.Is(err, service.ErrInstallFailed):
		log.Error().Err(err).Msg("Initial install failed - serving from the network")
	default:
		return nil, err
	}

	return &ServiceComponents{
		Registration:         registration,
		OriginCircuitBreaker: cb,
	}, nil
}
