// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/http"
	"github.com/guttosm/shell-cache/internal/service"
)

// App is the wired application.
type App struct {
	Router       *gin.Engine
	Registration *service.Registration
	storage      *StorageComponents
}

// InitializeApp creates and wires all application dependencies.
// This is the main orchestration function that initializes all components.
func InitializeApp(ctx context.Context, cfg config.Config) (*App, error) {
	InitializeLogger(cfg.Log)

	storage, err := InitializeStorage(cfg)
	if err != nil {
		return nil, err
	}

	services, err := InitializeServices(ctx, cfg, storage.Storage)
	if err != nil {
		_ = storage.Storage.Close(ctx)
		return nil, err
	}

	rc := InitializeRouter(services, storage, cfg)

	return &App{
		Router:       http.NewRouter(rc.ProxyHandler, rc.AdminHandler, rc.HealthHandler, rc.Config),
		Registration: services.Registration,
		storage:      storage,
	}, nil
}

// Close waits for background refreshes and deferred activations, then
// releases the storage backend.
func (a *App) Close(ctx context.Context) error {
	waitErr := a.Registration.Wait(ctx)
	if waitErr != nil {
		log.Warn().Err(waitErr).Msg("Background cache work still running at shutdown")
	}
	return errors.Join(waitErr, a.storage.Storage.Close(ctx))
}
