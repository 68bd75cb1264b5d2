// Package main is the entry point for the shell cache.
//
// The service sits in front of a page origin, installs the configured
// generation of shell assets at start-up and answers requests for them with
// stale-while-revalidate. The admin API lives under /_cache.
//
// @title           Shell Cache API
// @version         1.0.0
// @description     Edge cache for the itinerary page: serves shell assets with stale-while-revalidate and manages cache generations.
//
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   API Support
// @contact.email  support@example.com
// @contact.url    https://github.com/guttosm/shell-cache
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
// @description                 Admin API key. Required if ADMIN_API_KEYS is set.
//
// @tag.name        Cache
// @tag.description Cache generation administration
//
// @tag.name        Health
// @tag.description Health check endpoints
package main

import (
	"context"

	_ "github.com/guttosm/shell-cache/docs" // swagger docs

	"github.com/rs/zerolog/log"

	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/app"
)

func main() {
	cfg := config.Load()

	a, err := app.InitializeApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	server := app.NewServer(a.Router, cfg.Server.Port)
	server.OnShutdown(a.Close)

	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
