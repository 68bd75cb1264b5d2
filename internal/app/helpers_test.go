package app

import (
	"testing"
	"time"

	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/testutil"
)

// testConfig returns a configuration for a scripted origin serving the
// default shell.
func testConfig(t *testing.T, backend string) (config.Config, *testutil.Origin) {
	t.Helper()
	origin := testutil.NewOrigin(t)
	origin.Set("/", "<html>shell</html>")
	origin.Set("/app.js", "console.log('app')")

	return config.Config{
		Server: config.ServerConfig{
			Port:       "0",
			RateLimit:  100,
			RateWindow: time.Minute,
		},
		Origin: config.OriginConfig{
			URL:                            origin.URL,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerSuccessThreshold: 2,
			CircuitBreakerTimeout:          30 * time.Second,
		},
		Cache: config.CacheConfig{
			Prefix:      "app-",
			Version:     "v1",
			Manifest:    []string{"/", "/app.js"},
			SkipWaiting: true,
			Claim:       true,
		},
		Store: config.StoreConfig{
			Backend: backend,
			Path:    t.TempDir() + "/cache",
		},
		Database: config.DatabaseConfig{
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerSuccessThreshold: 2,
			CircuitBreakerTimeout:          30 * time.Second,
		},
		Log: config.LogConfig{Level: "error"},
	}, origin
}
