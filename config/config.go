// Package config provides configuration management for the shell cache.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Store backends understood by StoreConfig.Backend.
const (
	BackendMemory  = "memory"
	BackendDisk    = "disk"
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Origin   OriginConfig
	Cache    CacheConfig
	Store    StoreConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
	SwaggerUser string
	SwaggerPass string
}

// OriginConfig describes the page origin the cache sits in front of.
type OriginConfig struct {
	URL string
	// ForwardHosts may be reached through absolute-form proxy requests.
	ForwardHosts []string
	// CircuitBreaker configuration for origin fetches
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

// CacheConfig holds the generation that is installed at start-up.
type CacheConfig struct {
	Prefix       string
	Version      string
	Manifest     []string
	ManifestFile string
	ExcludeHosts []string
	SkipWaiting  bool
	Claim        bool
}

// StoreConfig selects the backing storage for generation stores.
type StoreConfig struct {
	Backend string
	Path    string
}

// AuthConfig holds admin API authentication configuration.
type AuthConfig struct {
	APIKeys map[string]bool
}

// DatabaseConfig holds MongoDB configuration.
type DatabaseConfig struct {
	URI          string
	DatabaseName string
	// CircuitBreaker configuration
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load creates a Config from environment variables.
func Load() Config {
	cfg := Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			RateLimit:   getEnvInt("RATE_LIMIT", 100),
			RateWindow:  getEnvDuration("RATE_WINDOW", time.Minute),
			CORSOrigins: parseCORSOrigins(os.Getenv("CORS_ORIGINS")),
			SwaggerUser: getEnv("SWAGGER_USER", ""),
			SwaggerPass: getEnv("SWAGGER_PASS", ""),
		},
		Origin: OriginConfig{
			URL:                            strings.TrimRight(getEnv("ORIGIN_URL", "http://localhost:8000"), "/"),
			ForwardHosts:                   parseList(os.Getenv("FORWARD_PROXY_HOSTS")),
			CircuitBreakerFailureThreshold: getEnvInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			Prefix:       getEnv("CACHE_PREFIX", "app-"),
			Version:      getEnv("CACHE_VERSION", "v1"),
			Manifest:     parseList(getEnv("CACHE_MANIFEST", "/")),
			ManifestFile: getEnv("CACHE_MANIFEST_FILE", ""),
			ExcludeHosts: parseList(getEnv("CACHE_EXCLUDE_HOSTS", "tile.openstreetmap.org,unpkg.com")),
			SkipWaiting:  getEnvBool("CACHE_SKIP_WAITING", true),
			Claim:        getEnvBool("CACHE_CLAIM", true),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			Path:    getEnv("STORE_PATH", "./data/cache"),
		},
		Auth: AuthConfig{
			APIKeys: parseAPIKeys(os.Getenv("ADMIN_API_KEYS")),
		},
		Database: DatabaseConfig{
			URI:                            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			DatabaseName:                   getEnv("MONGODB_DATABASE", "shell_cache"),
			CircuitBreakerFailureThreshold: getEnvInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}

	if cfg.Cache.ManifestFile != "" {
		manifest, err := LoadManifest(cfg.Cache.ManifestFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.Cache.ManifestFile).Msg("Failed to load manifest file - using CACHE_MANIFEST")
		} else {
			cfg.Cache.Manifest = manifest
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseList splits a comma separated list, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func parseAPIKeys(s string) map[string]bool {
	keys := parseList(s)
	if len(keys) == 0 {
		return nil
	}
	result := make(map[string]bool, len(keys))
	for _, k := range keys {
		result[k] = true
	}
	return result
}

func parseCORSOrigins(s string) []string {
	// Default origins for local development
	defaults := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	return append(defaults, parseList(s)...)
}
