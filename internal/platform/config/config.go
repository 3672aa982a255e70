package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultStoreDir         = ".skillforge"
	defaultAPIDelay         = 800 * time.Millisecond
	defaultSearchDelay      = 300 * time.Millisecond
	defaultAutosaveInterval = 30 * time.Second
	defaultSessionTTL       = 24 * time.Hour
	defaultSessionSecret    = "local-dev-session-secret"
	defaultCurrency         = "USD"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Simulation SimulationConfig
	Wizard     WizardConfig
	Auth       AuthConfig
	Catalog    CatalogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig locates the local persistent key-value store.
type StoreConfig struct {
	Dir string
}

// SimulationConfig controls the artificial latency behind the mocked
// request/response boundary.
type SimulationConfig struct {
	APIDelay    time.Duration
	SearchDelay time.Duration
}

// WizardConfig controls the course-authoring wizard behaviour.
type WizardConfig struct {
	AutosaveInterval time.Duration
}

// AuthConfig holds mock-session signing parameters.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
}

// CatalogConfig holds storefront catalog defaults.
type CatalogConfig struct {
	Currency string
}

// Option mutates load behaviour.
type Option func(*loadOptions)

type loadOptions struct {
	envFile string
	lookup  func(string) (string, bool)
}

// WithEnvFile overrides the .env file consulted before process env vars.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithLookup overrides the environment lookup, used by tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookup = lookup }
}

// Load assembles the configuration from the .env file and process environment.
// Process environment wins over file entries.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{envFile: defaultEnvFile, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&options)
	}

	fileValues, err := readEnvFile(options.envFile)
	if err != nil {
		return Config{}, err
	}

	get := func(key string) string {
		if value, ok := options.lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileValues[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringOr(get("API_PORT"), defaultPort),
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Store: StoreConfig{
			Dir: stringOr(get("API_STORE_DIR"), defaultStoreDir),
		},
		Simulation: SimulationConfig{
			APIDelay:    defaultAPIDelay,
			SearchDelay: defaultSearchDelay,
		},
		Wizard: WizardConfig{
			AutosaveInterval: defaultAutosaveInterval,
		},
		Auth: AuthConfig{
			SessionSecret: stringOr(get("API_SESSION_SECRET"), defaultSessionSecret),
			SessionTTL:    defaultSessionTTL,
		},
		Catalog: CatalogConfig{
			Currency: strings.ToUpper(stringOr(get("API_CURRENCY"), defaultCurrency)),
		},
	}

	var parseErr error
	assignDuration := func(key string, target *time.Duration) {
		raw := get(key)
		if raw == "" {
			return
		}
		value, err := time.ParseDuration(raw)
		if err != nil {
			parseErr = errors.Join(parseErr, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		if value < 0 {
			parseErr = errors.Join(parseErr, fmt.Errorf("config: %s must not be negative", key))
			return
		}
		*target = value
	}

	assignDuration("API_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	assignDuration("API_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	assignDuration("API_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	assignDuration("API_SIM_DELAY", &cfg.Simulation.APIDelay)
	assignDuration("API_SEARCH_DELAY", &cfg.Simulation.SearchDelay)
	assignDuration("API_AUTOSAVE_INTERVAL", &cfg.Wizard.AutosaveInterval)
	assignDuration("API_SESSION_TTL", &cfg.Auth.SessionTTL)
	if parseErr != nil {
		return Config{}, parseErr
	}

	if port := cfg.Server.Port; port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return Config{}, fmt.Errorf("config: API_PORT must be numeric, got %q", port)
		}
	}
	if len(cfg.Catalog.Currency) != 3 {
		return Config{}, fmt.Errorf("config: API_CURRENCY must be a 3-letter ISO code, got %q", cfg.Catalog.Currency)
	}

	cfg.Store.Dir = filepath.Clean(cfg.Store.Dir)
	return cfg, nil
}

// readEnvFile parses KEY=VALUE lines, ignoring comments and blank lines.
// A missing file is not an error.
func readEnvFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return values, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
