package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/integrations"
	"github.com/matzehuels/stackpm/pkg/integrations/npm"
)

const appName = "stackpm"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultRedisPrefix namespaces archive keys in a shared redis.
const DefaultRedisPrefix = "stackpm:archive:"

// Environment variables read by [Load].
const (
	EnvRegistry     = "STACKPM_REGISTRY"
	EnvCacheDir     = "STACKPM_CACHE_DIR"
	EnvConcurrency  = "STACKPM_CONCURRENCY"
	EnvRetries      = "STACKPM_RETRIES"
	EnvTimeout      = "STACKPM_TIMEOUT"
	EnvCacheBackend = "STACKPM_CACHE_BACKEND"
	EnvRedisURL     = "STACKPM_REDIS_URL"
)

// Config holds every setting the CLI needs to run the pipeline.
type Config struct {
	Registry      string        `toml:"registry"`
	Concurrency   int           `toml:"concurrency"`
	Retries       int           `toml:"retries"`
	Timeout       time.Duration `toml:"timeout"`
	IgnoreScripts bool          `toml:"ignore_scripts"`
	Cache         CacheConfig   `toml:"cache"`
}

// CacheConfig selects and configures the archive cache.
type CacheConfig struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// LookupFunc reads an environment variable. [os.LookupEnv] satisfies it.
type LookupFunc func(key string) (string, bool)

// Default returns the built-in settings. The cache directory falls back to
// an empty string when no home directory can be determined.
func Default() *Config {
	dir, _ := DefaultCacheDir()
	return &Config{
		Registry:    npm.DefaultRegistry,
		Concurrency: integrations.DefaultConcurrency,
		Retries:     integrations.DefaultRetries,
		Timeout:     integrations.DefaultTimeout,
		Cache: CacheConfig{
			Backend:     BackendFile,
			Dir:         dir,
			RedisPrefix: DefaultRedisPrefix,
		},
	}
}

// DefaultPath returns the config file location following XDG
// (~/.config/stackpm/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns the archive cache location following XDG
// (~/.cache/stackpm/archives).
func DefaultCacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName, "archives"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName, "archives"), nil
}

// Load builds a Config from defaults, the file at path and the process
// environment, then validates it. An empty path means [DefaultPath], which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is [Load] with a custom environment lookup.
func LoadWith(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errs.New(errs.ErrCodeInvalidConfig, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvRegistry, &c.Registry)
	str(EnvCacheDir, &c.Cache.Dir)
	str(EnvCacheBackend, &c.Cache.Backend)
	str(EnvRedisURL, &c.Cache.RedisURL)

	for key, dst := range map[string]*int{EnvConcurrency: &c.Concurrency, EnvRetries: &c.Retries} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "%s", key)
		}
		*dst = n
	}

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "%s", EnvTimeout)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
func (c *Config) Validate() error {
	if err := errs.ValidateURL(c.Registry); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Retries < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "retries must be at least 1, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "timeout must be positive, got %s", c.Timeout)
	}

	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "file cache requires a directory")
		}
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "redis cache requires redis_url")
		}
	case BackendNone:
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	return nil
}
