package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrKernelBaseURLRequired = errors.New("docshare config: kernel base url is required")

// ErrRegistryServerRequired guards publishing without a share backend.
var ErrRegistryServerRequired = errors.New("docshare config: registry server url is required")

var ErrTimeoutInvalid = errors.New("docshare config: timeouts must be zero or positive")
var ErrReferenceDepthInvalid = errors.New("docshare config: reference max depth must be positive")
var ErrStorageProviderUnknown = errors.New("docshare config: storage provider is invalid")
var ErrStorageAddressingUnknown = errors.New("docshare config: storage addressing is invalid")
var ErrPersistenceDriverUnknown = errors.New("docshare config: persistence driver is invalid")

// ErrPersistenceDSNRequired indicates a SQL driver selected without a DSN.
var ErrPersistenceDSNRequired = errors.New("docshare config: persistence dsn is required for sql drivers")
var ErrLoggingProviderRequired = errors.New("docshare config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("docshare config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("docshare config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("docshare config: logging format is invalid")

// Config aggregates every setting the publishing module reads. Storage
// credentials are checked by the object store when it is first used, so a
// config with storage switched off stays valid.
type Config struct {
	Kernel      KernelConfig      `yaml:"kernel"`
	Registry    RegistryConfig    `yaml:"registry"`
	Storage     StorageConfig     `yaml:"storage"`
	Assets      AssetsConfig      `yaml:"assets"`
	References  ReferencesConfig  `yaml:"references"`
	Cache       CacheConfig       `yaml:"cache"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// KernelConfig points at the SiYuan kernel API.
type KernelConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	BinaryTimeout  time.Duration `yaml:"binary_timeout"`
}

// RegistryConfig points at the share backend.
type RegistryConfig struct {
	ServerURL string        `yaml:"server_url"`
	Token     string        `yaml:"token"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StorageConfig describes the S3-compatible bucket.
type StorageConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Provider        string        `yaml:"provider"`
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	CustomDomain    string        `yaml:"custom_domain"`
	PathPrefix      string        `yaml:"path_prefix"`
	Addressing      string        `yaml:"addressing"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ProxyFallback   bool          `yaml:"proxy_fallback"`
}

type AssetsConfig struct {
	Prefixes []string `yaml:"prefixes"`
}

type ReferencesConfig struct {
	MaxDepth     int           `yaml:"max_depth"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// CacheConfig controls the kernel block content cache.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// PersistenceConfig selects where asset mappings and share records live.
type PersistenceConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Cache routes SQL repository reads through a read-through cache. It
	// requires cache.enabled.
	Cache bool `yaml:"cache"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns defaults for a local kernel with storage disabled and
// in-memory persistence.
func DefaultConfig() Config {
	return Config{
		Kernel: KernelConfig{
			BaseURL:        "http://127.0.0.1:6806",
			RequestTimeout: 20 * time.Second,
			BinaryTimeout:  60 * time.Second,
		},
		Registry: RegistryConfig{
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Provider:       "aws",
			PathPrefix:     "siyuan-share",
			Addressing:     "auto",
			RequestTimeout: 20 * time.Second,
			ProxyFallback:  true,
		},
		Assets: AssetsConfig{
			Prefixes: []string{"assets/", "/assets/"},
		},
		References: ReferencesConfig{
			MaxDepth:     5,
			FetchTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Persistence: PersistenceConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Kernel.BaseURL) == "" {
		return ErrKernelBaseURLRequired
	}
	if strings.TrimSpace(cfg.Registry.ServerURL) == "" {
		return ErrRegistryServerRequired
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"kernel.request_timeout", cfg.Kernel.RequestTimeout},
		{"kernel.binary_timeout", cfg.Kernel.BinaryTimeout},
		{"registry.timeout", cfg.Registry.Timeout},
		{"storage.request_timeout", cfg.Storage.RequestTimeout},
		{"references.fetch_timeout", cfg.References.FetchTimeout},
		{"cache.ttl", cfg.Cache.TTL},
		{"cache.cleanup_interval", cfg.Cache.CleanupInterval},
	}
	for _, timeout := range timeouts {
		if timeout.value < 0 {
			return fmt.Errorf("%w: %s", ErrTimeoutInvalid, timeout.name)
		}
	}
	if cfg.References.MaxDepth <= 0 {
		return ErrReferenceDepthInvalid
	}
	if provider := normalize(cfg.Storage.Provider); provider != "" && provider != "aws" && provider != "oss" {
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, provider)
	}
	switch normalize(cfg.Storage.Addressing) {
	case "", "auto", "path", "virtual":
	default:
		return fmt.Errorf("%w: %s", ErrStorageAddressingUnknown, cfg.Storage.Addressing)
	}
	switch driver := normalize(cfg.Persistence.Driver); driver {
	case "", "memory":
	case "sqlite", "sqlite3", "postgres":
		if strings.TrimSpace(cfg.Persistence.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrPersistenceDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrPersistenceDriverUnknown, driver)
	}

	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
