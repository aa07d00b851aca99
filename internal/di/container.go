package di

import (
	"context"
	"fmt"
	"strings"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-docshare/internal/assets"
	"github.com/goliatone/go-docshare/internal/kernel"
	"github.com/goliatone/go-docshare/internal/kramdown"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/internal/logging/console"
	"github.com/goliatone/go-docshare/internal/logging/gologger"
	"github.com/goliatone/go-docshare/internal/objectstore"
	"github.com/goliatone/go-docshare/internal/persistence"
	"github.com/goliatone/go-docshare/internal/publish"
	"github.com/goliatone/go-docshare/internal/references"
	"github.com/goliatone/go-docshare/internal/registry"
	"github.com/goliatone/go-docshare/internal/runtimeconfig"
	"github.com/goliatone/go-docshare/internal/signing"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// HTTPDoer is shared by the kernel, registry and object store clients.
type HTTPDoer interface {
	kernel.HTTPDoer
}

// Container wires configuration into the publishing components.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	httpClient     HTTPDoer
	bunDB          *bun.DB
	cacheService   repocache.CacheService
	keySerializer  repocache.KeySerializer

	kernelClient *kernel.Client
	source       interfaces.ContentSource
	registry     interfaces.ShareRegistry
	storage      publish.ObjectStore
	stores       *persistence.Stores

	publishSvc *publish.Service
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithHTTPClient sets the client used by every HTTP collaborator.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Container) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithContentSource replaces the kernel client.
func WithContentSource(source interfaces.ContentSource) Option {
	return func(c *Container) {
		if source != nil {
			c.source = source
		}
	}
}

// WithShareRegistry replaces the registry client.
func WithShareRegistry(reg interfaces.ShareRegistry) Option {
	return func(c *Container) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithObjectStore replaces the object store client.
func WithObjectStore(store publish.ObjectStore) Option {
	return func(c *Container) {
		if store != nil {
			c.storage = store
		}
	}
}

// WithBunDB stores asset mappings and share records in db instead of the
// configured persistence driver.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithRepositoryCache sets the cache used by SQL repositories.
func WithRepositoryCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithStores injects prebuilt repositories.
func WithStores(stores *persistence.Stores) Option {
	return func(c *Container) {
		if stores != nil {
			c.stores = stores
		}
	}
}

// NewContainer validates cfg and builds every component eagerly.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.configureRepositoryCache()
	if err := c.configureStores(context.Background()); err != nil {
		return nil, err
	}
	c.configureSource()
	c.configureRegistry()
	if err := c.configureStorage(); err != nil {
		return nil, err
	}
	c.configurePublish()

	logging.ModuleLogger(c.loggerProvider, "docshare.container").Info("container.configured",
		"persistence", c.persistenceDriver(),
		"storage_enabled", c.storage.Enabled(),
		"cache_enabled", cfg.Cache.Enabled,
		"repository_cache", c.cacheService != nil,
	)
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureRepositoryCache() {
	if !c.Config.Cache.Enabled || !c.Config.Persistence.Cache {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.TTL > 0 {
			cfg.TTL = c.Config.Cache.TTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureStores(ctx context.Context) error {
	if c.stores != nil {
		return nil
	}
	var (
		stores *persistence.Stores
		err    error
	)
	var opts []persistence.Option
	if c.cacheService != nil {
		opts = append(opts, persistence.WithRepositoryCache(c.cacheService, c.keySerializer))
	}
	if c.bunDB != nil {
		stores, err = persistence.OpenBun(ctx, c.bunDB, opts...)
	} else {
		stores, err = persistence.Open(ctx, c.Config.Persistence.Driver, c.Config.Persistence.DSN, opts...)
	}
	if err != nil {
		return fmt.Errorf("di: persistence: %w", err)
	}
	c.stores = stores
	return nil
}

func (c *Container) configureSource() {
	kcfg := c.Config.Kernel
	opts := []kernel.Option{kernel.WithLogger(logging.KernelLogger(c.loggerProvider))}
	if c.httpClient != nil {
		opts = append(opts, kernel.WithHTTPClient(c.httpClient))
	}
	c.kernelClient = kernel.NewClient(kernel.Config{
		BaseURL:        kcfg.BaseURL,
		Token:          kcfg.Token,
		RequestTimeout: kcfg.RequestTimeout,
		BinaryTimeout:  kcfg.BinaryTimeout,
	}, opts...)

	if c.source != nil {
		return
	}
	c.source = c.kernelClient
	if cache := c.Config.Cache; cache.Enabled {
		c.source = kernel.NewCachedSource(c.kernelClient, cache.TTL, cache.CleanupInterval, logging.KernelLogger(c.loggerProvider))
	}
}

func (c *Container) configureRegistry() {
	if c.registry != nil {
		return
	}
	rcfg := c.Config.Registry
	opts := []registry.Option{registry.WithLogger(logging.RegistryLogger(c.loggerProvider))}
	if c.httpClient != nil {
		opts = append(opts, registry.WithHTTPClient(c.httpClient))
	}
	c.registry = registry.NewClient(registry.Config{
		ServerURL: rcfg.ServerURL,
		Token:     rcfg.Token,
		BaseURL:   rcfg.BaseURL,
		Timeout:   rcfg.Timeout,
	}, opts...)
}

func (c *Container) configureStorage() error {
	if c.storage != nil {
		return nil
	}
	scfg := c.Config.Storage
	opts := []objectstore.Option{
		objectstore.WithLogger(logging.StorageLogger(c.loggerProvider)),
		objectstore.WithRequestTimeout(scfg.RequestTimeout),
	}
	if c.httpClient != nil {
		opts = append(opts, objectstore.WithHTTPClient(c.httpClient))
	}
	if scfg.ProxyFallback {
		opts = append(opts, objectstore.WithProxy(c.source))
	}
	client, err := objectstore.NewClient(objectstore.Config{
		Enabled:         scfg.Enabled,
		Endpoint:        scfg.Endpoint,
		Region:          scfg.Region,
		Bucket:          scfg.Bucket,
		AccessKeyID:     scfg.AccessKeyID,
		SecretAccessKey: scfg.SecretAccessKey,
		CustomDomain:    scfg.CustomDomain,
		PathPrefix:      scfg.PathPrefix,
		Provider:        signing.Provider(scfg.Provider),
		Addressing:      objectstore.Addressing(scfg.Addressing),
	}, opts...)
	if err != nil {
		return fmt.Errorf("di: object store: %w", err)
	}
	c.storage = client
	return nil
}

func (c *Container) configurePublish() {
	resolverLogger := logging.ResolverLogger(c.loggerProvider)
	transformer := kramdown.NewTransformer(logging.KramdownLogger(c.loggerProvider))
	resolver := references.NewResolver(c.source,
		references.WithLogger(resolverLogger),
		references.WithMaxDepth(c.Config.References.MaxDepth),
		references.WithFetchTimeout(c.Config.References.FetchTimeout),
		references.WithTransformer(transformer),
	)
	c.publishSvc = publish.NewService(c.source, c.registry,
		publish.WithLogger(logging.PublishLogger(c.loggerProvider)),
		publish.WithObjectStore(c.storage),
		publish.WithResolver(resolver),
		publish.WithTransformer(transformer),
		publish.WithExtractor(assets.NewExtractor(c.Config.Assets.Prefixes...)),
		publish.WithAssetRepository(c.stores.Assets),
		publish.WithShareRepository(c.stores.Shares),
	)
}

func (c *Container) persistenceDriver() string {
	switch {
	case c.bunDB != nil:
		return "bun"
	case c.stores != nil && c.stores.DB != nil:
		return strings.ToLower(strings.TrimSpace(c.Config.Persistence.Driver))
	default:
		return persistence.DriverMemory
	}
}

// PublishService returns the configured publish service.
func (c *Container) PublishService() *publish.Service {
	return c.publishSvc
}

// ContentSource returns the kernel source, cached when enabled.
func (c *Container) ContentSource() interfaces.ContentSource {
	return c.source
}

// ShareRegistry returns the registry client.
func (c *Container) ShareRegistry() interfaces.ShareRegistry {
	return c.registry
}

// ObjectStore returns the object store client.
func (c *Container) ObjectStore() publish.ObjectStore {
	return c.storage
}

// Stores returns the persistence stores.
func (c *Container) Stores() *persistence.Stores {
	return c.stores
}

// LoggerProvider returns the active logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Close releases the persistence handle the container opened.
func (c *Container) Close() error {
	if c.bunDB != nil {
		return nil
	}
	return c.stores.Close()
}
