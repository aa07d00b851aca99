// Package persistence opens the stores that hold asset mappings and share
// records, either in memory or on a Bun backed SQL database.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-docshare/internal/assetrecord"
	"github.com/goliatone/go-docshare/internal/sharerecord"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned for drivers Open does not support.
var ErrUnknownDriver = errors.New("persistence: unknown driver")

// Stores bundles the repositories used by the publish service. DB is nil
// for the memory driver.
type Stores struct {
	Assets assetrecord.Repository
	Shares sharerecord.Repository
	DB     *bun.DB
}

// Close releases the database handle, if any.
func (s *Stores) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Option customises how SQL stores are built.
type Option func(*options)

type options struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
}

// WithRepositoryCache routes Bun repository reads through service. It has
// no effect on the memory driver.
func WithRepositoryCache(service cache.CacheService, serializer cache.KeySerializer) Option {
	return func(o *options) {
		o.cacheService = service
		o.keySerializer = serializer
	}
}

// Open returns stores for driver. SQL drivers get their tables created.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Stores, error) {
	switch normalizeDriver(driver) {
	case DriverMemory:
		return &Stores{
			Assets: assetrecord.NewMemoryRepository(),
			Shares: sharerecord.NewMemoryRepository(),
		}, nil
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("persistence: open sqlite: %w", err)
		}
		// sqlite serialises writers.
		sqldb.SetMaxOpenConns(1)
		return OpenBun(ctx, bun.NewDB(sqldb, sqlitedialect.New()), opts...)
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("persistence: open postgres: %w", err)
		}
		return OpenBun(ctx, bun.NewDB(sqldb, pgdialect.New()), opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// OpenBun wraps an existing Bun database. The database is closed when the
// schema cannot be created.
func OpenBun(ctx context.Context, db *bun.DB, opts ...Option) (*Stores, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	assets := assetrecord.NewBunRepositoryWithCache(db, o.cacheService, o.keySerializer)
	shares := sharerecord.NewBunRepositoryWithCache(db, o.cacheService, o.keySerializer)
	if err := assets.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: asset mappings schema: %w", err)
	}
	if err := shares.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: share records schema: %w", err)
	}
	return &Stores{Assets: assets, Shares: shares, DB: db}, nil
}

func normalizeDriver(driver string) string {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", DriverMemory:
		return DriverMemory
	case "sqlite3":
		return DriverSQLite
	case "postgresql", "pg":
		return DriverPostgres
	default:
		return d
	}
}
