package kernel

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	DefaultCacheTTL     = time.Minute
	DefaultCacheCleanup = 2 * time.Minute
)

// CachedSource memoizes block content for a short TTL and coalesces
// concurrent fetches of the same block. Binaries and proxy calls pass
// through.
type CachedSource struct {
	source   interfaces.ContentSource
	blocks   *cache.Cache
	ttl      time.Duration
	inflight singleflight.Group
	logger   interfaces.Logger
}

var _ interfaces.ContentSource = (*CachedSource)(nil)

// NewCachedSource wraps source. Non-positive durations use the defaults.
func NewCachedSource(source interfaces.ContentSource, ttl, cleanup time.Duration, logger interfaces.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if cleanup <= 0 {
		cleanup = DefaultCacheCleanup
	}
	return &CachedSource{
		source: source,
		blocks: cache.New(ttl, cleanup),
		ttl:    ttl,
		logger: logging.OrNoOp(logger),
	}
}

func (s *CachedSource) FetchBlockContent(ctx context.Context, id string) (interfaces.BlockContent, error) {
	if cached, ok := s.blocks.Get(id); ok {
		s.logger.WithContext(ctx).Trace("kernel.cache.hit", "block_id", id)
		return cached.(interfaces.BlockContent), nil
	}
	value, err, shared := s.inflight.Do(id, func() (any, error) {
		block, err := s.source.FetchBlockContent(ctx, id)
		if err != nil {
			return nil, err
		}
		s.blocks.Set(id, block, s.ttl)
		return block, nil
	})
	if err != nil {
		return interfaces.BlockContent{}, err
	}
	if shared {
		s.logger.WithContext(ctx).Trace("kernel.cache.shared", "block_id", id)
	}
	return value.(interfaces.BlockContent), nil
}

func (s *CachedSource) FetchBinary(ctx context.Context, localPath string) ([]byte, error) {
	return s.source.FetchBinary(ctx, localPath)
}

func (s *CachedSource) ForwardProxy(ctx context.Context, req interfaces.ProxyRequest) error {
	return s.source.ForwardProxy(ctx, req)
}

// Invalidate drops the cached content of block id.
func (s *CachedSource) Invalidate(id string) {
	s.blocks.Delete(id)
}

// Flush drops every cached block.
func (s *CachedSource) Flush() {
	s.blocks.Flush()
}

// Len reports how many blocks are cached.
func (s *CachedSource) Len() int {
	return s.blocks.ItemCount()
}
