// Package bunrepo holds the helpers shared by the Bun-backed record stores:
// optional repository caching, paged listing and not-found mapping.
package bunrepo

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/uptrace/bun"
)

// PageSize bounds one List round trip in ListAll.
const PageSize = 200

// WrapWithCache returns base wrapped in a cache when both cache
// collaborators are set, and base unchanged otherwise.
func WrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}

// ListAll pages through every record matching query.
func ListAll[T any](ctx context.Context, repo repository.Repository[T], query func(*bun.SelectQuery) *bun.SelectQuery) ([]T, error) {
	if query == nil {
		query = func(q *bun.SelectQuery) *bun.SelectQuery { return q }
	}
	var out []T
	for offset := 0; ; offset += PageSize {
		page, _, err := repo.List(ctx,
			repository.SelectRawProcessor(query),
			repository.SelectPaginate(PageSize, offset),
		)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < PageSize {
			return out, nil
		}
	}
}

// IsNotFound reports whether err is the repository's missing-row error.
func IsNotFound(err error) bool {
	return err != nil && goerrors.IsCategory(err, repository.CategoryDatabaseNotFound)
}
