// Package assetrecord persists which assets were uploaded for which
// document, so later publishes can reuse them by local path or content hash.
package assetrecord

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

var (
	// ErrMappingNotFound indicates that no mapping exists for a document.
	ErrMappingNotFound = errors.New("assetrecord: mapping not found")
	// ErrAssetNotFound indicates that no stored asset matched a lookup.
	ErrAssetNotFound = errors.New("assetrecord: asset not found")
	// ErrDocIDRequired indicates that an operation needs a document id.
	ErrDocIDRequired = errors.New("assetrecord: doc id is required")
)

// Repository stores asset mappings keyed by document id. Lookups across
// mappings visit them in creation order.
type Repository interface {
	Put(ctx context.Context, docID, shareID string, assets []interfaces.UploadedAsset) (*interfaces.AssetMapping, error)
	Get(ctx context.Context, docID string) (*interfaces.AssetMapping, error)
	List(ctx context.Context) ([]interfaces.AssetMapping, error)
	Delete(ctx context.Context, docID string) error
	DeleteByShareID(ctx context.Context, shareID string) (int, error)
	FindByHash(ctx context.Context, hash string) (*interfaces.UploadedAsset, error)
	FindByLocalPath(ctx context.Context, localPath string) (*interfaces.UploadedAsset, error)
	RemoveAssetFromDoc(ctx context.Context, docID, objectKey string) (bool, error)
	RemoveAssets(ctx context.Context, objectKeys []string) (int, error)
	Clear(ctx context.Context) error
}

func cloneMapping(m interfaces.AssetMapping) interfaces.AssetMapping {
	cloned := m
	cloned.Assets = slices.Clone(m.Assets)
	if cloned.Assets == nil {
		cloned.Assets = []interfaces.UploadedAsset{}
	}
	return cloned
}

func findAsset(mappings []interfaces.AssetMapping, match func(interfaces.UploadedAsset) bool) (*interfaces.UploadedAsset, error) {
	for _, mapping := range mappings {
		for _, asset := range mapping.Assets {
			if match(asset) {
				found := asset
				return &found, nil
			}
		}
	}
	return nil, ErrAssetNotFound
}

// withoutKeys drops assets whose object key is in keys and reports how many
// were dropped.
func withoutKeys(assets []interfaces.UploadedAsset, keys map[string]struct{}) ([]interfaces.UploadedAsset, int) {
	kept := make([]interfaces.UploadedAsset, 0, len(assets))
	for _, asset := range assets {
		if _, drop := keys[asset.ObjectKey]; drop {
			continue
		}
		kept = append(kept, asset)
	}
	return kept, len(assets) - len(kept)
}

func sortMappings(mappings []interfaces.AssetMapping) {
	slices.SortStableFunc(mappings, func(a, b interfaces.AssetMapping) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.DocID < b.DocID:
			return -1
		case a.DocID > b.DocID:
			return 1
		}
		return 0
	})
}

// now truncates to microseconds, the precision SQL drivers keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
