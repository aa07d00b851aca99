package assetrecord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// MemoryRepository keeps mappings in memory for tests and one-shot runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	mappings map[string]interfaces.AssetMapping
	now      func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mappings: make(map[string]interfaces.AssetMapping),
		now:      now,
	}
}

// Put creates or replaces the mapping for docID.
func (r *MemoryRepository) Put(_ context.Context, docID, shareID string, assets []interfaces.UploadedAsset) (*interfaces.AssetMapping, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return nil, ErrDocIDRequired
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	mapping, exists := r.mappings[docID]
	if !exists {
		mapping = interfaces.AssetMapping{DocID: docID, CreatedAt: now}
	}
	mapping.ShareID = shareID
	mapping.Assets = assets
	mapping.UpdatedAt = now
	stored := cloneMapping(mapping)
	r.mappings[docID] = stored

	out := cloneMapping(stored)
	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, docID string) (*interfaces.AssetMapping, error) {
	r.mu.RLock()
	mapping, ok := r.mappings[strings.TrimSpace(docID)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrMappingNotFound
	}
	out := cloneMapping(mapping)
	return &out, nil
}

func (r *MemoryRepository) List(context.Context) ([]interfaces.AssetMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(), nil
}

func (r *MemoryRepository) listLocked() []interfaces.AssetMapping {
	out := make([]interfaces.AssetMapping, 0, len(r.mappings))
	for _, mapping := range r.mappings {
		out = append(out, cloneMapping(mapping))
	}
	sortMappings(out)
	return out
}

// Delete removes the mapping for docID. Missing mappings are ignored.
func (r *MemoryRepository) Delete(_ context.Context, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, strings.TrimSpace(docID))
	return nil
}

func (r *MemoryRepository) DeleteByShareID(_ context.Context, shareID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for docID, mapping := range r.mappings {
		if mapping.ShareID == shareID {
			delete(r.mappings, docID)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepository) FindByHash(_ context.Context, hash string) (*interfaces.UploadedAsset, error) {
	if hash == "" {
		return nil, ErrAssetNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return findAsset(r.listLocked(), func(a interfaces.UploadedAsset) bool { return a.ContentHash == hash })
}

func (r *MemoryRepository) FindByLocalPath(_ context.Context, localPath string) (*interfaces.UploadedAsset, error) {
	if localPath == "" {
		return nil, ErrAssetNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return findAsset(r.listLocked(), func(a interfaces.UploadedAsset) bool { return a.LocalPath == localPath })
}

// RemoveAssetFromDoc drops one asset from a document mapping. The mapping
// is deleted once it holds no assets.
func (r *MemoryRepository) RemoveAssetFromDoc(_ context.Context, docID, objectKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mapping, ok := r.mappings[strings.TrimSpace(docID)]
	if !ok {
		return false, nil
	}
	kept, removed := withoutKeys(mapping.Assets, map[string]struct{}{objectKey: {}})
	if removed == 0 {
		return false, nil
	}
	r.storeLocked(mapping, kept)
	return true, nil
}

// RemoveAssets drops the given objects from every mapping and returns how
// many asset entries were removed.
func (r *MemoryRepository) RemoveAssets(_ context.Context, objectKeys []string) (int, error) {
	if len(objectKeys) == 0 {
		return 0, nil
	}
	keys := keySet(objectKeys)

	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, mapping := range r.mappings {
		kept, removed := withoutKeys(mapping.Assets, keys)
		if removed == 0 {
			continue
		}
		total += removed
		r.storeLocked(mapping, kept)
	}
	return total, nil
}

func (r *MemoryRepository) storeLocked(mapping interfaces.AssetMapping, kept []interfaces.UploadedAsset) {
	if len(kept) == 0 {
		delete(r.mappings, mapping.DocID)
		return
	}
	mapping.Assets = kept
	mapping.UpdatedAt = r.now()
	r.mappings[mapping.DocID] = mapping
}

func (r *MemoryRepository) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = make(map[string]interfaces.AssetMapping)
	return nil
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}
