package assetrecord

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-docshare/internal/bunrepo"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// BunRepository persists mappings in a Bun-backed database. Assets are
// stored as a JSON column on the mapping row.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*mappingModel]
	now  func() time.Time
}

var _ Repository = (*BunRepository)(nil)

// NewBunRepository constructs a Bun-backed repository without caching. Call
// EnsureSchema before first use on a fresh database.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs a Bun-backed repository whose reads
// go through cacheService.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	return &BunRepository{
		db:   db,
		repo: bunrepo.WrapWithCache(newMappingRepository(db), cacheService, serializer),
		now:  now,
	}
}

func newMappingRepository(db *bun.DB) repository.Repository[*mappingModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*mappingModel]{
		NewRecord: func() *mappingModel { return &mappingModel{} },
		GetID: func(m *mappingModel) uuid.UUID {
			return m.ID
		},
		SetID: func(m *mappingModel, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "doc_id"
		},
		GetIdentifierValue: func(m *mappingModel) string {
			return m.DocID
		},
	})
}

// EnsureSchema creates the mapping table and its doc id index.
func (r *BunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*mappingModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := r.db.NewCreateIndex().
		Model((*mappingModel)(nil)).
		Index("asset_mappings_doc_id_idx").
		Column("doc_id").
		Unique().
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *BunRepository) Put(ctx context.Context, docID, shareID string, assets []interfaces.UploadedAsset) (*interfaces.AssetMapping, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return nil, ErrDocIDRequired
	}
	now := r.now()
	model := modelFromMapping(interfaces.AssetMapping{
		DocID:     docID,
		ShareID:   shareID,
		Assets:    assets,
		CreatedAt: now,
		UpdatedAt: now,
	})

	existing, err := r.find(ctx, docID)
	switch {
	case errors.Is(err, ErrMappingNotFound):
		model.ID = uuid.New()
		if _, err := r.repo.Create(ctx, model); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
		if _, err := r.repo.Update(ctx, model,
			repository.UpdateByID(model.ID.String()),
			repository.UpdateColumns("share_id", "assets", "updated_at"),
		); err != nil {
			return nil, err
		}
	}
	out := modelToMapping(model)
	return &out, nil
}

func (r *BunRepository) Get(ctx context.Context, docID string) (*interfaces.AssetMapping, error) {
	model, err := r.find(ctx, docID)
	if err != nil {
		return nil, err
	}
	out := modelToMapping(model)
	return &out, nil
}

func (r *BunRepository) find(ctx context.Context, docID string) (*mappingModel, error) {
	model, err := r.repo.GetByIdentifier(ctx, strings.TrimSpace(docID))
	if err != nil {
		if bunrepo.IsNotFound(err) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return model, nil
}

// List returns every mapping in creation order.
func (r *BunRepository) List(ctx context.Context) ([]interfaces.AssetMapping, error) {
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.AssetMapping, len(models))
	for i, model := range models {
		out[i] = modelToMapping(model)
	}
	return out, nil
}

func (r *BunRepository) listWhere(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) ([]*mappingModel, error) {
	return bunrepo.ListAll(ctx, r.repo, func(q *bun.SelectQuery) *bun.SelectQuery {
		if where != nil {
			q = where(q)
		}
		return q.OrderExpr("?TableAlias.created_at ASC").OrderExpr("?TableAlias.doc_id ASC")
	})
}

// Delete removes the mapping for docID. Missing mappings are ignored.
func (r *BunRepository) Delete(ctx context.Context, docID string) error {
	model, err := r.find(ctx, docID)
	if errors.Is(err, ErrMappingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.repo.Delete(ctx, model)
}

func (r *BunRepository) DeleteByShareID(ctx context.Context, shareID string) (int, error) {
	models, err := r.listWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.share_id = ?", shareID)
	})
	if err != nil {
		return 0, err
	}
	return r.deleteAll(ctx, models)
}

func (r *BunRepository) FindByHash(ctx context.Context, hash string) (*interfaces.UploadedAsset, error) {
	if hash == "" {
		return nil, ErrAssetNotFound
	}
	mappings, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return findAsset(mappings, func(a interfaces.UploadedAsset) bool { return a.ContentHash == hash })
}

func (r *BunRepository) FindByLocalPath(ctx context.Context, localPath string) (*interfaces.UploadedAsset, error) {
	if localPath == "" {
		return nil, ErrAssetNotFound
	}
	mappings, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return findAsset(mappings, func(a interfaces.UploadedAsset) bool { return a.LocalPath == localPath })
}

func (r *BunRepository) RemoveAssetFromDoc(ctx context.Context, docID, objectKey string) (bool, error) {
	model, err := r.find(ctx, docID)
	if errors.Is(err, ErrMappingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	kept, n := withoutKeys(model.Assets, map[string]struct{}{objectKey: {}})
	if n == 0 {
		return false, nil
	}
	return true, r.store(ctx, model, kept)
}

func (r *BunRepository) RemoveAssets(ctx context.Context, objectKeys []string) (int, error) {
	if len(objectKeys) == 0 {
		return 0, nil
	}
	keys := keySet(objectKeys)
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, model := range models {
		kept, n := withoutKeys(model.Assets, keys)
		if n == 0 {
			continue
		}
		if err := r.store(ctx, model, kept); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// store writes kept back to the mapping row, deleting the row once empty.
func (r *BunRepository) store(ctx context.Context, model *mappingModel, kept []interfaces.UploadedAsset) error {
	if len(kept) == 0 {
		return r.repo.Delete(ctx, model)
	}
	model.Assets = kept
	model.UpdatedAt = r.now()
	_, err := r.repo.Update(ctx, model,
		repository.UpdateByID(model.ID.String()),
		repository.UpdateColumns("assets", "updated_at"),
	)
	return err
}

func (r *BunRepository) Clear(ctx context.Context) error {
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return err
	}
	_, err = r.deleteAll(ctx, models)
	return err
}

func (r *BunRepository) deleteAll(ctx context.Context, models []*mappingModel) (int, error) {
	for i, model := range models {
		if err := r.repo.Delete(ctx, model); err != nil {
			return i, err
		}
	}
	return len(models), nil
}

type mappingModel struct {
	bun.BaseModel `bun:"table:asset_mappings,alias:am"`

	ID        uuid.UUID                  `bun:",pk,type:uuid"`
	DocID     string                     `bun:"doc_id,notnull"`
	ShareID   string                     `bun:"share_id"`
	Assets    []interfaces.UploadedAsset `bun:"assets,type:jsonb"`
	CreatedAt time.Time                  `bun:"created_at"`
	UpdatedAt time.Time                  `bun:"updated_at"`
}

func modelFromMapping(mapping interfaces.AssetMapping) *mappingModel {
	cloned := cloneMapping(mapping)
	return &mappingModel{
		DocID:     cloned.DocID,
		ShareID:   cloned.ShareID,
		Assets:    cloned.Assets,
		CreatedAt: cloned.CreatedAt,
		UpdatedAt: cloned.UpdatedAt,
	}
}

func modelToMapping(model *mappingModel) interfaces.AssetMapping {
	if model == nil {
		return interfaces.AssetMapping{}
	}
	return cloneMapping(interfaces.AssetMapping{
		DocID:     model.DocID,
		ShareID:   model.ShareID,
		Assets:    model.Assets,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	})
}
