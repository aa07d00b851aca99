package sharerecord

import (
	"context"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-docshare/internal/bunrepo"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// BunRepository persists records in a Bun-backed database.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*recordModel]
	now  func() time.Time
}

var _ Repository = (*BunRepository)(nil)

func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs a repository with caching support.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	return &BunRepository{
		db:   db,
		repo: bunrepo.WrapWithCache(newRecordRepository(db), cacheService, serializer),
		now:  now,
	}
}

func newRecordRepository(db *bun.DB) repository.Repository[*recordModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*recordModel]{
		NewRecord: func() *recordModel { return &recordModel{} },
		GetID: func(m *recordModel) uuid.UUID {
			return m.ID
		},
		SetID: func(m *recordModel, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "doc_id"
		},
		GetIdentifierValue: func(m *recordModel) string {
			return m.DocID
		},
	})
}

// EnsureSchema creates the record table and its unique indexes.
func (r *BunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	for index, column := range map[string]string{
		"share_records_doc_id_idx":   "doc_id",
		"share_records_share_id_idx": "share_id",
	} {
		if _, err := r.db.NewCreateIndex().
			Model((*recordModel)(nil)).
			Index(index).
			Column(column).
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *BunRepository) Put(ctx context.Context, record interfaces.ShareRecord) (*interfaces.ShareRecord, error) {
	record, err := normalize(record, r.now())
	if err != nil {
		return nil, err
	}
	stale, err := r.listWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.doc_id = ? OR ?TableAlias.share_id = ?", record.DocID, record.ShareID)
	})
	if err != nil {
		return nil, err
	}
	if _, err := r.deleteAll(ctx, stale); err != nil {
		return nil, err
	}
	model := modelFromRecord(record)
	model.ID = uuid.New()
	if _, err := r.repo.Create(ctx, model); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *BunRepository) Get(ctx context.Context, shareID string) (*interfaces.ShareRecord, error) {
	model, err := r.findByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	out := modelToRecord(model)
	return &out, nil
}

func (r *BunRepository) GetByDocID(ctx context.Context, docID string) (*interfaces.ShareRecord, error) {
	model, err := r.repo.GetByIdentifier(ctx, strings.TrimSpace(docID))
	if err != nil {
		if bunrepo.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	out := modelToRecord(model)
	return &out, nil
}

func (r *BunRepository) findByShareID(ctx context.Context, shareID string) (*recordModel, error) {
	models, err := r.listWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.share_id = ?", shareID)
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, ErrRecordNotFound
	}
	return models[0], nil
}

// List returns records newest first.
func (r *BunRepository) List(ctx context.Context) ([]interfaces.ShareRecord, error) {
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.ShareRecord, len(models))
	for i, model := range models {
		out[i] = modelToRecord(model)
	}
	return out, nil
}

func (r *BunRepository) listWhere(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) ([]*recordModel, error) {
	return bunrepo.ListAll(ctx, r.repo, func(q *bun.SelectQuery) *bun.SelectQuery {
		if where != nil {
			q = where(q)
		}
		return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.share_id ASC")
	})
}

func (r *BunRepository) Delete(ctx context.Context, shareID string) error {
	_, err := r.DeleteMany(ctx, []string{shareID})
	return err
}

func (r *BunRepository) DeleteMany(ctx context.Context, shareIDs []string) (int, error) {
	if len(shareIDs) == 0 {
		return 0, nil
	}
	models, err := r.listWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.share_id IN (?)", bun.In(shareIDs))
	})
	if err != nil {
		return 0, err
	}
	return r.deleteAll(ctx, models)
}

// DeleteExpired removes records whose expiry is set and not after now.
func (r *BunRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return 0, err
	}
	var expired []*recordModel
	for _, model := range models {
		if modelToRecord(model).Expired(now) {
			expired = append(expired, model)
		}
	}
	return r.deleteAll(ctx, expired)
}

func (r *BunRepository) Clear(ctx context.Context) error {
	models, err := r.listWhere(ctx, nil)
	if err != nil {
		return err
	}
	_, err = r.deleteAll(ctx, models)
	return err
}

func (r *BunRepository) deleteAll(ctx context.Context, models []*recordModel) (int, error) {
	for i, model := range models {
		if err := r.repo.Delete(ctx, model); err != nil {
			return i, err
		}
	}
	return len(models), nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:share_records,alias:sr"`

	ID              uuid.UUID `bun:",pk,type:uuid"`
	ShareID         string    `bun:"share_id,notnull"`
	DocID           string    `bun:"doc_id,notnull"`
	DocTitle        string    `bun:"doc_title"`
	ShareURL        string    `bun:"share_url"`
	RequirePassword bool      `bun:"require_password"`
	IsPublic        bool      `bun:"is_public"`
	ExpireAt        time.Time `bun:"expire_at,nullzero"`
	CreatedAt       time.Time `bun:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at"`
}

func modelFromRecord(record interfaces.ShareRecord) *recordModel {
	return &recordModel{
		ShareID:         record.ShareID,
		DocID:           record.DocID,
		DocTitle:        record.DocTitle,
		ShareURL:        record.ShareURL,
		RequirePassword: record.RequirePassword,
		IsPublic:        record.IsPublic,
		ExpireAt:        record.ExpireAt,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func modelToRecord(model *recordModel) interfaces.ShareRecord {
	if model == nil {
		return interfaces.ShareRecord{}
	}
	return interfaces.ShareRecord{
		ShareID:         model.ShareID,
		DocID:           model.DocID,
		DocTitle:        model.DocTitle,
		ShareURL:        model.ShareURL,
		RequirePassword: model.RequirePassword,
		IsPublic:        model.IsPublic,
		ExpireAt:        model.ExpireAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
