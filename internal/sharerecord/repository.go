// Package sharerecord keeps the local list of published shares, one per
// document.
package sharerecord

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

var (
	// ErrRecordNotFound indicates that no share record matched.
	ErrRecordNotFound = errors.New("sharerecord: record not found")
	// ErrRecordInvalid indicates a record without share or document id.
	ErrRecordInvalid = errors.New("sharerecord: share id and doc id are required")
)

// Repository stores share records. Putting a record replaces any record
// with the same document id or share id.
type Repository interface {
	Put(ctx context.Context, record interfaces.ShareRecord) (*interfaces.ShareRecord, error)
	Get(ctx context.Context, shareID string) (*interfaces.ShareRecord, error)
	GetByDocID(ctx context.Context, docID string) (*interfaces.ShareRecord, error)
	List(ctx context.Context) ([]interfaces.ShareRecord, error)
	Delete(ctx context.Context, shareID string) error
	DeleteMany(ctx context.Context, shareIDs []string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Clear(ctx context.Context) error
}

func normalize(record interfaces.ShareRecord, now time.Time) (interfaces.ShareRecord, error) {
	if record.ShareID == "" || record.DocID == "" {
		return record, ErrRecordInvalid
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	return record, nil
}

func sortRecords(records []interfaces.ShareRecord) {
	slices.SortStableFunc(records, func(a, b interfaces.ShareRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ShareID < b.ShareID:
			return -1
		case a.ShareID > b.ShareID:
			return 1
		}
		return 0
	})
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
