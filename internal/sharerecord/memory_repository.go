package sharerecord

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// MemoryRepository stores records in memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]interfaces.ShareRecord
	now     func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]interfaces.ShareRecord),
		now:     now,
	}
}

func (r *MemoryRepository) Put(_ context.Context, record interfaces.ShareRecord) (*interfaces.ShareRecord, error) {
	record, err := normalize(record, r.now())
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for shareID, existing := range r.records {
		if existing.DocID == record.DocID {
			delete(r.records, shareID)
		}
	}
	r.records[record.ShareID] = record
	out := record
	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, shareID string) (*interfaces.ShareRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[shareID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (r *MemoryRepository) GetByDocID(_ context.Context, docID string) (*interfaces.ShareRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.records {
		if record.DocID == docID {
			out := record
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

// List returns records newest first.
func (r *MemoryRepository) List(context.Context) ([]interfaces.ShareRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]interfaces.ShareRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, shareID)
	return nil
}

func (r *MemoryRepository) DeleteMany(_ context.Context, shareIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for _, id := range shareIDs {
		if _, ok := r.records[id]; ok {
			delete(r.records, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, record := range r.records {
		if record.Expired(now) {
			delete(r.records, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepository) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]interfaces.ShareRecord)
	return nil
}
