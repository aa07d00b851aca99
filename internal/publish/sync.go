package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	// SyncPageSize is the page size requested from the registry.
	SyncPageSize = 100
	// SyncGrace keeps local records the registry does not list yet.
	SyncGrace = 5 * time.Minute
)

// SyncResult reports how the local share records changed.
type SyncResult struct {
	Fetched  int
	Stored   int
	Pruned   []string
	Kept     []string
	Warnings []string
}

// Sync replaces the local share records with the registry listing. Local
// records the registry does not list are pruned once older than SyncGrace.
// An empty listing leaves the local records untouched, and so does any
// failed page.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	logger := s.logger.WithContext(ctx)
	var result SyncResult

	items, err := s.listAll(ctx)
	if err != nil {
		logger.Error("sync.list_failed", "error", err)
		return result, err
	}
	result.Fetched = len(items)
	if len(items) == 0 {
		logger.Info("sync.empty_listing")
		return result, nil
	}

	listed := make(map[string]struct{}, len(items))
	for _, item := range items {
		item.ShareID = strings.TrimSpace(item.ShareID)
		item.DocID = strings.TrimSpace(item.DocID)
		if item.ShareID == "" || item.DocID == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("listing entry skipped: share %q doc %q", item.ShareID, item.DocID))
			continue
		}
		listed[item.ShareID] = struct{}{}
		if _, err := s.shareRepo.Put(ctx, recordFromListing(item)); err != nil {
			logger.Warn("sync.persist_failed", "share_id", item.ShareID, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("share %s not stored: %v", item.ShareID, err))
			continue
		}
		result.Stored++
	}

	local, err := s.shareRepo.List(ctx)
	if err != nil {
		return result, err
	}
	cutoff := s.now().Add(-SyncGrace)
	var stale []string
	for _, record := range local {
		if _, ok := listed[record.ShareID]; ok {
			continue
		}
		if record.CreatedAt.After(cutoff) {
			result.Kept = append(result.Kept, record.ShareID)
			continue
		}
		stale = append(stale, record.ShareID)
	}
	if len(stale) > 0 {
		if _, err := s.shareRepo.DeleteMany(ctx, stale); err != nil {
			logger.Warn("sync.prune_failed", "stale", len(stale), "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("stale records not removed: %v", err))
		} else {
			result.Pruned = stale
		}
	}

	logger.Info("sync.completed",
		"fetched", result.Fetched,
		"stored", result.Stored,
		"pruned", len(result.Pruned),
		"kept", len(result.Kept),
	)
	return result, nil
}

func (s *Service) listAll(ctx context.Context) ([]interfaces.ShareListItem, error) {
	var items []interfaces.ShareListItem
	for page := 1; ; page++ {
		listing, err := s.registry.List(ctx, page, SyncPageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, listing.Items...)
		if len(listing.Items) == 0 || page*SyncPageSize >= listing.Total {
			return items, nil
		}
	}
}

// recordFromListing maps a listing entry. The registry does not list an
// update time, so the creation time stands in for it.
func recordFromListing(item interfaces.ShareListItem) interfaces.ShareRecord {
	return interfaces.ShareRecord{
		ShareID:         item.ShareID,
		DocID:           item.DocID,
		DocTitle:        item.DocTitle,
		ShareURL:        item.ShareURL,
		RequirePassword: item.RequirePassword,
		IsPublic:        item.IsPublic,
		ExpireAt:        item.ExpireAt,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.CreatedAt,
	}
}
