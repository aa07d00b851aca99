package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-docshare/internal/assetrecord"
	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/sharerecord"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// ErrNotPublished is returned when a document has no share record.
var ErrNotPublished = errors.New("publish: document is not published")

// UnpublishResult reports what was removed for one document. FailedKeys stay
// in the asset mapping; calling Unpublish again for the document retries them
// even though its share record is gone.
type UnpublishResult struct {
	DocID        string
	ShareID      string
	DeletedKeys  []string
	FailedKeys   []string
	RetainedKeys []string
	Warnings     []string
}

// UnpublishManyResult reports a batch removal. Failed maps a document id to
// the reason the registry gave.
type UnpublishManyResult struct {
	Results      []UnpublishResult
	NotPublished []string
	Failed       map[string]string
}

// Unpublish removes the share for docID from the registry, deletes the
// objects only this document used and drops the local records.
func (s *Service) Unpublish(ctx context.Context, docID string) (UnpublishResult, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return UnpublishResult{}, fault.Validation(ErrDocIDRequired, "publish: doc id is required")
	}
	logger := s.logger.WithContext(ctx)

	record, err := s.shareRepo.GetByDocID(ctx, docID)
	if err != nil {
		if errors.Is(err, sharerecord.ErrRecordNotFound) {
			return s.retryLeftovers(ctx, docID)
		}
		return UnpublishResult{DocID: docID}, err
	}
	if err := s.registry.Delete(ctx, record.ShareID); err != nil {
		logger.Error("unpublish.registry_failed", "doc_id", docID, "share_id", record.ShareID, "error", err)
		return UnpublishResult{DocID: docID, ShareID: record.ShareID}, err
	}

	result := s.cleanup(ctx, *record)
	logger.Info("unpublish.completed",
		"doc_id", docID,
		"share_id", record.ShareID,
		"deleted", len(result.DeletedKeys),
		"failed", len(result.FailedKeys),
		"retained", len(result.RetainedKeys),
	)
	return result, nil
}

// retryLeftovers handles a document whose share is already gone. Assets a
// previous unpublish could not delete are still in its mapping; those are
// retried. Without a mapping the document was never published.
func (s *Service) retryLeftovers(ctx context.Context, docID string) (UnpublishResult, error) {
	result := UnpublishResult{DocID: docID}
	mapping, err := s.assetRepo.Get(ctx, docID)
	switch {
	case errors.Is(err, assetrecord.ErrMappingNotFound):
		return result, fault.Validation(ErrNotPublished, "publish: document is not published")
	case err != nil:
		return result, err
	case len(mapping.Assets) == 0:
		return result, fault.Validation(ErrNotPublished, "publish: document is not published")
	}
	result.ShareID = mapping.ShareID
	s.removeAssets(ctx, mapping, &result)
	s.logger.WithContext(ctx).Info("unpublish.retried",
		"doc_id", docID,
		"deleted", len(result.DeletedKeys),
		"failed", len(result.FailedKeys),
	)
	return result, nil
}

// UnpublishMany removes several shares with one registry call. Shares the
// registry no longer knows are cleaned up locally as well.
func (s *Service) UnpublishMany(ctx context.Context, docIDs []string) (UnpublishManyResult, error) {
	result := UnpublishManyResult{Failed: map[string]string{}}
	records := map[string]interfaces.ShareRecord{}
	shareIDs := make([]string, 0, len(docIDs))

	for _, docID := range docIDs {
		docID = strings.TrimSpace(docID)
		if docID == "" {
			continue
		}
		record, err := s.shareRepo.GetByDocID(ctx, docID)
		if err != nil {
			if errors.Is(err, sharerecord.ErrRecordNotFound) {
				result.NotPublished = append(result.NotPublished, docID)
				continue
			}
			return result, err
		}
		if _, seen := records[record.ShareID]; seen {
			continue
		}
		records[record.ShareID] = *record
		shareIDs = append(shareIDs, record.ShareID)
	}
	if len(shareIDs) == 0 {
		return result, nil
	}

	batch, err := s.registry.DeleteMany(ctx, shareIDs)
	if err != nil {
		s.logger.WithContext(ctx).Error("unpublish.registry_failed", "shares", len(shareIDs), "error", err)
		return result, err
	}
	for _, shareID := range append(append([]string{}, batch.Deleted...), batch.NotFound...) {
		record, ok := records[shareID]
		if !ok {
			continue
		}
		result.Results = append(result.Results, s.cleanup(ctx, record))
	}
	for shareID, reason := range batch.Failed {
		if record, ok := records[shareID]; ok {
			result.Failed[record.DocID] = reason
		}
	}
	return result, nil
}

// cleanup runs once the registry no longer serves the share.
func (s *Service) cleanup(ctx context.Context, record interfaces.ShareRecord) UnpublishResult {
	logger := s.logger.WithContext(ctx)
	result := UnpublishResult{DocID: record.DocID, ShareID: record.ShareID}

	mapping, err := s.assetRepo.Get(ctx, record.DocID)
	switch {
	case errors.Is(err, assetrecord.ErrMappingNotFound):
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("asset mapping not read: %v", err))
	default:
		s.removeAssets(ctx, mapping, &result)
	}

	if err := s.shareRepo.Delete(ctx, record.ShareID); err != nil && !errors.Is(err, sharerecord.ErrRecordNotFound) {
		logger.Warn("unpublish.persist_failed", "store", "share_record", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("share record not removed: %v", err))
	}
	return result
}

func (s *Service) removeAssets(ctx context.Context, mapping *interfaces.AssetMapping, result *UnpublishResult) {
	logger := s.logger.WithContext(ctx)

	shared, err := s.keysUsedElsewhere(ctx, mapping.DocID)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("asset mappings not read: %v", err))
		return
	}
	var candidates []string
	seen := map[string]struct{}{}
	for _, asset := range mapping.Assets {
		key := asset.ObjectKey
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := shared[key]; ok {
			result.RetainedKeys = append(result.RetainedKeys, key)
			continue
		}
		candidates = append(candidates, key)
	}

	for _, key := range result.RetainedKeys {
		if _, err := s.assetRepo.RemoveAssetFromDoc(ctx, mapping.DocID, key); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("asset %s not unlinked: %v", key, err))
		}
	}
	if len(candidates) == 0 {
		return
	}
	if s.storage == nil || !s.storage.Enabled() {
		result.FailedKeys = append(result.FailedKeys, candidates...)
		result.Warnings = append(result.Warnings, "object storage disabled: assets left in place")
		return
	}

	deleted := s.storage.DeleteMany(ctx, candidates)
	result.DeletedKeys = deleted.Success
	result.FailedKeys = deleted.Failed
	if len(deleted.Failed) > 0 {
		logger.Warn("unpublish.asset_delete_failed", "keys", deleted.Failed)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d assets not deleted", len(deleted.Failed)))
	}
	if len(deleted.Success) == 0 {
		return
	}
	if _, err := s.assetRepo.RemoveAssets(ctx, deleted.Success); err != nil {
		logger.Warn("unpublish.persist_failed", "store", "asset_mapping", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("asset mapping not updated: %v", err))
	}
}

func (s *Service) keysUsedElsewhere(ctx context.Context, docID string) (map[string]struct{}, error) {
	mappings, err := s.assetRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	for _, m := range mappings {
		if m.DocID == docID {
			continue
		}
		for _, asset := range m.Assets {
			keys[asset.ObjectKey] = struct{}{}
		}
	}
	return keys, nil
}
