package publish

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/goliatone/go-docshare/internal/assetrecord"
	"github.com/goliatone/go-docshare/internal/objectstore"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

type queuedAsset struct {
	localPath string
	hash      string
	data      []byte
}

// processAssets returns the uploaded or reused asset for every path it could
// place in the object store. Per asset problems are returned as warnings; an
// error means the pipeline could not run at all.
func (s *Service) processAssets(ctx context.Context, paths []string, progress interfaces.ProgressFunc) ([]interfaces.UploadedAsset, []string, error) {
	if len(paths) == 0 || s.storage == nil || !s.storage.Enabled() {
		return nil, nil, nil
	}
	if err := s.storage.Validate(); err != nil {
		return nil, nil, err
	}
	logger := s.logger.WithContext(ctx)

	var (
		resolved []interfaces.UploadedAsset
		warnings []string
		queue    []queuedAsset
	)
	queuedByHash := map[string][]string{}

	for _, localPath := range paths {
		existing, err := s.assetRepo.FindByLocalPath(ctx, localPath)
		switch {
		case err == nil:
			logger.Debug("publish.asset.reused", "path", localPath, "match", "local_path", "key", existing.ObjectKey)
			resolved = append(resolved, *existing)
			continue
		case !errors.Is(err, assetrecord.ErrAssetNotFound):
			return nil, nil, fmt.Errorf("publish: asset index lookup: %w", err)
		}

		data, err := s.source.FetchBinary(ctx, localPath)
		if err != nil {
			logger.Warn("publish.asset.fetch_failed", "path", localPath, "error", err)
			warnings = append(warnings, fmt.Sprintf("asset %s not fetched: %v", localPath, err))
			continue
		}
		hash := objectstore.Hash(data)

		if _, ok := queuedByHash[hash]; ok {
			queuedByHash[hash] = append(queuedByHash[hash], localPath)
			continue
		}
		existing, err = s.assetRepo.FindByHash(ctx, hash)
		switch {
		case err == nil:
			reused := *existing
			reused.LocalPath = localPath
			logger.Debug("publish.asset.reused", "path", localPath, "match", "hash", "key", reused.ObjectKey)
			resolved = append(resolved, reused)
			continue
		case !errors.Is(err, assetrecord.ErrAssetNotFound):
			return nil, nil, fmt.Errorf("publish: asset index lookup: %w", err)
		}

		queuedByHash[hash] = []string{localPath}
		queue = append(queue, queuedAsset{localPath: localPath, hash: hash, data: data})
	}

	for _, item := range queue {
		uploaded, err := s.storage.Upload(ctx, objectstore.File{
			Name:      path.Base(item.localPath),
			LocalPath: item.localPath,
			Data:      item.data,
		}, progress, item.hash)
		if err != nil {
			logger.Warn("publish.asset.upload_failed", "path", item.localPath, "error", err)
			warnings = append(warnings, fmt.Sprintf("asset %s not uploaded: %v", item.localPath, err))
			continue
		}
		logger.Info("publish.asset.uploaded", "path", item.localPath, "key", uploaded.ObjectKey, "size", uploaded.SizeBytes)
		for _, localPath := range queuedByHash[item.hash] {
			asset := uploaded
			asset.LocalPath = localPath
			resolved = append(resolved, asset)
		}
	}
	return resolved, warnings, nil
}
