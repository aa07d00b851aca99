// Package docshare publishes SiYuan documents to a share registry, uploading
// their local assets to S3-compatible storage on the way.
package docshare

import (
	"context"

	"github.com/goliatone/go-docshare/internal/di"
	"github.com/goliatone/go-docshare/internal/publish"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// PublishRequest names the document to publish.
type PublishRequest = publish.Request

// PublishResult describes a completed publish.
type PublishResult = publish.Result

// ShareOptions controls password, expiry and visibility of a share.
type ShareOptions = publish.ShareOptions

// UnpublishResult reports what was removed for one document.
type UnpublishResult = publish.UnpublishResult

// UnpublishManyResult reports a batch removal.
type UnpublishManyResult = publish.UnpublishManyResult

// SyncResult reports how Sync changed the local share records.
type SyncResult = publish.SyncResult

// ShareRecord is the locally stored view of a published share.
type ShareRecord = interfaces.ShareRecord

// Module represents the top level publishing runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Publisher returns the configured publish service.
func (m *Module) Publisher() *publish.Service {
	return m.container.PublishService()
}

// Publish exports and shares one document.
func (m *Module) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	return m.container.PublishService().Publish(ctx, req)
}

// Unpublish removes the share of one document.
func (m *Module) Unpublish(ctx context.Context, docID string) (UnpublishResult, error) {
	return m.container.PublishService().Unpublish(ctx, docID)
}

// UnpublishMany removes several shares in one registry call.
func (m *Module) UnpublishMany(ctx context.Context, docIDs []string) (UnpublishManyResult, error) {
	return m.container.PublishService().UnpublishMany(ctx, docIDs)
}

// Sync refreshes the local share records from the registry listing.
func (m *Module) Sync(ctx context.Context) (SyncResult, error) {
	return m.container.PublishService().Sync(ctx)
}

// Shares lists the locally recorded shares, newest first.
func (m *Module) Shares(ctx context.Context) ([]ShareRecord, error) {
	return m.container.Stores().Shares.List(ctx)
}

// Close releases resources such as the database handle.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
