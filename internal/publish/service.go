// Package publish runs the end to end publish flow: fetch a document,
// transform it, resolve its references, upload its assets and hand the
// result to the share registry.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-docshare/internal/assetrecord"
	"github.com/goliatone/go-docshare/internal/assets"
	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/kramdown"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/internal/objectstore"
	"github.com/goliatone/go-docshare/internal/references"
	"github.com/goliatone/go-docshare/internal/sharerecord"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// ErrDocIDRequired is returned when a request names no document.
var ErrDocIDRequired = errors.New("publish: doc id is required")

// ObjectStore uploads and deletes asset binaries.
type ObjectStore interface {
	Enabled() bool
	Validate() error
	Upload(ctx context.Context, file objectstore.File, progress interfaces.ProgressFunc, precomputedHash string) (interfaces.UploadedAsset, error)
	DeleteMany(ctx context.Context, keys []string) objectstore.DeleteManyResult
}

// ReferenceResolver turns the references in a document into block records.
type ReferenceResolver interface {
	ResolveAll(ctx context.Context, rootContent string) []interfaces.BlockReference
}

// Request names the document to publish.
type Request struct {
	DocID    string
	DocTitle string
	Options  ShareOptions
	Progress interfaces.ProgressFunc
}

// Result describes a completed publish. Warnings list per asset problems;
// Degraded is set when assets were skipped altogether.
type Result struct {
	RunID      string
	Ack        interfaces.ShareAck
	Content    string
	References []interfaces.BlockReference
	Assets     []interfaces.UploadedAsset
	Warnings   []string
	Degraded   bool
}

// Service publishes and unpublishes documents.
type Service struct {
	source      interfaces.ContentSource
	registry    interfaces.ShareRegistry
	storage     ObjectStore
	resolver    ReferenceResolver
	extractor   *assets.Extractor
	transformer *kramdown.Transformer
	assetRepo   assetrecord.Repository
	shareRepo   sharerecord.Repository
	logger      interfaces.Logger
	newRunID    func() string
	now         func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithObjectStore enables asset uploads.
func WithObjectStore(store ObjectStore) Option {
	return func(s *Service) {
		s.storage = store
	}
}

// WithResolver overrides the reference resolver.
func WithResolver(resolver ReferenceResolver) Option {
	return func(s *Service) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithExtractor overrides the asset extractor.
func WithExtractor(extractor *assets.Extractor) Option {
	return func(s *Service) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithTransformer overrides the kramdown transformer.
func WithTransformer(transformer *kramdown.Transformer) Option {
	return func(s *Service) {
		if transformer != nil {
			s.transformer = transformer
		}
	}
}

// WithAssetRepository overrides the in-memory asset mapping store.
func WithAssetRepository(repo assetrecord.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.assetRepo = repo
		}
	}
}

// WithShareRepository overrides the in-memory share record store.
func WithShareRepository(repo sharerecord.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.shareRepo = repo
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunIDGenerator overrides the uuid based run id generator.
func WithRunIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

// WithClock overrides time.Now, used to age local records during Sync.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a publish service. Without WithObjectStore, assets keep
// their local paths.
func NewService(source interfaces.ContentSource, registry interfaces.ShareRegistry, opts ...Option) *Service {
	s := &Service{
		source:    source,
		registry:  registry,
		extractor: assets.NewExtractor(),
		assetRepo: assetrecord.NewMemoryRepository(),
		shareRepo: sharerecord.NewMemoryRepository(),
		logger:    logging.NoOp(),
		newRunID:  func() string { return uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.transformer == nil {
		s.transformer = kramdown.NewTransformer(s.logger)
	}
	if s.resolver == nil {
		s.resolver = references.NewResolver(source, references.WithLogger(s.logger))
	}
	return s
}

// Publish exports req.DocID and submits it to the registry. Only a failed
// document fetch, invalid options or a rejected submission fail the call.
func (s *Service) Publish(ctx context.Context, req Request) (Result, error) {
	docID := strings.TrimSpace(req.DocID)
	if docID == "" {
		return Result{}, fault.Validation(ErrDocIDRequired, "publish: doc id is required")
	}
	options := req.Options.withDefaults()
	if err := options.Validate(); err != nil {
		return Result{}, err
	}

	runID := s.newRunID()
	ctx = logging.ContextWithFields(ctx, map[string]any{"run_id": runID, "doc_id": docID})
	logger := s.logger.WithContext(ctx)
	result := Result{RunID: runID}
	logger.Info("publish.started")

	block, err := s.source.FetchBlockContent(ctx, docID)
	if err != nil {
		logger.Error("publish.fetch_failed", "error", err)
		return result, err
	}
	native := block.Content
	if strings.TrimSpace(native) == "" {
		return result, fault.Parse(nil, "publish: document has no content")
	}

	title := s.resolveTitle(ctx, req.DocTitle, docID, native)
	content := s.transformer.Transform(native)

	var (
		paths []string
		refs  []interfaces.BlockReference
	)
	var g errgroup.Group
	g.Go(func() error {
		paths = s.extractor.Extract(content)
		return nil
	})
	g.Go(func() error {
		refs = s.resolver.ResolveAll(ctx, native)
		return nil
	})
	_ = g.Wait()
	paths = s.withReferencedAssets(paths, refs)
	logger.Debug("publish.analyzed", "assets", len(paths), "references", len(refs))

	uploaded, warnings, err := s.processAssets(ctx, paths, req.Progress)
	switch {
	case err != nil:
		result.Degraded = true
		result.Warnings = append(result.Warnings, "asset pipeline skipped: "+err.Error())
		uploaded = nil
		logger.Warn("publish.degraded", "error", err)
	default:
		result.Warnings = append(result.Warnings, warnings...)
	}

	replacements := make(map[string]string, len(uploaded))
	for _, asset := range uploaded {
		replacements[asset.LocalPath] = asset.PublicURL
	}
	content = assets.Rewrite(content, replacements)
	for i := range refs {
		refs[i].Content = assets.Rewrite(refs[i].Content, replacements)
	}

	payload := interfaces.SharePayload{
		DocID:           docID,
		DocTitle:        title,
		Content:         content,
		RequirePassword: options.RequirePassword,
		Password:        options.Password,
		ExpireDays:      options.ExpireDays,
		IsPublic:        options.IsPublic,
		References:      refs,
		Assets:          uploaded,
	}
	ack, err := s.registry.Submit(ctx, payload)
	if err != nil {
		logger.Error("publish.submit_failed", "error", err)
		return result, err
	}

	result.Ack = ack
	result.Content = content
	result.References = refs
	result.Assets = uploaded
	result.Warnings = append(result.Warnings, s.persist(ctx, docID, title, ack, uploaded)...)

	logger.Info("publish.completed",
		"share_id", ack.ShareID,
		"assets", len(uploaded),
		"references", len(refs),
		"warnings", len(result.Warnings),
		"degraded", result.Degraded,
	)
	return result, nil
}

func (s *Service) resolveTitle(ctx context.Context, requested, docID, native string) string {
	if title := strings.TrimSpace(requested); title != "" {
		return title
	}
	meta, err := kramdown.ParseMetadata(native)
	if err != nil {
		s.logger.WithContext(ctx).Debug("publish.metadata_unreadable", "error", err)
	}
	if title := strings.TrimSpace(meta.Title); title != "" {
		return title
	}
	return docID
}

// withReferencedAssets adds asset paths that only appear inside resolved
// references.
func (s *Service) withReferencedAssets(paths []string, refs []interfaces.BlockReference) []string {
	if len(refs) == 0 {
		return paths
	}
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[p] = struct{}{}
	}
	for _, ref := range refs {
		for _, p := range s.extractor.Extract(ref.Content) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return paths
}

// persist stores the share record and asset mapping. Failures become
// warnings; the share already exists remotely.
func (s *Service) persist(ctx context.Context, docID, title string, ack interfaces.ShareAck, uploaded []interfaces.UploadedAsset) []string {
	logger := s.logger.WithContext(ctx)
	var warnings []string

	record := interfaces.ShareRecord{
		ShareID:         ack.ShareID,
		DocID:           firstNonEmpty(ack.DocID, docID),
		DocTitle:        firstNonEmpty(ack.DocTitle, title),
		ShareURL:        ack.ShareURL,
		RequirePassword: ack.RequirePassword,
		IsPublic:        ack.IsPublic,
		ExpireAt:        ack.ExpireAt,
		CreatedAt:       ack.CreatedAt,
		UpdatedAt:       ack.UpdatedAt,
	}
	if _, err := s.shareRepo.Put(ctx, record); err != nil {
		logger.Warn("publish.persist_failed", "store", "share_record", "error", err)
		warnings = append(warnings, fmt.Sprintf("share record not saved: %v", err))
	}

	if len(uploaded) == 0 {
		return warnings
	}
	if _, err := s.assetRepo.Put(ctx, docID, ack.ShareID, uploaded); err != nil {
		logger.Warn("publish.persist_failed", "store", "asset_mapping", "error", err)
		warnings = append(warnings, fmt.Sprintf("asset mapping not saved: %v", err))
	}
	return warnings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
