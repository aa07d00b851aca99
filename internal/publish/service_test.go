package publish

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docshare/internal/assetrecord"
	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/objectstore"
	"github.com/goliatone/go-docshare/internal/sharerecord"
	"github.com/goliatone/go-docshare/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
)

const (
	docMain  = "20240101000000-docmain"
	docOther = "20240101000000-docothr"
	blockB   = "20240101000000-bbbbbbb"
)

type fakeSource struct {
	mu       sync.Mutex
	blocks   map[string]string
	binaries map[string][]byte
	fail     map[string]error
	binFetch map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		blocks:   map[string]string{},
		binaries: map[string][]byte{},
		fail:     map[string]error{},
		binFetch: map[string]int{},
	}
}

func (f *fakeSource) FetchBlockContent(_ context.Context, id string) (interfaces.BlockContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[id]; err != nil {
		return interfaces.BlockContent{}, err
	}
	content, ok := f.blocks[id]
	if !ok {
		return interfaces.BlockContent{}, fmt.Errorf("block %s not found", id)
	}
	return interfaces.BlockContent{ID: id, Content: content}, nil
}

func (f *fakeSource) FetchBinary(_ context.Context, localPath string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binFetch[localPath]++
	data, ok := f.binaries[localPath]
	if !ok {
		return nil, fmt.Errorf("asset %s not found", localPath)
	}
	return data, nil
}

func (f *fakeSource) ForwardProxy(context.Context, interfaces.ProxyRequest) error {
	return errors.New("not supported")
}

func (f *fakeSource) binaryFetches(localPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.binFetch[localPath]
}

type fakeRegistry struct {
	mu        sync.Mutex
	payloads  []interfaces.SharePayload
	deleted   []string
	submitErr error
	batch     func(ids []string) interfaces.BatchDeleteResult
	listing   []interfaces.ShareListItem
	listErr   error
	pages     []int
}

func (r *fakeRegistry) Submit(_ context.Context, payload interfaces.SharePayload) (interfaces.ShareAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitErr != nil {
		return interfaces.ShareAck{}, r.submitErr
	}
	r.payloads = append(r.payloads, payload)
	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return interfaces.ShareAck{
		ShareID:         "share-" + payload.DocID,
		ShareURL:        "https://share.test/s/share-" + payload.DocID,
		DocID:           payload.DocID,
		DocTitle:        payload.DocTitle,
		RequirePassword: payload.RequirePassword,
		IsPublic:        payload.IsPublic,
		ExpireAt:        created.AddDate(0, 0, payload.ExpireDays),
		CreatedAt:       created,
		UpdatedAt:       created,
	}, nil
}

func (r *fakeRegistry) Delete(_ context.Context, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, shareID)
	return nil
}

func (r *fakeRegistry) DeleteMany(_ context.Context, shareIDs []string) (interfaces.BatchDeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batch != nil {
		return r.batch(shareIDs), nil
	}
	r.deleted = append(r.deleted, shareIDs...)
	return interfaces.BatchDeleteResult{Deleted: shareIDs}, nil
}

func (r *fakeRegistry) List(_ context.Context, page, size int) (interfaces.ShareListPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
	if r.listErr != nil {
		return interfaces.ShareListPage{}, r.listErr
	}
	start := min((page-1)*size, len(r.listing))
	end := min(start+size, len(r.listing))
	return interfaces.ShareListPage{
		Items: append([]interfaces.ShareListItem{}, r.listing[start:end]...),
		Page:  page,
		Size:  size,
		Total: len(r.listing),
	}, nil
}

func (r *fakeRegistry) lastPayload(t *testing.T) interfaces.SharePayload {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.payloads) == 0 {
		t.Fatalf("expected a submitted payload")
	}
	return r.payloads[len(r.payloads)-1]
}

type fakeStore struct {
	mu          sync.Mutex
	enabled     bool
	validateErr error
	failNames   map[string]bool
	failDeletes map[string]bool
	uploads     []objectstore.File
	deletes     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{enabled: true, failNames: map[string]bool{}, failDeletes: map[string]bool{}}
}

func (s *fakeStore) Enabled() bool   { return s.enabled }
func (s *fakeStore) Validate() error { return s.validateErr }

func (s *fakeStore) Upload(_ context.Context, file objectstore.File, progress interfaces.ProgressFunc, hash string) (interfaces.UploadedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, file)
	if s.failNames[file.Name] {
		return interfaces.UploadedAsset{}, fault.Upload(errors.New("status 403"), "objectstore: upload rejected")
	}
	if progress != nil {
		progress(interfaces.UploadProgress{FileName: file.Name, Status: interfaces.UploadSuccess, Percentage: 100})
	}
	key := "docs/" + hash + objectstore.Ext(file.Name)
	return interfaces.UploadedAsset{
		LocalPath:   file.LocalPath,
		ObjectKey:   key,
		PublicURL:   "https://cdn.test/" + key,
		ContentType: objectstore.ContentType(file.Name),
		SizeBytes:   int64(len(file.Data)),
		ContentHash: hash,
	}, nil
}

func (s *fakeStore) DeleteMany(_ context.Context, keys []string) objectstore.DeleteManyResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result objectstore.DeleteManyResult
	for _, key := range keys {
		s.deletes = append(s.deletes, key)
		if s.failDeletes[key] {
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Success = append(result.Success, key)
	}
	return result
}

func (s *fakeStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

type fixture struct {
	source   *fakeSource
	registry *fakeRegistry
	store    *fakeStore
	assets   *assetrecord.MemoryRepository
	shares   *sharerecord.MemoryRepository
	service  *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		source:   newFakeSource(),
		registry: &fakeRegistry{},
		store:    newFakeStore(),
		assets:   assetrecord.NewMemoryRepository(),
		shares:   sharerecord.NewMemoryRepository(),
	}
	base := []Option{
		WithObjectStore(f.store),
		WithAssetRepository(f.assets),
		WithShareRepository(f.shares),
		WithRunIDGenerator(func() string { return "run-1" }),
	}
	f.service = NewService(f.source, f.registry, append(base, opts...)...)
	return f
}

func assetURL(data, ext string) string {
	return "https://cdn.test/docs/" + objectstore.Hash([]byte(data)) + ext
}

func TestPublishRewritesContentAndReferences(t *testing.T) {
	f := newFixture(t)
	f.source.blocks[docMain] = "---\ntitle: Field Notes\n---\n\nIntro ![pic](assets/a.png)\n\nSee ((" + blockB + " \"details\"))\n"
	f.source.blocks[blockB] = "Detail ![](assets/b.png)"
	f.source.binaries["assets/a.png"] = []byte("aaa")
	f.source.binaries["assets/b.png"] = []byte("bbb")

	var events []interfaces.UploadProgress
	result, err := f.service.Publish(context.Background(), Request{
		DocID:    docMain,
		Options:  ShareOptions{Password: "ignored", IsPublic: true},
		Progress: func(p interfaces.UploadProgress) { events = append(events, p) },
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.RunID != "run-1" {
		t.Fatalf("expected run id run-1, got %q", result.RunID)
	}
	if result.Degraded || len(result.Warnings) != 0 {
		t.Fatalf("expected clean publish, got degraded=%v warnings=%v", result.Degraded, result.Warnings)
	}

	payload := f.registry.lastPayload(t)
	if payload.DocTitle != "Field Notes" {
		t.Fatalf("expected title from front matter, got %q", payload.DocTitle)
	}
	if payload.ExpireDays != DefaultExpireDays {
		t.Fatalf("expected default expiry, got %d", payload.ExpireDays)
	}
	if payload.Password != "" {
		t.Fatalf("expected password to be dropped when not required")
	}
	if strings.Contains(payload.Content, "assets/a.png") || !strings.Contains(payload.Content, assetURL("aaa", ".png")) {
		t.Fatalf("expected rewritten content, got %q", payload.Content)
	}
	if !strings.Contains(payload.Content, "See [details]") {
		t.Fatalf("expected transformed block ref, got %q", payload.Content)
	}
	if len(payload.References) != 1 || payload.References[0].BlockID != blockB {
		t.Fatalf("expected one reference, got %+v", payload.References)
	}
	if !strings.Contains(payload.References[0].Content, assetURL("bbb", ".png")) {
		t.Fatalf("expected reference assets rewritten, got %q", payload.References[0].Content)
	}
	if len(payload.Assets) != 2 || len(events) != 2 {
		t.Fatalf("expected two uploads, got assets=%d events=%d", len(payload.Assets), len(events))
	}

	mapping, err := f.assets.Get(context.Background(), docMain)
	if err != nil || mapping.ShareID != "share-"+docMain || len(mapping.Assets) != 2 {
		t.Fatalf("expected stored mapping, got %+v err=%v", mapping, err)
	}
	record, err := f.shares.GetByDocID(context.Background(), docMain)
	if err != nil || record.DocTitle != "Field Notes" || record.ShareURL == "" {
		t.Fatalf("expected stored share record, got %+v err=%v", record, err)
	}
}

func TestPublishReusesAssetsByLocalPath(t *testing.T) {
	f := newFixture(t)
	prior := interfaces.UploadedAsset{LocalPath: "assets/a.png", ObjectKey: "docs/old.png", PublicURL: "https://cdn.test/docs/old.png", ContentHash: "old"}
	if _, err := f.assets.Put(context.Background(), docOther, "share-other", []interfaces.UploadedAsset{prior}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.source.blocks[docMain] = "![pic](assets/a.png)"

	result, err := f.service.Publish(context.Background(), Request{DocID: docMain})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if f.source.binaryFetches("assets/a.png") != 0 || f.store.uploadCount() != 0 {
		t.Fatalf("expected reuse without fetch or upload")
	}
	if !strings.Contains(result.Content, prior.PublicURL) {
		t.Fatalf("expected prior url in content, got %q", result.Content)
	}
	if result.Ack.DocTitle != docMain {
		t.Fatalf("expected doc id as fallback title, got %q", result.Ack.DocTitle)
	}
}

func TestPublishDeduplicatesByContentHash(t *testing.T) {
	f := newFixture(t)
	stored := interfaces.UploadedAsset{LocalPath: "assets/elsewhere.png", ObjectKey: "docs/known.png", PublicURL: "https://cdn.test/docs/known.png", ContentHash: objectstore.Hash([]byte("known"))}
	if _, err := f.assets.Put(context.Background(), docOther, "share-other", []interfaces.UploadedAsset{stored}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.source.blocks[docMain] = "![a](assets/a.png) ![c](assets/c.png) ![k](assets/k.png)"
	f.source.binaries["assets/a.png"] = []byte("same")
	f.source.binaries["assets/c.png"] = []byte("same")
	f.source.binaries["assets/k.png"] = []byte("known")

	result, err := f.service.Publish(context.Background(), Request{DocID: docMain})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if f.store.uploadCount() != 1 {
		t.Fatalf("expected one upload for identical bytes, got %d", f.store.uploadCount())
	}
	if strings.Contains(result.Content, "assets/") {
		t.Fatalf("expected every path rewritten, got %q", result.Content)
	}
	if !strings.Contains(result.Content, stored.PublicURL) {
		t.Fatalf("expected stored url for known hash, got %q", result.Content)
	}
	paths := make([]string, 0, len(result.Assets))
	for _, asset := range result.Assets {
		paths = append(paths, asset.LocalPath)
	}
	slices.Sort(paths)
	if !slices.Equal(paths, []string{"assets/a.png", "assets/c.png", "assets/k.png"}) {
		t.Fatalf("unexpected asset paths %v", paths)
	}
}

func TestPublishKeepsLocalPathWhenUploadFails(t *testing.T) {
	f := newFixture(t)
	f.store.failNames["b.png"] = true
	f.source.blocks[docMain] = "![a](assets/a.png) ![b](assets/b.png) ![m](assets/missing.png)"
	f.source.binaries["assets/a.png"] = []byte("aaa")
	f.source.binaries["assets/b.png"] = []byte("bbb")

	result, err := f.service.Publish(context.Background(), Request{DocID: docMain})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Degraded {
		t.Fatalf("per-asset failures must not degrade the publish")
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", result.Warnings)
	}
	if !strings.Contains(result.Content, "assets/b.png") || !strings.Contains(result.Content, "assets/missing.png") {
		t.Fatalf("expected failed paths kept, got %q", result.Content)
	}
	if !strings.Contains(result.Content, assetURL("aaa", ".png")) {
		t.Fatalf("expected successful upload rewritten, got %q", result.Content)
	}
}

func TestPublishDegradesWhenStorageInvalid(t *testing.T) {
	f := newFixture(t)
	f.store.validateErr = fault.Configuration(errors.New("bucket: cannot be blank"), "objectstore: invalid config")
	f.source.blocks[docMain] = "![a](assets/a.png)"
	f.source.binaries["assets/a.png"] = []byte("aaa")

	result, err := f.service.Publish(context.Background(), Request{DocID: docMain})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !result.Degraded || len(result.Warnings) != 1 {
		t.Fatalf("expected degraded publish with cause, got %+v", result)
	}
	if f.registry.lastPayload(t).Content != "![a](assets/a.png)" {
		t.Fatalf("expected un-rewritten content submitted")
	}
	if _, err := f.assets.Get(context.Background(), docMain); !errors.Is(err, assetrecord.ErrMappingNotFound) {
		t.Fatalf("expected no mapping, got %v", err)
	}
}

func TestPublishWithoutStorageKeepsLocalPaths(t *testing.T) {
	f := newFixture(t)
	f.store.enabled = false
	f.source.blocks[docMain] = "![a](assets/a.png)"

	result, err := f.service.Publish(context.Background(), Request{DocID: docMain})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Degraded || f.source.binaryFetches("assets/a.png") != 0 {
		t.Fatalf("expected storage to be skipped quietly")
	}
	if result.Content != "![a](assets/a.png)" {
		t.Fatalf("unexpected content %q", result.Content)
	}
}

func TestPublishRejectsInvalidOptions(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Publish(context.Background(), Request{
		DocID:   docMain,
		Options: ShareOptions{RequirePassword: true, Password: "abc"},
	})
	if !fault.Is(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.registry.payloads) != 0 {
		t.Fatalf("expected nothing submitted")
	}

	if _, err := f.service.Publish(context.Background(), Request{DocID: "  "}); !errors.Is(err, ErrDocIDRequired) {
		t.Fatalf("expected ErrDocIDRequired, got %v", err)
	}
}

func TestPublishSendsPasswordWhenRequired(t *testing.T) {
	f := newFixture(t)
	f.source.blocks[docMain] = "Hello"

	_, err := f.service.Publish(context.Background(), Request{
		DocID:    docMain,
		DocTitle: "Explicit",
		Options:  ShareOptions{RequirePassword: true, Password: "s3cret", ExpireDays: 7},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	payload := f.registry.lastPayload(t)
	if payload.Password != "s3cret" || payload.ExpireDays != 7 || payload.DocTitle != "Explicit" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPublishFailsOnFetchAndSubmitErrors(t *testing.T) {
	f := newFixture(t)
	f.source.fail[docMain] = fault.Fetch(errors.New("status 500"), "kernel: request failed")

	if _, err := f.service.Publish(context.Background(), Request{DocID: docMain}); !fault.Is(err, fault.CategoryFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	f.source.fail = map[string]error{}
	f.source.blocks[docMain] = "   \n"
	if _, err := f.service.Publish(context.Background(), Request{DocID: docMain}); !fault.Is(err, fault.CategoryParse) {
		t.Fatalf("expected parse error for blank document, got %v", err)
	}

	f.source.blocks[docMain] = "Hello"
	f.registry.submitErr = fault.Fetch(errors.New("status 401"), "registry: request failed")
	if _, err := f.service.Publish(context.Background(), Request{DocID: docMain}); err == nil {
		t.Fatalf("expected submit error")
	}
	if _, err := f.shares.GetByDocID(context.Background(), docMain); !errors.Is(err, sharerecord.ErrRecordNotFound) {
		t.Fatalf("expected no record after failed submit, got %v", err)
	}
}

func TestUnpublishKeepsSharedObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.blocks[docMain] = "![a](assets/a.png) ![b](assets/b.png)"
	f.source.blocks[docOther] = "![a](assets/a.png)"
	f.source.binaries["assets/a.png"] = []byte("aaa")
	f.source.binaries["assets/b.png"] = []byte("bbb")

	if _, err := f.service.Publish(ctx, Request{DocID: docMain}); err != nil {
		t.Fatalf("publish main: %v", err)
	}
	if _, err := f.service.Publish(ctx, Request{DocID: docOther}); err != nil {
		t.Fatalf("publish other: %v", err)
	}

	result, err := f.service.Unpublish(ctx, docMain)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	sharedKey := "docs/" + objectstore.Hash([]byte("aaa")) + ".png"
	uniqueKey := "docs/" + objectstore.Hash([]byte("bbb")) + ".png"
	if !slices.Equal(result.DeletedKeys, []string{uniqueKey}) || !slices.Equal(result.RetainedKeys, []string{sharedKey}) {
		t.Fatalf("unexpected result %+v", result)
	}
	if !slices.Equal(f.registry.deleted, []string{"share-" + docMain}) {
		t.Fatalf("unexpected registry deletes %v", f.registry.deleted)
	}
	if _, err := f.assets.Get(ctx, docMain); !errors.Is(err, assetrecord.ErrMappingNotFound) {
		t.Fatalf("expected mapping removed, got %v", err)
	}
	if _, err := f.shares.GetByDocID(ctx, docMain); !errors.Is(err, sharerecord.ErrRecordNotFound) {
		t.Fatalf("expected record removed, got %v", err)
	}
	other, err := f.assets.Get(ctx, docOther)
	if err != nil || len(other.Assets) != 1 || other.Assets[0].ObjectKey != sharedKey {
		t.Fatalf("expected other mapping intact, got %+v err=%v", other, err)
	}
}

func TestUnpublishKeepsFailedKeysForRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.blocks[docMain] = "![a](assets/a.png)"
	f.source.binaries["assets/a.png"] = []byte("aaa")
	if _, err := f.service.Publish(ctx, Request{DocID: docMain}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	key := "docs/" + objectstore.Hash([]byte("aaa")) + ".png"
	f.store.failDeletes[key] = true

	result, err := f.service.Unpublish(ctx, docMain)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if !slices.Equal(result.FailedKeys, []string{key}) || len(result.Warnings) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	mapping, err := f.assets.Get(ctx, docMain)
	if err != nil || len(mapping.Assets) != 1 {
		t.Fatalf("expected mapping kept for failed key, got %+v err=%v", mapping, err)
	}

	f.store.mu.Lock()
	delete(f.store.failDeletes, key)
	f.store.mu.Unlock()
	registryCalls := len(f.registry.deleted)

	retry, err := f.service.Unpublish(ctx, docMain)
	if err != nil {
		t.Fatalf("retry unpublish: %v", err)
	}
	if !slices.Equal(retry.DeletedKeys, []string{key}) || len(retry.FailedKeys) != 0 {
		t.Fatalf("unexpected retry result %+v", retry)
	}
	if retry.ShareID != "share-"+docMain {
		t.Fatalf("expected share id from mapping, got %q", retry.ShareID)
	}
	if len(f.registry.deleted) != registryCalls {
		t.Fatalf("expected no registry call on retry, got %v", f.registry.deleted)
	}
	if _, err := f.assets.Get(ctx, docMain); !errors.Is(err, assetrecord.ErrMappingNotFound) {
		t.Fatalf("expected mapping removed after retry, got %v", err)
	}
	if _, err := f.service.Unpublish(ctx, docMain); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished once nothing is left, got %v", err)
	}
}

func TestUnpublishUnknownDocument(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Unpublish(context.Background(), docMain); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}
}

func TestUnpublishMany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.blocks[docMain] = "Main"
	f.source.blocks[docOther] = "Other"
	for _, id := range []string{docMain, docOther} {
		if _, err := f.service.Publish(ctx, Request{DocID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	f.registry.batch = func(ids []string) interfaces.BatchDeleteResult {
		return interfaces.BatchDeleteResult{
			NotFound: []string{"share-" + docMain},
			Failed:   map[string]string{"share-" + docOther: "locked"},
		}
	}

	result, err := f.service.UnpublishMany(ctx, []string{docMain, docOther, "20240101000000-unknown"})
	if err != nil {
		t.Fatalf("unpublish many: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].DocID != docMain {
		t.Fatalf("expected main cleaned up, got %+v", result.Results)
	}
	if result.Failed[docOther] != "locked" {
		t.Fatalf("expected failure reason for other, got %v", result.Failed)
	}
	if !slices.Equal(result.NotPublished, []string{"20240101000000-unknown"}) {
		t.Fatalf("unexpected not published list %v", result.NotPublished)
	}
	if _, err := f.shares.GetByDocID(ctx, docOther); err != nil {
		t.Fatalf("expected failed share record kept, got %v", err)
	}
}

func TestShareOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		options ShareOptions
		wantErr bool
	}{
		{name: "defaults", options: ShareOptions{}.withDefaults()},
		{name: "max expiry", options: ShareOptions{ExpireDays: MaxExpireDays}},
		{name: "too long", options: ShareOptions{ExpireDays: MaxExpireDays + 1}, wantErr: true},
		{name: "negative", options: ShareOptions{ExpireDays: -1}, wantErr: true},
		{name: "password ok", options: ShareOptions{ExpireDays: 1, RequirePassword: true, Password: "abcd"}},
		{name: "password missing", options: ShareOptions{ExpireDays: 1, RequirePassword: true}, wantErr: true},
		{name: "password ignored", options: ShareOptions{ExpireDays: 1, Password: "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.options.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v got %v", tc.wantErr, err)
			}
		})
	}
}
