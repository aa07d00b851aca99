package objectstore

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/signing"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeStore struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (f *fakeStore) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	status := f.status
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<Error>status</Error>"))
}

func (f *fakeStore) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newFakeStore(t *testing.T, status int) (*fakeStore, *httptest.Server) {
	t.Helper()
	store := &fakeStore{status: status}
	server := httptest.NewServer(http.HandlerFunc(store.handler))
	t.Cleanup(server.Close)
	return store, server
}

func testConfig(endpoint string) Config {
	return Config{
		Enabled:         true,
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "media",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PathPrefix:      "docs/",
	}
}

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	client, err := NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

type progressLog struct {
	mu     sync.Mutex
	events []interfaces.UploadProgress
}

func (p *progressLog) snapshot() []interfaces.UploadProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interfaces.UploadProgress(nil), p.events...)
}

func (p *progressLog) record(event interfaces.UploadProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func TestUploadSignsAndStoresObject(t *testing.T) {
	store, server := newFakeStore(t, http.StatusOK)
	client := newTestClient(t, testConfig(server.URL))
	progress := &progressLog{}
	data := []byte("hello world")

	asset, err := client.Upload(context.Background(), File{
		Name:      "a.png",
		LocalPath: "assets/a.png",
		Data:      data,
	}, progress.record, "")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	wantKey := "docs/1705314600000-b94d27b9934d3e08.png"
	if asset.ObjectKey != wantKey {
		t.Fatalf("expected key %s, got %s", wantKey, asset.ObjectKey)
	}
	if asset.PublicURL != server.URL+"/media/"+wantKey {
		t.Fatalf("unexpected public URL %s", asset.PublicURL)
	}
	if asset.ContentType != "image/png" || asset.SizeBytes != int64(len(data)) || asset.ContentHash != "b94d27b9934d3e08" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.LocalPath != "assets/a.png" || asset.UploadedAtEpochMs != fixedNow.UnixMilli() {
		t.Fatalf("unexpected asset %+v", asset)
	}

	if len(store.recorded()) != 1 {
		t.Fatalf("expected one request, got %d", len(store.recorded()))
	}
	req := store.recorded()[0]
	if req.Method != http.MethodPut || req.Path != "/media/"+wantKey {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if string(req.Body) != "hello world" {
		t.Fatalf("unexpected body %q", req.Body)
	}
	if !strings.HasPrefix(req.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240115/us-east-1/s3/aws4_request") {
		t.Fatalf("unexpected Authorization %q", req.Header.Get("Authorization"))
	}
	if req.Header.Get("X-Amz-Content-Sha256") != signing.UnsignedPayload || req.Header.Get("X-Amz-Date") != "20240115T103000Z" {
		t.Fatalf("missing amz headers: %v", req.Header)
	}
	if req.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %q", req.Header.Get("Content-Type"))
	}

	events := progress.snapshot()
	if len(events) < 3 {
		t.Fatalf("expected at least 3 progress events, got %d", len(events))
	}
	if events[0].Status != interfaces.UploadPending {
		t.Fatalf("expected pending first, got %s", events[0].Status)
	}
	if events[1].Status != interfaces.UploadUploading || events[1].BytesSent != 0 {
		t.Fatalf("expected uploading second, got %+v", events[1])
	}
	last := events[len(events)-1]
	if last.Status != interfaces.UploadSuccess || last.Percentage != 100 || last.BytesSent != int64(len(data)) {
		t.Fatalf("expected success last, got %+v", last)
	}
	sawBytes := false
	for _, event := range events {
		if event.Status == interfaces.UploadUploading && event.BytesSent == int64(len(data)) {
			sawBytes = true
		}
	}
	if !sawBytes {
		t.Fatalf("expected byte-level progress, got %+v", events)
	}
}

func TestUploadUsesCustomDomainAndPrecomputedHash(t *testing.T) {
	_, server := newFakeStore(t, http.StatusOK)
	cfg := testConfig(server.URL)
	cfg.CustomDomain = "https://cdn.example.com/"
	cfg.PathPrefix = ""
	client := newTestClient(t, cfg)

	asset, err := client.Upload(context.Background(), File{Name: "clip.mp4", Data: []byte("x")}, nil, "feedfacecafebeef")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	want := "https://cdn.example.com/siyuan-share/1705314600000-feedfacecafebeef.mp4"
	if asset.PublicURL != want {
		t.Fatalf("expected %s, got %s", want, asset.PublicURL)
	}
	if asset.ContentType != "video/mp4" {
		t.Fatalf("unexpected content type %s", asset.ContentType)
	}
}

func TestUploadFailsFastOnIncompleteConfig(t *testing.T) {
	store, server := newFakeStore(t, http.StatusOK)
	cfg := testConfig(server.URL)
	cfg.Bucket = ""
	client := newTestClient(t, cfg)
	progress := &progressLog{}

	_, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, progress.record, "")
	if !fault.Is(err, fault.CategoryConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(store.recorded()) != 0 {
		t.Fatalf("expected no network call, got %d", len(store.recorded()))
	}
	if len(progress.snapshot()) != 0 {
		t.Fatalf("expected no progress events, got %d", len(progress.snapshot()))
	}

	disabled := testConfig(server.URL)
	disabled.Enabled = false
	if err := newTestClient(t, disabled).Delete(context.Background(), "k"); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected ErrStorageDisabled, got %v", err)
	}
}

func TestUploadHTTPErrorDoesNotUseProxy(t *testing.T) {
	_, server := newFakeStore(t, http.StatusForbidden)
	proxy := &stubProxy{}
	client := newTestClient(t, testConfig(server.URL), WithProxy(proxy))
	progress := &progressLog{}

	_, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, progress.record, "")
	if !fault.Is(err, fault.CategoryUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if len(proxy.requests) != 0 {
		t.Fatalf("expected no proxy call, got %d", len(proxy.requests))
	}
	events := progress.snapshot()
	last := events[len(events)-1]
	if last.Status != interfaces.UploadError || last.Error == "" {
		t.Fatalf("expected error progress, got %+v", last)
	}
}

func TestUploadFallsBackToProxyOnTransportError(t *testing.T) {
	proxy := &stubProxy{}
	doer := &failingDoer{err: errors.New("dial tcp: connection refused")}
	cfg := testConfig("http://127.0.0.1:9000")
	client := newTestClient(t, cfg, WithHTTPClient(doer), WithProxy(proxy))

	asset, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("payload")}, nil, "")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if doer.calls != 1 {
		t.Fatalf("expected one direct attempt, got %d", doer.calls)
	}
	if len(proxy.requests) != 1 {
		t.Fatalf("expected one proxy call, got %d", len(proxy.requests))
	}
	relayed := proxy.requests[0]
	if relayed.Method != http.MethodPut || relayed.URL != asset.PublicURL {
		t.Fatalf("unexpected proxied request %+v", relayed)
	}
	decoded, err := base64.StdEncoding.DecodeString(relayed.Payload)
	if err != nil || string(decoded) != "payload" {
		t.Fatalf("unexpected payload %q (%v)", relayed.Payload, err)
	}
	for name := range relayed.Headers {
		if strings.EqualFold(name, "Host") {
			t.Fatal("expected Host header to be stripped")
		}
	}
	if relayed.Headers["Authorization"] == "" || relayed.Headers["X-Amz-Date"] == "" {
		t.Fatalf("expected signed headers to be relayed, got %v", relayed.Headers)
	}
}

func TestUploadProxyFailureIsFinal(t *testing.T) {
	proxy := &stubProxy{err: errors.New("forwardProxy: code 1")}
	client := newTestClient(t, testConfig("http://127.0.0.1:9000"),
		WithHTTPClient(&failingDoer{err: errors.New("reset by peer")}),
		WithProxy(proxy))

	_, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, nil, "")
	if !fault.Is(err, fault.CategoryUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if len(proxy.requests) != 1 {
		t.Fatalf("expected exactly one proxy attempt, got %d", len(proxy.requests))
	}
}

func TestUploadTransportErrorWithoutProxy(t *testing.T) {
	client := newTestClient(t, testConfig("http://127.0.0.1:9000"),
		WithHTTPClient(&failingDoer{err: errors.New("no route to host")}))

	_, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, nil, "")
	if !fault.Is(err, fault.CategoryTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestUploadFallsBackToProxyOnRefusedConnection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	endpoint := "http://" + listener.Addr().String()
	_ = listener.Close()

	proxy := &stubProxy{}
	client := newTestClient(t, testConfig(endpoint),
		WithHTTPClient(&http.Client{}),
		WithProxy(proxy))

	if _, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, nil, ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if len(proxy.requests) != 1 {
		t.Fatalf("expected one proxy call, got %d", len(proxy.requests))
	}
}

func TestDeleteFallsBackToProxyOnTransportError(t *testing.T) {
	proxy := &stubProxy{}
	client := newTestClient(t, testConfig("http://127.0.0.1:9000"),
		WithHTTPClient(&failingDoer{err: errors.New("connection reset")}),
		WithProxy(proxy))

	if err := client.Delete(context.Background(), "docs/a.png"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(proxy.requests) != 1 || proxy.requests[0].Method != http.MethodDelete {
		t.Fatalf("expected one proxied DELETE, got %+v", proxy.requests)
	}
}

type blockingDoer struct{}

func (blockingDoer) Do(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestUploadDeadlineIsTimeoutWithoutProxy(t *testing.T) {
	proxy := &stubProxy{}
	client := newTestClient(t, testConfig("http://127.0.0.1:9000"),
		WithHTTPClient(blockingDoer{}),
		WithRequestTimeout(10*time.Millisecond),
		WithProxy(proxy))

	_, err := client.Upload(context.Background(), File{Name: "a.png", Data: []byte("x")}, nil, "")
	if !fault.Is(err, fault.CategoryTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if len(proxy.requests) != 0 {
		t.Fatalf("expected no proxy call, got %d", len(proxy.requests))
	}
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	store, server := newFakeStore(t, http.StatusNotFound)
	client := newTestClient(t, testConfig(server.URL))

	if err := client.Delete(context.Background(), "docs/a.png"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	req := store.recorded()[0]
	if req.Method != http.MethodDelete || req.Path != "/media/docs/a.png" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Header.Get("Content-Type") != "" {
		t.Fatalf("expected no content type on delete, got %q", req.Header.Get("Content-Type"))
	}
}

func TestDeleteManyCollectsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "bad.png") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	client := newTestClient(t, testConfig(server.URL))

	result := client.DeleteMany(context.Background(), []string{"docs/a.png", "docs/bad.png", "docs/c.png"})
	if len(result.Success) != 2 || result.Success[0] != "docs/a.png" || result.Success[1] != "docs/c.png" {
		t.Fatalf("unexpected success list %v", result.Success)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "docs/bad.png" {
		t.Fatalf("unexpected failed list %v", result.Failed)
	}
}

func TestOSSProviderHeaders(t *testing.T) {
	store, server := newFakeStore(t, http.StatusOK)
	cfg := testConfig(server.URL)
	cfg.Provider = signing.ProviderOSS
	client := newTestClient(t, cfg)

	if _, err := client.Upload(context.Background(), File{Name: "a.gif", Data: []byte("gif")}, nil, ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	req := store.recorded()[0]
	if !strings.HasPrefix(req.Header.Get("Authorization"), "OSS AKIDEXAMPLE:") {
		t.Fatalf("unexpected Authorization %q", req.Header.Get("Authorization"))
	}
	if req.Header.Get("Date") != "Mon, 15 Jan 2024 10:30:00 GMT" {
		t.Fatalf("unexpected Date %q", req.Header.Get("Date"))
	}
}

func TestUploadAcceptsMixedCaseProviderAndAddressing(t *testing.T) {
	store, server := newFakeStore(t, http.StatusOK)
	cfg := testConfig(server.URL)
	cfg.Provider = " OSS "
	cfg.Addressing = "Path"
	client := newTestClient(t, cfg)

	if _, err := client.Upload(context.Background(), File{Name: "a.gif", Data: []byte("gif")}, nil, ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if err := client.Delete(context.Background(), "docs/a.gif"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	reqs := store.recorded()
	if len(reqs) != 2 || !strings.HasPrefix(reqs[0].Header.Get("Authorization"), "OSS ") {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	if got := client.Config(); got.Provider != signing.ProviderOSS || got.Addressing != AddressingPath {
		t.Fatalf("expected normalized config, got %q/%q", got.Provider, got.Addressing)
	}
}

func TestHash(t *testing.T) {
	if got := Hash([]byte("hello world")); got != "b94d27b9934d3e08" {
		t.Fatalf("Hash = %s", got)
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:9000")
	cfg.Provider = "gcs"
	if _, err := NewClient(cfg); !fault.Is(err, fault.CategoryConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type stubProxy struct {
	requests []interfaces.ProxyRequest
	err      error
}

func (s *stubProxy) ForwardProxy(_ context.Context, req interfaces.ProxyRequest) error {
	s.requests = append(s.requests, req)
	return s.err
}

type failingDoer struct {
	calls int
	err   error
}

func (f *failingDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}
	return nil, f.err
}
