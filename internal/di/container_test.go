package di_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-docshare/internal/di"
	"github.com/goliatone/go-docshare/internal/publish"
	"github.com/goliatone/go-docshare/internal/runtimeconfig"
)

const (
	rootDoc  = "20240101000000-rootdoc"
	childDoc = "20240101000000-childbk"
)

// backend plays kernel, registry and bucket on one server.
type backend struct {
	mu      sync.Mutex
	puts    []string
	created []map[string]any
	deleted []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	blocks := map[string]string{
		rootDoc:  "# Root\n\n![diagram](assets/diagram.png)\n\nSee ((" + childDoc + " \"child\"))",
		childDoc: "Child body",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/block/getBlockKramdown", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content, ok := blocks[body.ID]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": -1, "msg": "block not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"id": body.ID, "kramdown": content},
		})
	})
	mux.HandleFunc("/assets/diagram.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodDelete {
			t.Errorf("unexpected bucket method %s", r.Method)
		}
		if r.Header.Get("Authorization") == "" {
			t.Errorf("expected signed bucket request")
		}
		_, _ = io.Copy(io.Discard, r.Body)
		if r.Method == http.MethodPut {
			b.mu.Lock()
			b.puts = append(b.puts, r.URL.Path)
			b.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/share/create", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer registry-token" {
			t.Errorf("unexpected registry auth %q", r.Header.Get("Authorization"))
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		b.mu.Lock()
		b.created = append(b.created, payload)
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"shareId":  "share-1",
				"shareUrl": "https://share.example.com/s/share-1",
				"docId":    payload["docId"],
				"docTitle": payload["docTitle"],
			},
		})
	})
	mux.HandleFunc("/api/share/share-1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, "share-1")
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0})
	})
	return mux
}

func (b *backend) snapshot() (puts []string, created []map[string]any, deleted []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.puts...), append([]map[string]any(nil), b.created...), append([]string(nil), b.deleted...)
}

func newWiredContainer(t *testing.T) (*di.Container, *backend) {
	t.Helper()
	b := &backend{}
	server := httptest.NewServer(b.handler(t))
	t.Cleanup(server.Close)

	cfg := runtimeconfig.DefaultConfig()
	cfg.Kernel.BaseURL = server.URL
	cfg.Kernel.Token = "kernel-token"
	cfg.Registry.ServerURL = server.URL
	cfg.Registry.Token = "registry-token"
	cfg.Storage.Enabled = true
	cfg.Storage.Endpoint = server.URL
	cfg.Storage.Region = "us-east-1"
	cfg.Storage.Bucket = "media"
	cfg.Storage.AccessKeyID = "AKID"
	cfg.Storage.SecretAccessKey = "secret"
	cfg.Persistence.Driver = "sqlite"
	cfg.Persistence.DSN = "file:di_container?mode=memory&cache=shared"
	cfg.Logging.Level = "error"

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container, b
}

func TestContainerPublishesEndToEnd(t *testing.T) {
	container, b := newWiredContainer(t)
	ctx := context.Background()

	result, err := container.PublishService().Publish(ctx, publish.Request{DocID: rootDoc, DocTitle: "Root"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Ack.ShareID != "share-1" {
		t.Fatalf("unexpected ack %+v", result.Ack)
	}
	puts, created, _ := b.snapshot()
	if len(puts) != 1 || !strings.HasPrefix(puts[0], "/media/siyuan-share/") || !strings.HasSuffix(puts[0], ".png") {
		t.Fatalf("expected one path-style upload, got %v", puts)
	}
	if len(created) != 1 {
		t.Fatalf("expected one share submission, got %d", len(created))
	}
	content, _ := created[0]["content"].(string)
	if strings.Contains(content, "assets/diagram.png") || !strings.Contains(content, "See [child]") {
		t.Fatalf("unexpected submitted content %q", content)
	}
	refs, _ := created[0]["references"].([]any)
	if len(refs) != 1 {
		t.Fatalf("expected one reference, got %v", created[0]["references"])
	}

	mapping, err := container.Stores().Assets.Get(ctx, rootDoc)
	if err != nil || len(mapping.Assets) != 1 {
		t.Fatalf("expected persisted mapping, got %+v err=%v", mapping, err)
	}

	if _, err := container.PublishService().Unpublish(ctx, rootDoc); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	_, _, deleted := b.snapshot()
	if len(deleted) != 1 {
		t.Fatalf("expected registry delete, got %v", deleted)
	}
	if _, err := container.Stores().Shares.GetByDocID(ctx, rootDoc); err == nil {
		t.Fatalf("expected share record removed")
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if _, err := di.NewContainer(cfg); err == nil {
		t.Fatalf("expected validation error without registry server")
	}
}

func TestContainerDisablesCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Registry.ServerURL = "https://share.example.com"
	cfg.Cache.Enabled = false

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	if _, cached := container.ContentSource().(interface{ Flush() }); cached {
		t.Fatalf("expected uncached kernel source")
	}
	if container.ObjectStore().Enabled() {
		t.Fatalf("expected storage disabled by default")
	}
}
