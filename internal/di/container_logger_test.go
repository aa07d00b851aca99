package di_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-docshare/internal/di"
	"github.com/goliatone/go-docshare/internal/runtimeconfig"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

func TestContainerLogsConfiguration(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Registry.ServerURL = "https://share.example.com"

	rec := newRecordingProvider()

	if _, err := di.NewContainer(cfg, di.WithLoggerProvider(rec)); err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	entry := rec.find("container.configured")
	if entry == nil {
		t.Fatalf("expected container.configured log entry, got %#v", rec.entries)
	}
	if got := entry.fields["persistence"]; got != "memory" {
		t.Fatalf("expected persistence field to be memory, got %v", got)
	}
	if got := entry.fields["storage_enabled"]; got != false {
		t.Fatalf("expected storage to be disabled by default, got %v", got)
	}
	if got := entry.fields["module"]; got != "docshare.container" {
		t.Fatalf("expected module field to be docshare.container, got %v", got)
	}
}

type recordingProvider struct {
	mu      sync.Mutex
	entries []recordedEntry
}

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{entries: []recordedEntry{}}
}

func (p *recordingProvider) GetLogger(name string) interfaces.Logger {
	return &recordingLogger{
		provider: p,
		fields: map[string]any{
			"logger": name,
		},
	}
}

func (p *recordingProvider) record(entry recordedEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
}

func (p *recordingProvider) find(msg string) *recordedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.entries {
		if p.entries[i].msg == msg {
			return &p.entries[i]
		}
	}
	return nil
}

type recordingLogger struct {
	provider *recordingProvider
	fields   map[string]any
}

var _ interfaces.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) Trace(msg string, args ...any) { l.log("TRACE", msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.log("FATAL", msg, args...) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for key, value := range l.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}
	return &recordingLogger{
		provider: l.provider,
		fields:   merged,
	}
}

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger {
	return &recordingLogger{
		provider: l.provider,
		fields:   cloneFields(l.fields),
	}
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	fields := cloneFields(l.fields)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			break
		}
		key, _ := args[i].(string)
		if key == "" {
			continue
		}
		fields[key] = args[i+1]
	}
	l.provider.record(recordedEntry{
		level:  level,
		msg:    msg,
		fields: fields,
	})
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func TestContainerEnablesRepositoryCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Registry.ServerURL = "https://share.example.com"
	cfg.Persistence.Driver = "sqlite"
	cfg.Persistence.DSN = "file:di_repository_cache?mode=memory&cache=shared"
	cfg.Persistence.Cache = true

	rec := newRecordingProvider()
	container, err := di.NewContainer(cfg, di.WithLoggerProvider(rec))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	entry := rec.find("container.configured")
	if entry == nil || entry.fields["repository_cache"] != true {
		t.Fatalf("expected repository cache enabled, got %#v", entry)
	}

	ctx := context.Background()
	asset := interfaces.UploadedAsset{LocalPath: "assets/a.png", ObjectKey: "docs/a.png", ContentHash: "abc"}
	if _, err := container.Stores().Assets.Put(ctx, "doc-1", "share-1", []interfaces.UploadedAsset{asset}); err != nil {
		t.Fatalf("put mapping: %v", err)
	}
	mapping, err := container.Stores().Assets.Get(ctx, "doc-1")
	if err != nil || len(mapping.Assets) != 1 || mapping.ShareID != "share-1" {
		t.Fatalf("expected cached store to read back mapping, got %+v err=%v", mapping, err)
	}
}

func TestContainerRepositoryCacheNeedsCacheEnabled(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Registry.ServerURL = "https://share.example.com"
	cfg.Cache.Enabled = false
	cfg.Persistence.Cache = true

	rec := newRecordingProvider()
	if _, err := di.NewContainer(cfg, di.WithLoggerProvider(rec)); err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	entry := rec.find("container.configured")
	if entry == nil || entry.fields["repository_cache"] != false {
		t.Fatalf("expected repository cache disabled, got %#v", entry)
	}
}
