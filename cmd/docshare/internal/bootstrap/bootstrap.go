package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-docshare"
	"github.com/goliatone/go-docshare/internal/di"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/internal/publish"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// Options captures configuration for CLI bootstraps.
type Options struct {
	ConfigPath     string
	LoggerProvider interfaces.LoggerProvider
}

// Publisher is the part of the publish service the CLI drives.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request) (publish.Result, error)
	Unpublish(ctx context.Context, docID string) (publish.UnpublishResult, error)
	UnpublishMany(ctx context.Context, docIDs []string) (publish.UnpublishManyResult, error)
	Sync(ctx context.Context) (publish.SyncResult, error)
}

// Module wraps the docshare module and the services the commands use.
type Module struct {
	Module    *docshare.Module
	Publisher Publisher
	Storage   publish.ObjectStore
	Logger    interfaces.Logger
}

// Close releases the wrapped module, if any.
func (m *Module) Close() error {
	if m == nil || m.Module == nil {
		return nil
	}
	return m.Module.Close()
}

// LoadConfig reads the config file, or the defaults plus environment
// overrides when path is empty.
func LoadConfig(path string) (docshare.Config, error) {
	cfg, err := docshare.LoadConfig(strings.TrimSpace(path))
	if err != nil {
		return docshare.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// BuildModule constructs a docshare module from the config file.
func BuildModule(opts Options) (*Module, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := docshare.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise docshare module: %w", err)
	}

	container := module.Container()
	return &Module{
		Module:    module,
		Publisher: container.PublishService(),
		Storage:   container.ObjectStore(),
		Logger:    logging.ModuleLogger(container.LoggerProvider(), "docshare.cli"),
	}, nil
}

// SplitIDs parses a comma separated id list into a trimmed slice.
func SplitIDs(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
