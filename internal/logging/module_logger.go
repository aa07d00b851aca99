package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	rootModule     = "docshare"
	publishModule  = "docshare.publish"
	resolverModule = "docshare.references"
	storageModule  = "docshare.objectstore"
	kernelModule   = "docshare.kernel"
	registryModule = "docshare.registry"
	kramdownModule = "docshare.kramdown"
)

const (
	fieldRunID = "run_id"
	fieldDocID = "doc_id"
)

// ModuleLogger returns a logger scoped to module. A no-op logger is used
// when provider is nil or returns nil.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// PublishLogger returns the logger used by the publish orchestrator.
func PublishLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishModule)
}

// ResolverLogger returns the logger used by the reference resolver.
func ResolverLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, resolverModule)
}

// StorageLogger returns the logger used by the object store client.
func StorageLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storageModule)
}

// KernelLogger returns the logger used by the kernel content source.
func KernelLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, kernelModule)
}

// RegistryLogger returns the logger used by the share registry client.
func RegistryLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, registryModule)
}

// KramdownLogger returns the logger used by the format transformer.
func KramdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, kramdownModule)
}

// WithPublishContext attaches the publish run and document identifiers.
// Empty values are skipped.
func WithPublishContext(logger interfaces.Logger, runID, docID string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(runID); trimmed != "" {
		fields[fieldRunID] = trimmed
	}
	if trimmed := strings.TrimSpace(docID); trimmed != "" {
		fields[fieldDocID] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
