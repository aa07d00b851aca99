package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/goliatone/go-docshare/cmd/docshare/internal/bootstrap"
	"github.com/goliatone/go-docshare/internal/publish"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

var (
	moduleBuilder = bootstrap.BuildModule
	configLoader  = bootstrap.LoadConfig
)

var errUsage = errors.New("usage: docshare <publish|unpublish|sync|validate> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("docshare: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "publish":
		return runPublish(ctx, args[1:], out)
	case "unpublish":
		return runUnpublish(ctx, args[1:], out)
	case "sync":
		return runSync(ctx, args[1:], out)
	case "validate":
		return runValidate(args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func runPublish(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	docID := fs.String("doc", "", "Document id to publish")
	title := fs.String("title", "", "Share title (defaults to the document front matter title)")
	requirePassword := fs.Bool("require-password", false, "Protect the share with a password")
	password := fs.String("password", "", "Share password, at least 4 characters")
	expireDays := fs.Int("expire-days", publish.DefaultExpireDays, "Days until the share expires (1-365)")
	public := fs.Bool("public", false, "List the share publicly")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*docID) == "" {
		return fmt.Errorf("doc is required")
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	result, err := module.Publisher.Publish(ctx, publish.Request{
		DocID:    *docID,
		DocTitle: *title,
		Options: publish.ShareOptions{
			RequirePassword: *requirePassword,
			Password:        *password,
			ExpireDays:      *expireDays,
			IsPublic:        *public,
		},
		Progress: func(p interfaces.UploadProgress) {
			module.Logger.Debug("cli.upload.progress", "file", p.FileName, "status", p.Status, "percent", p.Percentage)
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", *docID, err)
	}
	return writeJSON(out, map[string]any{
		"runId":      result.RunID,
		"shareId":    result.Ack.ShareID,
		"shareUrl":   result.Ack.ShareURL,
		"reused":     result.Ack.Reused,
		"assets":     len(result.Assets),
		"references": len(result.References),
		"warnings":   result.Warnings,
		"degraded":   result.Degraded,
	})
}

func runUnpublish(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("unpublish", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	docs := fs.String("doc", "", "Comma separated document ids to unpublish")

	if err := fs.Parse(args); err != nil {
		return err
	}
	ids := bootstrap.SplitIDs(*docs)
	if len(ids) == 0 {
		return fmt.Errorf("doc is required")
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	if len(ids) == 1 {
		result, err := module.Publisher.Unpublish(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("unpublish %s: %w", ids[0], err)
		}
		return writeJSON(out, result)
	}
	result, err := module.Publisher.UnpublishMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("unpublish: %w", err)
	}
	return writeJSON(out, result)
}

func runSync(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	result, err := module.Publisher.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return writeJSON(out, result)
}

func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := configLoader(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Storage.Enabled {
		module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
		if err != nil {
			return fmt.Errorf("bootstrap module: %w", err)
		}
		defer module.Close()
		if err := module.Storage.Validate(); err != nil {
			return fmt.Errorf("invalid storage configuration: %w", err)
		}
	}
	fmt.Fprintln(out, "configuration valid")
	return nil
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
