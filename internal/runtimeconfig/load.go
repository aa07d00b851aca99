package runtimeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file.
const (
	EnvKernelToken       = "DOCSHARE_KERNEL_TOKEN"
	EnvRegistryToken     = "DOCSHARE_REGISTRY_TOKEN"
	EnvS3AccessKeyID     = "DOCSHARE_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "DOCSHARE_S3_SECRET_ACCESS_KEY"
)

// Load reads the YAML file at path over DefaultConfig and applies the
// environment overrides. An empty path yields the defaults plus overrides.
// The result is not validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("docshare config: read %s: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("docshare config: %s: %w", path, err)
		}
	}
	return ApplyEnv(cfg, os.LookupEnv), nil
}

// Parse decodes YAML over DefaultConfig. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv replaces secrets with non-empty values returned by lookup.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if lookup == nil {
		return cfg
	}
	override := func(target *string, key string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*target = value
		}
	}
	override(&cfg.Kernel.Token, EnvKernelToken)
	override(&cfg.Registry.Token, EnvRegistryToken)
	override(&cfg.Storage.AccessKeyID, EnvS3AccessKeyID)
	override(&cfg.Storage.SecretAccessKey, EnvS3SecretAccessKey)
	return cfg
}
