package objectstore

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/signing"
)

// DefaultPathPrefix is used when Config.PathPrefix is empty.
const DefaultPathPrefix = "siyuan-share"

// ErrStorageDisabled is returned by every operation when storage is off.
var ErrStorageDisabled = errors.New("objectstore: storage is disabled")

// Addressing selects how the bucket is placed in object URLs.
type Addressing string

const (
	AddressingAuto    Addressing = "auto"
	AddressingPath    Addressing = "path"
	AddressingVirtual Addressing = "virtual"
)

// Config describes the target bucket and its credentials.
type Config struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	CustomDomain    string
	PathPrefix      string
	Provider        signing.Provider
	Addressing      Addressing
}

// Validate checks that an enabled configuration carries every field needed
// to sign and address requests. It never performs I/O.
func (c Config) Validate() error {
	if !c.Enabled {
		return fault.Configuration(ErrStorageDisabled, "objectstore: storage is disabled")
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Endpoint, validation.Required, notBlank),
		validation.Field(&c.Region, validation.Required, notBlank),
		validation.Field(&c.Bucket, validation.Required, notBlank),
		validation.Field(&c.AccessKeyID, validation.Required, notBlank),
		validation.Field(&c.SecretAccessKey, validation.Required, notBlank),
		validation.Field(&c.Provider, validation.In(signing.ProviderAWS, signing.ProviderOSS)),
		validation.Field(&c.Addressing, validation.In(AddressingAuto, AddressingPath, AddressingVirtual)),
	)
	if err != nil {
		return fault.Configuration(err, "objectstore: storage configuration is incomplete")
	}
	return nil
}

// Normalized returns c with Provider and Addressing trimmed and lower
// cased, so `OSS` and `Path` validate like `oss` and `path`.
func (c Config) Normalized() Config {
	c.Provider = signing.Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	c.Addressing = Addressing(strings.ToLower(strings.TrimSpace(string(c.Addressing))))
	return c
}

func (c Config) pathPrefix() string {
	prefix := strings.Trim(strings.TrimSpace(c.PathPrefix), "/")
	if prefix == "" {
		return DefaultPathPrefix
	}
	return prefix
}

var notBlank = validation.By(func(value any) error {
	if s, ok := value.(string); ok && s != "" && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be blank")
	}
	return nil
})
