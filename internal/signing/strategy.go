// Package signing implements the request signing schemes accepted by
// S3-compatible object stores. Strategies are pure functions of the request
// description and a clock reading; they never perform I/O.
package signing

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-docshare/internal/fault"
)

// Provider names a signing scheme.
type Provider string

const (
	ProviderAWS Provider = "aws"
	ProviderOSS Provider = "oss"
)

// Request describes the object request to sign.
type Request struct {
	Method        string
	Bucket        string
	Key           string
	Host          string
	CanonicalURI  string
	ContentType   string
	ContentLength int64
	Time          time.Time
}

// Strategy produces the headers that authenticate a Request.
type Strategy interface {
	Sign(req Request) (http.Header, error)
}

// Credentials holds an access key pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// ForProvider selects the strategy for provider. An empty provider selects
// AWS SigV4.
func ForProvider(provider Provider, creds Credentials, region string) (Strategy, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(string(provider)))) {
	case "", ProviderAWS:
		return &SigV4{Credentials: creds, Region: region}, nil
	case ProviderOSS:
		return &OSS{Credentials: creds}, nil
	default:
		return nil, fault.Configuration(nil, "signing: unsupported provider "+string(provider))
	}
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.AccessKeyID) == "" || strings.TrimSpace(c.SecretAccessKey) == "" {
		return fault.Signing(nil, "signing: credentials are required")
	}
	return nil
}
