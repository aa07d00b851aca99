package objectstore

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-docshare/internal/signing"
)

var (
	endpointPort = regexp.MustCompile(`:[0-9]+`)
	bareIP       = regexp.MustCompile(`^[0-9.]+$`)
)

// Target is the addressed form of one object.
type Target struct {
	URL          string
	Host         string
	CanonicalURI string
}

// ResolveAddressing returns the concrete addressing style for cfg. An
// explicit path or virtual setting wins. Endpoints with a port, bare IPs,
// localhost and non AWS hosts use path style, as do dotted bucket names over
// https.
func ResolveAddressing(cfg Config) Addressing {
	switch Addressing(strings.ToLower(string(cfg.Addressing))) {
	case AddressingPath:
		return AddressingPath
	case AddressingVirtual:
		return AddressingVirtual
	}

	scheme, host := splitEndpoint(cfg.Endpoint)
	endpoint := strings.ToLower(strings.TrimSpace(cfg.Endpoint))
	switch {
	case endpointPort.MatchString(endpoint), bareIP.MatchString(host), strings.Contains(endpoint, "localhost"):
		return AddressingPath
	case !strings.Contains(endpoint, "amazonaws.com"):
		return AddressingPath
	case strings.Contains(cfg.Bucket, ".") && scheme == "https":
		return AddressingPath
	default:
		return AddressingVirtual
	}
}

// TargetFor addresses key within the configured bucket.
func TargetFor(cfg Config, key string) Target {
	scheme, host := splitEndpoint(cfg.Endpoint)
	escaped := signing.EscapePath(key)
	if ResolveAddressing(cfg) == AddressingPath {
		return Target{
			URL:          scheme + "://" + host + "/" + cfg.Bucket + "/" + escaped,
			Host:         host,
			CanonicalURI: "/" + cfg.Bucket + "/" + escaped,
		}
	}
	virtualHost := cfg.Bucket + "." + host
	return Target{
		URL:          scheme + "://" + virtualHost + "/" + escaped,
		Host:         virtualHost,
		CanonicalURI: "/" + escaped,
	}
}

// splitEndpoint separates the scheme from the endpoint host. Endpoints
// without a scheme default to https.
func splitEndpoint(endpoint string) (scheme, host string) {
	endpoint = strings.TrimSpace(endpoint)
	lower := strings.ToLower(endpoint)
	scheme = "https"
	switch {
	case strings.HasPrefix(lower, "https://"):
		endpoint = endpoint[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		scheme = "http"
		endpoint = endpoint[len("http://"):]
	}
	return scheme, strings.TrimRight(endpoint, "/")
}
