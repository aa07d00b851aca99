// Package objectstore uploads and deletes objects in S3-compatible stores
// using hand signed requests, with a forward-proxy fallback for networks
// where the store is not directly reachable.
package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/internal/signing"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	// DefaultRequestTimeout bounds one PUT or DELETE.
	DefaultRequestTimeout = 20 * time.Second

	hashLength   = 16
	errorBodyMax = 1024
)

// HTTPDoer is the subset of *http.Client used for direct requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Proxy relays a request through the content source when the direct
// request fails at the network level.
type Proxy interface {
	ForwardProxy(ctx context.Context, req interfaces.ProxyRequest) error
}

// File is a binary to upload.
type File struct {
	Name        string
	LocalPath   string
	Data        []byte
	ContentType string
}

// DeleteManyResult lists the keys removed and the keys that failed.
type DeleteManyResult struct {
	Success []string
	Failed  []string
}

// Client performs signed PUT and DELETE requests against one bucket.
type Client struct {
	cfg      Config
	strategy signing.Strategy
	http     HTTPDoer
	proxy    Proxy
	clock    func() time.Time
	timeout  time.Duration
	logger   interfaces.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for direct requests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithProxy enables the forward-proxy fallback.
func WithProxy(proxy Proxy) Option {
	return func(c *Client) {
		c.proxy = proxy
	}
}

// WithClock overrides the clock used for object keys and signatures.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for cfg. The signing strategy is chosen once
// from cfg.Provider. Incomplete configuration is not rejected here; every
// operation validates before touching the network.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.Normalized()
	strategy, err := signing.ForProvider(cfg.Provider, signing.Credentials{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}, cfg.Region)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:      cfg,
		strategy: strategy,
		http:     http.DefaultClient,
		clock:    time.Now,
		timeout:  DefaultRequestTimeout,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Enabled reports whether storage is switched on.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Validate checks the configuration without touching the network.
func (c *Client) Validate() error {
	return c.cfg.Validate()
}

// Hash returns the content hash used for object keys: the first 16 hex
// characters of the SHA-256 digest.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLength]
}

// ObjectKey builds {prefix}/{unixMillis}-{hash}{ext}.
func ObjectKey(prefix string, unixMillis int64, hash, ext string) string {
	return prefix + "/" + strconv.FormatInt(unixMillis, 10) + "-" + hash + ext
}

// Upload stores file and returns its record. precomputedHash skips hashing
// when the caller already knows the content hash.
func (c *Client) Upload(ctx context.Context, file File, progress interfaces.ProgressFunc, precomputedHash string) (interfaces.UploadedAsset, error) {
	if err := c.cfg.Validate(); err != nil {
		return interfaces.UploadedAsset{}, err
	}
	pt := newTracker(progress, file.Name, int64(len(file.Data)))
	pt.emit(interfaces.UploadPending, 0, "")

	hash := strings.TrimSpace(precomputedHash)
	if hash == "" {
		hash = Hash(file.Data)
	}
	now := c.clock()
	key := ObjectKey(c.cfg.pathPrefix(), now.UnixMilli(), hash, Ext(file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = ContentType(file.Name)
	}

	pt.emit(interfaces.UploadUploading, 0, "")
	publicURL, err := c.put(ctx, key, contentType, file.Data, pt)
	if err != nil {
		pt.emit(interfaces.UploadError, 0, err.Error())
		return interfaces.UploadedAsset{}, err
	}
	pt.emit(interfaces.UploadSuccess, pt.total, "")

	return interfaces.UploadedAsset{
		LocalPath:         file.LocalPath,
		ObjectKey:         key,
		PublicURL:         publicURL,
		ContentType:       contentType,
		SizeBytes:         int64(len(file.Data)),
		ContentHash:       hash,
		UploadedAtEpochMs: now.UnixMilli(),
	}, nil
}

// Delete removes key. A missing object counts as deleted.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	target := TargetFor(c.cfg, key)
	headers, err := c.sign(http.MethodDelete, key, "", 0, target)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, http.MethodDelete, target.URL, headers, nil, nil)
	if err != nil {
		if !fault.Is(err, fault.CategoryTransport) {
			return err
		}
		c.log(ctx).Warn("objectstore.delete.network_error", "key", key, "error", err)
		return c.viaProxy(ctx, http.MethodDelete, target.URL, headers, nil, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || isSuccess(resp.StatusCode) {
		c.log(ctx).Debug("objectstore.delete.success", "key", key, "status", resp.StatusCode)
		return nil
	}
	return fault.Delete(statusError(resp), "objectstore: delete rejected")
}

// DeleteMany deletes keys one at a time and never stops at a failure.
func (c *Client) DeleteMany(ctx context.Context, keys []string) DeleteManyResult {
	result := DeleteManyResult{Success: []string{}, Failed: []string{}}
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			c.log(ctx).Error("objectstore.delete.failed", "key", key, "error", err)
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Success = append(result.Success, key)
	}
	return result
}

func (c *Client) put(ctx context.Context, key, contentType string, data []byte, pt *tracker) (string, error) {
	target := TargetFor(c.cfg, key)
	headers, err := c.sign(http.MethodPut, key, contentType, int64(len(data)), target)
	if err != nil {
		return "", err
	}

	started := c.clock()
	c.log(ctx).Debug("objectstore.upload.start", "key", key, "size", len(data), "url", target.URL)

	resp, err := c.send(ctx, http.MethodPut, target.URL, headers, data, pt)
	if err != nil {
		if !fault.Is(err, fault.CategoryTransport) {
			return "", err
		}
		c.log(ctx).Warn("objectstore.upload.network_error", "key", key, "error", err)
		pt.emit(interfaces.UploadUploading, 0, "")
		if err := c.viaProxy(ctx, http.MethodPut, target.URL, headers, data, err); err != nil {
			return "", err
		}
		return c.publicURL(key, target), nil
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		err := statusError(resp)
		c.log(ctx).Error("objectstore.upload.http_error", "key", key, "status", resp.StatusCode, "error", err)
		return "", fault.Upload(err, "objectstore: upload rejected")
	}
	c.log(ctx).Debug("objectstore.upload.success", "key", key, "duration", c.clock().Sub(started))
	return c.publicURL(key, target), nil
}

func (c *Client) sign(method, key, contentType string, length int64, target Target) (http.Header, error) {
	return c.strategy.Sign(signing.Request{
		Method:        method,
		Bucket:        c.cfg.Bucket,
		Key:           key,
		Host:          target.Host,
		CanonicalURI:  target.CanonicalURI,
		ContentType:   contentType,
		ContentLength: length,
		Time:          c.clock(),
	})
}

// send issues one direct request. Errors without a response are reported as
// transport errors unless the context ended.
func (c *Client) send(ctx context.Context, method, url string, headers http.Header, data []byte, pt *tracker) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var body io.Reader
	if data != nil {
		body = &countingReader{reader: bytes.NewReader(data), tracker: pt}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel()
		return nil, fault.Configuration(err, "objectstore: build request")
	}
	if data != nil {
		req.ContentLength = int64(len(data))
	}
	for name, values := range headers {
		req.Header[name] = values
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctxErr := ctx.Err()
		cancel()
		if ctxErr != nil {
			return nil, fault.Timeout(errors.Join(err, ctxErr), "objectstore: request aborted")
		}
		return nil, fault.Transport(err, "objectstore: network error")
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) viaProxy(ctx context.Context, method, url string, headers http.Header, data []byte, cause error) error {
	if c.proxy == nil {
		return cause
	}
	relayed := make(map[string]string, len(headers))
	for name := range headers {
		if strings.EqualFold(name, "Host") {
			continue
		}
		relayed[name] = headers.Get(name)
	}
	c.log(ctx).Info("objectstore.proxy.fallback", "method", method, "url", url)

	err := c.proxy.ForwardProxy(ctx, interfaces.ProxyRequest{
		URL:     url,
		Method:  method,
		Headers: relayed,
		Payload: encodePayload(data),
	})
	if err != nil {
		if method == http.MethodDelete {
			return fault.Delete(err, "objectstore: proxied delete failed")
		}
		return fault.Upload(err, "objectstore: proxied upload failed")
	}
	return nil
}

func (c *Client) publicURL(key string, target Target) string {
	if domain := strings.TrimRight(strings.TrimSpace(c.cfg.CustomDomain), "/"); domain != "" {
		return domain + "/" + signing.EscapePath(key)
	}
	return target.URL
}

func (c *Client) log(ctx context.Context) interfaces.Logger {
	return c.logger.WithContext(ctx)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMax))
	return fmt.Errorf("HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
