// Package registry submits shares to and removes shares from the share
// backend over its JSON HTTP API.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

// DefaultTimeout bounds one registry call.
const DefaultTimeout = 30 * time.Second

const errorBodyMax = 2048

// MaxListSize is the largest page the backend serves.
const MaxListSize = 100

// ErrNotConfigured is returned when the server URL or token is missing.
var ErrNotConfigured = errors.New("registry: server url and token are required")

// Config addresses the share backend. BaseURL is sent as X-Base-URL so
// the backend can build share links; it defaults to ServerURL.
type Config struct {
	ServerURL string
	Token     string
	BaseURL   string
	Timeout   time.Duration
}

// HTTPDoer is the subset of *http.Client the registry client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements interfaces.ShareRegistry.
type Client struct {
	cfg    Config
	http   HTTPDoer
	logger interfaces.Logger
}

var _ interfaces.ShareRegistry = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
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

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.ServerURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg, http: http.DefaultClient, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type batchDeleteRequest struct {
	ShareIDs []string `json:"shareIds"`
}

// Submit creates or refreshes the share for payload.DocID.
func (c *Client) Submit(ctx context.Context, payload interfaces.SharePayload) (interfaces.ShareAck, error) {
	var ack interfaces.ShareAck
	env, status, err := c.do(ctx, http.MethodPost, "/api/share/create", payload)
	if err != nil {
		return ack, err
	}
	if !isSuccess(status) {
		return ack, fault.Fetch(fmt.Errorf("HTTP %d: %s", status, env.Msg), "registry: create share rejected")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return ack, fault.Parse(nil, "registry: create share response has no data")
	}
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		return ack, fault.Parse(err, "registry: decode share acknowledgement")
	}
	if ack.ShareID == "" {
		return ack, fault.Parse(nil, "registry: share acknowledgement has no share id")
	}
	c.logger.WithContext(ctx).Info("registry.share.created",
		"share_id", ack.ShareID,
		"doc_id", ack.DocID,
		"reused", ack.Reused,
	)
	return ack, nil
}

// Delete removes one share. A share the backend no longer knows is treated
// as removed.
func (c *Client) Delete(ctx context.Context, shareID string) error {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return fault.Validation(nil, "registry: share id is required")
	}
	env, status, err := c.do(ctx, http.MethodDelete, "/api/share/"+url.PathEscape(shareID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		c.logger.WithContext(ctx).Debug("registry.share.already_removed", "share_id", shareID)
		return nil
	}
	if !isSuccess(status) {
		return fault.Fetch(fmt.Errorf("HTTP %d: %s", status, env.Msg), "registry: delete share rejected")
	}
	c.logger.WithContext(ctx).Info("registry.share.deleted", "share_id", shareID)
	return nil
}

// DeleteMany removes the given shares in one call.
func (c *Client) DeleteMany(ctx context.Context, shareIDs []string) (interfaces.BatchDeleteResult, error) {
	result := interfaces.BatchDeleteResult{Deleted: []string{}, NotFound: []string{}}
	if shareIDs == nil {
		shareIDs = []string{}
	}
	env, status, err := c.do(ctx, http.MethodDelete, "/api/share/batch", batchDeleteRequest{ShareIDs: shareIDs})
	if err != nil {
		return result, err
	}
	if !isSuccess(status) {
		return result, fault.Fetch(fmt.Errorf("HTTP %d: %s", status, env.Msg), "registry: batch delete rejected")
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return result, fault.Parse(err, "registry: decode batch delete result")
		}
	}
	if result.Deleted == nil {
		result.Deleted = []string{}
	}
	if result.NotFound == nil {
		result.NotFound = []string{}
	}
	c.logger.WithContext(ctx).Info("registry.share.batch_deleted",
		"deleted", len(result.Deleted),
		"not_found", len(result.NotFound),
		"failed", len(result.Failed),
	)
	return result, nil
}

// List fetches one page of shares. Page defaults to 1 and size is clamped
// to MaxListSize.
func (c *Client) List(ctx context.Context, page, size int) (interfaces.ShareListPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxListSize {
		size = MaxListSize
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	listing := interfaces.ShareListPage{Items: []interfaces.ShareListItem{}}
	env, status, err := c.do(ctx, http.MethodGet, "/api/share/list?"+query.Encode(), nil)
	if err != nil {
		return listing, err
	}
	if !isSuccess(status) {
		return listing, fault.Fetch(fmt.Errorf("HTTP %d: %s", status, env.Msg), "registry: list shares rejected")
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &listing); err != nil {
			return listing, fault.Parse(err, "registry: decode share list")
		}
	}
	if listing.Items == nil {
		listing.Items = []interfaces.ShareListItem{}
	}
	c.logger.WithContext(ctx).Debug("registry.share.listed",
		"page", page,
		"items", len(listing.Items),
		"total", listing.Total,
	)
	return listing, nil
}

// do sends one authenticated call. A body that is not a JSON envelope is
// only an error for 2xx responses; for other statuses the raw text becomes
// the envelope message. A 2xx with a non-zero code is a fetch error.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (envelope, int, error) {
	if c.cfg.ServerURL == "" || strings.TrimSpace(c.cfg.Token) == "" {
		return envelope{}, 0, fault.Configuration(ErrNotConfigured, "registry: not configured")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, 0, fault.Parse(err, "registry: encode request")
		}
		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+endpoint, body)
	if err != nil {
		return envelope{}, 0, fault.Configuration(err, "registry: build request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.Token))
	req.Header.Set("X-Base-URL", c.cfg.BaseURL)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, 0, fault.Fetch(err, "registry: "+method+" "+endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return envelope{}, resp.StatusCode, fault.Fetch(err, "registry: read response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if isSuccess(resp.StatusCode) {
			return envelope{}, resp.StatusCode, fault.Parse(err, "registry: decode response")
		}
		env = envelope{Msg: truncate(strings.TrimSpace(string(raw)))}
	}
	if isSuccess(resp.StatusCode) && env.Code != 0 {
		return env, resp.StatusCode, fault.Fetch(fmt.Errorf("code %d: %s", env.Code, env.Msg), "registry: "+endpoint+" failed")
	}
	return env, resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func truncate(s string) string {
	if len(s) > errorBodyMax {
		return s[:errorBodyMax]
	}
	return s
}
