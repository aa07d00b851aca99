// Package kernel talks to the SiYuan kernel HTTP API: it reads block
// content as kramdown, downloads asset binaries and relays requests through
// the kernel forward proxy.
package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:6806"
	DefaultRequestTimeout = 20 * time.Second
	DefaultBinaryTimeout  = 60 * time.Second

	errorBodyMax = 1024
)

// Config addresses the kernel.
type Config struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	BinaryTimeout  time.Duration
}

// HTTPDoer is the subset of *http.Client the kernel client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements interfaces.ContentSource over HTTP.
type Client struct {
	cfg    Config
	http   HTTPDoer
	logger interfaces.Logger
}

var _ interfaces.ContentSource = (*Client)(nil)

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

// NewClient builds a kernel client. Zero timeouts fall back to defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.BinaryTimeout <= 0 {
		cfg.BinaryTimeout = DefaultBinaryTimeout
	}
	c := &Client{
		cfg:    cfg,
		http:   http.DefaultClient,
		logger: logging.NoOp(),
	}
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

type kramdownRequest struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`
}

type kramdownData struct {
	ID       string `json:"id"`
	Kramdown string `json:"kramdown"`
}

// proxyData is the upstream response relayed by forwardProxy.
type proxyData struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

type proxyRequest struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	Payload         string            `json:"payload,omitempty"`
	PayloadEncoding string            `json:"payloadEncoding,omitempty"`
}

// FetchBlockContent returns the native kramdown of block id.
func (c *Client) FetchBlockContent(ctx context.Context, id string) (interfaces.BlockContent, error) {
	if strings.TrimSpace(id) == "" {
		return interfaces.BlockContent{}, fault.Validation(nil, "kernel: block id is required")
	}
	env, err := c.call(ctx, "/api/block/getBlockKramdown", kramdownRequest{ID: id, Mode: "md"})
	if err != nil {
		return interfaces.BlockContent{}, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return interfaces.BlockContent{}, fault.Parse(nil, "kernel: kramdown response has no data")
	}
	var data kramdownData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return interfaces.BlockContent{}, fault.Parse(err, "kernel: decode kramdown data")
	}
	if data.ID == "" {
		data.ID = id
	}
	c.logger.WithContext(ctx).Debug("kernel.block.fetched", "block_id", id, "size", len(data.Kramdown))
	return interfaces.BlockContent{ID: data.ID, Content: data.Kramdown}, nil
}

// FetchBinary downloads the file served by the kernel at localPath.
func (c *Client) FetchBinary(ctx context.Context, localPath string) ([]byte, error) {
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return nil, fault.Validation(nil, "kernel: asset path is required")
	}
	if !strings.HasPrefix(localPath, "/") {
		localPath = "/" + localPath
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.BinaryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+localPath, nil)
	if err != nil {
		return nil, fault.Configuration(err, "kernel: build asset request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.Fetch(err, "kernel: fetch asset "+localPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fault.Fetch(statusError(resp), "kernel: fetch asset "+localPath)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Fetch(err, "kernel: read asset "+localPath)
	}
	c.logger.WithContext(ctx).Debug("kernel.asset.fetched", "path", localPath, "size", len(data))
	return data, nil
}

// ForwardProxy asks the kernel to perform req on the caller's behalf.
func (c *Client) ForwardProxy(ctx context.Context, req interfaces.ProxyRequest) error {
	body := proxyRequest{
		URL:     req.URL,
		Method:  req.Method,
		Headers: req.Headers,
	}
	if req.Payload != "" {
		body.Payload = req.Payload
		body.PayloadEncoding = "base64"
	}
	if body.Headers == nil {
		body.Headers = map[string]string{}
	}
	env, err := c.call(ctx, "/api/network/forwardProxy", body)
	if err != nil {
		return err
	}
	var data proxyData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fault.Parse(err, "kernel: decode forwardProxy data")
		}
	}
	if err := upstreamError(req.Method, data); err != nil {
		return err
	}
	c.logger.WithContext(ctx).Debug("kernel.proxy.forwarded", "method", req.Method, "url", req.URL, "status", data.Status)
	return nil
}

// upstreamError reports a non-2xx upstream status. A missing status is
// treated as success; a 404 answering a DELETE is success too.
func upstreamError(method string, data proxyData) error {
	switch {
	case data.Status == 0, data.Status >= 200 && data.Status < 300:
		return nil
	case data.Status == http.StatusNotFound && strings.EqualFold(method, http.MethodDelete):
		return nil
	}
	body := data.Body
	if len(body) > errorBodyMax {
		body = body[:errorBodyMax]
	}
	return fault.Fetch(fmt.Errorf("HTTP %d - %s", data.Status, strings.TrimSpace(body)), "kernel: forwardProxy upstream rejected "+method)
}

// call posts a JSON body to endpoint and decodes the kernel envelope. A
// non-zero code is a fetch error.
func (c *Client) call(ctx context.Context, endpoint string, payload any) (envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fault.Parse(err, "kernel: encode request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return envelope{}, fault.Configuration(err, "kernel: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fault.Fetch(err, "kernel: call "+endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return envelope{}, fault.Fetch(statusError(resp), "kernel: call "+endpoint)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fault.Parse(err, "kernel: decode response from "+endpoint)
	}
	if env.Code != 0 {
		return envelope{}, fault.Fetch(fmt.Errorf("code %d: %s", env.Code, env.Msg), "kernel: "+endpoint+" failed")
	}
	return env, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := strings.TrimSpace(c.cfg.Token); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMax))
	return fmt.Errorf("HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
