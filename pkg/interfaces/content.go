package interfaces

import "context"

// BlockContent carries the native (kramdown) source of a block or document.
type BlockContent struct {
	ID      string
	Content string
}

// ProxyRequest describes an HTTP request relayed through the content source's
// forward proxy. Payload holds the base64 encoded request body.
type ProxyRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Payload string
}

// ContentSource is the host kernel collaborator that serves native block
// content and binary attachments, and relays requests the caller cannot
// issue directly.
type ContentSource interface {
	FetchBlockContent(ctx context.Context, id string) (BlockContent, error)
	FetchBinary(ctx context.Context, localPath string) ([]byte, error)
	ForwardProxy(ctx context.Context, req ProxyRequest) error
}
