// Package upstream talks to the third-party file host that serves the raw
// audio files. It builds file URLs and performs the single outbound GET the
// download proxy relays.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pixelplay/config"
)

var (
	// ErrNotFound is returned when the host answers with a non-2xx status.
	ErrNotFound = errors.New("upstream: file not found")
	// ErrUnavailable is returned when the host cannot be reached at all.
	ErrUnavailable = errors.New("upstream: unavailable")
	// ErrTooLarge is returned when the declared length exceeds the configured limit.
	ErrTooLarge = errors.New("upstream: file too large")
)

// DefaultContentType is reported when the host omits a content type.
const DefaultContentType = "audio/mpeg"

// File is an open upstream response body.
type File struct {
	Body          io.ReadCloser
	ContentType   string // never empty
	ContentLength int64  // -1 when undeclared
}

// Client fetches files from the upstream host
type Client struct {
	baseURL *url.URL
	maxSize int64
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client from the upstream configuration
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream base URL: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Client{
		baseURL: base,
		maxSize: cfg.MaxSize,
		// No overall timeout: it would cut long bodies mid-stream.
		client: &http.Client{Transport: transport},
		logger: slog.With("component", "upstream"),
	}, nil
}

// FileURL returns the direct URL of the file named by id.
// The id is percent-encoded as a single path segment.
func (c *Client) FileURL(id string) string {
	return c.baseURL.String() + "/api/file/" + EscapeComponent(id)
}

// MaxSize reports the configured size limit, 0 when unlimited.
func (c *Client) MaxSize() int64 {
	return c.maxSize
}

// Open issues a GET for id. The caller must close the returned body.
func (c *Client) Open(ctx context.Context, id string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FileURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Upstream request failed",
			slog.String("id", id),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Upstream responded",
		slog.String("id", id),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	}

	if c.maxSize > 0 && resp.ContentLength > c.maxSize {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes declared", ErrTooLarge, resp.ContentLength)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}

	body := resp.Body
	if c.maxSize > 0 && resp.ContentLength < 0 {
		body = &cappedBody{ReadCloser: resp.Body, limit: c.maxSize, remaining: c.maxSize}
	}

	return &File{
		Body:          body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}

// Ping checks that the host answers at all. Any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String()+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// cappedBody passes through up to limit bytes and then fails with
// ErrTooLarge if the upstream has more to send.
type cappedBody struct {
	io.ReadCloser
	limit     int64
	remaining int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		var one [1]byte
		for {
			n, err := b.ReadCloser.Read(one[:])
			if n > 0 {
				return 0, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, b.limit)
			}
			if err != nil {
				return 0, err
			}
		}
	}

	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	return n, err
}
