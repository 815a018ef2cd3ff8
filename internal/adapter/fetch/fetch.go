// Package fetch downloads remote source files into a local directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUpstream marks a non-2xx response.
var ErrUpstream = errors.New("upstream error")

// Client fetches URLs through a circuit breaker.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	dir     string
	logger  *slog.Logger
}

// NewClient returns a Client that saves downloads under dir.
func NewClient(dir string, timeout time.Duration, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "source-fetch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Client{
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		dir:     dir,
		logger:  logger,
	}
}

// Fetch downloads rawURL and returns the local path it was written to. The
// file name is the last path segment of the URL.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil || name == "/" || name == "." || name == "" {
		name = "download"
	}

	c.logger.Info("downloading source", "url", rawURL)
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, rawURL)
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dst := filepath.Join(c.dir, filepath.Base(name))
	if err := os.WriteFile(dst, body, 0o644); err != nil { //nolint:gosec // downloaded sources are public data
		return "", fmt.Errorf("write download: %w", err)
	}
	c.logger.Info("downloaded source", "path", dst, "bytes", len(body))
	return dst, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
