// Package httpclient provides the HTTP client used for remote inputs.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	// HeaderTimeout bounds the wait for response headers. Reading the body
	// is only bounded by the request context. 0 means 30s.
	HeaderTimeout time.Duration
}

// New creates a client tuned for long sequential downloads.
func New(cfg Config) *http.Client {
	headerTimeout := cfg.HeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression: true, // Containers are already compressed
		ForceAttemptHTTP2:  true,
		DialContext:        dialer.DialContext,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	// No overall timeout, bodies are streamed.
	return &http.Client{Transport: transport}
}

// Get opens url and returns its body and size (-1 if the server did not send one).
// The caller must close the body.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}
