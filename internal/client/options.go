package client

import (
	"net/http"
	"time"

	"github.com/okian/slumber/pkg/logger"
)

const (
	defaultBaseURL = "http://localhost:9080"
	defaultTimeout = 10 * time.Second
	predictPath    = "/predict"
	maxResponse    = 1 << 20
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service root, e.g. "http://localhost:9080".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
