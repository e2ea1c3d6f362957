package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodySize caps a response body when [Request.MaxBodySize] is zero.
const DefaultMaxBodySize = 4 << 20

// ErrBodyTooLarge is reported when a response body exceeds the request's limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// connection pooling limits; a host polls a handful of Paperless instances at most
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// Request describes a single HTTP call made through [Client].
type Request struct {
	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// URL is the absolute target URL.
	URL string

	// Headers are set on the outgoing request.
	Headers map[string]string

	// Body is sent as the request body when non-empty.
	Body string

	// Timeout bounds the request. Zero leaves the deadline to the caller's context.
	Timeout time.Duration

	// MaxBodySize caps the response body. Zero uses [DefaultMaxBodySize],
	// a negative value reads the whole body.
	MaxBodySize int64
}

// Response holds the result of an HTTP request made by [Client].
type Response struct {
	// Body contains the HTTP response body. It is never truncated: a body over
	// the request's limit is reported through Error instead.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 401, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Header is the response header set. Nil if no response was received.
	Header http.Header

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any transport-level error.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// Client is an HTTP client wrapper shared by the authenticator and the refresher.
//
// Client has no global timeout. A per-request timeout may be supplied through
// [Request.Timeout]; otherwise the caller's context is the only deadline.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with a pooled transport.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// NewClientWith wraps an existing *http.Client, e.g. one with a custom TLS config.
func NewClientWith(hc *http.Client) *Client {
	if hc == nil {
		return NewClient()
	}
	return &Client{httpClient: hc}
}

// Do performs an HTTP request and returns a structured [Response].
//
// Do always returns a Response; transport errors are captured in the Error
// field rather than returned separately, so callers can classify every outcome
// in one place.
func (c *Client) Do(ctx context.Context, r Request) Response {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	limit := r.MaxBodySize
	if limit == 0 {
		limit = DefaultMaxBodySize
	}

	var data []byte
	if limit < 0 {
		data, err = io.ReadAll(resp.Body)
	} else {
		data, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	}
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}
	if limit >= 0 && int64(len(data)) > limit {
		return Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit),
		}
	}

	return Response{
		Body:       data,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
