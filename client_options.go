package paperless

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/paperless/internal/metrics"
	"github.com/jpalmerr/paperless/internal/poller"
)

// clientConfig holds the settings shared by [Authenticator] and [Refresher].
type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	recorder   *metrics.Recorder
}

// ClientOption configures an [Authenticator] or a [Refresher].
type ClientOption func(*clientConfig)

// WithHTTPClient makes requests through hc instead of the default pooled client.
// Use it to supply custom TLS settings, e.g. for self-signed certificates.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = hc
	}
}

// WithClientLogger sets the logger. Defaults to slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithClientTimeout bounds every request. Zero, the default, sets no
// deadline beyond the caller's context.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// withRecorder records Prometheus metrics for every request.
func withRecorder(rec *metrics.Recorder) ClientOption {
	return func(cfg *clientConfig) {
		cfg.recorder = rec
	}
}

func newClientConfig(opts []ClientOption) (*clientConfig, *poller.Client) {
	cfg := &clientConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, poller.NewClientWith(cfg.httpClient)
}
