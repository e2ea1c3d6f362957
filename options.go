package paperless

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// hubConfig holds mutable state during Hub construction.
type hubConfig struct {
	sensors         []Sensor
	pollingInterval time.Duration
	port            int
	requestTimeout  time.Duration
	logger          *slog.Logger
	httpClient      *http.Client
	registry        *prom.Registry
	stateCallbacks  []func(Update)
}

// Option configures a [Hub] during construction.
//
// Options return an error if validation fails.
type Option func(*hubConfig) error

// WithSensor adds a single [Sensor]. Can be called multiple times.
func WithSensor(s Sensor) Option {
	return func(cfg *hubConfig) error {
		cfg.sensors = append(cfg.sensors, s)
		return nil
	}
}

// WithSensors adds several sensors at once.
func WithSensors(sensors ...Sensor) Option {
	return func(cfg *hubConfig) error {
		cfg.sensors = append(cfg.sensors, sensors...)
		return nil
	}
}

// WithPollingInterval sets how often every sensor is refreshed.
// Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *hubConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port of the state server. Defaults to 8080.
func WithPort(port int) Option {
	return func(cfg *hubConfig) error {
		cfg.port = port
		return nil
	}
}

// WithRequestTimeout bounds every API request. Zero, the default, sets no
// deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *hubConfig) error {
		if d < 0 {
			return errors.New("request timeout cannot be negative")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
//
// Returns an error if logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hubConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithHubHTTPClient makes every API request through hc.
func WithHubHTTPClient(hc *http.Client) Option {
	return func(cfg *hubConfig) error {
		cfg.httpClient = hc
		return nil
	}
}

// WithRegistry registers the hub's metrics on reg and serves them at /metrics.
// Without it the hub uses a private registry.
func WithRegistry(reg *prom.Registry) Option {
	return func(cfg *hubConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithStateCallback registers a function called after every refresh, once
// the new state is stored.
//
// Callbacks run synchronously on one goroutine and must not block. Panics
// are recovered and logged. Nil callbacks are ignored.
func WithStateCallback(cb func(Update)) Option {
	return func(cfg *hubConfig) error {
		if cb == nil {
			return nil
		}
		cfg.stateCallbacks = append(cfg.stateCallbacks, cb)
		return nil
	}
}
