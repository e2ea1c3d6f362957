package paperless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/paperless/internal/metrics"
	"github.com/jpalmerr/paperless/internal/poller"
	"github.com/jpalmerr/paperless/internal/server"
	"github.com/jpalmerr/paperless/internal/store"
)

const (
	defaultPollingInterval = 30 * time.Second
	defaultPort            = 8080
)

// Update is passed to state callbacks after every refresh.
type Update struct {
	// Sensor is the sensor's entity name.
	Sensor string

	// State is the freshly computed state.
	State State

	// Duration is how long the refresh took.
	Duration time.Duration

	// Err is set when the refresh itself panicked. State is then an
	// offline placeholder.
	Err error
}

// Hub refreshes Paperless-NG sensors on a schedule and publishes their state.
//
// Hub coordinates the scheduler, the in-memory state store and the HTTP
// server. It is created using [New] with functional options and started
// with [Hub.Start]:
//
//	hub, err := paperless.New(paperless.WithSensor(sensor))
//	if err != nil {
//	    slog.Error("failed to create hub", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	hub.Start(ctx) // blocks until ctx is cancelled
type Hub struct {
	sensors         []Sensor
	pollingInterval time.Duration
	port            int
	requestTimeout  time.Duration
	logger          *slog.Logger
	httpClient      *http.Client
	registry        *prom.Registry
	recorder        *metrics.Recorder
	stateCallbacks  []func(Update)
}

// New creates a [Hub] with the given options.
//
// At least one sensor must be configured via [WithSensor] or [WithSensors].
// Sensor names must be unique. Defaults: polling every 30 seconds, port 8080,
// no request timeout.
func New(opts ...Option) (*Hub, error) {
	cfg := &hubConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.sensors) == 0 {
		return nil, errors.New("at least one sensor is required")
	}

	seen := make(map[string]bool, len(cfg.sensors))
	for _, s := range cfg.sensors {
		if seen[s.name] {
			return nil, fmt.Errorf("duplicate sensor name: %q", s.name)
		}
		seen[s.name] = true
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.registry
	if registry == nil {
		registry = prom.NewRegistry()
	}

	return &Hub{
		sensors:         cfg.sensors,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		requestTimeout:  cfg.requestTimeout,
		logger:          logger,
		httpClient:      cfg.httpClient,
		registry:        registry,
		recorder:        metrics.NewRecorder(registry),
		stateCallbacks:  cfg.stateCallbacks,
	}, nil
}

// Start refreshes every sensor immediately and then at the polling
// interval, and serves the published states over HTTP.
//
// Start blocks until ctx is cancelled. Returns nil on graceful shutdown and
// an error if the scheduler or the HTTP server cannot start.
func (h *Hub) Start(ctx context.Context) error {
	h.logger.Info("paperless hub starting", "sensor_count", len(h.sensors))
	h.logger.Info("polling configured", "interval", h.pollingInterval.String())
	h.logger.Info("state api available", "url", fmt.Sprintf("http://localhost:%d/api/states", h.port))

	if ctx.Err() != nil {
		return nil
	}

	refresher := NewRefresher(
		WithHTTPClient(h.httpClient),
		WithClientLogger(h.logger),
		WithClientTimeout(h.requestTimeout),
		withRecorder(h.recorder),
	)
	defer refresher.Close()

	stateStore := store.NewMemoryStore()

	scheduler := poller.NewScheduler(h.jobs(refresher), h.pollingInterval, h.logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			update := h.toUpdate(result)

			// store first, callbacks fire after the state is published
			stateStore.Update(toSensorState(update))

			for _, cb := range h.stateCallbacks {
				invokeCallbackSafe(cb, update, h.logger)
			}

			logAttrs := []any{
				"sensor", update.Sensor,
				"status", update.State.Status,
				"duration_ms", update.Duration.Milliseconds(),
			}
			switch {
			case update.Err != nil:
				h.logger.Error("refresh failed", append(logAttrs, "error", update.Err.Error())...)
			case update.State.Status != StatusOnline:
				h.logger.Warn("refresh completed degraded", logAttrs...)
			default:
				h.logger.Debug("refresh completed", logAttrs...)
			}
		}
	}()

	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()
	}

	httpServer := server.NewServer(stateStore, h.port, metrics.HTTPHandler(h.registry), h.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	h.logger.Info("paperless hub stopped")
	return nil
}

// Sensors returns a copy of the configured sensors.
func (h *Hub) Sensors() []Sensor {
	cp := make([]Sensor, len(h.sensors))
	copy(cp, h.sensors)
	return cp
}

// Port returns the configured HTTP port.
func (h *Hub) Port() int {
	return h.port
}

// PollingInterval returns the configured refresh interval.
func (h *Hub) PollingInterval() time.Duration {
	return h.pollingInterval
}

// jobs builds one scheduler job per sensor.
func (h *Hub) jobs(refresher *Refresher) []poller.Job[State] {
	jobs := make([]poller.Job[State], len(h.sensors))
	for i, s := range h.sensors {
		sensor := s
		jobs[i] = poller.Job[State]{
			Name: sensor.name,
			Run: func(ctx context.Context) State {
				return refresher.RefreshSensor(ctx, sensor)
			},
		}
	}
	return jobs
}

// toUpdate converts a scheduler result into an [Update]. A panicked refresh
// is published as offline.
func (h *Hub) toUpdate(r poller.Result[State]) Update {
	update := Update{
		Sensor:   r.Name,
		State:    r.Value,
		Duration: r.Duration,
		Err:      r.Err,
	}
	if r.Err != nil {
		update.State = State{Status: StatusOffline, CheckedAt: r.StartedAt.Add(r.Duration)}
	}
	return update
}

// toSensorState converts an update into its storage representation.
func toSensorState(u Update) store.SensorState {
	var errStr *string
	if u.Err != nil {
		s := u.Err.Error()
		errStr = &s
	}

	attrs := u.State.Attributes()
	if len(attrs) == 0 {
		attrs = nil
	}

	return store.SensorState{
		Name:       u.Sensor,
		State:      u.State.Status.String(),
		Attributes: attrs,
		RefreshMs:  u.Duration.Milliseconds(),
		UpdatedAt:  u.State.CheckedAt,
		Error:      errStr,
	}
}

// invokeCallbackSafe calls a state callback with panic recovery.
func invokeCallbackSafe(cb func(Update), update Update, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"panic", r,
				"sensor", update.Sensor,
				"correlation_id", uuid.NewString(),
			)
		}
	}()
	cb(update)
}
