package paperless

import "errors"

// Sensor is one Paperless-NG instance to poll.
//
// Sensor is immutable after creation via [NewSensor]. Fields are private and
// exposed through getters.
type Sensor struct {
	name    string
	session Session
	todoTag string
}

// Name returns the sensor's entity name.
func (s Sensor) Name() string {
	return s.name
}

// Session returns the session the sensor polls with.
func (s Sensor) Session() Session {
	return s.session
}

// TodoTag returns the configured to-do tag name, empty if none.
func (s Sensor) TodoTag() string {
	return s.todoTag
}

// sensorConfig holds mutable state during sensor construction.
type sensorConfig struct {
	name    string
	todoTag string
}

// SensorOption configures a [Sensor] during construction.
type SensorOption func(*sensorConfig) error

// WithTodoTag sets the tag name whose documents are reported as to-do.
func WithTodoTag(tag string) SensorOption {
	return func(cfg *sensorConfig) error {
		cfg.todoTag = tag
		return nil
	}
}

// WithSensorName overrides the default entity name "paperless-ng-{host}:{port}".
func WithSensorName(name string) SensorOption {
	return func(cfg *sensorConfig) error {
		if name == "" {
			return errors.New("sensor name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// NewSensor creates a [Sensor] for session.
//
// Returns an error if host, port or token is empty.
func NewSensor(session Session, opts ...SensorOption) (Sensor, error) {
	if session.Host == "" {
		return Sensor{}, errors.New("sensor host cannot be empty")
	}
	if session.Port == "" {
		return Sensor{}, errors.New("sensor port cannot be empty")
	}
	if session.Token == "" {
		return Sensor{}, errors.New("sensor token cannot be empty")
	}

	cfg := &sensorConfig{name: session.EntityName()}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Sensor{}, err
		}
	}

	return Sensor{
		name:    cfg.name,
		session: session,
		todoTag: cfg.todoTag,
	}, nil
}

// SensorFromEntry creates the sensor for a persisted config entry. Extra
// options are applied after the entry's to-do tag.
func SensorFromEntry(e ConfigEntry, opts ...SensorOption) (Sensor, error) {
	return NewSensor(e.Session(), append([]SensorOption{WithTodoTag(e.Data.TodoTag)}, opts...)...)
}
