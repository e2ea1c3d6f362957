// Package config provides YAML configuration for the paperless sensor host.
//
// The file holds the host settings and one entry per configured
// Paperless-NG instance. Entries are normally written by the setup command
// through [FileRegistry], but may be edited by hand.
//
// Example configuration:
//
//	port: 8080
//	poll_interval: 30s
//	request_timeout: 10s
//
//	entries:
//	  - entry_id: 6f1c2d4e-0a8b-4c1e-9d3f-2b7a5e8c9d01
//	    title: Paperless-NG paperless.local:8000
//	    host: paperless.local
//	    port: "8000"
//	    ssl: false
//	    api_token: ${PAPERLESS_TOKEN}
//	    todo_tag: inbox
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval keeps a misconfigured file from hammering the API.
const minPollInterval = 1 * time.Second

const (
	defaultPort         = 8080
	defaultPollInterval = 30 * time.Second
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the HTTP port of the state server. Defaults to 8080.
	Port int `yaml:"port,omitempty"`

	// PollInterval is the time between refresh cycles.
	// Accepts duration strings like "30s" or "5m". Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval,omitempty"`

	// RequestTimeout bounds every API request. Zero means no deadline.
	RequestTimeout Duration `yaml:"request_timeout,omitempty"`

	// Entries are the configured Paperless-NG instances.
	Entries []EntryConfig `yaml:"entries"`
}

// EntryConfig is one completed setup.
type EntryConfig struct {
	// EntryID identifies the entry. Generated by setup.
	EntryID string `yaml:"entry_id,omitempty"`

	// Title is the display title, "Paperless-NG {host}:{port}" by default.
	Title string `yaml:"title,omitempty"`

	// Host is the Paperless-NG hostname or IP address.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Host string `yaml:"host"`

	// Port is the Paperless-NG port, kept as text as entered during setup.
	Port string `yaml:"port"`

	// SSL selects https.
	SSL bool `yaml:"ssl"`

	// APIToken is the token obtained during setup. It is also the entry's
	// unique id. Supports environment variable substitution.
	APIToken string `yaml:"api_token"`

	// TodoTag is the optional tag whose documents are reported as to-do.
	TodoTag string `yaml:"todo_tag,omitempty"`
}

// Duration wraps time.Duration for YAML (un)marshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in host and api_token are expanded.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied for Port (8080) and PollInterval (30s). At least one
// entry is required.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// loadRaw reads the file without expanding or validating it. A missing
// file is an empty config.
func loadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(data)
}

// writeAtomic replaces the file at path with data via a temporary file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.RequestTimeout.Duration() < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", c.RequestTimeout.Duration())
	}

	if len(c.Entries) == 0 {
		return errors.New("at least one entry must be defined")
	}

	tokens := make(map[string]int, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		where := fmt.Sprintf("entries[%d]", i)
		if e.Title != "" {
			where = fmt.Sprintf("entries[%d] (%s)", i, e.Title)
		}

		host, err := expandEnvVars(e.Host)
		if err != nil {
			return fmt.Errorf("%s: host: %w", where, err)
		}
		if host == "" {
			return fmt.Errorf("%s: host is required", where)
		}
		e.Host = host

		if e.Port == "" {
			return fmt.Errorf("%s: port is required", where)
		}
		if p, err := strconv.Atoi(e.Port); err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("%s: port must be a number between 1 and 65535, got %q", where, e.Port)
		}

		token, err := expandEnvVars(e.APIToken)
		if err != nil {
			return fmt.Errorf("%s: api_token: %w", where, err)
		}
		if token == "" {
			return fmt.Errorf("%s: api_token is required", where)
		}
		e.APIToken = token

		if j, dup := tokens[token]; dup {
			return fmt.Errorf("%s: api_token duplicates entries[%d]", where, j)
		}
		tokens[token] = i

		if e.Title == "" {
			e.Title = fmt.Sprintf("Paperless-NG %s:%s", e.Host, e.Port)
		}
	}

	return nil
}
