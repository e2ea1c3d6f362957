package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
entries:
  - host: paperless.local
    port: "8000"
    api_token: abc
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %v, want 0", cfg.RequestTimeout.Duration())
	}
	if len(cfg.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(cfg.Entries))
	}
	if cfg.Entries[0].Title != "Paperless-NG paperless.local:8000" {
		t.Errorf("Title = %q, want default title", cfg.Entries[0].Title)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
port: 9090
poll_interval: 1m
request_timeout: 10s

entries:
  - entry_id: e1
    title: Office
    host: docs.example.com
    port: "443"
    ssl: true
    api_token: abc
    todo_tag: inbox
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.PollInterval.Duration() != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.PollInterval.Duration())
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout.Duration())
	}

	want := EntryConfig{
		EntryID:  "e1",
		Title:    "Office",
		Host:     "docs.example.com",
		Port:     "443",
		SSL:      true,
		APIToken: "abc",
		TodoTag:  "inbox",
	}
	if cfg.Entries[0] != want {
		t.Errorf("Entries[0] = %+v, want %+v", cfg.Entries[0], want)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("PAPERLESS_TOKEN", "from-env")
	t.Setenv("PAPERLESS_HOST", "docs.internal")

	yaml := `
entries:
  - host: ${PAPERLESS_HOST}
    port: "8000"
    api_token: ${PAPERLESS_TOKEN}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Entries[0].APIToken != "from-env" {
		t.Errorf("APIToken = %q, want from-env", cfg.Entries[0].APIToken)
	}
	if cfg.Entries[0].Host != "docs.internal" {
		t.Errorf("Host = %q, want docs.internal", cfg.Entries[0].Host)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
entries:
  - host: ${UNSET_PAPERLESS_HOST:-localhost}
    port: "8000"
    api_token: abc
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Entries[0].Host != "localhost" {
		t.Errorf("Host = %q, want localhost", cfg.Entries[0].Host)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
entries:
  - host: docs
    port: "8000"
    api_token: ${MISSING_PAPERLESS_TOKEN}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_PAPERLESS_TOKEN") {
		t.Errorf("error = %q, want to mention the variable", err.Error())
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "no entries",
			yaml:        `port: 8080`,
			wantErrLike: "at least one entry",
		},
		{
			name: "missing host",
			yaml: `
entries:
  - port: "8000"
    api_token: abc
`,
			wantErrLike: "entries[0]: host is required",
		},
		{
			name: "missing port",
			yaml: `
entries:
  - title: Office
    host: docs
    api_token: abc
`,
			wantErrLike: "entries[0] (Office): port is required",
		},
		{
			name: "non-numeric port",
			yaml: `
entries:
  - host: docs
    port: http
    api_token: abc
`,
			wantErrLike: "port must be a number",
		},
		{
			name: "missing token",
			yaml: `
entries:
  - host: docs
    port: "8000"
`,
			wantErrLike: "api_token is required",
		},
		{
			name: "duplicate token",
			yaml: `
entries:
  - host: a
    port: "8000"
    api_token: abc
  - host: b
    port: "8000"
    api_token: abc
`,
			wantErrLike: "duplicates entries[0]",
		},
		{
			name: "server port out of range",
			yaml: `
port: 70000
entries:
  - host: docs
    port: "8000"
    api_token: abc
`,
			wantErrLike: "port must be between 1 and 65535",
		},
		{
			name: "poll interval too short",
			yaml: `
poll_interval: 500ms
entries:
  - host: docs
    port: "8000"
    api_token: abc
`,
			wantErrLike: "poll_interval must be at least 1s",
		},
		{
			name: "negative request timeout",
			yaml: `
request_timeout: -1s
entries:
  - host: docs
    port: "8000"
    api_token: abc
`,
			wantErrLike: "request_timeout cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	yaml := `
this is not: valid: yaml: at all
  - broken
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
poll_interval: not-a-duration
entries:
  - host: docs
    port: "8000"
    api_token: abc
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want to contain 'invalid duration'", err.Error())
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		PollInterval:   Duration(90 * time.Second),
		RequestTimeout: Duration(5 * time.Second),
		Entries:        []EntryConfig{{Host: "docs", Port: "8000", APIToken: "abc"}},
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := writeAtomic(path, out); err != nil {
		t.Fatalf("writeAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "poll_interval: 1m30s") {
		t.Errorf("file = %s, want poll_interval: 1m30s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.PollInterval.Duration() != 90*time.Second {
		t.Errorf("PollInterval = %v, want 1m30s", loaded.PollInterval.Duration())
	}
	if loaded.RequestTimeout.Duration() != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", loaded.RequestTimeout.Duration())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
