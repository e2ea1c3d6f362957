package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpalmerr/paperless/config"
)

// fakeServer answers the token request with token and serves an empty
// document and tag list to requests carrying it.
func fakeServer(t *testing.T, token string) (host, port string) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token/" {
			_ = r.ParseForm()
			if r.PostForm.Get("password") != "hunter2" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
			return
		}
		if r.Header.Get("Authorization") != "Token "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/documents/":
			_, _ = w.Write([]byte(`{"count":4,"results":[]}`))
		case "/api/tags/":
			_, _ = w.Write([]byte(`{"count":1,"results":[{"id":1,"name":"inbox","document_count":0}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return u.Hostname(), u.Port()
}

func writePassword(t *testing.T, password string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(path, []byte(password+"\n"), 0o600); err != nil {
		t.Fatalf("write password: %v", err)
	}
	return path
}

func TestRunSetup_AddsEntry(t *testing.T) {
	host, port := fakeServer(t, "tok-1")
	configPath := filepath.Join(t.TempDir(), "paperless.yaml")

	output, err := executeCmd(t, "setup",
		"-c", configPath,
		"--host", host,
		"--port", port,
		"--username", "alice",
		"--password-file", writePassword(t, "hunter2"),
		"--todo-tag", "inbox",
		"--log-level", "error",
	)
	if err != nil {
		t.Fatalf("setup command error = %v", err)
	}
	if !strings.Contains(output, "Added Paperless-NG "+host+":"+port) {
		t.Errorf("output = %q, want added message", output)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(cfg.Entries))
	}
	e := cfg.Entries[0]
	if e.APIToken != "tok-1" || e.TodoTag != "inbox" || e.EntryID == "" {
		t.Errorf("entry = %+v, want token tok-1, tag inbox and an entry id", e)
	}

	data, _ := os.ReadFile(configPath)
	if strings.Contains(string(data), "hunter2") {
		t.Error("the password must not be written to the config file")
	}
}

func TestRunSetup_AlreadyConfigured(t *testing.T) {
	host, port := fakeServer(t, "tok-1")
	configPath := filepath.Join(t.TempDir(), "paperless.yaml")
	pw := writePassword(t, "hunter2")

	args := []string{"setup", "-c", configPath, "--host", host, "--port", port,
		"--username", "alice", "--password-file", pw, "--log-level", "error"}

	if _, err := executeCmd(t, args...); err != nil {
		t.Fatalf("first setup error = %v", err)
	}
	output, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("second setup error = %v", err)
	}
	if !strings.Contains(output, "already configured") {
		t.Errorf("output = %q, want already configured", output)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Entries) != 1 {
		t.Errorf("len(Entries) = %d, want 1", len(cfg.Entries))
	}
}

func TestRunSetup_InvalidAuth(t *testing.T) {
	host, port := fakeServer(t, "tok-1")
	configPath := filepath.Join(t.TempDir(), "paperless.yaml")

	_, err := executeCmd(t, "setup", "-c", configPath, "--host", host, "--port", port,
		"--username", "alice", "--password-file", writePassword(t, "wrong"), "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "invalid_auth") {
		t.Fatalf("error = %v, want invalid_auth", err)
	}
	if _, statErr := os.Stat(configPath); !os.IsNotExist(statErr) {
		t.Error("config file should not be created on failure")
	}
}

func TestRunSetup_CannotConnect(t *testing.T) {
	host, _ := fakeServer(t, "tok-1")

	_, err := executeCmd(t, "setup", "-c", filepath.Join(t.TempDir(), "p.yaml"),
		"--host", host, "--port", "1", "--username", "alice",
		"--password-file", writePassword(t, "hunter2"), "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "cannot_connect") {
		t.Fatalf("error = %v, want cannot_connect", err)
	}
}

func TestRunSetup_MissingPasswordFile(t *testing.T) {
	_, err := executeCmd(t, "setup", "-c", filepath.Join(t.TempDir(), "p.yaml"),
		"--host", "docs", "--username", "alice", "--password-file", "/nonexistent/pw")
	if err == nil || !strings.Contains(err.Error(), "reading password file") {
		t.Fatalf("error = %v, want password file error", err)
	}
}

func TestRunRefresh_PrintsStates(t *testing.T) {
	host, port := fakeServer(t, "tok-1")
	configPath := writeConfig(t, `
entries:
  - host: `+host+`
    port: "`+port+`"
    api_token: tok-1
    todo_tag: inbox
  - host: `+host+`
    port: "1"
    api_token: tok-2
`)

	output, err := executeCmd(t, "refresh", "-c", configPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("refresh command error = %v", err)
	}

	var states map[string]struct {
		State      string         `json:"state"`
		Attributes map[string]any `json:"attributes"`
	}
	if err := json.Unmarshal([]byte(output), &states); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}

	online := states["paperless-ng-"+host+":"+port]
	if online.State != "online" {
		t.Errorf("state = %q, want online", online.State)
	}
	if online.Attributes["document_total_count"] != float64(4) {
		t.Errorf("document_total_count = %v, want 4", online.Attributes["document_total_count"])
	}
	if online.Attributes["document_todo_count"] != float64(0) {
		t.Errorf("document_todo_count = %v, want 0", online.Attributes["document_todo_count"])
	}

	if offline := states["paperless-ng-"+host+":1"]; offline.State != "offline" {
		t.Errorf("state = %q, want offline", offline.State)
	}
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	configPath := writeConfig(t, `
entries:
  - host: docs
    port: "8000"
    api_token: a
`)
	_, err := executeCmd(t, "refresh", "-c", configPath, "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("error = %v, want unknown log level", err)
	}
}

func TestRunRefresh_SharedInstanceKeepsBothStates(t *testing.T) {
	host, port := fakeServer(t, "alice-token")
	configPath := writeConfig(t, `
entries:
  - host: `+host+`
    port: "`+port+`"
    api_token: alice-token
  - host: `+host+`
    port: "`+port+`"
    api_token: bob-token
`)

	output, err := executeCmd(t, "refresh", "-c", configPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("refresh command error = %v", err)
	}

	var states map[string]struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(output), &states); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}

	name := "paperless-ng-" + host + ":" + port
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2: %s", len(states), output)
	}
	if got := states[name].State; got != "online" {
		t.Errorf("%s state = %q, want online", name, got)
	}
	if got := states[name+"_2"].State; got != "authentication_failure" {
		t.Errorf("%s_2 state = %q, want authentication_failure", name, got)
	}
}
