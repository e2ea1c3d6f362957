package paperless

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePaperless is a minimal Paperless-NG API backed by httptest.
type fakePaperless struct {
	mu sync.Mutex

	token     string
	documents []map[string]any
	tags      []Tag

	// per-path status overrides, e.g. "/api/tags/": 500
	statusOverride map[string]int
	// per-path raw body overrides
	bodyOverride map[string]string

	requests []*http.Request
}

func newFakePaperless(t *testing.T) (*fakePaperless, *httptest.Server) {
	t.Helper()
	fp := &fakePaperless{
		token:          "secret-token",
		statusOverride: make(map[string]int),
		bodyOverride:   make(map[string]string),
	}
	ts := httptest.NewServer(fp)
	t.Cleanup(ts.Close)
	return fp, ts
}

func (fp *fakePaperless) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.requests = append(fp.requests, r.Clone(r.Context()))

	if code, ok := fp.statusOverride[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	if r.Header.Get("Authorization") != "Token "+fp.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if body, ok := fp.bodyOverride[r.URL.Path]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/documents/":
		docs := fp.documents
		if tagID := r.URL.Query().Get("tags__id"); tagID != "" {
			id, _ := strconv.Atoi(tagID)
			docs = filterByTag(docs, id)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(docs), "results": docs})
	case "/api/tags/":
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(fp.tags), "results": fp.tags})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fp *fakePaperless) paths() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	out := make([]string, len(fp.requests))
	for i, r := range fp.requests {
		out[i] = r.URL.RequestURI()
	}
	return out
}

func filterByTag(docs []map[string]any, id int) []map[string]any {
	var out []map[string]any
	for _, d := range docs {
		tags, _ := d["tags"].([]int)
		for _, t := range tags {
			if t == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// sessionFor returns a session pointing at ts.
func sessionFor(t *testing.T, ts *httptest.Server, token string) Session {
	t.Helper()
	host, port := hostPort(t, ts.URL)
	return Session{Host: host, Port: port, Token: token}
}

func hostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return u.Hostname(), u.Port()
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return strconv.Itoa(port)
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	p, _ := strconv.Atoi(closedPort(t))
	return p
}
