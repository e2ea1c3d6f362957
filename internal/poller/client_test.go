package poller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"testing"
	"time"
)

// TestClient_ConnectionReuse verifies that sequential requests to the same
// host reuse pooled connections.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient()

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5

	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Do(ctx, Request{URL: server.URL})
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	expectedMinReuse := numRequests - 2
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

func TestClient_Do_SendsMethodHeadersAndBody(t *testing.T) {
	var gotMethod, gotAccept, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: "username=a&password=b",
	})
	if resp.Error != nil {
		t.Fatalf("Do() error = %v", resp.Error)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody != "username=a&password=b" {
		t.Errorf("body = %q", gotBody)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("response Content-Type = %q, want application/json", ct)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("response body = %q", resp.Body)
	}
}

func TestClient_Do_DefaultsToGet(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL})
	if resp.Error != nil {
		t.Fatalf("Do() error = %v", resp.Error)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: url})
	if resp.Error == nil {
		t.Fatal("expected transport error for closed server")
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
	if resp.Header != nil {
		t.Errorf("Header = %v, want nil", resp.Header)
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 50 * time.Millisecond})
	if resp.Error == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Do_BodyLimit(t *testing.T) {
	const size = 1024
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), size))
	}))
	defer server.Close()

	tests := []struct {
		name    string
		limit   int64
		wantErr bool
	}{
		{name: "exact limit", limit: size},
		{name: "over limit", limit: size - 1, wantErr: true},
		{name: "unlimited", limit: -1},
		{name: "default", limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewClient().Do(context.Background(), Request{URL: server.URL, MaxBodySize: tt.limit})
			if tt.wantErr {
				if !errors.Is(resp.Error, ErrBodyTooLarge) {
					t.Fatalf("Error = %v, want ErrBodyTooLarge", resp.Error)
				}
				if resp.Body != nil {
					t.Errorf("Body has %d bytes, want none", len(resp.Body))
				}
				if resp.StatusCode != http.StatusOK {
					t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
				}
				return
			}
			if resp.Error != nil {
				t.Fatalf("Do() error = %v", resp.Error)
			}
			if len(resp.Body) != size {
				t.Errorf("len(Body) = %d, want %d", len(resp.Body), size)
			}
		})
	}
}

func TestClient_Do_InvalidURL(t *testing.T) {
	resp := NewClient().Do(context.Background(), Request{URL: "://bad"})
	if resp.Error == nil {
		t.Fatal("expected error for invalid URL")
	}
}

// TestClient_Close verifies that Close() is safe to call and idempotent.
func TestClient_Close(t *testing.T) {
	client := NewClient()

	client.Close()
	client.Close()
	client.Close()
}

// TestClient_Close_NilClient verifies that Close() handles nil receiver safely.
func TestClient_Close_NilClient(t *testing.T) {
	var client *Client

	client.Close()
}

func TestNewClientWith_Nil(t *testing.T) {
	if c := NewClientWith(nil); c == nil || c.httpClient == nil {
		t.Fatal("NewClientWith(nil) should fall back to a pooled client")
	}
}
