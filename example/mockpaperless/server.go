// Package mockpaperless is a small in-memory Paperless-NG API for demos.
//
// It serves /api/token/, /api/documents/ and /api/tags/. A new document
// lands in the "inbox" tag every 20-60 seconds so the sensor has something
// to report.
package mockpaperless

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Demo credentials accepted by the token endpoint.
const (
	Username = "demo"
	Password = "demo"
	Token    = "demo-token"
)

const inboxTagID = 1

type document struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Created string `json:"created"`
	Tags    []int  `json:"tags"`
	Content string `json:"content"`
}

type tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Server holds the mock's documents.
type Server struct {
	mu           sync.Mutex
	documents    []document
	tags         []tag
	nextChangeAt time.Time
	logger       *slog.Logger
}

// New returns a server seeded with a few documents.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	return &Server{
		tags: []tag{{ID: inboxTagID, Name: "inbox"}, {ID: 2, Name: "bills"}, {ID: 3, Name: "taxes"}},
		documents: []document{
			{ID: 1, Title: "Electricity bill", Created: now.Add(-72 * time.Hour).Format(time.RFC3339), Tags: []int{2}, Content: "kWh"},
			{ID: 2, Title: "Tax return 2023", Created: now.Add(-48 * time.Hour).Format(time.RFC3339), Tags: []int{3}, Content: "refund"},
			{ID: 3, Title: "Scanned letter", Created: now.Add(-1 * time.Hour).Format(time.RFC3339), Tags: []int{inboxTagID}, Content: "dear"},
		},
		nextChangeAt: now.Add(nextChange()),
		logger:       logger,
	}
}

// nextChange returns a delay of 20-60 seconds.
func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

// Handler returns the HTTP handler of the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/", s.handleToken)
	mux.HandleFunc("GET /api/documents/", s.authenticated(s.handleDocuments))
	mux.HandleFunc("GET /api/tags/", s.authenticated(s.handleTags))
	return mux
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	writeJSON(w, map[string]string{"token": Token})
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
		next(w, r)
	}
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.maybeAddDocument()
	docs := s.documents
	if raw := r.URL.Query().Get("tags__id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.mu.Unlock()
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		docs = withTag(docs, id)
	}
	out := make([]document, len(docs))
	copy(out, docs)
	s.mu.Unlock()

	writeJSON(w, map[string]any{"count": len(out), "results": out})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	results := make([]map[string]any, 0, len(s.tags))
	for _, t := range s.tags {
		results = append(results, map[string]any{
			"id":             t.ID,
			"name":           t.Name,
			"document_count": len(withTag(s.documents, t.ID)),
		})
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"count": len(results), "results": results})
}

// maybeAddDocument files a new inbox document when one is due. Caller holds mu.
func (s *Server) maybeAddDocument() {
	if time.Now().Before(s.nextChangeAt) {
		return
	}
	id := len(s.documents) + 1
	s.documents = append(s.documents, document{
		ID:      id,
		Title:   fmt.Sprintf("Scan %d", id),
		Created: time.Now().Format(time.RFC3339),
		Tags:    []int{inboxTagID},
		Content: "ocr",
	})
	s.nextChangeAt = time.Now().Add(nextChange())
	s.logger.Info("document added", "id", id, "tag", "inbox")
}

func withTag(docs []document, id int) []document {
	var out []document
	for _, d := range docs {
		for _, t := range d.Tags {
			if t == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
