package paperless

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/jpalmerr/paperless/internal/metrics"
	"github.com/jpalmerr/paperless/internal/poller"
)

// fetch names used in logs and metric labels
const (
	fetchDocuments     = "documents"
	fetchTags          = "tags"
	fetchTodoDocuments = "todo_documents"
)

// maxPageSize caps one API page. Document pages carry the full OCR content
// of every result, so they run far past the client's default limit.
const maxPageSize = 256 << 20

// FetchResult is the outcome of one API call: a status and, when the status
// is [StatusOnline], the response body.
type FetchResult struct {
	Status     Status
	StatusCode int
	Body       []byte
	Err        error
}

// Refresher polls a Paperless-NG instance and aggregates the result.
type Refresher struct {
	client   *poller.Client
	logger   *slog.Logger
	timeout  time.Duration
	recorder *metrics.Recorder
}

// NewRefresher creates a [Refresher].
func NewRefresher(opts ...ClientOption) *Refresher {
	cfg, client := newClientConfig(opts)
	return &Refresher{
		client:   client,
		logger:   cfg.logger,
		timeout:  cfg.timeout,
		recorder: cfg.recorder,
	}
}

// Refresh performs one refresh cycle and returns a fresh [State].
//
// It fetches /api/documents/ and /api/tags/, then, if todoTag is non-empty
// and a tag with exactly that name exists, the documents carrying that tag.
// The calls run sequentially. Refresh never fails: every error degrades
// the status and leaves the affected fields absent.
func (r *Refresher) Refresh(ctx context.Context, s Session, todoTag string) State {
	return r.refresh(ctx, s.EntityName(), s, todoTag)
}

// RefreshSensor refreshes sensor, labelling logs and metrics with its name
// rather than the session's default entity name.
func (r *Refresher) RefreshSensor(ctx context.Context, sensor Sensor) State {
	return r.refresh(ctx, sensor.name, sensor.session, sensor.todoTag)
}

func (r *Refresher) refresh(ctx context.Context, name string, s Session, todoTag string) State {
	start := time.Now()
	state := State{TodoTagName: todoTag}
	base := s.BaseURL()

	var docs documentPage
	docsStatus := r.fetchJSON(ctx, s, fetchDocuments, base+"/documents/", &docs)
	statuses := []Status{docsStatus}
	if docsStatus == StatusOnline {
		total := docs.Count
		state.TotalDocumentCount = &total
	}

	var tags tagPage
	tagsStatus := r.fetchJSON(ctx, s, fetchTags, base+"/tags/", &tags)
	statuses = append(statuses, tagsStatus)
	if tagsStatus == StatusOnline {
		state.TagNames = make(map[int]string, len(tags.Results))
		state.TagDocumentCounts = make(map[int]int, len(tags.Results))
		for _, t := range tags.Results {
			state.TagNames[t.ID] = t.Name
			state.TagDocumentCounts[t.ID] = t.DocumentCount
		}
	}

	if todoTag != "" && tagsStatus == StatusOnline {
		if tag, ok := findTag(tags.Results, todoTag); ok {
			count := tag.DocumentCount
			state.TodoDocumentCount = &count

			var todo documentPage
			todoURL := base + "/documents/?tags__id=" + strconv.Itoa(tag.ID)
			todoStatus := r.fetchJSON(ctx, s, fetchTodoDocuments, todoURL, &todo)
			statuses = append(statuses, todoStatus)
			if todoStatus == StatusOnline {
				state.TodoDocuments = make([]Document, 0, len(todo.Results))
				for _, d := range todo.Results {
					state.TodoDocuments = append(state.TodoDocuments, d.StripContent())
				}
				sortByCreated(state.TodoDocuments)
			}
		} else {
			r.logger.Warn("to-do tag not found", "sensor", name, "todo_tag", todoTag)
		}
	}

	state.Status = worst(statuses...)
	state.CheckedAt = time.Now()

	r.recorder.ObserveRefresh(name, state.Status.String(), time.Since(start))
	if state.TotalDocumentCount != nil {
		r.recorder.SetDocuments(name, *state.TotalDocumentCount)
	}
	if state.TodoDocumentCount != nil {
		r.recorder.SetTodoDocuments(name, *state.TodoDocumentCount)
	}

	return state
}

// Fetch performs one authenticated GET and classifies the response:
// 401 is an authentication failure, any other non-200 status or a transport
// error is offline, 200 is online with the body attached.
func (r *Refresher) Fetch(ctx context.Context, s Session, url string) FetchResult {
	resp := r.client.Do(ctx, poller.Request{
		URL:         url,
		Headers:     s.authHeaders(),
		Timeout:     r.timeout,
		MaxBodySize: maxPageSize,
	})

	if resp.Error != nil {
		r.logger.Error("fetch failed", "sensor", s.EntityName(), "url", url, "error", resp.Error)
		return FetchResult{Status: StatusOffline, Err: resp.Error}
	}

	status := statusFromCode(resp.StatusCode)
	result := FetchResult{Status: status, StatusCode: resp.StatusCode}
	switch status {
	case StatusOnline:
		result.Body = resp.Body
	case StatusAuthFailure:
		r.logger.Warn("token rejected", "sensor", s.EntityName(), "url", url, "status_code", resp.StatusCode)
	default:
		r.logger.Warn("unexpected status", "sensor", s.EntityName(), "url", url, "status_code", resp.StatusCode)
	}
	return result
}

// fetchJSON fetches url and decodes an online response into v. A body that
// does not decode is treated as offline.
func (r *Refresher) fetchJSON(ctx context.Context, s Session, name, url string, v any) Status {
	start := time.Now()
	result := r.Fetch(ctx, s, url)
	if result.Status == StatusOnline {
		if err := json.Unmarshal(result.Body, v); err != nil {
			r.logger.Error("failed to decode response", "sensor", s.EntityName(), "url", url, "error", err)
			result.Status = StatusOffline
		}
	}
	r.recorder.ObserveFetch(name, result.Status.String(), time.Since(start))
	return result.Status
}

// Close releases idle connections.
func (r *Refresher) Close() {
	r.client.Close()
}
