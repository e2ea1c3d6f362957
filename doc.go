// Package paperless polls Paperless-NG document-management servers and
// publishes document, tag and to-do counts as sensor state.
//
// The package has two halves.
//
// Setup exchanges a username and password for an API token. [Authenticator]
// performs the token request and [ConfigFlow] wraps it in a setup wizard that
// reports form errors (cannot_connect, invalid_auth, unknown) and persists a
// [ConfigEntry] through an [EntryRegistry], deduplicated by token.
//
// Polling runs a [Refresher] against a [Session] on every interval. Each
// cycle fetches all documents, all tags and, when a to-do tag is configured
// and exists, the documents carrying it, and folds them into a [State]:
//
//	refresher := paperless.NewRefresher()
//	state := refresher.Refresh(ctx, session, "inbox")
//	fmt.Println(state.Status, state.Attributes())
//
// Refresh never returns an error; failures show up as [StatusOffline] or
// [StatusAuthFailure] with the affected fields absent.
//
// # Hosting
//
// [Hub] runs sensors on a schedule and serves their published state:
//
//	sensor, _ := paperless.NewSensor(session, paperless.WithTodoTag("inbox"))
//	hub, _ := paperless.New(
//	    paperless.WithSensor(sensor),
//	    paperless.WithPollingInterval(time.Minute),
//	    paperless.WithPort(9090),
//	)
//	hub.Start(ctx) // blocks until ctx is cancelled
//
// The internal packages are not part of the public API:
//
//   - internal/poller: HTTP client and gocron-backed job scheduler
//   - internal/store: in-memory state store with pub/sub
//   - internal/server: REST API, Server-Sent Events and /metrics
//   - internal/metrics: Prometheus instrumentation
package paperless
