// Package server exposes the published sensor states over HTTP.
//
// Routes:
//
//   - GET /api/states: all sensor states as JSON
//   - GET /api/states/{name}: one sensor state
//   - GET /api/sse: Server-Sent Events stream of state updates
//   - GET /metrics: Prometheus metrics
package server
