// Package poller provides the HTTP transport and periodic job scheduling used
// by the Paperless-NG sensor host.
//
// The main components are:
//
//   - [Client]: pooled HTTP client returning structured [Response] values
//   - [Scheduler]: runs named [Job] values at a fixed interval on gocron,
//     never overlapping a job with itself
//   - [Result]: outcome of one job run
//
// Users of the paperless library should not need to interact with this
// package directly. Configuration is done through the root package.
package poller
