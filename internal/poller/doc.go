// Package poller provides the HTTP client and poll loop behind agentpulse.
//
// This package is internal to agentpulse. It knows nothing about agent
// statuses; it only fetches bytes and decides when a poll may run.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts and a body size limit
//   - [Ticker]: Fixed-interval poll loop with an immediate first poll and an
//     at-most-one-in-flight guard
//
// Users of the agentpulse library should not need to interact with this
// package directly. Pollers are created through agentpulse.Start.
package poller
