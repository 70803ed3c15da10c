// Package agentpulse keeps a live, last-known-good view of a remote list of
// agent statuses by polling it at a fixed interval.
//
// A poller fetches a JSON array of agents from an HTTP endpoint, replaces
// its snapshot when the poll succeeds, and keeps the previous snapshot
// flagged as stale when it fails. Operators watching live status see
// "last known state, marked stale" on a transient network blip rather than
// an empty screen.
//
// # Quick Start
//
//	h, err := agentpulse.Start(ctx, "http://localhost:9999/agents", 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer h.Stop()
//
//	snap := h.Snapshot()
//	for _, a := range snap.Entities {
//	    fmt.Println(a.Name, a.State, a.TasksCompleted)
//	}
//	if snap.IsStale {
//	    fmt.Println("stale:", snap.LastError)
//	}
//
// # Wire Format
//
// The endpoint must answer GET with a JSON array:
//
//	[{"name": "A", "status": "busy", "last_task": "build",
//	  "last_task_time": "2024-01-01T00:00:00Z",
//	  "tasks_completed": 5, "success_rate": 0.8}]
//
// Status strings are mapped through an allow-list into [State]; anything
// unrecognised becomes [StateUnknown] without failing the poll.
//
// # Poll Semantics
//
//   - The first poll runs immediately, then one poll per interval.
//   - At most one request is in flight per handle; ticks that fire while a
//     request is outstanding are skipped.
//   - Network failures, non-2xx responses and malformed documents become
//     [*NetworkError], [*HTTPError] and [*ParseError] in
//     [Snapshot.LastError], with [Snapshot.IsStale] set. Entities are kept.
//   - After [Handle.Stop] no further state change is applied.
//   - There is no backoff: a failing endpoint is retried every interval.
//
// # Architecture
//
// The module consists of several packages:
//
//   - agentpulse: the poller SDK (this package)
//   - board: a multi-source dashboard built from several pollers
//   - config: YAML configuration for the agentpulse binary
//   - internal/poller: HTTP client and at-most-one-in-flight poll loop
//   - internal/store: snapshot storage with pub/sub for live updates
//   - internal/server: REST API and Server-Sent Events
//   - internal/tui: terminal view used by "agentpulse watch"
//   - dashboard: embedded web UI assets
package agentpulse
