// Package server provides the HTTP surface of the agentpulse board.
//
//   - Dashboard serving: the embedded HTML page at "/"
//   - REST API: "/api/status" and "/api/status/{name}" return source snapshots
//   - Server-Sent Events: "snapshot" events at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
