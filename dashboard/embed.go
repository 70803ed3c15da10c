// Package dashboard holds the embedded web UI served by the board.
//
// The page is compiled into the binary so the agentpulse command runs
// without external asset files.
package dashboard

import "embed"

// Assets contains the dashboard web UI:
//
//	assets/
//	  index.html    - single page with inline CSS and JavaScript
//
// The page loads /api/status once, then follows "snapshot" events on
// /api/sse. The literal {{.Title}} is replaced by the server.
//
//go:embed assets/*
var Assets embed.FS
