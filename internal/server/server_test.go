package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jpalmerr/agentpulse/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errPtr(s string) *string { return &s }

func seededStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.Update(store.SourceSnapshot{
		Name:  "prod",
		URL:   "http://prod.example/agents",
		Phase: "fresh",
		Agents: []store.AgentRecord{
			{Name: "A", Status: "busy", LastTask: "build", TasksCompleted: 5, SuccessRate: 0.8},
		},
	})
	st.Update(store.SourceSnapshot{
		Name:                "build-farm",
		URL:                 "http://farm.example/agents",
		Phase:               "stale",
		Stale:               true,
		Error:               errPtr("network error polling http://farm.example/agents: connection refused"),
		ConsecutiveFailures: 2,
	})
	return st
}

// parseSSEEvents extracts the JSON payloads of "snapshot" events.
func parseSSEEvents(body string) []store.SourceSnapshot {
	var results []store.SourceSnapshot
	for _, block := range strings.Split(body, "\n\n") {
		if !strings.Contains(block, "event: "+sseEvent) {
			continue
		}
		for _, line := range strings.Split(block, "\n") {
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var snap store.SourceSnapshot
				if err := json.Unmarshal([]byte(data), &snap); err == nil {
					results = append(results, snap)
				}
			}
		}
	}
	return results
}

// --- REST API ---

func TestHandleStatus_ReturnsAllSortedByName(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got []store.SourceSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "build-farm" || got[1].Name != "prod" {
		t.Errorf("order = %q, %q; want build-farm, prod", got[0].Name, got[1].Name)
	}
	if !got[0].Stale || got[0].Error == nil {
		t.Errorf("build-farm = %+v, want stale with error", got[0])
	}
	if got[0].Agents == nil {
		t.Error("agents should decode as [] rather than null")
	}
}

func TestHandleStatus_EmptyStoreIsEmptyArray(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleSource(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantName   string
	}{
		{"/api/status/prod", http.StatusOK, "prod"},
		{"/api/status/build-farm", http.StatusOK, "build-farm"},
		{"/api/status/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantName == "" {
				return
			}

			var snap store.SourceSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if snap.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", snap.Name, tt.wantName)
			}
		})
	}
}

func TestHandleSource_AgentWireFields(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status/prod", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, field := range []string{`"last_task":"build"`, `"tasks_completed":5`, `"success_rate":0.8`, `"status":"busy"`, `"consecutive_failures":0`} {
		if !strings.Contains(body, field) {
			t.Errorf("body missing %s: %s", field, body)
		}
	}
}

// --- SSE ---

func TestHandleSSE_InitialSnapshots(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2; body: %s", len(events), rec.Body.String())
	}
	if events[0].Name != "build-farm" || events[1].Name != "prod" {
		t.Errorf("event order = %q, %q", events[0].Name, events[1].Name)
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}

	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
}

func (n *nonFlushWriter) Header() http.Header         { return n.header }
func (n *nonFlushWriter) Write(b []byte) (int, error) { return len(b), nil }
func (n *nonFlushWriter) WriteHeader(statusCode int)  { n.statusCode = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", testLogger())

	w := &nonFlushWriter{header: make(http.Header)}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

// TestHandleSSE_StreamsUpdates uses a real connection so reads and writes
// never share a recorder buffer.
func TestHandleSSE_StreamsUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/sse: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	got := make(chan store.SourceSnapshot, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				var snap store.SourceSnapshot
				if json.Unmarshal([]byte(data), &snap) == nil {
					got <- snap
				}
			}
		}
	}()

	// the handler subscribes after headers are flushed; keep publishing until one arrives
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case snap := <-got:
			if snap.Name != "live" || snap.Phase != "fresh" {
				t.Errorf("received %+v, want live/fresh", snap)
			}
			return
		case <-tick.C:
			st.Update(store.SourceSnapshot{Name: "live", Phase: "fresh"})
		case <-deadline:
			t.Fatal("no update streamed")
		}
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	// request contexts derive from this one, as BaseContext arranges in production
	serverCtx, serverCancel := context.WithCancel(context.Background())

	const numClients = 10
	var wg sync.WaitGroup
	var started atomic.Int32

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
			started.Add(1)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	for started.Load() < numClients {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

// --- Start ---

func TestStart_ServesAndShutsDown(t *testing.T) {
	srv := NewServer(seededStore(), 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	port := srv.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://127.0.0.1:%d/api/status/prod", port)

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 100*time.Millisecond)
		if err != nil {
			return
		}
		_ = conn.Close()
		if time.Now().After(deadline) {
			t.Fatal("server still accepting connections after shutdown")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), port, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestAddr_BeforeStart(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", nil)
	if srv.Addr() != nil {
		t.Errorf("Addr() = %v before Start, want nil", srv.Addr())
	}
}

// --- Dashboard ---

func dashboardFS(content string) fstest.MapFS {
	return fstest.MapFS{"assets/index.html": {Data: []byte(content)}}
}

func TestHandleDashboard_Title(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"custom", "Build Agents", "<title>Build Agents</title><h1>Build Agents</h1>"},
		{"default", "", "<title>AgentPulse</title><h1>AgentPulse</h1>"},
		{"html escaped", "<script>alert('xss')</script>", "&lt;script&gt;"},
		{"ampersand", "Agents & Workers", "Agents &amp; Workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(store.NewMemoryStore(), 0, dashboardFS("<title>{{.Title}}</title><h1>{{.Title}}</h1>"), tt.title, testLogger())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body = %s, want to contain %s", body, tt.want)
			}
			if strings.Contains(body, "<script>") {
				t.Error("title should be HTML-escaped")
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q, want text/html", ct)
			}
		})
	}
}

func TestHandleDashboard_NoAssets(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "Custom Title", testLogger())

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandleDashboard_MissingIndex(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, fstest.MapFS{}, "", testLogger())

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandleDashboard_NonRootPath(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, dashboardFS("<title>{{.Title}}</title>"), "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for non-root path, got %d", http.StatusNotFound, rec.Code)
	}
}
