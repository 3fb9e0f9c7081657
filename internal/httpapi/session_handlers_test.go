package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cartomix/rhythmengine/internal/config"
	"github.com/cartomix/rhythmengine/internal/session"
	"github.com/cartomix/rhythmengine/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(&config.Config{}, logger, db)
}

const testChartJSON = `{
  "difficulty": "easy",
  "rating": 1,
  "timing_points": [{"beat": 0, "bpm": 120}],
  "path_segments": [{
    "kind": "CatmullRom",
    "start_beat": 0,
    "end_beat": 8,
    "points": [{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0},{"x":3,"y":0}]
  }],
  "notes": [
    {"beat": 1, "note_type": {"kind": "Tap"}},
    {"beat": 2, "note_type": {"kind": "Tap"}}
  ],
  "travel_beats": 3,
  "look_ahead_beats": 3,
  "time_signature": [4, 4]
}`

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	createBody, err := json.Marshal(CreateSessionRequest{
		Chart: json.RawMessage(testChartJSON),
		BPM:   120,
	})
	if err != nil {
		t.Fatalf("marshal create request: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewReader(createBody))
	handler.ServeHTTP(rec, req)
	if rec.Code != 201 {
		t.Fatalf("create session: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	sessionID := created["session_id"]
	if sessionID == "" {
		t.Fatal("expected a non-empty session_id")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/sessions/"+sessionID+"/start", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("start session: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	tickBody, _ := json.Marshal(TickSessionRequest{NowSeconds: 0.5})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/sessions/"+sessionID+"/tick", bytes.NewReader(tickBody))
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("tick session: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/sessions/"+sessionID+"/state", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("get state: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/sessions/"+sessionID+"/finish", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("finish session: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/sessions/"+sessionID+"/state", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("expected 404 for finished/removed session, got %d", rec.Code)
	}
}

func TestSessionStateStream(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	createBody, _ := json.Marshal(CreateSessionRequest{Chart: json.RawMessage(testChartJSON), BPM: 120})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewReader(createBody))
	handler.ServeHTTP(rec, req)
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	sessionID := created["session_id"]

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/sessions/"+sessionID+"/start", nil)
	handler.ServeHTTP(rec, req)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	streamRec := httptest.NewRecorder()
	streamReq := httptest.NewRequest("GET", "/api/sessions/"+sessionID+"/state/stream", nil).WithContext(ctx)
	handler.ServeHTTP(streamRec, streamReq)

	if streamRec.Code != 200 {
		t.Fatalf("stream: status = %d, body = %s", streamRec.Code, streamRec.Body.String())
	}

	dec := json.NewDecoder(streamRec.Body)
	var state session.ObservableState
	if err := dec.Decode(&state); err != nil {
		t.Fatalf("decode first streamed state line: %v", err)
	}
}

func TestCreateSessionRejectsInvalidChart(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	body, _ := json.Marshal(CreateSessionRequest{Chart: json.RawMessage(`{"notes": "not-an-array"}`)})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("expected 400 for malformed chart, got %d: %s", rec.Code, rec.Body.String())
	}
}
