package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", (&Server{}).handleHealth)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	req := httptest.NewRequest("OPTIONS", "/api/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header to allow all origins")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Access-Control-Allow-Methods header")
	}
}

func TestSongResponseJSON(t *testing.T) {
	response := SongResponse{
		ID: 1, ContentHash: "abc123", Path: "/songs/track.wav",
		Title: "Test Song", Artist: "Test Artist", DurationSeconds: 120.5,
	}

	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded SongResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.ContentHash != response.ContentHash {
		t.Errorf("content_hash mismatch: got %s, want %s", decoded.ContentHash, response.ContentHash)
	}
	if decoded.DurationSeconds != response.DurationSeconds {
		t.Errorf("duration mismatch: got %f, want %f", decoded.DurationSeconds, response.DurationSeconds)
	}
}

func TestScanRequestJSON(t *testing.T) {
	request := ScanRequest{
		Roots:       []string{"/songs/pack1", "/songs/pack2"},
		ForceRescan: true,
	}

	data, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded ScanRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(decoded.Roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(decoded.Roots))
	}
	if !decoded.ForceRescan {
		t.Error("expected force_rescan to be true")
	}
}

func TestGenerateChartRequestJSON(t *testing.T) {
	request := GenerateChartRequest{SongID: 42, Difficulty: "hard", Priority: 1}

	data, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded GenerateChartRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.SongID != 42 || decoded.Difficulty != "hard" {
		t.Errorf("decoded mismatch: %+v", decoded)
	}
}

func TestSessionRegistryAddGetRemove(t *testing.T) {
	reg := newSessionRegistry()
	id := reg.add(nil)
	if _, ok := reg.get(id); !ok {
		t.Fatalf("expected session %s to be registered", id)
	}
	reg.remove(id)
	if _, ok := reg.get(id); ok {
		t.Fatalf("expected session %s to be removed", id)
	}
}
