// Package httpapi is the JSON/HTTP surface exposing session control, the
// chart library, and chart-generation job control to an external
// renderer/HUD process (spec.md §1 explicitly keeps rendering out of this
// module's own scope). Adapted from the teacher's internal/httpapi/httpapi.go:
// same http.ServeMux + writeJSON/writeError shape, retargeted from track
// analysis/export endpoints to session/chart-library endpoints. The
// teacher's gRPC surface (generated from .proto sources we don't have) is
// dropped; this stdlib net/http layer, already the teacher's own secondary
// interface, becomes the primary one here (see DESIGN.md).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/config"
	"github.com/cartomix/rhythmengine/internal/inputevents"
	"github.com/cartomix/rhythmengine/internal/scanner"
	"github.com/cartomix/rhythmengine/internal/session"
	"github.com/cartomix/rhythmengine/internal/storage"
)

// Server provides the HTTP REST endpoints for the rhythm engine host
// process (cmd/enginesvc).
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *storage.DB
	scanner *scanner.Scanner

	sessions *sessionRegistry
	mux      *http.ServeMux
}

// NewServer creates an HTTP API server over db.
func NewServer(cfg *config.Config, logger *slog.Logger, db *storage.DB) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		scanner:  scanner.NewScanner(db, logger),
		sessions: newSessionRegistry(),
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/songs", s.handleListSongs)
	s.mux.HandleFunc("GET /api/songs/{id}/charts", s.handleListCharts)
	s.mux.HandleFunc("POST /api/scan", s.handleScan)

	s.mux.HandleFunc("POST /api/charts/generate", s.handleGenerateChart)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)

	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/start", s.handleStartSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/tick", s.handleTickSession)
	s.mux.HandleFunc("GET /api/sessions/{id}/state", s.handleSessionState)
	s.mux.HandleFunc("GET /api/sessions/{id}/state/stream", s.handleSessionStateStream)
	s.mux.HandleFunc("POST /api/sessions/{id}/finish", s.handleFinishSession)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SongResponse is the JSON response for one catalogued song.
type SongResponse struct {
	ID              int64   `json:"id"`
	ContentHash     string  `json:"content_hash"`
	Path            string  `json:"path"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *Server) handleListSongs(w http.ResponseWriter, _ *http.Request) {
	songs, err := s.db.ListSongs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list songs: "+err.Error())
		return
	}
	resp := make([]SongResponse, 0, len(songs))
	for _, song := range songs {
		resp = append(resp, SongResponse{
			ID:              song.ID,
			ContentHash:     song.ContentHash,
			Path:            song.Path,
			Title:           song.Title,
			Artist:          song.Artist,
			DurationSeconds: song.DurationSeconds,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChartResponse is the JSON response for one generated chart's catalog
// record.
type ChartResponse struct {
	ID               int64   `json:"id"`
	Difficulty       string  `json:"difficulty"`
	Rating           int     `json:"rating"`
	NotesPerSecond   float64 `json:"notes_per_second"`
	ChartPath        string  `json:"chart_path"`
	Checksum         string  `json:"checksum"`
	GeneratorVersion string  `json:"generator_version"`
}

func (s *Server) handleListCharts(w http.ResponseWriter, r *http.Request) {
	songID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}
	charts, err := s.db.ListChartsForSong(songID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list charts: "+err.Error())
		return
	}
	resp := make([]ChartResponse, 0, len(charts))
	for _, c := range charts {
		resp = append(resp, ChartResponse{
			ID: c.ID, Difficulty: c.Difficulty, Rating: c.Rating,
			NotesPerSecond: c.NotesPerSecond, ChartPath: c.ChartPath,
			Checksum: c.Checksum, GeneratorVersion: c.GeneratorVersion,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// defaultGenerationDifficulties are the tiers a freshly-scanned song gets
// queued for automatically; a client that wants a specific tier still goes
// through POST /api/charts/generate directly.
var defaultGenerationDifficulties = []string{
	string(chart.DifficultyEasy), string(chart.DifficultyNormal),
	string(chart.DifficultyHard), string(chart.DifficultyExpert),
}

// ScanRequest is the JSON request body for POST /api/scan.
type ScanRequest struct {
	Roots       []string `json:"roots"`
	ForceRescan bool     `json:"force_rescan"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Roots) == 0 {
		writeError(w, http.StatusBadRequest, "at least one root path is required")
		return
	}

	jobID, err := s.db.CreateJob(storage.JobTypeScan, 0, map[string]any{
		"roots":        req.Roots,
		"force_rescan": req.ForceRescan,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to queue scan: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	go func() {
		defer cancel()
		progress := make(chan scanner.ScanProgress)
		var newSongIDs []int64
		done := make(chan struct{})
		go func() {
			defer close(done)
			for p := range progress {
				s.logger.Debug("scan progress", "job_id", jobID, "percent", p.Percent, "file", p.CurrentFile)
				if p.IsNew {
					newSongIDs = append(newSongIDs, p.SongID)
				}
			}
		}()
		if err := s.scanner.Scan(ctx, req.Roots, req.ForceRescan, progress); err != nil {
			<-done
			s.db.FailJob(jobID, err.Error())
			return
		}
		<-done

		if len(newSongIDs) > 0 {
			if err := s.scanner.EnqueueGeneration(newSongIDs, defaultGenerationDifficulties, 0); err != nil {
				s.logger.Error("failed to queue generation jobs for new songs", "job_id", jobID, "error", err)
			}
		}
		s.db.CompleteJob(jobID, map[string]any{"roots": req.Roots, "new_songs": newSongIDs})
	}()

	writeJSON(w, http.StatusAccepted, map[string]int64{"job_id": jobID})
}

// GenerateChartRequest is the JSON request body for POST /api/charts/generate.
type GenerateChartRequest struct {
	SongID     int64  `json:"song_id"`
	Difficulty string `json:"difficulty"`
	Priority   int    `json:"priority"`
}

func (s *Server) handleGenerateChart(w http.ResponseWriter, r *http.Request) {
	var req GenerateChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SongID == 0 || req.Difficulty == "" {
		writeError(w, http.StatusBadRequest, "song_id and difficulty are required")
		return
	}

	jobID, err := s.db.CreateJob(storage.JobTypeGenerate, req.Priority, map[string]any{
		"song_id":      req.SongID,
		"difficulties": []string{req.Difficulty},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to queue generation: "+err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int64{"job_id": jobID})
}

// JobResponse is the JSON response for a job's status, mirroring spec.md
// §6's generation-stage timings informally via the job's payload/result.
type JobResponse struct {
	ID     int64          `json:"id"`
	Type   string         `json:"type"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.db.GetJob(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{
		ID: job.ID, Type: string(job.Type), Status: string(job.Status),
		Error: job.Error, Result: job.Result,
	})
}

// CreateSessionRequest is the JSON request body for POST /api/sessions.
// The chart field uses internal/chart's own JSON mirror (spec.md §6), not
// Go's default struct reflection, so a session created here accepts
// exactly what chart.MarshalJSON produces. An audio_offset_ms of 0 falls
// back to the server's -audio-offset-ms setting.
type CreateSessionRequest struct {
	Chart         json.RawMessage `json:"chart"`
	BPM           float64         `json:"bpm"`
	AudioOffsetMs float64         `json:"audio_offset_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := chart.UnmarshalJSON(req.Chart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chart: "+err.Error())
		return
	}
	bpm := req.BPM
	if bpm <= 0 {
		bpm = 120
	}

	offset := req.AudioOffsetMs
	if offset == 0 && s.cfg != nil {
		offset = s.cfg.AudioOffsetMs
	}

	sess, err := session.New(s.logger, c, newRealtimeClock(bpm), offset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to construct session: "+err.Error())
		return
	}

	id := s.sessions.add(sess)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sess.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// TickSessionRequest carries this frame's input events (spec.md §6 input
// event contract).
type TickSessionRequest struct {
	NowSeconds float64              `json:"now_seconds"`
	Inputs     []inputevents.Event `json:"inputs"`
}

func (s *Server) handleTickSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req TickSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	state := sess.Tick(req.NowSeconds, req.Inputs)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

// handleSessionStateStream pushes the observable-state snapshot as
// newline-delimited JSON until the client disconnects. Grounded on the
// teacher's gRPC server-streaming handlers (ScanLibrary/AnalyzeTracks in
// internal/server.go): a context-bound loop that sends on every tick and
// exits the moment the stream's context is done, reworked here onto
// http.Flusher since there is no gRPC stream in this surface.
const stateStreamInterval = 50 * time.Millisecond

func (s *Server) handleSessionStateStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(stateStreamInterval)
	defer ticker.Stop()
	enc := json.NewEncoder(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := enc.Encode(sess.State()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	result := sess.Finish()
	s.sessions.remove(r.PathValue("id"))
	writeJSON(w, http.StatusOK, result)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
