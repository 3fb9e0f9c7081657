package worker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cartomix/rhythmengine/internal/fixtures"
	"github.com/cartomix/rhythmengine/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedSong(t *testing.T, db *storage.DB) int64 {
	t.Helper()
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "song.wav")
	samples := fixtures.ClickTrack(120, 8, 44100)
	if err := fixtures.WriteWAV(audioPath, samples, 44100); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	songID, err := db.UpsertSong(&storage.Song{ContentHash: "song-hash", Path: audioPath, Title: "Song"})
	if err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}
	return songID
}

func TestProcessOneGeneratesAndCompletesJob(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	songID := seedSong(t, db)

	jobID, err := db.CreateJob(storage.JobTypeGenerate, 0, map[string]any{
		"song_id":      songID,
		"difficulties": []string{"easy"},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	processOne(db, testLogger())

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != storage.JobStatusComplete {
		t.Fatalf("job status = %v, want complete (error: %s)", job.Status, job.Error)
	}

	charts, err := db.ListChartsForSong(songID)
	if err != nil {
		t.Fatalf("ListChartsForSong: %v", err)
	}
	if len(charts) != 1 || charts[0].Difficulty != "easy" {
		t.Fatalf("unexpected charts: %+v", charts)
	}
	if charts[0].Checksum == "" {
		t.Error("expected a non-empty checksum")
	}
	if _, err := os.Stat(charts[0].ChartPath); err != nil {
		t.Errorf("chart file missing on disk: %v", err)
	}
}

func TestProcessOneFailsJobOnMissingSong(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	jobID, err := db.CreateJob(storage.JobTypeGenerate, 0, map[string]any{
		"song_id":      int64(999),
		"difficulties": []string{"easy"},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	processOne(db, testLogger())

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != storage.JobStatusFailed {
		t.Fatalf("job status = %v, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestProcessOneNoopsOnEmptyQueue(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	processOne(db, testLogger())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, db, testLogger())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}
