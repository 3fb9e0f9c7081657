package storage

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertSongIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	song := &Song{ContentHash: "abc123", Path: "/songs/a.wav", Title: "A"}
	id1, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}

	song.Title = "A renamed"
	id2, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("UpsertSong (update): %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same id on re-upsert, got %d and %d", id1, id2)
	}

	got, err := db.GetSongByHash("abc123")
	if err != nil {
		t.Fatalf("GetSongByHash: %v", err)
	}
	if got.Title != "A renamed" {
		t.Errorf("Title = %q, want %q", got.Title, "A renamed")
	}
}

func TestUpsertChartPerDifficulty(t *testing.T) {
	db := openTestDB(t)

	songID, err := db.UpsertSong(&Song{ContentHash: "s1", Path: "/songs/s1.wav"})
	if err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}

	c := &Chart{SongID: songID, Difficulty: "hard", Rating: 7, ChartPath: "s1.hard.chart", Checksum: "deadbeef"}
	if _, err := db.UpsertChart(c); err != nil {
		t.Fatalf("UpsertChart: %v", err)
	}

	charts, err := db.ListChartsForSong(songID)
	if err != nil {
		t.Fatalf("ListChartsForSong: %v", err)
	}
	if len(charts) != 1 || charts[0].Difficulty != "hard" {
		t.Fatalf("unexpected charts: %+v", charts)
	}
}

func TestJobLifecycle(t *testing.T) {
	db := openTestDB(t)

	jobID, err := db.CreateJob(JobTypeGenerate, 0, map[string]any{"song_id": float64(1)})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	job, err := db.ClaimJob(JobTypeGenerate)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job == nil || job.ID != jobID {
		t.Fatalf("ClaimJob returned %+v, want job %d", job, jobID)
	}
	if job.Status != JobStatusRunning {
		t.Errorf("Status = %v, want running", job.Status)
	}

	if _, err := db.ClaimJob(JobTypeGenerate); err != nil {
		t.Fatalf("ClaimJob (second): %v", err)
	}

	if err := db.CompleteJob(jobID, map[string]any{"rating": float64(5)}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	got, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobStatusComplete {
		t.Errorf("Status = %v, want complete", got.Status)
	}
	if got.Result["rating"] != float64(5) {
		t.Errorf("Result[rating] = %v, want 5", got.Result["rating"])
	}
}
