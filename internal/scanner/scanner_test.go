package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartomix/rhythmengine/internal/storage"
)

func TestComputeHashIsStableAndContentSensitive(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.wav")
	pathB := filepath.Join(dir, "b.wav")

	if err := os.WriteFile(pathA, []byte("same-bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(pathB, []byte("same-bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	hashA1, err := ComputeHash(pathA)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	hashA2, err := ComputeHash(pathA)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if hashA1 != hashA2 {
		t.Errorf("ComputeHash not stable across calls: %q vs %q", hashA1, hashA2)
	}

	hashB, err := ComputeHash(pathB)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if hashA1 != hashB {
		t.Errorf("identical content hashed differently: %q vs %q", hashA1, hashB)
	}

	if err := os.WriteFile(pathB, []byte("different-bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	hashB2, err := ComputeHash(pathB)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if hashB2 == hashA1 {
		t.Errorf("differing content hashed the same: %q", hashB2)
	}
}

func TestScanCatalogsNewSongsAndSkipsUnchanged(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	songDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(songDir, "track.wav"), []byte("pcm-data"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(songDir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s := NewScanner(db, logger)

	progress := make(chan ScanProgress, 8)
	if err := s.Scan(context.Background(), []string{songDir}, false, progress); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var events []ScanProgress
	for p := range progress {
		events = append(events, p)
	}
	if len(events) != 1 {
		t.Fatalf("got %d progress events, want 1 (only the .wav file)", len(events))
	}
	if !events[0].IsNew {
		t.Errorf("first scan: IsNew = false, want true")
	}

	songs, err := db.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("ListSongs returned %d songs, want 1", len(songs))
	}

	progress2 := make(chan ScanProgress, 8)
	if err := s.Scan(context.Background(), []string{songDir}, false, progress2); err != nil {
		t.Fatalf("Scan (second): %v", err)
	}
	var events2 []ScanProgress
	for p := range progress2 {
		events2 = append(events2, p)
	}
	if len(events2) != 1 || events2[0].IsNew {
		t.Errorf("rescan of unchanged file: IsNew = %v, want false", events2[0].IsNew)
	}
}

func TestEnqueueGeneration(t *testing.T) {
	db, err := storage.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewScanner(db, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	if err := s.EnqueueGeneration([]int64{1, 2}, []string{"easy", "hard"}, 0); err != nil {
		t.Fatalf("EnqueueGeneration: %v", err)
	}

	job, err := db.ClaimJob(storage.JobTypeGenerate)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job == nil {
		t.Fatal("ClaimJob returned nil, want a queued job")
	}
}
