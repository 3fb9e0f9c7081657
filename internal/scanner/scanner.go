// Package scanner walks song-directory roots and catalogs their audio in
// internal/storage, queuing chart-generation jobs for newly-discovered
// songs. Adapted from the teacher's internal/scanner/scanner.go: same
// walk/hash/upsert/progress-channel shape, retargeted from a DJ track
// library to rhythm-game song directories and generation jobs instead of
// analysis jobs.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cartomix/rhythmengine/internal/storage"
)

// SupportedFormats lists the audio container this engine's chart
// generator can decode (see internal/fixtures and cmd/chartgen: WAV PCM
// only, per SPEC_FULL.md's decision to keep audio decode on stdlib).
var SupportedFormats = map[string]bool{
	".wav": true,
}

// Scanner recursively scans song-directory roots for audio files.
type Scanner struct {
	db     *storage.DB
	logger *slog.Logger
}

// ScanResult holds the result of scanning one file.
type ScanResult struct {
	Path        string
	ContentHash string
	SongID      int64
	IsNew       bool
	Error       error
}

// ScanProgress reports per-file scan progress; internal/httpapi's scan
// handler reads it and logs each update.
type ScanProgress struct {
	Path        string
	Status      string // queued, processing, done, skipped, error
	Error       string
	Processed   int64
	Total       int64
	SongID      int64
	IsNew       bool
	ContentHash string

	CurrentFile    string
	Percent        float32
	ElapsedMs      int64
	ETAMs          int64
	NewSongsFound  int64
	SkippedCached  int64
}

// NewScanner creates a file scanner over db.
func NewScanner(db *storage.DB, logger *slog.Logger) *Scanner {
	return &Scanner{db: db, logger: logger}
}

// Scan recursively scans roots for supported audio files, upserting each
// into the song catalog and reporting progress on the progress channel.
func (s *Scanner) Scan(ctx context.Context, roots []string, forceRescan bool, progress chan<- ScanProgress) error {
	defer close(progress)

	startTime := time.Now()

	var total int64
	for _, root := range roots {
		count, err := s.countFiles(root)
		if err != nil {
			s.logger.Warn("failed to count files in root", "root", root, "error", err)
			continue
		}
		total += count
	}

	var processed, newSongsFound, skippedCached int64

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				return nil
			}
			if !SupportedFormats[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			result := s.processFile(path, forceRescan)
			processed++

			status := "done"
			errMsg := ""
			if result.Error != nil {
				status = "error"
				errMsg = result.Error.Error()
			} else if !result.IsNew {
				status = "skipped"
				skippedCached++
			} else {
				newSongsFound++
			}

			elapsedMs := time.Since(startTime).Milliseconds()
			var etaMs int64
			var percent float32
			if total > 0 {
				percent = float32(processed) / float32(total) * 100
				if processed > 0 {
					avgTimePerFile := float64(elapsedMs) / float64(processed)
					etaMs = int64(avgTimePerFile * float64(total-processed))
				}
			}

			select {
			case progress <- ScanProgress{
				Path:          path,
				Status:        status,
				Error:         errMsg,
				Processed:     processed,
				Total:         total,
				SongID:        result.SongID,
				IsNew:         result.IsNew,
				ContentHash:   result.ContentHash,
				CurrentFile:   filepath.Base(path),
				Percent:       percent,
				ElapsedMs:     elapsedMs,
				ETAMs:         etaMs,
				NewSongsFound: newSongsFound,
				SkippedCached: skippedCached,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			s.logger.Error("scan error", "root", root, "error", err)
		}
	}

	return nil
}

func (s *Scanner) countFiles(root string) (int64, error) {
	var count int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if SupportedFormats[strings.ToLower(filepath.Ext(path))] {
			count++
		}
		return nil
	})
	return count, err
}

func (s *Scanner) processFile(path string, forceRescan bool) ScanResult {
	result := ScanResult{Path: path}

	hash, err := ComputeHash(path)
	if err != nil {
		result.Error = err
		return result
	}
	result.ContentHash = hash

	if !forceRescan {
		if existing, err := s.db.GetSongByHash(hash); err == nil && existing != nil {
			result.SongID = existing.ID
			result.IsNew = false
			return result
		}
	}

	song := &storage.Song{
		ContentHash: hash,
		Path:        path,
		Title:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	songID, err := s.db.UpsertSong(song)
	if err != nil {
		result.Error = err
		return result
	}

	result.SongID = songID
	result.IsNew = true
	return result
}

// EnqueueGeneration queues chart-generation jobs for the given song IDs,
// one job per song, at every difficulty requested.
func (s *Scanner) EnqueueGeneration(songIDs []int64, difficulties []string, priority int) error {
	for _, songID := range songIDs {
		_, err := s.db.CreateJob(storage.JobTypeGenerate, priority, map[string]any{
			"song_id":      songID,
			"difficulties": difficulties,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ComputeHash returns a deterministic hash of a file's first 64KB,
// sufficient to detect identity without reading an entire long song.
func ComputeHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.CopyN(h, file, 64*1024); err != nil && err != io.EOF {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
