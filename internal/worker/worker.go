// Package worker runs the chart-generation job queue: it claims pending
// "generate" jobs created by internal/httpapi and internal/scanner, decodes
// each job's song audio, runs internal/chartgen's offline pipeline, and
// records the result in the chart library catalog. Grounded on the
// teacher's job-queue shape in internal/storage/jobs.go (Claim/Complete/
// Fail/ResetStalled) and its gRPC streaming handlers' poll-and-process loop
// in internal/server.go (ScanLibrary, AnalyzeTracks), reworked here onto a
// plain ticker-driven loop since there is no streaming RPC to drive it.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/chartgen"
	"github.com/cartomix/rhythmengine/internal/fixtures"
	"github.com/cartomix/rhythmengine/internal/storage"
)

const (
	pollInterval       = 2 * time.Second
	stalledResetPeriod = time.Minute
	stalledJobTimeout  = 5 * time.Minute
)

// Run polls db for pending chart-generation jobs and processes them one at
// a time until ctx is cancelled. It is meant to run as a single
// long-lived goroutine for the lifetime of cmd/enginesvc.
func Run(ctx context.Context, db *storage.DB, logger *slog.Logger) {
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	resetStalled := time.NewTicker(stalledResetPeriod)
	defer resetStalled.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-resetStalled.C:
			n, err := db.ResetStalledJobs(stalledJobTimeout)
			if err != nil {
				logger.Error("worker: reset stalled jobs failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Warn("worker: reset stalled jobs to pending", "count", n)
			}
		case <-poll.C:
			processOne(db, logger)
		}
	}
}

// processOne claims and runs a single pending generation job, if one is
// queued. It never blocks waiting for work: an empty queue is a no-op until
// the next tick.
func processOne(db *storage.DB, logger *slog.Logger) {
	job, err := db.ClaimJob(storage.JobTypeGenerate)
	if err != nil {
		logger.Error("worker: claim job failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	logger.Info("worker: claimed generation job", "job_id", job.ID)
	result, err := generate(db, job)
	if err != nil {
		logger.Error("worker: generation job failed", "job_id", job.ID, "error", err)
		if failErr := db.FailJob(job.ID, err.Error()); failErr != nil {
			logger.Error("worker: failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		return
	}
	if err := db.CompleteJob(job.ID, result); err != nil {
		logger.Error("worker: failed to record job completion", "job_id", job.ID, "error", err)
	}
}

// generate loads the job's song audio, runs chartgen.Generate for every
// requested difficulty, and upserts each resulting chart into the catalog.
func generate(db *storage.DB, job *storage.Job) (map[string]any, error) {
	songID, difficulties, err := jobParams(job)
	if err != nil {
		return nil, err
	}

	song, err := db.GetSong(songID)
	if err != nil {
		return nil, fmt.Errorf("load song %d: %w", songID, err)
	}

	f, err := os.Open(song.Path)
	if err != nil {
		return nil, fmt.Errorf("open audio %s: %w", song.Path, err)
	}
	samples, sampleRate, err := fixtures.ReadWAV(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode audio %s: %w", song.Path, err)
	}
	durationSeconds := float64(len(samples)) / float64(sampleRate)

	dir := filepath.Dir(song.Path)
	baseName := strings.TrimSuffix(filepath.Base(song.Path), filepath.Ext(song.Path))
	opts := chartgen.DefaultOptions()

	var generated []string
	for _, difficulty := range difficulties {
		c, err := chartgen.Generate(samples, sampleRate, difficulty, opts)
		if err != nil {
			return nil, fmt.Errorf("generate %s chart: %w", difficulty, err)
		}

		chartPath := filepath.Join(dir, fmt.Sprintf("%s.%s.chart", baseName, difficulty))
		if err := os.WriteFile(chartPath, []byte(chart.Marshal(c)), 0644); err != nil {
			return nil, fmt.Errorf("write chart %s: %w", chartPath, err)
		}
		checksum, err := chart.FileSHA256(chartPath)
		if err != nil {
			return nil, fmt.Errorf("checksum chart %s: %w", chartPath, err)
		}

		_, err = db.UpsertChart(&storage.Chart{
			SongID:           songID,
			Difficulty:       string(difficulty),
			Rating:           c.Rating,
			NotesPerSecond:   float64(len(c.Notes)) / durationSeconds,
			GeneratorSeed:    chartgen.Seed,
			GeneratorVersion: chartgen.Version,
			ChartPath:        chartPath,
			Checksum:         checksum,
		})
		if err != nil {
			return nil, fmt.Errorf("save chart record for %s: %w", difficulty, err)
		}
		generated = append(generated, string(difficulty))
	}

	return map[string]any{"song_id": songID, "difficulties": generated}, nil
}

// jobParams extracts song_id and the requested difficulties from a job's
// payload, which round-tripped through JSON (storage.CreateJob/ClaimJob) and
// so arrives as float64/[]any rather than the original int64/[]string.
func jobParams(job *storage.Job) (int64, []chart.Difficulty, error) {
	songIDRaw, ok := job.Payload["song_id"]
	if !ok {
		return 0, nil, fmt.Errorf("job %d: payload missing song_id", job.ID)
	}
	songIDFloat, ok := songIDRaw.(float64)
	if !ok {
		return 0, nil, fmt.Errorf("job %d: song_id is not a number", job.ID)
	}

	diffsRaw, ok := job.Payload["difficulties"].([]any)
	if !ok || len(diffsRaw) == 0 {
		return 0, nil, fmt.Errorf("job %d: payload missing difficulties", job.ID)
	}
	difficulties := make([]chart.Difficulty, 0, len(diffsRaw))
	for _, d := range diffsRaw {
		s, ok := d.(string)
		if !ok {
			return 0, nil, fmt.Errorf("job %d: difficulty entry is not a string", job.ID)
		}
		difficulties = append(difficulties, chart.Difficulty(s))
	}

	return int64(songIDFloat), difficulties, nil
}
