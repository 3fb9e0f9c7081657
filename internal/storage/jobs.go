package storage

import (
	"database/sql"
	"encoding/json"
	"time"
)

// JobType identifies the kind of background work queued against a song.
// Adapted from the teacher's JobType (internal/storage/jobs.go), retargeted
// from track analysis to chart generation.
type JobType string

const (
	JobTypeScan     JobType = "scan"
	JobTypeGenerate JobType = "generate"
)

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Job is one queued unit of background work: a library rescan, or a
// chart-generation run for one song and a list of difficulties (spec.md §6 CLI,
// mirrored as an async job by internal/httpapi's generation endpoint).
type Job struct {
	ID          int64
	Type        JobType
	Status      JobStatus
	Priority    int
	Payload     map[string]any
	Result      map[string]any
	Error       string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CreateJob queues a new job and returns its ID.
func (d *DB) CreateJob(jobType JobType, priority int, payload map[string]any) (int64, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	result, err := d.db.Exec(`
		INSERT INTO jobs (type, status, priority, payload_json)
		VALUES (?, ?, ?, ?)
	`, string(jobType), string(JobStatusPending), priority, string(payloadJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ClaimJob atomically claims the oldest highest-priority pending job of a
// given type.
func (d *DB) ClaimJob(jobType JobType) (*Job, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, type, status, priority, payload_json, attempts, max_attempts, created_at
		FROM jobs
		WHERE type = ? AND status = ? AND attempts < max_attempts
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`, string(jobType), string(JobStatusPending))

	job := &Job{}
	var payloadJSON sql.NullString
	var createdAt time.Time

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Priority, &payloadJSON, &job.Attempts, &job.MaxAttempts, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if payloadJSON.Valid {
		json.Unmarshal([]byte(payloadJSON.String), &job.Payload)
	}
	job.CreatedAt = createdAt

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE jobs SET status = ?, started_at = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ?
	`, string(JobStatusRunning), now, now, job.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = JobStatusRunning
	job.Attempts++
	job.StartedAt = &now
	return job, nil
}

// CompleteJob marks a job complete and records its result (e.g. the
// generated chart's rating and checksum).
func (d *DB) CompleteJob(jobID int64, result map[string]any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = d.db.Exec(`
		UPDATE jobs SET status = ?, result_json = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(JobStatusComplete), string(resultJSON), now, now, jobID)
	return err
}

// FailJob marks a job failed with an error message.
func (d *DB) FailJob(jobID int64, errMsg string) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE jobs SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(JobStatusFailed), errMsg, now, jobID)
	return err
}

// GetJob fetches a job by ID, used by the job-status polling endpoint.
func (d *DB) GetJob(jobID int64) (*Job, error) {
	row := d.db.QueryRow(`
		SELECT id, type, status, priority, payload_json, result_json, error, attempts, max_attempts, created_at
		FROM jobs WHERE id = ?
	`, jobID)

	job := &Job{}
	var payloadJSON, resultJSON, errMsg sql.NullString
	var createdAt time.Time
	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Priority, &payloadJSON, &resultJSON, &errMsg, &job.Attempts, &job.MaxAttempts, &createdAt); err != nil {
		return nil, err
	}
	if payloadJSON.Valid {
		json.Unmarshal([]byte(payloadJSON.String), &job.Payload)
	}
	if resultJSON.Valid {
		json.Unmarshal([]byte(resultJSON.String), &job.Result)
	}
	job.Error = errMsg.String
	job.CreatedAt = createdAt
	return job, nil
}

// ResetStalledJobs resets jobs that have been running longer than timeout
// back to pending, so a crashed worker doesn't wedge a job forever.
func (d *DB) ResetStalledJobs(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result, err := d.db.Exec(`
		UPDATE jobs SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND started_at < ? AND attempts < max_attempts
	`, string(JobStatusPending), string(JobStatusRunning), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
