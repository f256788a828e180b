package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses mirrored from the transcription service
const (
	JobInProgress = "IN_PROGRESS"
	JobCompleted  = "COMPLETED"
	JobFailed     = "FAILED"
)

// fixed width so timestamps sort as text
const jobTimeLayout = "2006-01-02T15:04:05.000000000Z"

// TranscriptionJob is one submitted transcription job
type TranscriptionJob struct {
	Name       string
	VideoID    string
	MediaURI   string
	Status     string
	Transcript string
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobStore remembers transcription jobs so a finished video is not transcribed twice
type JobStore struct {
	db *sql.DB
}

// OpenJobStore opens (or creates) the SQLite job registry at path
func OpenJobStore(path string) (*JobStore, error) {
	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("jobs: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("jobs: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS transcription_jobs (
		name       TEXT PRIMARY KEY,
		video_id   TEXT NOT NULL,
		media_uri  TEXT NOT NULL,
		status     TEXT NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		reason     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobs: init schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_jobs_video ON transcription_jobs (video_id, status)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobs: init index: %w", err)
	}

	return &JobStore{db: db}, nil
}

// Close releases the database
func (s *JobStore) Close() error {
	return s.db.Close()
}

// Create records a newly started job
func (s *JobStore) Create(ctx context.Context, job TranscriptionJob) error {
	now := time.Now().UTC().Format(jobTimeLayout)
	status := job.Status
	if status == "" {
		status = JobInProgress
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcription_jobs (name, video_id, media_uri, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.Name, job.VideoID, job.MediaURI, status, now, now)
	if err != nil {
		return fmt.Errorf("jobs: insert %s: %w", job.Name, err)
	}
	return nil
}

// Finish stores the terminal status of a job with its transcript or failure reason
func (s *JobStore) Finish(ctx context.Context, name, status, transcript, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transcription_jobs SET status = ?, transcript = ?, reason = ?, updated_at = ? WHERE name = ?`,
		status, transcript, reason, time.Now().UTC().Format(jobTimeLayout), name)
	if err != nil {
		return fmt.Errorf("jobs: update %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Wrap(ErrNotFound, "job "+name, nil)
	}
	return nil
}

// Get returns the job called name
func (s *JobStore) Get(ctx context.Context, name string) (*TranscriptionJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, video_id, media_uri, status, transcript, reason, created_at, updated_at
		 FROM transcription_jobs WHERE name = ?`, name)
	return scanJob(row)
}

// LatestCompleted returns the most recent completed job for videoID, or ErrNotFound
func (s *JobStore) LatestCompleted(ctx context.Context, videoID string) (*TranscriptionJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, video_id, media_uri, status, transcript, reason, created_at, updated_at
		 FROM transcription_jobs WHERE video_id = ? AND status = ? AND transcript != ''
		 ORDER BY updated_at DESC LIMIT 1`, videoID, JobCompleted)
	return scanJob(row)
}

func scanJob(row *sql.Row) (*TranscriptionJob, error) {
	var job TranscriptionJob
	var created, updated string
	err := row.Scan(&job.Name, &job.VideoID, &job.MediaURI, &job.Status, &job.Transcript, &job.Reason, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Wrap(ErrNotFound, "transcription job", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: scan: %w", err)
	}
	job.CreatedAt, _ = time.Parse(jobTimeLayout, created)
	job.UpdatedAt, _ = time.Parse(jobTimeLayout, updated)
	return &job, nil
}
