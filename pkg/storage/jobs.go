package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, job_name, username, kwargs, status, error, created_at, started_at, completed_at"

func scanJobResult(r rowScanner) (JobResult, error) {
	var (
		j                  JobResult
		kwargs, created    string
		errMsg             sql.NullString
		started, completed sql.NullString
	)
	if err := r.Scan(&j.ID, &j.JobName, &j.User, &kwargs, &j.Status, &errMsg, &created, &started, &completed); err != nil {
		return JobResult{}, err
	}
	if err := json.Unmarshal([]byte(kwargs), &j.Kwargs); err != nil {
		return JobResult{}, fmt.Errorf("decode kwargs of job %s: %w", j.ID, err)
	}
	j.Error = errMsg.String
	j.CreatedAt = parseTime(created)
	j.StartedAt = parseNullTime(started)
	j.CompletedAt = parseNullTime(completed)
	return j, nil
}

// CreateJobResult persists a pending job.
func (d *DB) CreateJobResult(ctx context.Context, j JobResult) error {
	kwargs, err := json.Marshal(j.Kwargs)
	if err != nil {
		return fmt.Errorf("encode kwargs: %w", err)
	}
	if j.Kwargs == nil {
		kwargs = []byte("{}")
	}
	if j.Status == "" {
		j.Status = JobPending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	_, err = d.sql.ExecContext(ctx, "INSERT INTO job_results(id, job_name, username, kwargs, status, created_at) VALUES(?,?,?,?,?,?)",
		j.ID, j.JobName, j.User, string(kwargs), string(j.Status), formatTime(j.CreatedAt))
	return err
}

// ClaimJob moves a pending job to running. It returns false when another
// worker got there first or the job is not pending.
func (d *DB) ClaimJob(ctx context.Context, id string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "UPDATE job_results SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		string(JobRunning), formatTime(time.Now()), id, string(JobPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FinishJob records the outcome of a running job. A nil jobErr means completed.
func (d *DB) FinishJob(ctx context.Context, id string, jobErr error) error {
	status := JobCompleted
	var msg interface{}
	if jobErr != nil {
		status = JobFailed
		msg = jobErr.Error()
	}
	_, err := d.sql.ExecContext(ctx, "UPDATE job_results SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		string(status), msg, formatTime(time.Now()), id)
	return err
}

// GetJobResult returns the job with the given id, or ErrNotFound.
func (d *DB) GetJobResult(ctx context.Context, id string) (*JobResult, error) {
	j, err := scanJobResult(d.sql.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM job_results WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListPendingJobIDs returns the ids of pending jobs, oldest first.
func (d *DB) ListPendingJobIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id FROM job_results WHERE status = ? ORDER BY created_at, rowid LIMIT ?", string(JobPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListJobResults returns the most recent N jobs.
func (d *DB) ListJobResults(ctx context.Context, limit int) ([]JobResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT "+jobColumns+" FROM job_results ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []JobResult{}
	for rows.Next() {
		j, err := scanJobResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// HasActiveJob reports whether a pending or running job called name has
// kwargs[key] == value.
func (d *DB) HasActiveJob(ctx context.Context, name, key, value string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_results
		WHERE job_name = ? AND status IN (?, ?) AND json_extract(kwargs, '$.' || ?) = ?`,
		name, string(JobPending), string(JobRunning), key, value).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RequeueRunningJobs puts jobs left running by a stopped process back to pending.
func (d *DB) RequeueRunningJobs(ctx context.Context) (int, error) {
	res, err := d.sql.ExecContext(ctx, "UPDATE job_results SET status = ?, started_at = NULL WHERE status = ?", string(JobPending), string(JobRunning))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
