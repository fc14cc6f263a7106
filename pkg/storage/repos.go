package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// GetGitRepository returns the repository with the given slug, or ErrNotFound.
func (d *DB) GetGitRepository(ctx context.Context, slug string) (*GitRepository, error) {
	var (
		r        GitRepository
		contents string
		synced   sql.NullString
	)
	err := d.sql.QueryRowContext(ctx, "SELECT slug, name, remote_url, branch, provided_contents, last_synced_at FROM git_repositories WHERE slug = ?", slug).
		Scan(&r.Slug, &r.Name, &r.RemoteURL, &r.Branch, &contents, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if contents != "" {
		r.ProvidedContents = strings.Split(contents, ",")
	}
	if t := parseNullTime(synced); t != nil {
		r.LastSyncedAt = *t
	}
	return &r, nil
}

// CreateGitRepository inserts r. An existing slug is left untouched.
func (d *DB) CreateGitRepository(ctx context.Context, r GitRepository) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO git_repositories(slug, name, remote_url, branch, provided_contents)
		VALUES(?,?,?,?,?) ON CONFLICT(slug) DO NOTHING`,
		r.Slug, r.Name, NormalizeRemoteURL(r.RemoteURL), r.Branch, strings.Join(r.ProvidedContents, ","))
	return err
}

// MarkRepositorySynced records a successful pull of the repository at t.
func (d *DB) MarkRepositorySynced(ctx context.Context, slug string, t time.Time) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE git_repositories SET last_synced_at = ? WHERE slug = ?", formatTime(t), slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
