package storage

import (
	"context"
	"database/sql"
	"errors"
)

const statusColumns = "id, name, completed, ignored, target_model, list_link, add_link, wizard_link"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatusEntry(r rowScanner) (StatusEntry, error) {
	var (
		e                  StatusEntry
		completed, ignored int
	)
	if err := r.Scan(&e.ID, &e.Name, &completed, &ignored, &e.TargetModel, &e.ListLink, &e.AddLink, &e.WizardLink); err != nil {
		return StatusEntry{}, err
	}
	e.Completed = completed == 1
	e.Ignored = ignored == 1
	return e, nil
}

// GetStatusEntry returns the entry called name, or nil when there is none.
func (d *DB) GetStatusEntry(ctx context.Context, name string) (*StatusEntry, error) {
	e, err := scanStatusEntry(d.sql.QueryRowContext(ctx, "SELECT "+statusColumns+" FROM status_entries WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateStatusCompleted sets completed on the entry called name. Missing entries are left alone.
func (d *DB) UpdateStatusCompleted(ctx context.Context, name string, completed bool) error {
	_, err := d.sql.ExecContext(ctx, "UPDATE status_entries SET completed = ? WHERE name = ?", boolToInt(completed), name)
	return err
}

// CreateStatusEntry inserts e and returns its assigned id.
func (d *DB) CreateStatusEntry(ctx context.Context, e StatusEntry) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO status_entries(name, completed, ignored, target_model, list_link, add_link, wizard_link)
		VALUES(?,?,?,?,?,?,?)`,
		e.Name, boolToInt(e.Completed), boolToInt(e.Ignored), e.TargetModel, e.ListLink, e.AddLink, e.WizardLink)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListStatusEntries returns every entry in creation order.
func (d *DB) ListStatusEntries(ctx context.Context) ([]StatusEntry, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+statusColumns+" FROM status_entries ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatusEntry{}
	for rows.Next() {
		e, err := scanStatusEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetStatusIgnored flips the ignored flag of the entry called name.
func (d *DB) SetStatusIgnored(ctx context.Context, name string, ignored bool) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE status_entries SET ignored = ? WHERE name = ?", boolToInt(ignored), name)
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
