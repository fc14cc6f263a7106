package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 1000
)

func (k ImportKind) table() (string, error) {
	switch k {
	case KindManufacturer:
		return "manufacturer_imports", nil
	case KindDeviceType:
		return "device_type_imports", nil
	}
	return "", fmt.Errorf("unknown import kind %q", k)
}

func (k ImportKind) columns() string {
	if k == KindDeviceType {
		return "id, name, filename, manufacturer, repository"
	}
	return "id, name, '', '', repository"
}

func scanCandidate(k ImportKind, r rowScanner) (ImportCandidate, error) {
	c := ImportCandidate{Kind: k}
	err := r.Scan(&c.ID, &c.Name, &c.Filename, &c.Manufacturer, &c.Repository)
	return c, err
}

// ListImports returns one page of import candidates of kind k. Search matches
// the name (and, for device types, the manufacturer) case-insensitively.
func (d *DB) ListImports(ctx context.Context, k ImportKind, opts ListOptions) (*ImportListResult, error) {
	table, err := k.table()
	if err != nil {
		return nil, err
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.PerPage > MaxPerPage {
		opts.PerPage = MaxPerPage
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	if s := strings.TrimSpace(opts.Search); s != "" {
		if k == KindDeviceType {
			where += " AND (name LIKE ? OR manufacturer LIKE ?)"
			args = append(args, "%"+s+"%", "%"+s+"%")
		} else {
			where += " AND name LIKE ?"
			args = append(args, "%"+s+"%")
		}
	}
	if opts.Manufacturer != "" && k == KindDeviceType {
		where += " AND manufacturer = ?"
		args = append(args, opts.Manufacturer)
	}

	var total int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	order := " ORDER BY name"
	if k == KindDeviceType {
		order = " ORDER BY manufacturer, name"
	}
	q := "SELECT " + k.columns() + " FROM " + table + " " + where + order + " LIMIT ? OFFSET ?"
	rows, err := d.sql.QueryContext(ctx, q, append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &ImportListResult{
		Items:      []ImportCandidate{},
		TotalCount: total,
		Page:       opts.Page,
		PerPage:    opts.PerPage,
		TotalPages: (total + opts.PerPage - 1) / opts.PerPage,
	}
	for rows.Next() {
		c, err := scanCandidate(k, rows)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// ListImportManufacturers returns the distinct manufacturer names referenced by
// device type candidates, for the list view filter.
func (d *DB) ListImportManufacturers(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT DISTINCT manufacturer FROM device_type_imports ORDER BY manufacturer")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountImports returns the number of candidates of kind k.
func (d *DB) CountImports(ctx context.Context, k ImportKind) (int, error) {
	table, err := k.table()
	if err != nil {
		return 0, err
	}
	var n int
	err = d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

// GetImport returns the candidate of kind k with the given id, or ErrNotFound.
func (d *DB) GetImport(ctx context.Context, k ImportKind, id string) (*ImportCandidate, error) {
	table, err := k.table()
	if err != nil {
		return nil, err
	}
	c, err := scanCandidate(k, d.sql.QueryRowContext(ctx, "SELECT "+k.columns()+" FROM "+table+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetImportsByID returns the candidates matching ids, ordered by name.
// Unknown ids are skipped.
func (d *DB) GetImportsByID(ctx context.Context, k ImportKind, ids []string) ([]ImportCandidate, error) {
	table, err := k.table()
	if err != nil {
		return nil, err
	}
	out := []ImportCandidate{}
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT "+k.columns()+" FROM "+table+" WHERE id IN ("+placeholders+") ORDER BY name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCandidate(k, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetDeviceTypeImportByFilename returns the device type candidate stored at filename.
func (d *DB) GetDeviceTypeImportByFilename(ctx context.Context, filename string) (*ImportCandidate, error) {
	c, err := scanCandidate(KindDeviceType, d.sql.QueryRowContext(ctx,
		"SELECT "+KindDeviceType.columns()+" FROM device_type_imports WHERE filename = ?", filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceImports makes the candidate tables for repository match the given
// listing. Existing rows keep their ids; rows no longer listed are removed.
func (d *DB) ReplaceImports(ctx context.Context, repository string, manufacturers []string, files []DeviceTypeFile) (stats ReplaceStats, err error) {
	runID := time.Now().UnixNano()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return stats, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, name := range manufacturers {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `UPDATE manufacturer_imports SET run_id = ?, repository = ? WHERE name = ?`, runID, repository, name)
		if err != nil {
			return stats, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO manufacturer_imports(id, name, repository, run_id) VALUES(?,?,?,?)`,
			uuid.NewString(), name, repository, runID)
		if err != nil {
			return stats, fmt.Errorf("insert manufacturer candidate %q: %w", name, err)
		}
		stats.ManufacturersAdded++
	}

	for _, f := range files {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `UPDATE device_type_imports SET run_id = ?, repository = ?, name = ?, manufacturer = ? WHERE filename = ?`,
			runID, repository, f.Name, f.Manufacturer, f.Filename)
		if err != nil {
			return stats, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO device_type_imports(id, name, filename, manufacturer, repository, run_id) VALUES(?,?,?,?,?,?)`,
			uuid.NewString(), f.Name, f.Filename, f.Manufacturer, repository, runID)
		if err != nil {
			return stats, fmt.Errorf("insert device type candidate %q: %w", f.Filename, err)
		}
		stats.DeviceTypesAdded++
	}

	// Sweep: drop rows of this repository not touched in this run
	res, err := tx.ExecContext(ctx, "DELETE FROM manufacturer_imports WHERE repository = ? AND run_id != ?", repository, runID)
	if err != nil {
		return stats, err
	}
	n, _ := res.RowsAffected()
	stats.ManufacturersRemoved = int(n)

	res, err = tx.ExecContext(ctx, "DELETE FROM device_type_imports WHERE repository = ? AND run_id != ?", repository, runID)
	if err != nil {
		return stats, err
	}
	n, _ = res.RowsAffected()
	stats.DeviceTypesRemoved = int(n)

	err = tx.Commit()
	return stats, err
}
