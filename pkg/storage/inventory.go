package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CategoryExists reports whether the given inventory table holds at least one row.
func (d *DB) CategoryExists(ctx context.Context, c Category) (bool, error) {
	if !c.valid() {
		return false, fmt.Errorf("unknown category %q", c)
	}
	var one int
	err := d.sql.QueryRowContext(ctx, "SELECT 1 FROM "+string(c)+" LIMIT 1").Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateInventoryItem inserts a named row into one of the simple inventory tables.
// Device types carry a manufacturer and must go through CreateDeviceType.
func (d *DB) CreateInventoryItem(ctx context.Context, c Category, name string) (string, error) {
	if !c.valid() {
		return "", fmt.Errorf("unknown category %q", c)
	}
	if c == CategoryDeviceTypes {
		return "", errors.New("device types require a manufacturer, use CreateDeviceType")
	}
	id := uuid.NewString()
	_, err := d.sql.ExecContext(ctx, "INSERT INTO "+string(c)+"(id, name, slug, created_at) VALUES(?,?,?,?)",
		id, name, Slugify(name), formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("insert %s %q: %w", c, name, err)
	}
	return id, nil
}

// GetOrCreateManufacturer returns the id of the manufacturer called name,
// creating it first when needed. created is true when a row was inserted.
func (d *DB) GetOrCreateManufacturer(ctx context.Context, name string) (id string, created bool, err error) {
	err = d.sql.QueryRowContext(ctx, "SELECT id FROM manufacturers WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, err
	}
	id = uuid.NewString()
	_, err = d.sql.ExecContext(ctx, `INSERT INTO manufacturers(id, name, slug, created_at) VALUES(?,?,?,?)
		ON CONFLICT(name) DO NOTHING`, id, name, Slugify(name), formatTime(time.Now()))
	if err != nil {
		return "", false, err
	}
	// A concurrent import may have won the insert.
	var stored string
	if err = d.sql.QueryRowContext(ctx, "SELECT id FROM manufacturers WHERE name = ?", name).Scan(&stored); err != nil {
		return "", false, err
	}
	return stored, stored == id, nil
}

// DeviceTypeExists reports whether manufacturerID already has a device type with this model.
func (d *DB) DeviceTypeExists(ctx context.Context, manufacturerID, model string) (bool, error) {
	var one int
	err := d.sql.QueryRowContext(ctx, "SELECT 1 FROM device_types WHERE manufacturer_id = ? AND model = ?", manufacturerID, model).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDeviceType inserts dt and its component templates in one transaction.
func (d *DB) CreateDeviceType(ctx context.Context, dt DeviceType, components []Component) (id string, err error) {
	if dt.Model == "" || dt.ManufacturerID == "" {
		return "", errors.New("device type needs a model and a manufacturer")
	}
	if dt.Slug == "" {
		dt.Slug = Slugify(dt.Model)
	}
	id = uuid.NewString()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO device_types(id, manufacturer_id, model, slug, part_number, u_height, is_full_depth, comments, created_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		id, dt.ManufacturerID, dt.Model, dt.Slug, nullIfEmpty(dt.PartNumber), dt.UHeight, boolToInt(dt.IsFullDepth), nullIfEmpty(dt.Comments), formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("insert device type %q: %w", dt.Model, err)
	}
	for _, c := range components {
		_, err = tx.ExecContext(ctx, "INSERT INTO device_type_components(device_type_id, kind, name, type) VALUES(?,?,?,?)",
			id, c.Kind, c.Name, nullIfEmpty(c.Type))
		if err != nil {
			return "", fmt.Errorf("insert component %s %q: %w", c.Kind, c.Name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListComponents returns the component templates of a device type ordered by kind then name.
func (d *DB) ListComponents(ctx context.Context, deviceTypeID string) ([]Component, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT kind, name, type FROM device_type_components WHERE device_type_id = ? ORDER BY kind, name", deviceTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Component
	for rows.Next() {
		var c Component
		var typ sql.NullString
		if err := rows.Scan(&c.Kind, &c.Name, &typ); err != nil {
			return nil, err
		}
		c.Type = typ.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetDeviceTypeByModel looks up a device type by manufacturer name and model.
func (d *DB) GetDeviceTypeByModel(ctx context.Context, manufacturer, model string) (*DeviceType, error) {
	var (
		dt        DeviceType
		part, cmt sql.NullString
		full      int
	)
	err := d.sql.QueryRowContext(ctx, `SELECT dt.id, dt.manufacturer_id, dt.model, dt.slug, dt.part_number, dt.u_height, dt.is_full_depth, dt.comments
		FROM device_types dt JOIN manufacturers m ON m.id = dt.manufacturer_id
		WHERE m.name = ? AND dt.model = ?`, manufacturer, model).
		Scan(&dt.ID, &dt.ManufacturerID, &dt.Model, &dt.Slug, &part, &dt.UHeight, &full, &cmt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	dt.PartNumber = part.String
	dt.Comments = cmt.String
	dt.IsFullDepth = full == 1
	return &dt, nil
}
