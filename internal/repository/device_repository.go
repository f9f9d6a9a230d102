package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/recykl/fleet-registry/internal/model"
)

type DeviceRepo struct{ DB *sql.DB }

func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{DB: db} }

const deviceColumns = "id,type,location,status,manufacturer,mac_address,firmware_version,registered_at"

// Create inserts a device and returns the stored row, including the
// generated id and registration time.
func (r *DeviceRepo) Create(ctx context.Context, d model.Device) (model.Device, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO devices (type, location, status, manufacturer, mac_address, firmware_version) VALUES (?,?,?,?,?,?)",
		d.Type, d.Location, d.Status, d.Manufacturer, d.MACAddress, d.FirmwareVersion)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Device{}, ErrMACExists
		}
		return model.Device{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Device{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// All returns every registered device, newest registrations first.
func (r *DeviceRepo) All(ctx context.Context) ([]model.Device, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+deviceColumns+" FROM devices ORDER BY registered_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.Type, &d.Location, &d.Status, &d.Manufacturer,
			&d.MACAddress, &d.FirmwareVersion, &d.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID fetches a single device.  Returns ErrNotFound for unknown ids.
func (r *DeviceRepo) GetByID(ctx context.Context, id uint64) (model.Device, error) {
	var d model.Device
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id=? LIMIT 1", id).
		Scan(&d.ID, &d.Type, &d.Location, &d.Status, &d.Manufacturer,
			&d.MACAddress, &d.FirmwareVersion, &d.RegisteredAt)
	if err == sql.ErrNoRows {
		return model.Device{}, ErrNotFound
	}
	return d, err
}

// SetStatus updates a device's lifecycle status.  The update is
// unconditional, so repeating a transition (e.g. decommissioning an
// already decommissioned device) succeeds.  ErrNotFound is returned only
// when the device row itself is missing.
func (r *DeviceRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE devices SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op update
		// to the same status; only the former is an error.
		var exists int
		err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM devices WHERE id=? LIMIT 1", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Summary returns device counts grouped by (type, location), paginated.
// Ordering is fixed so pages are stable for a fixed dataset.
func (r *DeviceRepo) Summary(ctx context.Context, limit, offset int) ([]model.SummaryRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT type, location, COUNT(id)
		   FROM devices
		  GROUP BY type, location
		  ORDER BY type, location
		  LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SummaryRow
	for rows.Next() {
		var s model.SummaryRow
		if err := rows.Scan(&s.DeviceType, &s.Region, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SummaryTotal returns the total number of (type, location) groups across
// the whole fleet, independent of pagination.
func (r *DeviceRepo) SummaryTotal(ctx context.Context) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT 1 FROM devices GROUP BY type, location) g`).
		Scan(&total)
	return total, err
}
