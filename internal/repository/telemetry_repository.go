package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/recykl/fleet-registry/internal/model"
)

type TelemetryRepo struct{ DB *sql.DB }

func NewTelemetryRepo(db *sql.DB) *TelemetryRepo { return &TelemetryRepo{DB: db} }

// Insert stores a sample for a device and returns the stored row.  The
// timestamp defaults to the insertion time when the caller leaves it zero.
func (r *TelemetryRepo) Insert(ctx context.Context, s model.TelemetrySample) (model.TelemetrySample, error) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO device_telemetry (device_id, timestamp, status, temperature, cpu) VALUES (?,?,?,?,?)",
		s.DeviceID, s.Timestamp, s.Status, s.Temperature, s.CPU)
	if err != nil {
		return model.TelemetrySample{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TelemetrySample{}, err
	}
	s.ID = uint64(id)
	return s, nil
}

// RecentByDevice returns up to n samples for a device, newest first.
func (r *TelemetryRepo) RecentByDevice(ctx context.Context, deviceID uint64, n int) ([]model.TelemetrySample, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, device_id, timestamp, status, temperature, cpu
		   FROM device_telemetry
		  WHERE device_id=?
		  ORDER BY timestamp DESC, id DESC
		  LIMIT ?`, deviceID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TelemetrySample
	for rows.Next() {
		var s model.TelemetrySample
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.Timestamp, &s.Status, &s.Temperature, &s.CPU); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
