package model

import "time"

// Health states a telemetry sample may report.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthWarning   = "warning"
	HealthCritical  = "critical"
)

// TelemetryStatuses lists the accepted values for a sample's status field.
var TelemetryStatuses = []string{
	HealthHealthy,
	HealthUnhealthy,
	HealthWarning,
	HealthCritical,
}

// TelemetrySample is one timestamped health reading for a device.  Samples
// are immutable once written and are removed only when their device is
// deleted (ON DELETE CASCADE).
type TelemetrySample struct {
	ID          uint64    `json:"id"`
	DeviceID    uint64    `json:"deviceId"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Temperature float64   `json:"temperature"`
	CPU         float64   `json:"cpu"`
}
