// Package queue defines message payloads exchanged over the message broker
// and the background consumer processing them.
package queue

// TelemetryAlertEvent is published when an ingested telemetry sample
// reports a non-healthy status.  It carries enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type TelemetryAlertEvent struct {
	DeviceID    uint64  `json:"deviceId"`
	DeviceType  string  `json:"deviceType"`
	Location    string  `json:"location"`
	Status      string  `json:"status"`
	CPU         float64 `json:"cpu"`
	Temperature float64 `json:"temperature"`
	RecordedAt  string  `json:"recordedAt"`
}
