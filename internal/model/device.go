package model

import "time"

// Device lifecycle states.  Registration defaults to StatusActive;
// decommissioning is terminal and no further transitions are defined.
const (
	StatusActive         = "active"
	StatusInactive       = "inactive"
	StatusDecommissioned = "decommissioned"
	StatusDeployed       = "deployed"
	StatusManufacturing  = "manufacturing"
)

// DeviceStatuses lists every status accepted on device registration.
var DeviceStatuses = []string{
	StatusActive,
	StatusInactive,
	StatusDecommissioned,
	StatusDeployed,
	StatusManufacturing,
}

// Device represents a fleet member (recycling machine, sensor) as stored
// in the `devices` table.  JSON tags match the public API of the service.
//
// Fields:
//
//	ID              – primary key identifier.
//	Type            – device type label (e.g. "RVM", "Recycle Sensor").
//	Location        – deployment city/region.  Deliberately not unique:
//	                  the summary endpoint groups multiple devices per
//	                  location.
//	Status          – lifecycle state, defaults to "active".
//	Manufacturer    – vendor name.
//	MACAddress      – unique hardware address.
//	FirmwareVersion – installed firmware revision.
//	RegisteredAt    – when the device joined the fleet.
type Device struct {
	ID              uint64    `json:"id"`
	Type            string    `json:"type"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
	Manufacturer    string    `json:"manufacturer"`
	MACAddress      string    `json:"macAddress"`
	FirmwareVersion string    `json:"firmwareVersion"`
	RegisteredAt    time.Time `json:"registeredAt"`
}

// SummaryRow is one group of the paginated fleet summary: the number of
// devices sharing a type and a location.
type SummaryRow struct {
	DeviceType string `json:"deviceType"`
	Region     string `json:"region"`
	Count      int    `json:"count"`
}
