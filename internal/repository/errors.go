// Package repository implements database access for users, devices and
// telemetry samples.  Sentinel errors defined here let handlers map
// failure scenarios to HTTP responses without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced row does not exist.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.  Handlers should translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrMACExists is returned when registering a device whose MAC address is
// already present in the fleet.  Handlers should translate this into
// HTTP 409.
var ErrMACExists = errors.New("mac address already exists")
