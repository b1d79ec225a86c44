package device

import "errors"

// Sentinel errors for the device package. Check with errors.Is.
var (
	// ErrDeviceNotFound is returned when an identity has no record.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned by Repository.Create for a duplicate identity.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidIdentity is returned for an empty identity or one containing
	// MQTT topic separators or wildcards.
	ErrInvalidIdentity = errors.New("device: invalid identity")
)
