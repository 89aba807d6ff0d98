// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
)

// Repository is a per-device key-value store. It stands in for the browser
// storage each device would otherwise keep locally.
type Repository interface {
	// Get returns the value stored under key for a device. found is false
	// when no record exists.
	Get(ctx context.Context, deviceID, key string) (value string, found bool, err error)

	// Put creates or overwrites a record.
	Put(ctx context.Context, deviceID, key, value string) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, deviceID, key string) error

	// ListDevices returns every device that has at least one record.
	ListDevices(ctx context.Context) ([]string, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
