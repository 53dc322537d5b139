// Package uid generates identifiers: sortable numeric ids for stored rows,
// UUIDv7 strings for correlation, and opaque random tokens handed to clients.
package uid

import "github.com/google/uuid"

// NumberID generates unique numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}

// UUID is a StringID producing time-ordered UUIDv7 strings.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

// Generate falls back to a random v4 id when the v7 clock read fails.
func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
