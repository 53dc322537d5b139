package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values and scales them into durations.
// Missing keys yield zero.
type TimeConfig interface {
	// GetSecond reads key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a number of minutes.
	GetMinute(key string) time.Duration
	// GetHour reads key as a number of hours.
	GetHour(key string) time.Duration
}

// NumberConfig reads numeric values. Missing or malformed keys yield zero.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetUint16(key string) uint16
	GetFloat64(key string) float64
}

// Config is the read-only view of runtime configuration the application
// depends on. Implementations may reload values in the background, so
// callers should read keys at the point of use instead of caching them.
type Config interface {
	io.Closer
	TimeConfig
	NumberConfig

	// GetBool reads key as a bool.
	GetBool(key string) bool

	// GetString reads key as a string.
	GetString(key string) string

	// GetBinary reads key as base64 and returns the decoded bytes, or nil.
	GetBinary(key string) []byte

	// GetArray reads key as a list. Both YAML sequences and
	// "<element1>,<element2>" strings are accepted; blanks are dropped.
	GetArray(key string) []string
}
