package config

import (
	"io"
	"time"
)

// TimeConfig defines helpers for retrieving time-based configuration values.
type TimeConfig interface {
	// GetSecond reads an integer value as seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer value as minutes.
	GetMinute(key string) time.Duration
	// GetDuration reads a Go duration string such as "90s" or "5m".
	GetDuration(key string) time.Duration
}

// Config defines a set of methods for retrieving configuration values of various types.
// Missing keys yield the zero value of the requested type.
type Config interface {
	io.Closer
	TimeConfig

	GetBool(key string) bool
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetString(key string) string

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads either a YAML list or a "<a>,<b>,..." string. Blank
	// elements are dropped.
	GetArray(key string) []string

	// GetMap reads either a YAML mapping or a "<k1>:<v1>,<k2>:<v2>" string.
	GetMap(key string) map[string]string

	// Unmarshal decodes the subtree at key into out.
	Unmarshal(key string, out any) error

	// OnChange registers fn to run after every successful reload of the
	// underlying source.
	OnChange(fn func())
}
