package entity

import (
	"errors"
	"time"
)

// ErrChallengeNotFound is returned by stores when no live challenge matches.
var ErrChallengeNotFound = errors.New("otp: challenge not found")

// Challenge is one outstanding passcode for a contact. Terminal states
// (verified, expired, exhausted) are realized by deleting it.
type Challenge struct {
	ID          int64
	Contact     string
	Kind        ContactKind
	CodeHash    string
	Purpose     string
	Reference   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Attempts    int
	MaxAttempts int
	Demo        bool
}

// IsExpired reports whether now is past the expiry instant.
func (c Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsExhausted reports whether no attempts are left.
func (c Challenge) IsExhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// AttemptsRemaining never goes below zero.
func (c Challenge) AttemptsRemaining() int {
	return max(c.MaxAttempts-c.Attempts, 0)
}

// ExpiresIn returns the whole seconds left before expiry, never negative.
func (c Challenge) ExpiresIn(now time.Time) int64 {
	left := c.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int64(left.Round(time.Second) / time.Second)
}
