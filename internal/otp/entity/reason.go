package entity

// Reason explains why a verification did not succeed. Reasons are results,
// not errors.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInvalidCode     Reason = "invalid_code"
	ReasonNotFound        Reason = "not_found"
	ReasonExpired         Reason = "expired"
	ReasonTooManyAttempts Reason = "too_many_attempts"
)

func (r Reason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}

// RequiresNewChallenge reports whether the caller must request a fresh code
// instead of retrying.
func (r Reason) RequiresNewChallenge() bool {
	switch r {
	case ReasonNotFound, ReasonExpired, ReasonTooManyAttempts:
		return true
	default:
		return false
	}
}
