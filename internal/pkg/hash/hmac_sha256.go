package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 produces keyed SHA-256 digests of short secrets. New digests
// use the current key; Verify also accepts digests made with retired keys
// so a key rotation does not invalidate codes already in flight.
type HMACSHA256 struct {
	current []byte
	retired [][]byte
}

// NewHMACSHA256 creates a hasher keyed with secret. Retired secrets are only
// used by Verify.
func NewHMACSHA256(secret string, retired ...string) *HMACSHA256 {
	h := &HMACSHA256{current: []byte(secret)}
	for _, r := range retired {
		if r != "" && r != secret {
			h.retired = append(h.retired, []byte(r))
		}
	}
	return h
}

// Hash returns the hex-encoded HMAC of str under the current key.
func (s *HMACSHA256) Hash(str string) string {
	return hex.EncodeToString(sum(s.current, str))
}

// Verify reports whether hashed is the digest of str under any known key.
// Each comparison runs in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	want, err := hex.DecodeString(hashed)
	if err != nil || len(want) != sha256.Size {
		return false
	}

	ok := hmac.Equal(want, sum(s.current, str))
	for _, key := range s.retired {
		ok = hmac.Equal(want, sum(key, str)) || ok
	}
	return ok
}

func sum(key []byte, str string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(str))
	return m.Sum(nil)
}
