package uid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// ErrStableNodeIdentityUnavailable indicates no stable node identity is available.
var ErrStableNodeIdentityUnavailable = errors.New("uid: cannot determine stable node identity (machine-id/hostname unavailable)")

// ObjectIDGenerator generates opaque 32-byte ids rendered as 64 hex chars.
//
// Layout: 6 bytes unix millis, 6 bytes node hash, 4 bytes counter and 16
// random bytes. The random tail keeps ids unguessable, which matters because
// they are handed to clients as challenge references.
type ObjectIDGenerator struct {
	nodeID  [6]byte
	counter atomic.Uint32
}

// NewObjectIDGenerator creates a generator with stable node identity.
func NewObjectIDGenerator() (*ObjectIDGenerator, error) {
	src, err := nodeIdentity()
	if err != nil {
		return nil, err
	}

	g := &ObjectIDGenerator{}
	sum := sha256.Sum256([]byte(src))
	copy(g.nodeID[:], sum[:6])

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	g.counter.Store(binary.BigEndian.Uint32(seed[:]))

	return g, nil
}

func nodeIdentity() (string, error) {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}

	if h, err := os.Hostname(); err == nil {
		if h = strings.TrimSpace(h); h != "" {
			return h, nil
		}
	}

	return "", ErrStableNodeIdentityUnavailable
}

// Generate returns a new 64-char hex id.
func (g *ObjectIDGenerator) Generate() string {
	var raw [32]byte

	ms := uint64(time.Now().UnixMilli())
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], ms)
	copy(raw[0:6], ts[2:])
	copy(raw[6:12], g.nodeID[:])
	binary.BigEndian.PutUint32(raw[12:16], g.counter.Add(1))

	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(raw[16:])

	return hex.EncodeToString(raw[:])
}
