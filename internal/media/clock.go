package media

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Clock abstracts time retrieval so share expiry is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// TokenSource abstracts share token generation so tests are deterministic.
type TokenSource interface {
	New() string
}

// RandomTokenSource produces URL-safe tokens with 256 bits of entropy.
type RandomTokenSource struct{}

func (RandomTokenSource) New() string {
	buf := make([]byte, 32)
	// crypto/rand.Read fills the buffer entirely and never returns an error.
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
