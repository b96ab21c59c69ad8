// Package members keeps a privacy-preserving registry of everyone who has signed in.
package members

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Member is one signed in user. Only a keyed hash of the Focusmate user id is kept.
type Member struct {
	IDHash      string    `gorm:"primaryKey;size:64"`
	FirstSeenAt time.Time `gorm:"not null"`
	LastSeenAt  time.Time `gorm:"not null"`
	Logins      int       `gorm:"not null;default:1"`
}

// Hasher derives the stored member id from a Focusmate user id
type Hasher struct {
	key []byte
}

// NewHasher keys the hash with secret. BLAKE2b keys are limited to 64 bytes so longer
// secrets are compressed first.
func NewHasher(secret []byte) Hasher {
	key := secret
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(secret)
		key = sum[:]
	}
	return Hasher{key: key}
}

func (h Hasher) Hash(userID string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only reachable with a key longer than 64 bytes, which NewHasher prevents
		panic("members: invalid hash key: " + err.Error())
	}
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}
