package resolver

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/parlor-games/session-service/internal/domain"
)

// Addr is a stable coordinator address. It doubles as the storage key.
type Addr [32]byte

func (a Addr) String() string { return hex.EncodeToString(a[:]) }

const (
	tokenLen   = 64 // hex chars of a private-room token
	maxNameLen = 32
)

// Resolve maps a room identifier to its coordinator address. A 64-hex token
// is parsed directly (private rooms); any other name up to 32 characters is
// hashed, so the same name always lands on the same room.
func Resolve(id string) (Addr, error) {
	if len(id) == tokenLen {
		if raw, err := hex.DecodeString(id); err == nil {
			var a Addr
			copy(a[:], raw)
			return a, nil
		}
	}
	if len(id) > maxNameLen {
		return Addr{}, domain.ErrNameTooLong
	}
	return Addr(sha256.Sum256([]byte("room:" + id))), nil
}

// MintToken returns a fresh 64-hex private-room token. Uniqueness comes from
// the 256 bits of randomness; there is no registry to collide against.
func MintToken() (string, error) {
	var raw [32]byte
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}
