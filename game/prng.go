package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// NewSeededRNG derives a deterministic generator from a session seed, so the
// same seed always yields the same trial table.
func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed + "-trials"))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}
