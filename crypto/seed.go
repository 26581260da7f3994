package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

var randReader io.Reader = rand.Reader

// GenerateSessionSeed returns a random hex seed for the trial generator and
// its SHA-256 digest, which is safe to publish before the session ends.
func GenerateSessionSeed() (seed string, hash string, err error) {
	bytes := make([]byte, 16)
	if _, err := io.ReadFull(randReader, bytes); err != nil {
		return "", "", fmt.Errorf("failed to read random seed: %w", err)
	}

	seed = hex.EncodeToString(bytes)
	hash = HashSeed(seed)

	return seed, hash, nil
}

// HashSeed returns the hex SHA-256 digest of seed.
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func VerifySeed(seed, hash string) bool {
	return HashSeed(seed) == hash
}
