package crypto

import (
	"errors"
	"testing"
	"testing/iotest"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestGenerateSessionSeed(t *testing.T) {
	seed, hash, err := GenerateSessionSeed()
	assert.NoError(t, err)

	check.Equal(t, 32, len(seed))
	check.Equal(t, 64, len(hash))
	check.True(t, VerifySeed(seed, hash))
	check.False(t, VerifySeed(seed+"x", hash))

	other, _, err := GenerateSessionSeed()
	assert.NoError(t, err)
	check.NotEqual(t, seed, other)
}

func TestGenerateSessionSeed_ReadError(t *testing.T) {
	prev := randReader
	randReader = iotest.ErrReader(errors.New("entropy unavailable"))
	defer func() { randReader = prev }()

	seed, hash, err := GenerateSessionSeed()
	check.Error(t, err)
	check.Equal(t, "", seed)
	check.Equal(t, "", hash)
}
