package fair

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerSeed(t *testing.T) {
	seed, err := NewServerSeed()
	require.NoError(t, err)
	assert.Len(t, seed, 64) // 32 bytes hex encoded

	_, err = hex.DecodeString(seed)
	assert.NoError(t, err)

	other, err := NewServerSeed()
	require.NoError(t, err)
	assert.NotEqual(t, seed, other)
}

func TestCommit_RoundTrip(t *testing.T) {
	hash := Commit("client-seed", "server-seed")

	sum := sha256.Sum256([]byte("client-seed" + "server-seed"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	// Recomputing from the same seeds reproduces the stored hash exactly.
	assert.Equal(t, hash, Commit("client-seed", "server-seed"))
	assert.NotEqual(t, hash, Commit("", "server-seed"))
}

func TestResolve_Deterministic(t *testing.T) {
	hash := Commit("alpha", "beta")

	first, err := Resolve(hash, 1)
	require.NoError(t, err)
	second, err := Resolve(hash, 1)
	require.NoError(t, err)

	assert.Equal(t, first.Win, second.Win)
	assert.True(t, first.Multiplier.Equal(second.Multiplier))
}

func TestResolve_LadderMapping(t *testing.T) {
	// With a zero house edge every roll below 1.0 wins, so the multiplier
	// must come straight off the ladder at index v % len(ladder).
	hash := "00000007" + "deadbeef"
	out, err := Resolve(hash, 0)
	require.NoError(t, err)
	require.True(t, out.Win)

	v, err := strconv.ParseUint(hash[:8], 16, 64)
	require.NoError(t, err)
	assert.True(t, Multipliers[v%uint64(len(Multipliers))].Equal(out.Multiplier))
}

func TestResolve_WinThreshold(t *testing.T) {
	// v % 10000 == 9999 -> roll 0.9999, above the 99% threshold at 1% edge.
	lossHash := "0000270f" // 9999
	out, err := Resolve(lossHash, 1)
	require.NoError(t, err)
	assert.False(t, out.Win)
	assert.True(t, out.Multiplier.IsZero())

	// v % 10000 == 0 -> roll 0.0, always a win for any edge below 100.
	winHash := "00002710" // 10000
	out, err = Resolve(winHash, 1)
	require.NoError(t, err)
	assert.True(t, out.Win)
	assert.False(t, out.Multiplier.IsZero())

	// 100% house edge never wins.
	out, err = Resolve(winHash, 100)
	require.NoError(t, err)
	assert.False(t, out.Win)
}

func TestResolve_MalformedHash(t *testing.T) {
	_, err := Resolve("short", 1)
	assert.Error(t, err)

	_, err = Resolve("zzzzzzzz", 1)
	assert.Error(t, err)
}
