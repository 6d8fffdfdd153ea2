// Package fair derives deterministic, independently verifiable game
// outcomes from a client seed and a server seed (commit-reveal scheme).
package fair

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Multipliers is the fixed payout ladder indexed by a slice of the commit
// hash. The ladder is a business rule: changing it changes the payout of
// every historical verification, so it must stay stable.
var Multipliers = []decimal.Decimal{
	decimal.NewFromFloat(1.5),
	decimal.NewFromInt(2),
	decimal.NewFromFloat(2.5),
	decimal.NewFromInt(3),
	decimal.NewFromInt(4),
	decimal.NewFromInt(5),
}

// Outcome is the resolved result of a bet.
type Outcome struct {
	Win        bool
	Multiplier decimal.Decimal
}

// NewServerSeed returns 32 bytes (256 bits) of cryptographically secure
// randomness, hex encoded. The seed is revealed to the player only after
// the bet outcome is committed.
func NewServerSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Commit concatenates the client and server seeds and returns the SHA-256
// digest as lowercase hex. Recomputing Commit from the stored seeds must
// reproduce the stored hash exactly.
func Commit(clientSeed, serverSeed string) string {
	sum := sha256.Sum256([]byte(clientSeed + serverSeed))
	return hex.EncodeToString(sum[:])
}

// Resolve maps the first 8 hex characters of the commit hash to a uniform
// value in [0,1); the bet is a WIN iff that value is below
// (100-houseEdgePercent)/100. On a WIN the multiplier is picked from the
// ladder by the same hash value. The mapping is stable and exactly
// reproducible: it backs the public verification endpoint.
//
// houseEdgePercent is validated against [0,100] when game configuration is
// loaded, never here.
func Resolve(hash string, houseEdgePercent float64) (Outcome, error) {
	if len(hash) < 8 {
		return Outcome{}, fmt.Errorf("commit hash too short: %q", hash)
	}
	v, err := strconv.ParseUint(hash[:8], 16, 64)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse commit hash prefix: %w", err)
	}

	threshold := (100 - houseEdgePercent) / 100
	roll := float64(v%10000) / 10000

	if roll < threshold {
		return Outcome{
			Win:        true,
			Multiplier: Multipliers[v%uint64(len(Multipliers))],
		}, nil
	}
	return Outcome{Win: false, Multiplier: decimal.Zero}, nil
}
