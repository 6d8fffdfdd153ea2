// Package pricing quotes USD prices for the supported deposit coins and
// issues deposit addresses.
package pricing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// Coin is a supported deposit/withdrawal asset.
type Coin struct {
	Symbol   string
	Name     string
	PriceUSD decimal.Decimal
}

// Source quotes coin prices. Implementations must be safe for concurrent use.
type Source interface {
	Coins() []Coin
	Price(symbol string) (decimal.Decimal, error)
}

// StaticSource serves a fixed price table. It stands in for a market data
// feed in development and tests.
type StaticSource struct {
	coins map[string]Coin
	order []string
}

func NewStaticSource() *StaticSource {
	s := &StaticSource{coins: make(map[string]Coin)}
	for _, c := range []Coin{
		{Symbol: "BTC", Name: "Bitcoin", PriceUSD: decimal.NewFromInt(45000)},
		{Symbol: "ETH", Name: "Ethereum", PriceUSD: decimal.NewFromInt(2800)},
		{Symbol: "SOL", Name: "Solana", PriceUSD: decimal.NewFromInt(125)},
		{Symbol: "USDT", Name: "Tether", PriceUSD: decimal.NewFromInt(1)},
		{Symbol: "USDC", Name: "USD Coin", PriceUSD: decimal.NewFromInt(1)},
	} {
		s.coins[c.Symbol] = c
		s.order = append(s.order, c.Symbol)
	}
	return s
}

func (s *StaticSource) Coins() []Coin {
	out := make([]Coin, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, s.coins[sym])
	}
	return out
}

func (s *StaticSource) Price(symbol string) (decimal.Decimal, error) {
	c, ok := s.coins[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported coin %q", symbol)
	}
	return c.PriceUSD, nil
}

// DepositAddress generates a development deposit address for the coin. The
// prefix mimics each chain's address format; the rest is random.
func DepositAddress(symbol string) (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate deposit address: %w", err)
	}
	suffix := hex.EncodeToString(buf)
	switch symbol {
	case "BTC":
		return "1A" + suffix, nil
	case "ETH", "USDT", "USDC":
		return "0x" + suffix, nil
	case "SOL":
		return "So" + suffix, nil
	default:
		return "", fmt.Errorf("unsupported coin %q", symbol)
	}
}
