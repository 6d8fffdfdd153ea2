package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(10_500_000, "USD") // 10.50 USD
	d := m.ToDecimal()
	assert.Equal(t, "10.5", d.String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(10.50)
	micros := FromDecimal(d)
	assert.Equal(t, int64(10_500_000), micros)
}

func TestMoney_Multiply(t *testing.T) {
	// Stake: 30 USD, multiplier 2 -> payout 60 USD
	stake := NewMoney(30_000_000, "USD")
	payout := stake.Multiply(decimal.NewFromInt(2))
	assert.Equal(t, int64(60_000_000), payout.Amount)

	// Fractional multiplier rounds down at micro precision.
	payout = stake.Multiply(decimal.NewFromFloat(2.5))
	assert.Equal(t, int64(75_000_000), payout.Amount)
}

func TestMoney_ToUSD(t *testing.T) {
	// 0.5 BTC at 45,000 USD/BTC -> 22,500 USD
	btc := NewMoney(500_000, "BTC")
	usd := btc.ToUSD(decimal.NewFromInt(45_000))

	assert.Equal(t, "USD", usd.Coin)
	assert.Equal(t, int64(22_500_000_000), usd.Amount)
}

func TestMoney_ToUSD_Precision(t *testing.T) {
	// 1 ETH at 2,800.555 USD -> 2,800.555 USD exactly in micros
	eth := NewMoney(1_000_000, "ETH")
	usd := eth.ToUSD(decimal.NewFromFloat(2800.555))

	assert.Equal(t, int64(2_800_555_000), usd.Amount)
}
