package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific coin.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount int64  // micros
	Coin   string // e.g. USD, BTC
}

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64, coin string) Money {
	return Money{
		Amount: amount,
		Coin:   coin,
	}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(1_000_000))
}

// FromDecimal converts a decimal.Decimal to int64 micros.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(1_000_000)).IntPart()
}

// Multiply returns a new Money instance multiplied by a factor
// (e.g. a payout multiplier or a coin price). It uses shopspring/decimal
// for precision and rounds down.
func (m Money) Multiply(factor decimal.Decimal) Money {
	amountDec := m.ToDecimal().Mul(factor)
	return Money{
		Amount: FromDecimal(amountDec),
		Coin:   m.Coin,
	}
}

// ToUSD converts a coin amount to USD micros using the given price (USD per coin).
func (m Money) ToUSD(price decimal.Decimal) Money {
	amountDec := m.ToDecimal().Mul(price)
	return Money{
		Amount: FromDecimal(amountDec),
		Coin:   DefaultCoin,
	}
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Coin)
}
