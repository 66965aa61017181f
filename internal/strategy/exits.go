package strategy

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// StopLossPrice returns entry * (1 - rate).
func StopLossPrice(entry, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(entry).Mul(one.Sub(decimal.NewFromFloat(rate)))
}

// TakeProfitPrice returns entry * (1 + rate).
func TakeProfitPrice(entry, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(entry).Mul(one.Add(decimal.NewFromFloat(rate)))
}

// Both thresholds are inclusive.
func stopLossHit(price, entry, rate float64) bool {
	return decimal.NewFromFloat(price).LessThanOrEqual(StopLossPrice(entry, rate))
}

func takeProfitHit(price, entry, rate float64) bool {
	return decimal.NewFromFloat(price).GreaterThanOrEqual(TakeProfitPrice(entry, rate))
}

// belowHardStop is strict: a close exactly at the stop keeps the position.
func belowHardStop(price, entry, rate float64) bool {
	return decimal.NewFromFloat(price).LessThan(StopLossPrice(entry, rate))
}
