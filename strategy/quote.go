package strategy

import (
	"math"

	"polymarket-liquidity-go/order"
)

// QuotePrices computes the two-sided quote around mid: buy below, sell above,
// rounded to cents and clamped into the exchange's [0.01, 0.99] price band.
func QuotePrices(mid, maxSpread float64) (buyPrice, sellPrice float64) {
	buyPrice = order.ClampPrice(roundCents(mid - maxSpread))
	sellPrice = order.ClampPrice(roundCents(mid + maxSpread))
	return buyPrice, sellPrice
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
