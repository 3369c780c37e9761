package strategy

import "testing"

func TestQuotePrices(t *testing.T) {
	cases := []struct {
		name     string
		mid      float64
		spread   float64
		wantBuy  float64
		wantSell float64
	}{
		{"around half", 0.50, 0.03, 0.47, 0.53},
		{"rounds to cents", 0.4812, 0.03, 0.45, 0.51},
		{"clamps low", 0.02, 0.05, 0.01, 0.07},
		{"clamps high", 0.98, 0.05, 0.93, 0.99},
		{"fallback mid", 0.5, 0.02, 0.48, 0.52},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buy, sell := QuotePrices(c.mid, c.spread)
			if buy != c.wantBuy {
				t.Errorf("buy = %f, want %f", buy, c.wantBuy)
			}
			if sell != c.wantSell {
				t.Errorf("sell = %f, want %f", sell, c.wantSell)
			}
		})
	}
}

func TestQuotePricesNeverLeaveBand(t *testing.T) {
	for mid := -0.5; mid <= 1.5; mid += 0.01 {
		buy, sell := QuotePrices(mid, 0.03)
		if buy < 0.01 || buy > 0.99 || sell < 0.01 || sell > 0.99 {
			t.Fatalf("mid %f: quotes %f/%f outside [0.01, 0.99]", mid, buy, sell)
		}
	}
}
