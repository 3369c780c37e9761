package pricer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-liquidity-go/clob"
)

type stubBook struct {
	orders []clob.OpenOrder
	err    error
}

func (s stubBook) OpenOrders(context.Context, string, string) ([]clob.OpenOrder, error) {
	return s.orders, s.err
}

func open(side string, price float64) clob.OpenOrder {
	return clob.OpenOrder{Side: side, Price: decimal.NewFromFloat(price)}
}

var inst = clob.Instrument{Market: "0xcond", AssetID: "tok"}

func TestMidPriceBothSides(t *testing.T) {
	p := New(stubBook{orders: []clob.OpenOrder{
		open("buy", 0.40), open("BUY", 0.45), open("sell", 0.55), open("SELL", 0.60),
	}})
	mid := p.MidPrice(context.Background(), inst)
	if mid.Source != SourceBook {
		t.Fatalf("source = %s, want book", mid.Source)
	}
	if mid.Price != 0.5 {
		t.Fatalf("mid = %f, want 0.5", mid.Price)
	}
	if mid.BestBid != 0.45 || mid.BestAsk != 0.55 {
		t.Fatalf("best bid/ask = %f/%f", mid.BestBid, mid.BestAsk)
	}
}

func TestMidPriceOrderIndependent(t *testing.T) {
	orders := []clob.OpenOrder{
		open("buy", 0.30), open("buy", 0.42), open("buy", 0.38),
		open("sell", 0.58), open("sell", 0.50), open("sell", 0.63),
	}
	want := (0.42 + 0.50) / 2
	for i := 0; i < 10; i++ {
		shuffled := make([]clob.OpenOrder, len(orders))
		copy(shuffled, orders)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		mid := New(stubBook{orders: shuffled}).MidPrice(context.Background(), inst)
		if mid.Price != want {
			t.Fatalf("mid = %f, want %f (permutation %d)", mid.Price, want, i)
		}
	}
}

func TestMidPriceEmptyBook(t *testing.T) {
	mid := New(stubBook{}).MidPrice(context.Background(), inst)
	if mid.Price != 0.5 {
		t.Fatalf("mid = %f, want 0.5", mid.Price)
	}
	if mid.Source != SourceEmptyBook {
		t.Fatalf("source = %s, want empty_book", mid.Source)
	}
}

func TestMidPriceBidsOnly(t *testing.T) {
	p := New(stubBook{orders: []clob.OpenOrder{open("buy", 0.40), open("buy", 0.45)}})
	mid := p.MidPrice(context.Background(), inst)
	if mid.Price != (0.45+1)/2 {
		t.Fatalf("mid = %f, want 0.725", mid.Price)
	}
	if mid.Source != SourceBook {
		t.Fatalf("source = %s, want book", mid.Source)
	}
}

func TestMidPriceAsksOnly(t *testing.T) {
	p := New(stubBook{orders: []clob.OpenOrder{open("sell", 0.30), open("sell", 0.25)}})
	mid := p.MidPrice(context.Background(), inst)
	if mid.Price != 0.25/2 {
		t.Fatalf("mid = %f, want 0.125", mid.Price)
	}
}

func TestMidPriceFetchFailure(t *testing.T) {
	p := New(stubBook{err: errors.New("503")})
	mid := p.MidPrice(context.Background(), inst)
	if mid.Price != 0.5 {
		t.Fatalf("mid = %f, want 0.5 fallback", mid.Price)
	}
	if mid.Source != SourceError || mid.Err == nil {
		t.Fatalf("fetch failure must be tagged: %+v", mid)
	}
}
