package order

import (
	"context"
	"errors"
	"testing"

	"polymarket-liquidity-go/clob"
)

type mockExchange struct {
	submitted   []clob.OrderSpec
	nextID      string
	errSubmit   error
	errCancel   error
	cancelResp  clob.CancelResponse
	openOrders  []clob.OpenOrder
	errOpen     error
	minSize     float64
	errMinSize  error
	cancelCalls []string
}

func (m *mockExchange) SubmitOrder(_ context.Context, spec clob.OrderSpec) (string, error) {
	m.submitted = append(m.submitted, spec)
	if m.errSubmit != nil {
		return "", m.errSubmit
	}
	if m.nextID == "" {
		m.nextID = "oid-1"
	}
	return m.nextID, nil
}

func (m *mockExchange) CancelOrder(_ context.Context, id string) (clob.CancelResponse, error) {
	m.cancelCalls = append(m.cancelCalls, id)
	return m.cancelResp, m.errCancel
}

func (m *mockExchange) OpenOrders(_ context.Context, _, _ string) ([]clob.OpenOrder, error) {
	return m.openOrders, m.errOpen
}

func (m *mockExchange) MinOrderSize(_ context.Context, _ string) (float64, error) {
	return m.minSize, m.errMinSize
}

var inst = clob.Instrument{Market: "0xcond", AssetID: "tok"}

func TestPlaceRecordsLiveOrder(t *testing.T) {
	ex := &mockExchange{nextID: "oid-7", minSize: 5}
	m := NewManager(ex)

	res := m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0)
	if !res.OK || res.OrderID != "oid-7" {
		t.Fatalf("unexpected result: %+v", res)
	}
	o, ok := m.Get("oid-7")
	if !ok || o.Status != StatusLive {
		t.Fatalf("order not live: %+v ok=%v", o, ok)
	}
	if got := len(m.Live(inst)); got != 1 {
		t.Fatalf("live count = %d, want 1", got)
	}
}

func TestPlaceClampsPriceAndSize(t *testing.T) {
	ex := &mockExchange{minSize: 5}
	m := NewManager(ex)
	ctx := context.Background()

	cases := []struct {
		price, size       float64
		wantPrice, wantSz float64
	}{
		{-0.3, 10, 0.01, 10},
		{1.7, 10, 0.99, 10},
		{0.5, 0.1, 0.5, 5},
		{0.005, -2, 0.01, 5},
	}
	for _, c := range cases {
		res := m.Place(ctx, inst, clob.SideSell, c.size, c.price, 0)
		if !res.OK {
			t.Fatalf("place failed: %+v", res)
		}
		spec := ex.submitted[len(ex.submitted)-1]
		if spec.Price != c.wantPrice {
			t.Fatalf("price %f clamped to %f, want %f", c.price, spec.Price, c.wantPrice)
		}
		if spec.Size != c.wantSz {
			t.Fatalf("size %f clamped to %f, want %f", c.size, spec.Size, c.wantSz)
		}
	}
}

func TestPlaceFailureRecordsNothing(t *testing.T) {
	ex := &mockExchange{minSize: 5, errSubmit: errors.New("insufficient balance")}
	m := NewManager(ex)

	res := m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0)
	if res.OK {
		t.Fatalf("expected failure result")
	}
	if res.ErrorMsg == "" {
		t.Fatalf("failure must carry the error message")
	}
	if got := len(m.Live(inst)); got != 0 {
		t.Fatalf("registry must stay empty on failure, got %d live", got)
	}
}

func TestPlaceMinSizeLookupFailure(t *testing.T) {
	ex := &mockExchange{errMinSize: errors.New("timeout")}
	m := NewManager(ex)
	if res := m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0); res.OK {
		t.Fatalf("expected failure when min size lookup errors")
	}
	if len(ex.submitted) != 0 {
		t.Fatalf("order must not be submitted without min size")
	}
}

func TestCancelConfirmed(t *testing.T) {
	ex := &mockExchange{nextID: "oid-1", minSize: 1}
	ex.cancelResp = clob.CancelResponse{Canceled: []string{"oid-1"}}
	m := NewManager(ex)
	m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0)

	res := m.Cancel(context.Background(), "oid-1")
	if !res.OK || !res.Confirmed {
		t.Fatalf("unexpected cancel result: %+v", res)
	}
	o, _ := m.Get("oid-1")
	if o.Status != StatusCanceled {
		t.Fatalf("status = %s, want CANCELED", o.Status)
	}
}

func TestCancelUnconfirmedMarksUnknown(t *testing.T) {
	ex := &mockExchange{nextID: "oid-1", minSize: 1}
	ex.cancelResp = clob.CancelResponse{NotCanceled: map[string]string{"oid-1": "already matched"}}
	m := NewManager(ex)
	m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0)

	res := m.Cancel(context.Background(), "oid-1")
	if !res.OK || res.Confirmed {
		t.Fatalf("unexpected cancel result: %+v", res)
	}
	o, _ := m.Get("oid-1")
	if o.Status != StatusUnknown {
		t.Fatalf("status = %s, want UNKNOWN", o.Status)
	}
	if got := len(m.Live(inst)); got != 0 {
		t.Fatalf("UNKNOWN order must not count as live")
	}
}

func TestCancelTransportErrorMarksUnknown(t *testing.T) {
	ex := &mockExchange{nextID: "oid-1", minSize: 1, errCancel: errors.New("502")}
	m := NewManager(ex)
	m.Place(context.Background(), inst, clob.SideBuy, 10, 0.47, 0)

	res := m.Cancel(context.Background(), "oid-1")
	if res.OK {
		t.Fatalf("expected failed cancel result")
	}
	o, _ := m.Get("oid-1")
	if o.Status != StatusUnknown {
		t.Fatalf("status = %s, want UNKNOWN", o.Status)
	}
}

func TestReconcileResolvesUnknown(t *testing.T) {
	ex := &mockExchange{nextID: "oid-1", minSize: 1, errCancel: errors.New("502")}
	m := NewManager(ex)
	ctx := context.Background()
	m.Place(ctx, inst, clob.SideBuy, 10, 0.47, 0)
	m.Cancel(ctx, "oid-1") // -> UNKNOWN

	// 交易所仍把订单列为挂单：恢复 LIVE。
	ex.openOrders = []clob.OpenOrder{{ID: "oid-1", AssetID: inst.AssetID}}
	if err := m.Reconcile(ctx, inst); err != nil {
		t.Fatalf("reconcile err: %v", err)
	}
	if o, _ := m.Get("oid-1"); o.Status != StatusLive {
		t.Fatalf("status = %s, want LIVE", o.Status)
	}

	// 交易所不再列出：视为已撤。
	ex.openOrders = nil
	if err := m.Reconcile(ctx, inst); err != nil {
		t.Fatalf("reconcile err: %v", err)
	}
	if o, _ := m.Get("oid-1"); o.Status != StatusCanceled {
		t.Fatalf("status = %s, want CANCELED", o.Status)
	}
}

func TestReconcileFetchFailure(t *testing.T) {
	ex := &mockExchange{errOpen: errors.New("timeout")}
	m := NewManager(ex)
	if err := m.Reconcile(context.Background(), inst); err == nil {
		t.Fatalf("expected reconcile error")
	}
}

func TestRegistryIsolatedByInstrument(t *testing.T) {
	ex := &mockExchange{minSize: 1}
	m := NewManager(ex)
	ctx := context.Background()
	other := clob.Instrument{Market: "0xcond2", AssetID: "tok2"}

	ex.nextID = "a-1"
	m.Place(ctx, inst, clob.SideBuy, 10, 0.4, 0)
	ex.nextID = "b-1"
	m.Place(ctx, other, clob.SideBuy, 10, 0.4, 0)

	if got := len(m.Live(inst)); got != 1 {
		t.Fatalf("inst live = %d, want 1", got)
	}
	if got := len(m.LiveBySide(other, clob.SideBuy)); got != 1 {
		t.Fatalf("other live = %d, want 1", got)
	}
	if got := len(m.LiveBySide(other, clob.SideSell)); got != 0 {
		t.Fatalf("other sell live = %d, want 0", got)
	}
}
