package order

import (
	"time"

	"polymarket-liquidity-go/clob"
)

// Status represents the local view of an order's lifecycle.
type Status string

const (
	// StatusPending is the pre-acknowledgment state while a submission is in flight.
	StatusPending Status = "PENDING"
	// StatusLive means the exchange acknowledged the order and it is resting.
	StatusLive Status = "LIVE"
	// StatusCanceled means the exchange confirmed cancellation.
	StatusCanceled Status = "CANCELED"
	// StatusFailed means submission or cancellation errored out.
	StatusFailed Status = "FAILED"
	// StatusUnknown means a cancel went unconfirmed; the order must be
	// reconciled against the exchange's open-order set before it can be trusted.
	StatusUnknown Status = "UNKNOWN"
)

// Order holds the manager's view of one resting quote.
type Order struct {
	ID         string
	Instrument clob.Instrument
	Side       clob.Side
	Size       float64
	Price      float64
	PlacedAt   time.Time
	Status     Status
	LastError  string
}
