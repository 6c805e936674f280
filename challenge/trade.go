package challenge

import (
	"time"

	"github.com/quantumchildren/propsim/market"
)

// TradeStatus is the lifecycle of a single simulated trade. A closed
// trade never reopens.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is one ledger entry. Tickets are unique and strictly increasing
// for the lifetime of a challenge instance, including across a
// snapshot round trip.
type Trade struct {
	Ticket    int64            `json:"ticket"`
	Symbol    string           `json:"symbol"`
	Direction market.Direction `json:"direction"`
	Volume    float64          `json:"volume"`

	OpenPrice  float64  `json:"open_price"`
	ClosePrice *float64 `json:"close_price,omitempty"`

	OpenTime  time.Time  `json:"open_time"`
	CloseTime *time.Time `json:"close_time,omitempty"`

	// Profit is the running signed P/L in account currency; it becomes
	// the realized P/L once the trade closes.
	Profit float64 `json:"profit"`

	Status TradeStatus `json:"status"`
}

// profitAt computes the signed P/L of the trade marked at price, using
// the instrument's configured point value.
func (t *Trade) profitAt(price float64) float64 {
	points := price - t.OpenPrice
	if t.Direction == market.Sell {
		points = t.OpenPrice - price
	}
	return points * t.Volume * market.PointValue(t.Symbol)
}
