package challenge

import (
	"fmt"
	"sort"
	"time"
)

// Store persists snapshots. Save must complete, or visibly fail, before
// a state-changing engine call returns; losing a terminal transition
// would corrupt the externally visible pass/fail record.
type Store interface {
	Save(Snapshot) error
}

// NopStore discards snapshots. Useful for ephemeral runs and tests that
// do not care about durability.
type NopStore struct{}

func (NopStore) Save(Snapshot) error { return nil }

// Snapshot is the durable representation of a challenge: the immutable
// config, the mutable state, and the complete trade ledger. The ledger
// is the source of truth; the next ticket and the open-trade index are
// always recomputed from it on load, never stored.
type Snapshot struct {
	Config Config        `json:"config"`
	State  SnapshotState `json:"state"`
	Trades []Trade       `json:"trades"`
}

// SnapshotState serializes the ChallengeState fields. Calendar days are
// ISO-8601 dates; timestamps are RFC 3339.
type SnapshotState struct {
	Balance           float64   `json:"balance"`
	Equity            float64   `json:"equity"`
	HighWaterMark     float64   `json:"high_water_mark"`
	DailyStartBalance float64   `json:"daily_start_balance"`
	StartTime         time.Time `json:"start_time"`
	CurrentDay        string    `json:"current_day"`
	TradingDays       []string  `json:"trading_days"`
	Status            Status    `json:"status"`
	FailReason        string    `json:"fail_reason,omitempty"`
}

// snapshotLocked builds the snapshot document. Caller holds c.mu.
func (c *Challenge) snapshotLocked() Snapshot {
	days := make([]string, 0, len(c.tradingDays))
	for d := range c.tradingDays {
		days = append(days, d)
	}
	sort.Strings(days)

	trades := make([]Trade, len(c.trades))
	for i, t := range c.trades {
		trades[i] = *t
	}

	return Snapshot{
		Config: c.cfg,
		State: SnapshotState{
			Balance:           c.balance,
			Equity:            c.equity,
			HighWaterMark:     c.highWaterMark,
			DailyStartBalance: c.dailyStartBalance,
			StartTime:         c.startTime,
			CurrentDay:        c.currentDay,
			TradingDays:       days,
			Status:            c.status,
			FailReason:        c.failReason,
		},
		Trades: trades,
	}
}

// Snapshot returns the current durable representation of the challenge.
func (c *Challenge) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Restore reconstructs a challenge from a snapshot. Derived fields —
// the next ticket and the open-trade index — are rebuilt from the
// ledger, so Restore(Snapshot()) round-trips every reachable state.
func Restore(snap Snapshot, store Store, opts ...Option) (*Challenge, error) {
	if err := snap.Config.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}
	if !snap.State.Status.Valid() {
		return nil, fmt.Errorf("snapshot has unknown status %q", snap.State.Status)
	}

	c, err := New(snap.Config, store, opts...)
	if err != nil {
		return nil, err
	}

	c.balance = snap.State.Balance
	c.equity = snap.State.Equity
	c.highWaterMark = snap.State.HighWaterMark
	c.dailyStartBalance = snap.State.DailyStartBalance
	c.startTime = snap.State.StartTime
	c.currentDay = snap.State.CurrentDay
	c.status = snap.State.Status
	c.failReason = snap.State.FailReason

	c.tradingDays = make(map[string]struct{}, len(snap.State.TradingDays))
	for _, d := range snap.State.TradingDays {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("snapshot trading day %q: %w", d, err)
		}
		c.tradingDays[d] = struct{}{}
	}

	c.trades = make([]*Trade, 0, len(snap.Trades))
	c.open = make(map[int64]*Trade)
	c.nextTicket = firstTicket
	for i := range snap.Trades {
		t := snap.Trades[i]
		c.trades = append(c.trades, &t)
		if t.Status == TradeOpen {
			c.open[t.Ticket] = &t
		}
		if t.Ticket >= c.nextTicket {
			c.nextTicket = t.Ticket + 1
		}
	}

	return c, nil
}
