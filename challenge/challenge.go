// Package challenge implements the risk-limit tracking engine for a
// simulated funded-account evaluation: it ingests trade open / update /
// close events, tracks balance, equity and drawdown watermarks against
// a fixed rule set, and decides whether the evaluation is in progress,
// passed, or failed.
package challenge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantumchildren/propsim/market"
)

// firstTicket is the ticket assigned to the first trade of a fresh
// challenge instance.
const firstTicket = 1000

// Rejection errors. These are synchronous precondition results, never
// crashes: a driver keeps polling status without special-casing them.
// Any other non-nil error from a mutating call is a persistence failure;
// the in-memory state is already updated, only durability is uncertain.
var (
	ErrNotInProgress    = errors.New("challenge is not in progress")
	ErrInvalidVolume    = errors.New("trade volume must be positive")
	ErrInvalidDirection = errors.New("trade direction must be BUY or SELL")
)

// Challenge is a single evaluation instance. Mutating calls for one
// instance must be serialized by the caller; the internal mutex protects
// against accidental overlap but the design is single-writer.
type Challenge struct {
	mu     sync.Mutex
	cfg    Config
	store  Store
	notify Notifier
	now    func() time.Time

	balance           float64
	equity            float64
	highWaterMark     float64
	dailyStartBalance float64

	startTime   time.Time
	currentDay  string // ISO date of the last observed event day
	tradingDays map[string]struct{}

	trades     []*Trade
	open       map[int64]*Trade
	nextTicket int64

	status     Status
	failReason string
}

// Option configures a Challenge at construction.
type Option func(*Challenge)

// WithNotifier sets the telemetry sink for opened trades.
func WithNotifier(n Notifier) Option {
	return func(c *Challenge) { c.notify = n }
}

// WithClock overrides the engine clock. Intended for tests that need to
// control calendar-day rollover.
func WithClock(now func() time.Time) Option {
	return func(c *Challenge) { c.now = now }
}

// New creates a fresh challenge from cfg. The store receives a snapshot
// after every state-changing call.
func New(cfg Config, store Store, opts ...Option) (*Challenge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("challenge config: %w", err)
	}
	if store == nil {
		store = NopStore{}
	}

	c := &Challenge{
		cfg:         cfg,
		store:       store,
		notify:      NopNotifier{},
		now:         time.Now,
		balance:     cfg.InitialBalance,
		equity:      cfg.InitialBalance,
		tradingDays: make(map[string]struct{}),
		open:        make(map[int64]*Trade),
		nextTicket:  firstTicket,
		status:      InProgress,
	}
	c.highWaterMark = cfg.InitialBalance
	c.dailyStartBalance = cfg.InitialBalance

	for _, opt := range opts {
		opt(c)
	}

	c.startTime = c.now()
	c.currentDay = c.startTime.Format("2006-01-02")
	return c, nil
}

// Config returns the immutable rule set.
func (c *Challenge) Config() Config { return c.cfg }

// Status returns the current lifecycle state.
func (c *Challenge) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// FailReason returns the explanation recorded when the challenge failed,
// or "" while in progress or passed.
func (c *Challenge) FailReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failReason
}

// StartTime returns when the instance was created. The external driver
// compares elapsed days against Config().TimeLimitDays and calls Expire.
func (c *Challenge) StartTime() time.Time { return c.startTime }

// OpenTrade records a new OPEN trade and returns its ticket. The ticket
// is unique and strictly greater than every previously issued ticket.
// Rejections (ErrNotInProgress, ErrInvalidVolume, ErrInvalidDirection)
// leave state untouched and issue no ticket. A persistence failure still
// returns the issued ticket alongside the error.
func (c *Challenge) OpenTrade(symbol string, direction market.Direction, volume, price, confidence float64) (int64, error) {
	c.mu.Lock()

	if c.status.Terminal() {
		c.mu.Unlock()
		return 0, ErrNotInProgress
	}
	if volume <= 0 {
		c.mu.Unlock()
		return 0, ErrInvalidVolume
	}
	if direction != market.Buy && direction != market.Sell {
		c.mu.Unlock()
		return 0, ErrInvalidDirection
	}

	// Day rollover is observed before the trade is recorded so the new
	// day starts from the realized balance.
	c.rollDayLocked()
	c.tradingDays[c.currentDay] = struct{}{}

	ticket := c.nextTicket
	c.nextTicket++

	t := &Trade{
		Ticket:    ticket,
		Symbol:    symbol,
		Direction: direction,
		Volume:    volume,
		OpenPrice: price,
		OpenTime:  c.now(),
		Status:    TradeOpen,
	}
	c.trades = append(c.trades, t)
	c.open[ticket] = t

	err := c.persistLocked()
	notify := c.notify
	c.mu.Unlock()

	// Best effort, off the critical path: the notifier must never affect
	// the recorded trade or the returned ticket.
	notify.TradeOpened(TradeNote{
		Symbol:     symbol,
		Direction:  string(direction),
		Volume:     volume,
		Price:      price,
		Confidence: confidence,
		Source:     "SIM_" + c.cfg.Name,
	})

	return ticket, err
}

// UpdateTrade marks an open trade at the given price and re-runs the
// drawdown check. An unknown or already-closed ticket is a silent no-op:
// a price tick may race with a close. A status transition triggered here
// is persisted before the call returns.
func (c *Challenge) UpdateTrade(ticket int64, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.open[ticket]
	if !ok {
		return nil
	}

	t.Profit = t.profitAt(price)
	c.revalueLocked()

	before := c.status
	c.checkDrawdownLocked()
	if c.status != before {
		// Entering a failed state must be durable.
		return c.persistLocked()
	}
	return nil
}

// CloseTrade realizes an open trade at price and returns the realized
// profit. An unknown or already-closed ticket returns zero. The drawdown
// check runs before the profit-target check; both see the post-close
// balance.
func (c *Challenge) CloseTrade(ticket int64, price float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.open[ticket]
	if !ok {
		return 0, nil
	}

	t.Profit = t.profitAt(price)
	t.ClosePrice = &price
	closeTime := c.now()
	t.CloseTime = &closeTime
	t.Status = TradeClosed
	delete(c.open, ticket)

	c.balance += t.Profit
	if c.balance > c.highWaterMark {
		c.highWaterMark = c.balance
	}
	c.revalueLocked()

	c.checkDrawdownLocked()
	c.checkProfitTargetLocked()

	return t.Profit, c.persistLocked()
}

// Expire transitions an in-progress challenge to FAILED_TIME. The engine
// owns no clock loop; the driver decides when the configured time limit
// has elapsed. Expiring a terminal challenge is a no-op.
func (c *Challenge) Expire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Terminal() {
		return nil
	}
	c.status = FailedTime
	c.failReason = fmt.Sprintf("Time limit of %d days exceeded", c.cfg.TimeLimitDays)
	return c.persistLocked()
}

// rollDayLocked resets the daily drawdown reference exactly once per
// calendar-day transition, from realized balance, not equity.
func (c *Challenge) rollDayLocked() {
	today := c.now().Format("2006-01-02")
	if today != c.currentDay {
		c.currentDay = today
		c.dailyStartBalance = c.balance
	}
}

// revalueLocked recomputes equity as balance plus the floating P/L of
// all open trades. Holds after every mutating call returns.
func (c *Challenge) revalueLocked() {
	equity := c.balance
	for _, t := range c.open {
		equity += t.Profit
	}
	c.equity = equity
}

// checkDrawdownLocked evaluates both drawdown rules against equity.
// Drops are measured as fractions of the initial balance. The daily
// check runs first; a same-event breach of both reports the daily
// failure. No-op once terminal.
func (c *Challenge) checkDrawdownLocked() {
	if c.status.Terminal() {
		return
	}

	dailyDD := (c.dailyStartBalance - c.equity) / c.cfg.InitialBalance
	if dailyDD >= c.cfg.MaxDailyDrawdownPct {
		c.status = FailedDailyDD
		c.failReason = fmt.Sprintf("Daily drawdown %.2f%% exceeded %.0f%%",
			dailyDD*100, c.cfg.MaxDailyDrawdownPct*100)
		return
	}

	totalDD := (c.highWaterMark - c.equity) / c.cfg.InitialBalance
	if totalDD >= c.cfg.MaxTotalDrawdownPct {
		c.status = FailedMaxDD
		c.failReason = fmt.Sprintf("Total drawdown %.2f%% exceeded %.0f%%",
			totalDD*100, c.cfg.MaxTotalDrawdownPct*100)
	}
}

// checkProfitTargetLocked passes the challenge when the realized profit
// reaches the target and enough distinct trading days have accrued.
// Hitting the target early with too few days keeps the challenge in
// progress; it is not a failure.
func (c *Challenge) checkProfitTargetLocked() {
	if c.status.Terminal() {
		return
	}

	profitPct := (c.balance - c.cfg.InitialBalance) / c.cfg.InitialBalance
	if profitPct >= c.cfg.ProfitTargetPct && len(c.tradingDays) >= c.cfg.MinTradingDays {
		c.status = Passed
	}
}

func (c *Challenge) persistLocked() error {
	if err := c.store.Save(c.snapshotLocked()); err != nil {
		return fmt.Errorf("persist challenge state: %w", err)
	}
	return nil
}
