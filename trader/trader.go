// Package trader runs the challenge loop: pull candles, score them,
// route orders into the challenge engine and report what happened.
package trader

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quantumchildren/propsim/challenge"
	"github.com/quantumchildren/propsim/config"
	"github.com/quantumchildren/propsim/market"
	"github.com/quantumchildren/propsim/signal"
	"github.com/quantumchildren/propsim/telemetry"
	"github.com/quantumchildren/propsim/venue"
)

// historyBars is how much candle history each analysis pass uses.
const historyBars = 200

// Reporter is the telemetry surface the loop uses. The concrete
// implementation is telemetry.Client; tests substitute a recorder.
type Reporter interface {
	Signal(telemetry.Signal) bool
	Outcome(telemetry.Outcome) bool
	Entropy(telemetry.EntropySnapshot) bool
}

// position tracks a ticket the loop itself opened or restored.
type position struct {
	symbol    string
	direction market.Direction
	entry     float64
}

// Trader drives one challenge attempt against a venue.
type Trader struct {
	cfg       config.TraderConfig
	ch        *challenge.Challenge
	venue     venue.Venue
	gen       *signal.Generator
	reporter  Reporter
	logger    *log.Logger
	positions map[int64]position
}

// Option adjusts a trader.
type Option func(*Trader)

// WithReporter attaches a telemetry reporter.
func WithReporter(r Reporter) Option {
	return func(t *Trader) { t.reporter = r }
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Trader) { t.logger = l }
}

// New builds a trader around an existing challenge. Open trades
// already in the challenge, for example after a snapshot restore, are
// adopted as live positions.
func New(cfg config.TraderConfig, ch *challenge.Challenge, v venue.Venue, opts ...Option) *Trader {
	t := &Trader{
		cfg:   cfg,
		ch:    ch,
		venue: v,
		gen: signal.NewGenerator(signal.Config{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			EntropyThreshold:    cfg.EntropyThreshold,
		}),
		logger:    log.Default(),
		positions: make(map[int64]position),
	}
	for _, o := range opts {
		o(t)
	}

	for _, tr := range ch.Snapshot().Trades {
		if tr.Status == challenge.TradeOpen {
			t.positions[tr.Ticket] = position{
				symbol:    tr.Symbol,
				direction: tr.Direction,
				entry:     tr.OpenPrice,
			}
		}
	}
	return t
}

// Run cycles until the challenge reaches a terminal status or the
// context is cancelled.
func (t *Trader) Run(ctx context.Context) (challenge.Status, error) {
	if err := t.venue.Connect(ctx); err != nil {
		return t.ch.Status(), fmt.Errorf("connect venue: %w", err)
	}
	defer t.venue.Shutdown()

	interval, err := t.cfg.ParseCheckInterval()
	if err != nil {
		return t.ch.Status(), err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := t.Cycle()
		if err != nil {
			t.logger.Printf("cycle: %v", err)
		}
		if status.Terminal() {
			t.logger.Printf("challenge %s: %s", t.ch.Config().Name, status)
			return status, nil
		}
		select {
		case <-ctx.Done():
			return t.ch.Status(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one pass: expire check, mark open positions to market,
// then analyze each symbol and trade the result.
func (t *Trader) Cycle() (challenge.Status, error) {
	if st := t.ch.Status(); st.Terminal() {
		return st, nil
	}

	if limit := t.ch.Config().TimeLimitDays; limit > 0 {
		if t.ch.Stats().DaysElapsed > limit {
			if err := t.ch.Expire(); err != nil {
				return t.ch.Status(), err
			}
			return t.ch.Status(), nil
		}
	}

	if st, err := t.markToMarket(); err != nil || st.Terminal() {
		return st, err
	}

	for _, symbol := range t.cfg.Symbols {
		if st, err := t.tradeSymbol(symbol); err != nil {
			return st, err
		} else if st.Terminal() {
			return st, nil
		}
	}

	stats := t.ch.Stats()
	t.logger.Printf("balance %.2f equity %.2f progress %.1f%% days %d/%d open %d",
		stats.Balance, stats.Equity, stats.Progress,
		stats.TradingDays, stats.MinTradingDays, stats.OpenTrades)
	return stats.Status, nil
}

// markToMarket refreshes every open ticket at the current price so the
// drawdown rules see floating losses between closes.
func (t *Trader) markToMarket() (challenge.Status, error) {
	for ticket, pos := range t.positions {
		price, err := t.venue.Price(pos.symbol)
		if err != nil {
			return t.ch.Status(), fmt.Errorf("price %s: %w", pos.symbol, err)
		}
		if err := t.ch.UpdateTrade(ticket, price); err != nil {
			return t.ch.Status(), err
		}
	}
	return t.ch.Status(), nil
}

func (t *Trader) tradeSymbol(symbol string) (challenge.Status, error) {
	bars, err := t.venue.Candles(symbol, t.cfg.Timeframe, historyBars)
	if err != nil {
		return t.ch.Status(), fmt.Errorf("candles %s: %w", symbol, err)
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	price := closes[len(closes)-1]

	sig := t.gen.Analyze(symbol, closes)
	t.reportEntropy(sig, price)

	if sig.Direction == market.Hold {
		t.logger.Printf("%s: hold (%s)", symbol, sig.Reason)
		return t.ch.Status(), nil
	}

	// An opposite signal closes the standing position first.
	for ticket, pos := range t.positions {
		if pos.symbol != symbol || pos.direction == sig.Direction {
			continue
		}
		pnl, err := t.ch.CloseTrade(ticket, price)
		if err != nil {
			return t.ch.Status(), err
		}
		t.logger.Printf("%s: closed ticket %d at %.2f, pnl %.2f", symbol, ticket, price, pnl)
		t.reportOutcome(ticket, pos, price, pnl)
		delete(t.positions, ticket)
		if st := t.ch.Status(); st.Terminal() {
			return st, nil
		}
	}

	if t.hasPosition(symbol) {
		return t.ch.Status(), nil
	}

	if !t.cfg.EnableTrading {
		t.logger.Printf("%s: %s signal at %.2f (trading disabled)", symbol, sig.Direction, price)
		t.reportSignal(sig, price)
		return t.ch.Status(), nil
	}
	if len(t.positions) >= t.cfg.MaxPositions {
		t.logger.Printf("%s: %s signal skipped, %d positions open", symbol, sig.Direction, len(t.positions))
		return t.ch.Status(), nil
	}

	ticket, err := t.ch.OpenTrade(symbol, sig.Direction, t.cfg.LotSize, price, sig.Confidence)
	if err != nil {
		t.logger.Printf("%s: open rejected: %v", symbol, err)
		if ticket == 0 {
			return t.ch.Status(), nil
		}
	}
	t.positions[ticket] = position{symbol: symbol, direction: sig.Direction, entry: price}
	t.logger.Printf("%s: opened %s ticket %d at %.2f (confidence %.2f)",
		symbol, sig.Direction, ticket, price, sig.Confidence)
	return t.ch.Status(), nil
}

func (t *Trader) hasPosition(symbol string) bool {
	for _, pos := range t.positions {
		if pos.symbol == symbol {
			return true
		}
	}
	return false
}

func (t *Trader) reportSignal(sig signal.Signal, price float64) {
	if t.reporter == nil {
		return
	}
	t.reporter.Signal(telemetry.Signal{
		Symbol:     sig.Symbol,
		Direction:  string(sig.Direction),
		Confidence: sig.Confidence,
		Price:      price,
		Entropy:    sig.Entropy,
		Regime:     string(sig.Regime),
		Source:     "SIM_" + t.ch.Config().Name,
		Mode:       "SIGNAL_ONLY",
	})
}

func (t *Trader) reportOutcome(ticket int64, pos position, exit, pnl float64) {
	if t.reporter == nil {
		return
	}
	result := "BREAKEVEN"
	switch {
	case pnl > 0:
		result = "WIN"
	case pnl < 0:
		result = "LOSS"
	}
	t.reporter.Outcome(telemetry.Outcome{
		Ticket:     ticket,
		Symbol:     pos.symbol,
		Outcome:    result,
		PnL:        pnl,
		EntryPrice: pos.entry,
		ExitPrice:  exit,
	})
}

func (t *Trader) reportEntropy(sig signal.Signal, price float64) {
	if t.reporter == nil {
		return
	}
	t.reporter.Entropy(telemetry.EntropySnapshot{
		Symbol:    sig.Symbol,
		Timeframe: t.cfg.Timeframe,
		Entropy:   sig.Entropy,
		Dominant:  sig.Fidelity,
		Regime:    string(sig.Regime),
		Price:     price,
	})
}
