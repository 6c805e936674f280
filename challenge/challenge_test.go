package challenge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumchildren/propsim/market"
)

// memStore keeps the last snapshot in memory and counts saves.
type memStore struct {
	last  Snapshot
	saves int
	fail  error
}

func (s *memStore) Save(snap Snapshot) error {
	if s.fail != nil {
		return s.fail
	}
	s.last = snap
	s.saves++
	return nil
}

type noteRecorder struct {
	notes []TradeNote
}

func (r *noteRecorder) TradeOpened(n TradeNote) { r.notes = append(r.notes, n) }

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func testConfig() Config {
	return Config{
		Name:                "Test $100K",
		InitialBalance:      100000,
		ProfitTargetPct:     0.10,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       30,
		MinTradingDays:      4,
	}
}

func newChallenge(t *testing.T, cfg Config, opts ...Option) (*Challenge, *memStore, *fakeClock) {
	t.Helper()
	store := &memStore{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	c, err := New(cfg, store, opts...)
	require.NoError(t, err)
	return c, store, clock
}

// assertInvariant checks equity == balance + sum(profit of open trades).
func assertInvariant(t *testing.T, c *Challenge) {
	t.Helper()
	snap := c.Snapshot()
	sum := snap.State.Balance
	for _, tr := range snap.Trades {
		if tr.Status == TradeOpen {
			sum += tr.Profit
		}
	}
	assert.InDelta(t, sum, snap.State.Equity, 1e-9)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	bad := testConfig()
	bad.InitialBalance = 0
	_, err := New(bad, NopStore{})
	assert.Error(t, err)

	bad = testConfig()
	bad.MaxDailyDrawdownPct = 1.5
	_, err = New(bad, NopStore{})
	assert.Error(t, err)
}

func TestOpenTradeRejections(t *testing.T) {
	t.Parallel()
	c, store, _ := newChallenge(t, testConfig())

	_, err := c.OpenTrade("BTCUSD", market.Buy, 0, 1000, 0.8)
	assert.ErrorIs(t, err, ErrInvalidVolume)

	_, err = c.OpenTrade("BTCUSD", market.Hold, 1.0, 1000, 0.8)
	assert.ErrorIs(t, err, ErrInvalidDirection)

	// Rejections must not touch state or persist anything.
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 0, c.Stats().TotalTrades)
}

func TestScenarioASingleLosingTrade(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)

	profit, err := c.CloseTrade(ticket, 900)
	require.NoError(t, err)

	// 100 points against, volume 1.0, $10/point.
	assert.InDelta(t, -1000, profit, 1e-9)

	stats := c.Stats()
	assert.InDelta(t, 99000, stats.Balance, 1e-9)
	assert.InDelta(t, 0.01, stats.DailyDrawdownPct, 1e-9)
	assert.Equal(t, InProgress, stats.Status)
	assertInvariant(t, c)
}

func TestScenarioBDailyDrawdownBreach(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	// Three closes, each losing 2% of the initial balance, same day.
	for i := 0; i < 3; i++ {
		ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
		require.NoError(t, err)
		_, err = c.CloseTrade(ticket, 800)
		require.NoError(t, err)
	}

	assert.Equal(t, FailedDailyDD, c.Status())
	assert.Contains(t, c.FailReason(), "6")
	assert.Contains(t, c.FailReason(), "5")
	assertInvariant(t, c)
}

func TestScenarioCPassAndCertificate(t *testing.T) {
	t.Parallel()
	c, _, clock := newChallenge(t, testConfig())

	// 10% profit across 4 distinct trading days.
	for i := 0; i < 4; i++ {
		clock.advance(24 * time.Hour)
		ticket, err := c.OpenTrade("XAUUSD", market.Buy, 1.0, 2000, 0.9)
		require.NoError(t, err)
		_, err = c.CloseTrade(ticket, 2250)
		require.NoError(t, err)
	}

	stats := c.Stats()
	assert.Equal(t, Passed, stats.Status)
	assert.InDelta(t, 110000, stats.Balance, 1e-9)
	assert.Equal(t, 4, stats.TradingDays)

	cert, ok := c.Certificate()
	require.True(t, ok)
	assert.Contains(t, cert, "110000.00")
	assert.Contains(t, cert, "PASSED")

	// Deterministic given the same state and clock.
	again, ok := c.Certificate()
	require.True(t, ok)
	assert.Equal(t, cert, again)
}

func TestScenarioDTargetWithoutEnoughTradingDays(t *testing.T) {
	t.Parallel()
	c, _, clock := newChallenge(t, testConfig())

	// 10% profit but only 2 distinct trading days (min is 4).
	for i := 0; i < 2; i++ {
		clock.advance(24 * time.Hour)
		ticket, err := c.OpenTrade("XAUUSD", market.Buy, 1.0, 2000, 0.9)
		require.NoError(t, err)
		_, err = c.CloseTrade(ticket, 2500)
		require.NoError(t, err)
	}

	stats := c.Stats()
	assert.Equal(t, InProgress, stats.Status)
	assert.InDelta(t, 110000, stats.Balance, 1e-9)
	assert.Equal(t, 2, stats.TradingDays)

	_, ok := c.Certificate()
	assert.False(t, ok)
}

func TestDailyCheckedBeforeTotalOnSameEvent(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	// A 12% single-day loss breaches both limits; the daily failure is
	// reported because it is checked first.
	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 2000, 0.9)
	require.NoError(t, err)
	_, err = c.CloseTrade(ticket, 800)
	require.NoError(t, err)

	assert.Equal(t, FailedDailyDD, c.Status())
}

func TestUpdateTradeFloatingDrawdownIsDurable(t *testing.T) {
	t.Parallel()
	c, store, _ := newChallenge(t, testConfig())

	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 2000, 0.9)
	require.NoError(t, err)
	savesAfterOpen := store.saves

	// Small move: no status change, no persist on the tick path.
	require.NoError(t, c.UpdateTrade(ticket, 1990))
	assert.Equal(t, InProgress, c.Status())
	assert.Equal(t, savesAfterOpen, store.saves)

	// 600-point drop: floating equity loss of 6% fails the daily rule
	// and must be persisted before the call returns.
	require.NoError(t, c.UpdateTrade(ticket, 1400))
	assert.Equal(t, FailedDailyDD, c.Status())
	assert.Greater(t, store.saves, savesAfterOpen)
	assert.Equal(t, FailedDailyDD, store.last.State.Status)
	assertInvariant(t, c)
}

func TestUnknownTicketIsBenignNoOp(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	before := c.Stats()
	assert.NoError(t, c.UpdateTrade(99999, 1234))
	profit, err := c.CloseTrade(99999, 1234)
	assert.NoError(t, err)
	assert.Zero(t, profit)
	assert.Equal(t, before, c.Stats())
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)

	first, err := c.CloseTrade(ticket, 1010)
	require.NoError(t, err)
	assert.InDelta(t, 100, first, 1e-9)

	before := c.Stats()
	second, err := c.CloseTrade(ticket, 900)
	assert.NoError(t, err)
	assert.Zero(t, second)
	assert.Equal(t, before, c.Stats())

	// A closed ticket never reopens via the tick path either.
	assert.NoError(t, c.UpdateTrade(ticket, 500))
	assert.Equal(t, before, c.Stats())
}

func TestTicketsAreMonotonic(t *testing.T) {
	t.Parallel()
	c, store, _ := newChallenge(t, testConfig())

	var last int64
	for i := 0; i < 5; i++ {
		ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
		require.NoError(t, err)
		assert.Greater(t, ticket, last)
		last = ticket
	}

	// Monotonicity survives a snapshot round trip.
	restored, err := Restore(store.last, store)
	require.NoError(t, err)
	ticket, err := restored.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)
	assert.Greater(t, ticket, last)
}

func TestHighWaterMarkNonDecreasing(t *testing.T) {
	t.Parallel()
	c, store, _ := newChallenge(t, testConfig())

	prices := []float64{1010, 990, 1030, 970, 1050}
	prevHWM := 0.0
	for _, close := range prices {
		ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
		require.NoError(t, err)
		_, err = c.CloseTrade(ticket, close)
		require.NoError(t, err)

		hwm := store.last.State.HighWaterMark
		assert.GreaterOrEqual(t, hwm, prevHWM)
		assert.GreaterOrEqual(t, hwm, store.last.State.Balance)
		prevHWM = hwm
		assertInvariant(t, c)
	}
}

func TestTerminalFreeze(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	// Fail via daily drawdown.
	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 2000, 0.9)
	require.NoError(t, err)
	_, err = c.CloseTrade(ticket, 1400)
	require.NoError(t, err)
	require.Equal(t, FailedDailyDD, c.Status())
	reason := c.FailReason()

	// No further trade may open.
	_, err = c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	assert.ErrorIs(t, err, ErrNotInProgress)

	// No check flips the status or rewrites the reason again.
	assert.NoError(t, c.Expire())
	assert.Equal(t, FailedDailyDD, c.Status())
	assert.Equal(t, reason, c.FailReason())
}

func TestDayRolloverResetsDailyStartFromBalance(t *testing.T) {
	t.Parallel()
	c, store, clock := newChallenge(t, testConfig())

	// Day 1: lose 3% — under the daily limit.
	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)
	_, err = c.CloseTrade(ticket, 700)
	require.NoError(t, err)
	require.Equal(t, InProgress, c.Status())

	// Day 2: another 3% loss measures against the new day's start
	// balance of 97000, so the challenge survives.
	clock.advance(24 * time.Hour)
	ticket, err = c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 97000, store.last.State.DailyStartBalance, 1e-9)

	_, err = c.CloseTrade(ticket, 700)
	require.NoError(t, err)
	assert.Equal(t, InProgress, c.Status())
	assert.Equal(t, 2, c.Stats().TradingDays)
}

func TestExpire(t *testing.T) {
	t.Parallel()
	c, store, _ := newChallenge(t, testConfig())

	require.NoError(t, c.Expire())
	assert.Equal(t, FailedTime, c.Status())
	assert.Contains(t, c.FailReason(), "30")
	assert.Equal(t, FailedTime, store.last.State.Status)
}

func TestPersistFailureSurfacesButKeepsInvariant(t *testing.T) {
	t.Parallel()

	store := &memStore{fail: errors.New("disk full")}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	c, err := New(testConfig(), store, WithClock(clock.Now))
	require.NoError(t, err)

	// The ticket is issued and the in-memory effect stands; only
	// durability is uncertain.
	ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInProgress)
	assert.Equal(t, int64(1000), ticket)
	assert.Equal(t, 1, c.Stats().OpenTrades)
	assertInvariant(t, c)

	profit, err := c.CloseTrade(ticket, 900)
	assert.Error(t, err)
	assert.InDelta(t, -1000, profit, 1e-9)
	assertInvariant(t, c)
}

func TestNotifierReceivesTradeNote(t *testing.T) {
	t.Parallel()

	rec := &noteRecorder{}
	c, _, _ := newChallenge(t, testConfig(), WithNotifier(rec))

	_, err := c.OpenTrade("XAUUSD", market.Sell, 0.5, 1900, 0.77)
	require.NoError(t, err)

	require.Len(t, rec.notes, 1)
	n := rec.notes[0]
	assert.Equal(t, "XAUUSD", n.Symbol)
	assert.Equal(t, "SELL", n.Direction)
	assert.InDelta(t, 0.5, n.Volume, 1e-9)
	assert.InDelta(t, 1900, n.Price, 1e-9)
	assert.InDelta(t, 0.77, n.Confidence, 1e-9)
	assert.Contains(t, n.Source, "Test $100K")
}

func TestSellProfitSign(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	ticket, err := c.OpenTrade("BTCUSD", market.Sell, 2.0, 1000, 0.9)
	require.NoError(t, err)
	profit, err := c.CloseTrade(ticket, 980)
	require.NoError(t, err)

	// Short gains on a falling price: 20 points × 2.0 × $10.
	assert.InDelta(t, 400, profit, 1e-9)
}

func TestRoundTripPreservesStatsAndTicketSequence(t *testing.T) {
	t.Parallel()
	c, store, clock := newChallenge(t, testConfig())

	// 3 closed, 2 open, across 2 days.
	for i := 0; i < 3; i++ {
		ticket, err := c.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
		require.NoError(t, err)
		_, err = c.CloseTrade(ticket, 1005+float64(i))
		require.NoError(t, err)
	}
	clock.advance(24 * time.Hour)
	openA, err := c.OpenTrade("XAUUSD", market.Buy, 1.0, 2000, 0.9)
	require.NoError(t, err)
	openB, err := c.OpenTrade("EURUSD", market.Sell, 0.5, 1.1, 0.9)
	require.NoError(t, err)
	require.NoError(t, c.UpdateTrade(openA, 2003))
	require.NoError(t, c.UpdateTrade(openB, 1.09))

	before := c.Snapshot()
	restored, err := Restore(before, store, WithClock(clock.Now))
	require.NoError(t, err)

	assert.Equal(t, c.Stats(), restored.Stats())
	assert.Equal(t, before, restored.Snapshot())
	assertInvariant(t, restored)

	// The next ticket continues the original sequence on both.
	next, err := restored.OpenTrade("BTCUSD", market.Buy, 1.0, 1000, 0.9)
	require.NoError(t, err)
	assert.Equal(t, openB+1, next)
}

func TestRestoreRejectsCorruptSnapshots(t *testing.T) {
	t.Parallel()
	c, _, _ := newChallenge(t, testConfig())

	snap := c.Snapshot()
	snap.State.Status = "BANKRUPT"
	_, err := Restore(snap, NopStore{})
	assert.Error(t, err)

	snap = c.Snapshot()
	snap.Config.InitialBalance = -1
	_, err = Restore(snap, NopStore{})
	assert.Error(t, err)

	snap = c.Snapshot()
	snap.State.TradingDays = []string{"not-a-date"}
	_, err = Restore(snap, NopStore{})
	assert.Error(t, err)
}

func TestPresetsAreValid(t *testing.T) {
	t.Parallel()

	assert.Len(t, PresetNames(), len(Presets))
	for _, name := range PresetNames() {
		cfg, ok := Presets[name]
		require.True(t, ok, name)
		assert.NoError(t, cfg.Validate(), name)
	}
}
