package trader

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumchildren/propsim/challenge"
	"github.com/quantumchildren/propsim/config"
	"github.com/quantumchildren/propsim/telemetry"
	"github.com/quantumchildren/propsim/venue"
)

// scriptVenue serves fixed close series and spot prices.
type scriptVenue struct {
	closes    map[string][]float64
	prices    map[string]float64
	connected bool
	shutdowns int
}

func (v *scriptVenue) Connect(ctx context.Context) error {
	v.connected = true
	return ctx.Err()
}

func (v *scriptVenue) Shutdown() { v.shutdowns++ }

func (v *scriptVenue) Price(symbol string) (float64, error) {
	return v.prices[symbol], nil
}

func (v *scriptVenue) Candles(symbol, tf string, count int) ([]venue.Candle, error) {
	closes := v.closes[symbol]
	if len(closes) > count {
		closes = closes[len(closes)-count:]
	}
	bars := make([]venue.Candle, len(closes))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = venue.Candle{Time: base.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars, nil
}

// recorder captures reported telemetry.
type recorder struct {
	signals   []telemetry.Signal
	outcomes  []telemetry.Outcome
	entropies []telemetry.EntropySnapshot
}

func (r *recorder) Signal(s telemetry.Signal) bool { r.signals = append(r.signals, s); return true }

func (r *recorder) Outcome(o telemetry.Outcome) bool { r.outcomes = append(r.outcomes, o); return true }

func (r *recorder) Entropy(e telemetry.EntropySnapshot) bool {
	r.entropies = append(r.entropies, e)
	return true
}

func flatCloses(n int, price float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = price
	}
	return s
}

func testTraderConfig() config.TraderConfig {
	return config.TraderConfig{
		Symbols:             []string{"BTCUSD"},
		Timeframe:           "M5",
		LotSize:             1.0,
		ConfidenceThreshold: 0.55,
		EntropyThreshold:    4.5,
		MaxPositions:        3,
		CheckInterval:       "1ms",
		EnableTrading:       true,
	}
}

func testChallenge(t *testing.T, opts ...challenge.Option) *challenge.Challenge {
	t.Helper()
	ch, err := challenge.New(challenge.Config{
		Name:                "TEST_100K",
		InitialBalance:      100000,
		ProfitTargetPct:     0.10,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       30,
		MinTradingDays:      4,
	}, challenge.NopStore{}, opts...)
	require.NoError(t, err)
	return ch
}

func quiet() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func TestCycleOpensOnSignal(t *testing.T) {
	t.Parallel()

	ch := testChallenge(t)
	v := &scriptVenue{
		closes: map[string][]float64{"BTCUSD": flatCloses(200, 60000)},
		prices: map[string]float64{"BTCUSD": 60000},
	}
	rec := &recorder{}
	tr := New(testTraderConfig(), ch, v, quiet(), WithReporter(rec))
	require.NoError(t, v.Connect(context.Background()))

	status, err := tr.Cycle()
	require.NoError(t, err)
	assert.Equal(t, challenge.InProgress, status)

	stats := ch.Stats()
	assert.Equal(t, 1, stats.OpenTrades)
	require.Len(t, rec.entropies, 1)
	assert.Equal(t, "CLEAN", rec.entropies[0].Regime)
	assert.Empty(t, rec.signals)
}

func TestCycleHoldsOnShortHistory(t *testing.T) {
	t.Parallel()

	ch := testChallenge(t)
	v := &scriptVenue{
		closes: map[string][]float64{"BTCUSD": flatCloses(10, 60000)},
		prices: map[string]float64{"BTCUSD": 60000},
	}
	tr := New(testTraderConfig(), ch, v, quiet())

	_, err := tr.Cycle()
	require.NoError(t, err)
	assert.Zero(t, ch.Stats().OpenTrades)
}

func TestCycleTradingDisabledReportsSignal(t *testing.T) {
	t.Parallel()

	cfg := testTraderConfig()
	cfg.EnableTrading = false

	ch := testChallenge(t)
	v := &scriptVenue{
		closes: map[string][]float64{"BTCUSD": flatCloses(200, 60000)},
		prices: map[string]float64{"BTCUSD": 60000},
	}
	rec := &recorder{}
	tr := New(cfg, ch, v, quiet(), WithReporter(rec))

	_, err := tr.Cycle()
	require.NoError(t, err)
	assert.Zero(t, ch.Stats().OpenTrades)
	require.Len(t, rec.signals, 1)
	assert.Equal(t, "SELL", rec.signals[0].Direction)
	assert.Equal(t, "SIGNAL_ONLY", rec.signals[0].Mode)
	assert.Equal(t, "SIM_TEST_100K", rec.signals[0].Source)
}

func TestCycleRespectsMaxPositions(t *testing.T) {
	t.Parallel()

	cfg := testTraderConfig()
	cfg.Symbols = []string{"BTCUSD", "XAUUSD"}
	cfg.MaxPositions = 1

	ch := testChallenge(t)
	v := &scriptVenue{
		closes: map[string][]float64{
			"BTCUSD": flatCloses(200, 60000),
			"XAUUSD": flatCloses(200, 2400),
		},
		prices: map[string]float64{"BTCUSD": 60000, "XAUUSD": 2400},
	}
	tr := New(cfg, ch, v, quiet())

	_, err := tr.Cycle()
	require.NoError(t, err)
	assert.Equal(t, 1, ch.Stats().OpenTrades)
}

func TestCycleClosesOnOppositeSignal(t *testing.T) {
	t.Parallel()

	ch := testChallenge(t)
	_, err := ch.OpenTrade("BTCUSD", "BUY", 1.0, 60000, 0.9)
	require.NoError(t, err)

	v := &scriptVenue{
		closes: map[string][]float64{"BTCUSD": flatCloses(200, 60000)},
		prices: map[string]float64{"BTCUSD": 60000},
	}
	rec := &recorder{}
	tr := New(testTraderConfig(), ch, v, quiet(), WithReporter(rec))

	_, err = tr.Cycle()
	require.NoError(t, err)

	// The restored long was closed flat and replaced with a short.
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, "BREAKEVEN", rec.outcomes[0].Outcome)
	assert.Equal(t, 60000.0, rec.outcomes[0].EntryPrice)

	stats := ch.Stats()
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.OpenTrades)
}

func TestCycleExpiresPastTimeLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ch := testChallenge(t, challenge.WithClock(func() time.Time { return now }))
	now = now.Add(31 * 24 * time.Hour)

	v := &scriptVenue{}
	tr := New(testTraderConfig(), ch, v, quiet())

	status, err := tr.Cycle()
	require.NoError(t, err)
	assert.Equal(t, challenge.FailedTime, status)
	assert.Contains(t, ch.FailReason(), "30")
}

func TestCycleTerminalIsNoOp(t *testing.T) {
	t.Parallel()

	ch := testChallenge(t)
	require.NoError(t, ch.Expire())

	tr := New(testTraderConfig(), ch, &scriptVenue{}, quiet())
	status, err := tr.Cycle()
	require.NoError(t, err)
	assert.Equal(t, challenge.FailedTime, status)
}

func TestRunStopsOnTerminal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ch := testChallenge(t, challenge.WithClock(func() time.Time { return now }))
	now = now.Add(31 * 24 * time.Hour)

	v := &scriptVenue{}
	tr := New(testTraderConfig(), ch, v, quiet())

	status, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, challenge.FailedTime, status)
	assert.True(t, v.connected)
	assert.Equal(t, 1, v.shutdowns)
}

func TestRunHonorsCancel(t *testing.T) {
	t.Parallel()

	ch := testChallenge(t)
	v := &scriptVenue{
		closes: map[string][]float64{"BTCUSD": flatCloses(10, 60000)},
		prices: map[string]float64{"BTCUSD": 60000},
	}
	cfg := testTraderConfig()
	cfg.CheckInterval = "1h"
	tr := New(cfg, ch, v, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
