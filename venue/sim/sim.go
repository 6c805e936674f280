// Package sim is a random-walk market venue for simulated challenge
// runs. All randomness comes from a caller-supplied seed so a run can
// be replayed exactly.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quantumchildren/propsim/venue"
)

var basePrices = map[string]float64{
	"BTCUSD": 60000,
	"XAUUSD": 2400,
	"EURUSD": 1.08,
	"USDJPY": 150,
}

// stepVolatility is the per-bar standard deviation as a fraction of
// price.
const stepVolatility = 0.002

// Venue is a seedable random-walk implementation of venue.Venue.
type Venue struct {
	mu        sync.Mutex
	rng       *rand.Rand
	now       func() time.Time
	history   map[string][]float64
	connected bool
}

// Option adjusts a simulated venue.
type Option func(*Venue)

// WithClock overrides the wall clock used for candle timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Venue) { v.now = now }
}

// New returns a venue whose walk is fully determined by seed.
func New(seed int64, opts ...Option) *Venue {
	v := &Venue{
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
		history: make(map[string][]float64),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Venue) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	v.connected = true
	v.mu.Unlock()
	return nil
}

func (v *Venue) Shutdown() {
	v.mu.Lock()
	v.connected = false
	v.mu.Unlock()
}

// Price advances the walk one step and returns the new price.
func (v *Venue) Price(symbol string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.connected {
		return 0, fmt.Errorf("sim venue: not connected")
	}
	if err := v.extendLocked(symbol, 1); err != nil {
		return 0, err
	}
	h := v.history[symbol]
	return h[len(h)-1], nil
}

// Candles advances the walk one bar and returns the last count bars.
func (v *Venue) Candles(symbol, timeframe string, count int) ([]venue.Candle, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sim venue: count must be positive, got %d", count)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.connected {
		return nil, fmt.Errorf("sim venue: not connected")
	}

	// Every poll moves the market one bar; the first call backfills
	// the window, plus one extra sample so the oldest bar has an open.
	need := count + 1 - len(v.history[symbol])
	if need < 1 {
		need = 1
	}
	if err := v.extendLocked(symbol, need); err != nil {
		return nil, err
	}

	h := v.history[symbol]
	step := venue.TimeframeDuration(timeframe)
	end := v.now()

	bars := make([]venue.Candle, count)
	for i := 0; i < count; i++ {
		open, last := h[len(h)-count-1+i], h[len(h)-count+i]
		c := venue.Candle{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   open,
			Close:  last,
			Volume: 1 + v.rng.Float64()*99,
		}
		if open > last {
			c.High, c.Low = open, last
		} else {
			c.High, c.Low = last, open
		}
		bars[i] = c
	}
	return bars, nil
}

// extendLocked appends n walk steps for symbol, seeding the series
// from the base price on first use.
func (v *Venue) extendLocked(symbol string, n int) error {
	h, ok := v.history[symbol]
	if !ok {
		base, known := basePrices[symbol]
		if !known {
			return fmt.Errorf("sim venue: unknown symbol %q", symbol)
		}
		h = []float64{base}
	}
	for i := 0; i < n; i++ {
		last := h[len(h)-1]
		next := last * (1 + v.rng.NormFloat64()*stepVolatility)
		if next <= 0 {
			next = last
		}
		h = append(h, next)
	}
	v.history[symbol] = h
	return nil
}
