package signal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumchildren/propsim/market"
)

func flatSeries(n int, price float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = price
	}
	return s
}

// noisySeries spreads prices across many orders of magnitude so the
// float32 encoding has no compressible structure at all.
func noisySeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Pow(10, -5+10*rng.Float64())
	}
	return s
}

func TestDetectRegimeFlatIsClean(t *testing.T) {
	t.Parallel()

	res := DetectRegime(flatSeries(200, 100), 4.5)
	assert.Equal(t, Clean, res.Regime)
	assert.Equal(t, 0.96, res.Fidelity)
	assert.Greater(t, res.Ratio, 1.3)
	assert.Less(t, res.Entropy, 4.5)
}

func TestDetectRegimeNoiseIsChoppy(t *testing.T) {
	t.Parallel()

	res := DetectRegime(noisySeries(200, 42), 4.5)
	assert.Equal(t, Choppy, res.Regime)
	assert.Equal(t, 0.75, res.Fidelity)
	assert.Less(t, res.Ratio, 1.1)
}

func TestDetectRegimeShortSeries(t *testing.T) {
	t.Parallel()

	res := DetectRegime([]float64{100}, 4.5)
	assert.Equal(t, Choppy, res.Regime)
	assert.Equal(t, 0.5, res.Fidelity)
	assert.Equal(t, 8.0, res.Entropy)
}

func TestAnalyzeInsufficientHistory(t *testing.T) {
	t.Parallel()

	g := NewGenerator(DefaultConfig())
	sig := g.Analyze("BTCUSD", flatSeries(10, 100))
	assert.Equal(t, market.Hold, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.Contains(t, sig.Reason, "insufficient history")
}

func TestAnalyzeChoppyHolds(t *testing.T) {
	t.Parallel()

	g := NewGenerator(DefaultConfig())
	sig := g.Analyze("BTCUSD", noisySeries(200, 7))
	assert.Equal(t, market.Hold, sig.Direction)
	assert.Equal(t, Choppy, sig.Regime)
	assert.Contains(t, sig.Reason, "CHOPPY")
}

func TestAnalyzeFlatSellsUnanimous(t *testing.T) {
	t.Parallel()

	// A flat series pins RSI at 100, MACD at zero and momentum at
	// zero: all three voters lean bearish at full fidelity.
	g := NewGenerator(DefaultConfig())
	sig := g.Analyze("BTCUSD", flatSeries(200, 100))
	require.Equal(t, Clean, sig.Regime)
	assert.Equal(t, market.Sell, sig.Direction)
	assert.InDelta(t, 0.96, sig.Confidence, 1e-9)
	assert.Contains(t, sig.Reason, "bearish 3/3")
}

func risingTail(n, tail int) []float64 {
	s := flatSeries(n, 100)
	for i := n - tail; i < n; i++ {
		s[i] = s[i-1] + 0.1
	}
	return s
}

func TestAnalyzeRisingTailBuys(t *testing.T) {
	t.Parallel()

	// MACD and momentum follow the rise while RSI reads overbought,
	// a 2/3 bullish vote.
	g := NewGenerator(DefaultConfig())
	sig := g.Analyze("XAUUSD", risingTail(200, 30))
	require.Equal(t, Clean, sig.Regime)
	assert.Equal(t, market.Buy, sig.Direction)
	assert.InDelta(t, 2.0/3*0.96, sig.Confidence, 1e-9)
	assert.Contains(t, sig.Reason, "bullish 2/3")
}

func TestAnalyzeConfidenceThreshold(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Config{ConfidenceThreshold: 0.7, EntropyThreshold: 4.5})
	sig := g.Analyze("XAUUSD", risingTail(200, 30))
	assert.Equal(t, market.Hold, sig.Direction)
	assert.Contains(t, sig.Reason, "below threshold")
}

func TestVoteTally(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                    string
		rsi, macd, macdSig, mom float64
		bull, bear              int
	}{
		{"unanimous bear on flat", 100, 0, 0, 0, 0, 3},
		{"oversold with lift", 25, 1, 0.5, 2, 3, 0},
		{"rsi abstains on tie", 50, 1, 2, 3, 1, 1},
		{"overbought against trend", 75, 1, 0.5, 2, 2, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bull, bear := vote(tc.rsi, tc.macd, tc.macdSig, tc.mom)
			assert.Equal(t, tc.bull, bull)
			assert.Equal(t, tc.bear, bear)
		})
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Config{})
	assert.Equal(t, DefaultConfig(), g.cfg)
}
