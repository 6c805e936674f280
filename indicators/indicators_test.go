package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestRSIAllGains(t *testing.T) {
	// Strictly rising closes have zero losses.
	rsi, err := RSI(risingCloses(20), 14)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, rsi)
}

func TestRSIAllLosses(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	rsi, err := RSI(closes, 14)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, rsi)
}

func TestRSIMixed(t *testing.T) {
	closes := []float64{100, 101, 100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106}
	rsi, err := RSI(closes, 14)
	assert.NoError(t, err)
	assert.Greater(t, rsi, 0.0)
	assert.Less(t, rsi, 100.0)
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, 14)
	assert.Error(t, err)
}

func TestEMAConstantSeries(t *testing.T) {
	closes := []float64{50, 50, 50, 50, 50}
	ema, err := EMA(closes, 3)
	assert.NoError(t, err)
	assert.InDelta(t, 50, ema, 1e-9)
}

func TestEMATracksTrend(t *testing.T) {
	ema, err := EMA(risingCloses(30), 5)
	assert.NoError(t, err)
	// EMA lags the last close but should be near the top of the range.
	assert.Greater(t, ema, 120.0)
	assert.Less(t, ema, 129.0)
}

func TestMACDPositiveInUptrend(t *testing.T) {
	macd, signal, err := MACD(risingCloses(60))
	assert.NoError(t, err)
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, signal, 0.0)
}

func TestMACDInsufficientData(t *testing.T) {
	_, _, err := MACD(risingCloses(10))
	assert.Error(t, err)
}

func TestMomentum(t *testing.T) {
	closes := risingCloses(20)
	assert.Equal(t, 9.0, Momentum(closes, 10))
	assert.Equal(t, 0.0, Momentum(closes[:5], 10))
	assert.Equal(t, 0.0, Momentum(closes, 0))
}
