// Package indicators provides the technical indicators used by the signal
// generator. All functions operate on a slice of closing prices ordered
// oldest to newest and are deterministic.
package indicators

import "fmt"

// RSI returns the Relative Strength Index over the last period deltas.
// A market with no losses in the window returns 100.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi: period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("rsi: need at least %d closes, got %d", period+1, len(closes))
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// EMA returns the exponential moving average with the given span,
// seeded from the first close.
func EMA(closes []float64, span int) (float64, error) {
	s, err := emaSeries(closes, span)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}

func emaSeries(closes []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("ema: span must be positive, got %d", span)
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("ema: no closes")
	}

	mult := 2.0 / float64(span+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*mult + out[i-1]*(1-mult)
	}
	return out, nil
}

// MACD returns the MACD line (EMA12 − EMA26) and its 9-span signal line.
func MACD(closes []float64) (macd, signal float64, err error) {
	if len(closes) < 26 {
		return 0, 0, fmt.Errorf("macd: need at least 26 closes, got %d", len(closes))
	}

	fast, err := emaSeries(closes, 12)
	if err != nil {
		return 0, 0, err
	}
	slow, err := emaSeries(closes, 26)
	if err != nil {
		return 0, 0, err
	}

	line := make([]float64, len(closes))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}

	sig, err := emaSeries(line, 9)
	if err != nil {
		return 0, 0, err
	}
	return line[len(line)-1], sig[len(sig)-1], nil
}

// Momentum returns the price change over the last period closes.
// Returns 0 when there is not enough history.
func Momentum(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	return closes[len(closes)-1] - closes[len(closes)-period]
}
