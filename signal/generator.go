package signal

import (
	"fmt"

	"github.com/quantumchildren/propsim/indicators"
	"github.com/quantumchildren/propsim/market"
)

// minHistory is the shortest close series Analyze will score.
const minHistory = 50

// Config tunes the generator gates.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for a non-Hold
	// signal.
	ConfidenceThreshold float64
	// EntropyThreshold gates the Clean regime call.
	EntropyThreshold float64
}

// DefaultConfig matches the live defaults.
func DefaultConfig() Config {
	return Config{ConfidenceThreshold: 0.55, EntropyThreshold: 4.5}
}

// Signal is the outcome of one analysis pass.
type Signal struct {
	Symbol     string
	Direction  market.Direction
	Confidence float64
	Regime     Regime
	Fidelity   float64
	Entropy    float64
	RSI        float64
	MACD       float64
	Momentum   float64
	Reason     string
}

// Generator scores close series into trade signals.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfig().ConfidenceThreshold
	}
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = DefaultConfig().EntropyThreshold
	}
	return &Generator{cfg: cfg}
}

// Analyze classifies the regime and, only when it is Clean, votes RSI,
// MACD and momentum into a direction. Confidence is the vote share
// scaled by the regime fidelity; anything below the threshold is a
// Hold.
func (g *Generator) Analyze(symbol string, closes []float64) Signal {
	sig := Signal{Symbol: symbol, Direction: market.Hold}

	if len(closes) < minHistory {
		sig.Regime = Choppy
		sig.Entropy = entropyScale
		sig.Fidelity = 0.5
		sig.Reason = fmt.Sprintf("insufficient history: %d closes, need %d", len(closes), minHistory)
		return sig
	}

	reg := DetectRegime(closes, g.cfg.EntropyThreshold)
	sig.Regime = reg.Regime
	sig.Fidelity = reg.Fidelity
	sig.Entropy = reg.Entropy

	if reg.Regime != Clean {
		sig.Reason = fmt.Sprintf("regime %s: waiting for clean market", reg.Regime)
		return sig
	}

	rsi, err := indicators.RSI(closes, 14)
	if err != nil {
		sig.Reason = err.Error()
		return sig
	}
	macd, macdSignal, err := indicators.MACD(closes)
	if err != nil {
		sig.Reason = err.Error()
		return sig
	}
	mom := indicators.Momentum(closes, 10)

	sig.RSI = rsi
	sig.MACD = macd
	sig.Momentum = mom

	bull, bear := vote(rsi, macd, macdSignal, mom)

	switch {
	case bull > bear:
		sig.Direction = market.Buy
		sig.Confidence = float64(bull) / 3 * reg.Fidelity
		sig.Reason = fmt.Sprintf("bullish %d/3 votes in %s regime", bull, reg.Regime)
	case bear > bull:
		sig.Direction = market.Sell
		sig.Confidence = float64(bear) / 3 * reg.Fidelity
		sig.Reason = fmt.Sprintf("bearish %d/3 votes in %s regime", bear, reg.Regime)
	default:
		sig.Confidence = 0.5
		sig.Reason = "split vote"
		return sig
	}

	if sig.Confidence < g.cfg.ConfidenceThreshold {
		sig.Reason = fmt.Sprintf("confidence %.2f below threshold %.2f", sig.Confidence, g.cfg.ConfidenceThreshold)
		sig.Direction = market.Hold
	}
	return sig
}

// vote tallies the three indicator voters. RSI abstains outside its
// oversold/overbought bands; MACD and momentum always lean one way.
func vote(rsi, macd, macdSignal, momentum float64) (bull, bear int) {
	if rsi < 30 {
		bull++
	} else if rsi > 70 {
		bear++
	}
	if macd > macdSignal {
		bull++
	} else {
		bear++
	}
	if momentum > 0 {
		bull++
	} else {
		bear++
	}
	return bull, bear
}
