// Package signal scores market data: a compression/entropy regime
// classifier gated by an indicator vote. It is stateless; every call is
// a pure function of the price history it is given.
package signal

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
)

// Regime classifies how tradeable the current market is. Signals are
// only produced in a Clean regime.
type Regime string

const (
	Clean    Regime = "CLEAN"
	Volatile Regime = "VOLATILE"
	Choppy   Regime = "CHOPPY"
)

// RegimeResult carries the classification and its inputs.
type RegimeResult struct {
	Regime   Regime
	Fidelity float64
	Entropy  float64
	Ratio    float64
}

const (
	cleanRatio    = 1.3
	volatileRatio = 1.1

	entropyBins  = 50
	entropyScale = 8.0
)

// DetectRegime classifies prices by compressibility: a more compressible
// series is more structured and therefore more predictable. The entropy
// of the price-change distribution is a second gate for the Clean call.
func DetectRegime(prices []float64, entropyThreshold float64) RegimeResult {
	if len(prices) < 2 {
		return RegimeResult{Regime: Choppy, Fidelity: 0.5, Entropy: entropyScale, Ratio: 1}
	}

	ratio := compressionRatio(prices)
	entropy := changeEntropy(prices)

	switch {
	case ratio >= cleanRatio && entropy < entropyThreshold:
		return RegimeResult{Regime: Clean, Fidelity: 0.96, Entropy: entropy, Ratio: ratio}
	case ratio >= volatileRatio:
		return RegimeResult{Regime: Volatile, Fidelity: 0.88, Entropy: entropy, Ratio: ratio}
	default:
		return RegimeResult{Regime: Choppy, Fidelity: 0.75, Entropy: entropy, Ratio: ratio}
	}
}

// compressionRatio deflates the float32 encoding of prices at maximum
// level and returns raw/compressed size.
func compressionRatio(prices []float64) float64 {
	raw := make([]byte, 0, 4*len(prices))
	var scratch [4]byte
	for _, p := range prices {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(float32(p)))
		raw = append(raw, scratch[:]...)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return 1
	}
	if _, err := zw.Write(raw); err != nil {
		return 1
	}
	if err := zw.Close(); err != nil {
		return 1
	}
	if buf.Len() == 0 {
		return 1
	}
	return float64(len(raw)) / float64(buf.Len())
}

// changeEntropy bins the price changes into a density histogram and
// returns a Shannon entropy normalized and clamped to [0, 8].
func changeEntropy(prices []float64) float64 {
	diffs := make([]float64, len(prices)-1)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		diffs[i-1] = d
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / entropyBins
	counts := make([]int, entropyBins)
	for _, d := range diffs {
		bin := int((d - lo) / width)
		if bin >= entropyBins {
			bin = entropyBins - 1
		}
		counts[bin]++
	}

	var density []float64
	for _, n := range counts {
		if n > 0 {
			density = append(density, float64(n)/(float64(len(diffs))*width))
		}
	}
	if len(density) == 0 {
		return entropyScale
	}

	var h float64
	for _, p := range density {
		h -= p * math.Log2(p+1e-10)
	}
	h /= math.Log2(float64(len(density)) + 1)

	h *= entropyScale
	return math.Max(0, math.Min(entropyScale, h))
}
