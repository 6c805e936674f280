// Package market holds instrument metadata shared by the challenge engine,
// the signal generator and the venue adapters.
package market

// Direction is the side of a trade or signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Valid reports whether d is one of the three known directions.
func (d Direction) Valid() bool {
	switch d {
	case Buy, Sell, Hold:
		return true
	}
	return false
}

type InstrumentMeta struct {
	Name string

	// PointValue is the account-currency value of a one-point move per
	// 1.0 lot. This is an approximation, not a faithful contract spec;
	// keep it configurable per symbol rather than hard-coding it in callers.
	PointValue float64

	// Digits is the number of decimal places quoted for the symbol.
	Digits int
}

// DefaultPointValue is used for symbols absent from Instruments.
const DefaultPointValue = 10.0

var Instruments = map[string]InstrumentMeta{
	"BTCUSD": {
		Name:       "BTCUSD",
		PointValue: 10,
		Digits:     2,
	},
	"XAUUSD": {
		Name:       "XAUUSD",
		PointValue: 10,
		Digits:     2,
	},
	"EURUSD": {
		Name:       "EURUSD",
		PointValue: 10,
		Digits:     5,
	},
	"USDJPY": {
		Name:       "USDJPY",
		PointValue: 10,
		Digits:     3,
	},
}

// PointValue returns the per-point, per-lot value for symbol, falling back
// to DefaultPointValue for unknown symbols.
func PointValue(symbol string) float64 {
	if meta, ok := Instruments[symbol]; ok && meta.PointValue > 0 {
		return meta.PointValue
	}
	return DefaultPointValue
}
