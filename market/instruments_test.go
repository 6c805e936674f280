package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointValueKnownSymbol(t *testing.T) {
	assert.Equal(t, 10.0, PointValue("BTCUSD"))
	assert.Equal(t, 10.0, PointValue("XAUUSD"))
}

func TestPointValueUnknownSymbolFallsBack(t *testing.T) {
	assert.Equal(t, DefaultPointValue, PointValue("DOGEUSD"))
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, Buy.Valid())
	assert.True(t, Sell.Valid())
	assert.True(t, Hold.Valid())
	assert.False(t, Direction("LONG").Valid())
	assert.False(t, Direction("").Valid())
}
