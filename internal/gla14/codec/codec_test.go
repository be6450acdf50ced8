package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInt32(t *testing.T) {
	v, missing := Int32(45123456, 1e-6)
	assert.InDelta(t, 45.123456, v, 1e-12)
	assert.False(t, missing)

	v, missing = Int32(-1234, 1e-3)
	assert.InDelta(t, -1.234, v, 1e-12)
	assert.False(t, missing)

	_, missing = Int32(BadInt, 1e-6)
	assert.True(t, missing)

	_, missing = Int32(math.MinInt32, 1e-3)
	assert.False(t, missing, "only the max value is a sentinel")
}

func TestSmallSentinels(t *testing.T) {
	v, missing := Uint16(200)
	assert.Equal(t, 200.0, v)
	assert.False(t, missing)

	_, missing = Uint16(BadShort)
	assert.True(t, missing)

	_, missing = Uint8(BadByte)
	assert.True(t, missing)
	v, missing = Uint8(255)
	assert.Equal(t, 255.0, v)
	assert.False(t, missing)
}

func TestBigEndianReads(t *testing.T) {
	assert.Equal(t, int32(-2), ReadInt32([]byte{0xff, 0xff, 0xff, 0xfe}))
	assert.Equal(t, BadInt, ReadInt32([]byte{0x7f, 0xff, 0xff, 0xff}))
	assert.Equal(t, uint16(0xfffe), ReadUint16([]byte{0xff, 0xfe}))
	assert.Equal(t, BadShort, ReadUint16([]byte{0x7f, 0xff}))
}

func TestInvalidOffset(t *testing.T) {
	assert.True(t, InvalidOffset(BadInt))
	assert.True(t, InvalidOffset(1))
	assert.False(t, InvalidOffset(0))
	assert.False(t, InvalidOffset(-500))
}

func TestHeights(t *testing.T) {
	assert.InDelta(t, 0.4, Height(-100, -500), 1e-12)
	assert.InDelta(t, -0.4, Height(-500, -100), 1e-12)
	assert.Equal(t, 0.0, ClampedHeight(-500, -100))
	assert.InDelta(t, 0.4, ClampedHeight(-100, -500), 1e-12)

	// No overflow on extreme operands.
	assert.InDelta(t, float64(math.MaxInt32)*0.001*2+0.001, Height(math.MaxInt32, math.MinInt32), 1e-6)
}

func TestLowNibble(t *testing.T) {
	assert.Equal(t, uint8(0x3), LowNibble(0xf3))
	assert.Equal(t, uint8(0x2), LowNibble(0x12))
}
