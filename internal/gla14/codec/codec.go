// Package codec converts raw stored GLA14 integers to physical values and
// detects the per-type "missing" sentinels.
package codec

import "encoding/binary"

// Sentinel raw values meaning "field not available".
const (
	BadInt   int32  = 2147483647 // 32-bit signed max
	BadShort uint16 = 32767
	BadByte  uint8  = 127
)

// Int32 decodes a big-endian signed 32-bit value and scales it.
// missing is true iff raw equals BadInt; the scaled value is still returned.
func Int32(raw int32, scale float64) (value float64, missing bool) {
	return float64(raw) * scale, raw == BadInt
}

// Uint16 returns an unsigned 16-bit value as raw counts.
func Uint16(raw uint16) (value float64, missing bool) {
	return float64(raw), raw == BadShort
}

// Uint8 returns an unsigned byte as a raw count.
func Uint8(raw uint8) (value float64, missing bool) {
	return float64(raw), raw == BadByte
}

// ReadInt32 reads one big-endian signed 32-bit element from b.
func ReadInt32(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }

// ReadUint16 reads one big-endian unsigned 16-bit element from b.
func ReadUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// InvalidOffset reports whether a range offset is unusable: missing, or
// positive (offsets are defined to be at or before the waveform origin).
func InvalidOffset(raw int32) bool {
	return raw == BadInt || raw > 0
}

// Height converts the difference of two millimeter offsets to meters.
func Height(fromMM, toMM int32) float64 {
	return float64(int64(fromMM)-int64(toMM)) * 0.001
}

// ClampedHeight is Height with negative results clamped to zero.
func ClampedHeight(fromMM, toMM int32) float64 {
	h := Height(fromMM, toMM)
	if h < 0 {
		return 0
	}
	return h
}

// LowNibble returns the low-order four bits of a flag byte.
func LowNibble(b uint8) uint8 { return b & 0x0f }
