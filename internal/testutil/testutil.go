// Package testutil builds synthetic GLA14 records and files for tests.
//
// Records are encoded from per-shot raw values through the same layout table
// the decoder reads, so a test states the stored integers and the decoder's
// behavior is checked against them.
package testutil

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/gla14/internal/gla14/layout"
)

// ShotValues are the raw stored values of one shot.
type ShotValues struct {
	Lat, Lon, Elev int32
	Attitude       uint16
	SigBeg, SigEnd int32
	PeakOffsets    [6]int32
	Amplitudes     [6]int32
	Areas          [6]int32
	NPeaks         uint8
	LandVar        uint16
	Saturation     uint8
	Gain           uint16
	Cloud          uint8
	MaxAmp, Noise  uint16
}

// Record is the raw content of one physical record.
type Record struct {
	Index   int32
	AtmFlag uint8
	AtmConf uint8
	Shots   [40]ShotValues
}

// GoodShot returns raw values that pass every quality rule of both layouts.
// Signal begin is -500 mm and the ground peak -100 mm, a ground height of 0.4 m.
func GoodShot() ShotValues {
	return ShotValues{
		Lat:         37123456,
		Lon:         -122654321,
		Elev:        15250,
		SigBeg:      -500,
		SigEnd:      -9000,
		PeakOffsets: [6]int32{-100, -300, -50, 2147483647, 2147483647, 2147483647},
		Amplitudes:  [6]int32{120, 80, 40, 2147483647, 2147483647, 2147483647},
		Areas:       [6]int32{900, 500, 200, 2147483647, 2147483647, 2147483647},
		NPeaks:      3,
		LandVar:     150,
		Saturation:  0x10,
		Gain:        50,
		Cloud:       15,
		MaxAmp:      1000,
		Noise:       10,
	}
}

// NewRecord returns a record of 40 good shots. Latitude steps by one
// micro-degree per shot so shots are distinguishable.
func NewRecord(index int32) *Record {
	r := &Record{Index: index}
	for i := range r.Shots {
		s := GoodShot()
		s.Lat += int32(i)
		r.Shots[i] = s
	}
	return r
}

// Encode writes the record into a zero-filled buffer of recl bytes using the
// offsets of l.
func (r *Record) Encode(l *layout.Layout, recl int) []byte {
	buf := make([]byte, recl)
	for _, f := range l.Fields {
		for k := 0; k < f.Count; k++ {
			at := f.Offset + k*f.Width()
			switch f.Encoding {
			case layout.Int32:
				binary.BigEndian.PutUint32(buf[at:], uint32(r.int32(f.Name, k)))
			case layout.Uint16:
				binary.BigEndian.PutUint16(buf[at:], r.uint16(f.Name, k))
			case layout.Uint8:
				buf[at] = r.uint8(f.Name, k)
			}
		}
	}
	return buf
}

func (r *Record) int32(name layout.FieldName, k int) int32 {
	switch name {
	case layout.RecordIndex:
		return r.Index
	case layout.Latitude:
		return r.Shots[k].Lat
	case layout.Longitude:
		return r.Shots[k].Lon
	case layout.Elevation:
		return r.Shots[k].Elev
	case layout.SignalBeginOffset:
		return r.Shots[k].SigBeg
	case layout.SignalEndOffset:
		return r.Shots[k].SigEnd
	case layout.PeakRangeOffset:
		return r.Shots[k/6].PeakOffsets[k%6]
	case layout.PeakAmplitude:
		return r.Shots[k/6].Amplitudes[k%6]
	case layout.PeakArea:
		return r.Shots[k/6].Areas[k%6]
	}
	panic(fmt.Sprintf("testutil: %s is not an int32 field", name))
}

func (r *Record) uint16(name layout.FieldName, k int) uint16 {
	switch name {
	case layout.AttitudeQuality:
		return r.Shots[k].Attitude
	case layout.LandFitSD:
		return r.Shots[k].LandVar
	case layout.ReceiverGain:
		return r.Shots[k].Gain
	case layout.MaxAmplitude:
		return r.Shots[k].MaxAmp
	case layout.Noise:
		return r.Shots[k].Noise
	}
	panic(fmt.Sprintf("testutil: %s is not a uint16 field", name))
}

func (r *Record) uint8(name layout.FieldName, k int) uint8 {
	switch name {
	case layout.PeakCount:
		return r.Shots[k].NPeaks
	case layout.SaturationFlag:
		return r.Shots[k].Saturation
	case layout.CloudFlag:
		return r.Shots[k].Cloud
	case layout.AtmosphereFlag:
		return r.AtmFlag
	case layout.AtmosphereConf:
		return r.AtmConf
	}
	panic(fmt.Sprintf("testutil: %s is not a uint8 field", name))
}

// Header returns a text preamble of numhead records of recl bytes declaring
// both values in the product's "key = value;" form.
func Header(recl, numhead int) []byte {
	buf := make([]byte, recl*numhead)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, fmt.Sprintf("recl = %d;\nnumhead = %d;\n", recl, numhead))
	return buf
}

// File returns a header followed by the encoded records.
func File(l *layout.Layout, recl, numhead int, records ...*Record) []byte {
	data := Header(recl, numhead)
	for _, r := range records {
		data = append(data, r.Encode(l, recl)...)
	}
	return data
}

// Records returns n consecutive good records with indices starting at first.
func Records(first int32, n int) []*Record {
	out := make([]*Record, n)
	for i := range out {
		out[i] = NewRecord(first + int32(i))
	}
	return out
}

// WriteFile writes data under t.TempDir and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
