// Package extract decodes one GLA14 physical record into a batch of 40 shots.
package extract

import (
	"fmt"
	"io"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/codec"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/gla14/quality"
)

const (
	shots = gla14.ShotsPerRecord
	peaks = gla14.PeaksPerShot
)

// physicalRecord holds the raw 40-wide arrays of one record while it is
// decoded. It never outlives a Decode call.
type physicalRecord struct {
	index int32

	lat, lon, elev   [shots]int32
	sigBeg, sigEnd   [shots]int32
	attitude         [shots]uint16
	peakOffsets      [shots * peaks]int32 // shot-major
	amplitudes       [shots * peaks]int32
	areas            [shots * peaks]int32
	nPeaks           [shots]uint8
	landVar          [shots]uint16
	saturation       [shots]uint8
	gain             [shots]uint16
	cloud            [shots]uint8
	atmFlag, atmConf uint8
	maxAmp, noise    [shots]uint16
}

// Extractor decodes physical records of one layout.
// It is stateless between records and safe for concurrent use.
type Extractor struct {
	layout       *layout.Layout
	pipeline     *quality.Pipeline
	recordLength int
}

// New returns an extractor for records of recordLength bytes. The layout must
// fit inside the record. A nil pipeline selects the layout's defaults.
func New(l *layout.Layout, recordLength int, p *quality.Pipeline) (*Extractor, error) {
	if err := l.Validate(recordLength); err != nil {
		return nil, err
	}
	if p == nil {
		p = quality.New(l.Version)
	}
	if p.Version() != l.Version {
		return nil, fmt.Errorf("quality pipeline is for %s, layout is %s", p.Version(), l.Version)
	}
	return &Extractor{layout: l, pipeline: p, recordLength: recordLength}, nil
}

// Layout returns the extractor's layout.
func (e *Extractor) Layout() *layout.Layout { return e.layout }

// RecordLength returns the declared record length in bytes.
func (e *Extractor) RecordLength() int { return e.recordLength }

// ReadRecord reads exactly one record from r and decodes it. A short read is
// reported as a MalformedRecordError; io.EOF is returned unchanged when r is
// exhausted before the first byte.
func (e *Extractor) ReadRecord(r io.Reader, ordinal, offset int64) (*gla14.Batch, error) {
	buf := make([]byte, e.recordLength)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, &gla14.MalformedRecordError{Ordinal: ordinal, Want: e.recordLength, Got: n}
		}
		return nil, fmt.Errorf("read record %d: %w", ordinal, err)
	}
	return e.Decode(buf, ordinal, offset)
}

// Decode decodes one record. ordinal is the record's position in the file and
// offset its byte offset; both are carried into the batch for reporting.
func (e *Extractor) Decode(record []byte, ordinal, offset int64) (*gla14.Batch, error) {
	if len(record) < e.recordLength {
		return nil, &gla14.MalformedRecordError{Ordinal: ordinal, Want: e.recordLength, Got: len(record)}
	}

	var raw physicalRecord
	cur := NewCursor(record[:e.recordLength], ordinal)
	for _, f := range e.layout.Fields {
		if err := cur.Seek(f.Offset); err != nil {
			return nil, err
		}
		if gla14.TraceEnabled() {
			gla14.Tracef("record %d: %s at %d", ordinal, f.Name, cur.Pos())
		}
		if err := raw.read(cur, f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
	}

	b := &gla14.Batch{
		Index:   raw.index,
		Ordinal: ordinal,
		Offset:  offset,
		Layout:  e.layout.Version.String(),
	}
	for i := 0; i < shots; i++ {
		b.Shots[i] = raw.shot(i)
		in := raw.inputs(i)
		e.pipeline.Apply(&b.Shots[i], &in)
	}
	return b, nil
}

func (r *physicalRecord) read(c *Cursor, f layout.Field) error {
	var err error
	switch f.Name {
	case layout.RecordIndex:
		r.index, err = c.Int32()
	case layout.Latitude:
		err = c.Int32s(r.lat[:])
	case layout.Longitude:
		err = c.Int32s(r.lon[:])
	case layout.Elevation:
		err = c.Int32s(r.elev[:])
	case layout.AttitudeQuality:
		err = c.Uint16s(r.attitude[:])
	case layout.SignalBeginOffset:
		err = c.Int32s(r.sigBeg[:])
	case layout.SignalEndOffset:
		err = c.Int32s(r.sigEnd[:])
	case layout.PeakRangeOffset:
		err = c.Int32s(r.peakOffsets[:])
	case layout.PeakAmplitude:
		err = c.Int32s(r.amplitudes[:])
	case layout.PeakArea:
		err = c.Int32s(r.areas[:])
	case layout.PeakCount:
		err = c.Uint8s(r.nPeaks[:])
	case layout.LandFitSD:
		err = c.Uint16s(r.landVar[:])
	case layout.SaturationFlag:
		err = c.Uint8s(r.saturation[:])
	case layout.ReceiverGain:
		err = c.Uint16s(r.gain[:])
	case layout.CloudFlag:
		err = c.Uint8s(r.cloud[:])
	case layout.AtmosphereFlag:
		r.atmFlag, err = c.Uint8()
	case layout.AtmosphereConf:
		r.atmConf, err = c.Uint8()
	case layout.MaxAmplitude:
		err = c.Uint16s(r.maxAmp[:])
	case layout.Noise:
		err = c.Uint16s(r.noise[:])
	default:
		err = fmt.Errorf("unsupported field %s", f.Name)
	}
	return err
}

// shot builds the decoded values of shot i. Keep starts true; the quality
// pipeline decides whether it survives.
func (r *physicalRecord) shot(i int) gla14.Shot {
	s := gla14.Shot{
		Index:             r.index,
		Shot:              i,
		SignalBeginOffset: r.sigBeg[i],
		SignalEndOffset:   r.sigEnd[i],
		Keep:              true,
	}
	s.Latitude, _ = codec.Int32(r.lat[i], layout.SCALE_MICRO_DEGREES)
	s.Longitude, _ = codec.Int32(r.lon[i], layout.SCALE_MICRO_DEGREES)
	s.Elevation, _ = codec.Int32(r.elev[i], layout.SCALE_MILLIMETERS)
	s.SignalEndHeight = codec.Height(r.sigEnd[i], r.sigBeg[i])

	base := i * peaks
	copy(s.PeakOffsets[:], r.peakOffsets[base:base+peaks])
	ground := r.peakOffsets[base]
	if !codec.InvalidOffset(ground) {
		s.GroundHeight = codec.ClampedHeight(ground, r.sigBeg[i])
	}
	for g := 1; g < peaks; g++ {
		off := r.peakOffsets[base+g]
		if codec.InvalidOffset(off) {
			continue
		}
		s.PeakHeights[g-1] = codec.ClampedHeight(ground, off)
	}

	for g := 0; g < peaks; g++ {
		if amp := r.amplitudes[base+g]; amp != codec.BadInt {
			s.Amplitudes[g] = amp
		}
		if area := r.areas[base+g]; area != codec.BadInt {
			s.Areas[g] = area
		}
	}
	return s
}

func (r *physicalRecord) inputs(i int) quality.Inputs {
	base := i * peaks
	return quality.Inputs{
		Latitude:        r.lat[i],
		Longitude:       r.lon[i],
		Elevation:       r.elev[i],
		Attitude:        r.attitude[i],
		SignalBegin:     r.sigBeg[i],
		SignalEnd:       r.sigEnd[i],
		GroundOffset:    r.peakOffsets[base],
		GroundAmplitude: r.amplitudes[base],
		GroundArea:      r.areas[base],
		PeakCount:       r.nPeaks[i],
		LandVar:         r.landVar[i],
		Saturation:      r.saturation[i],
		Gain:            r.gain[i],
		Cloud:           r.cloud[i],
		AtmosphereFlag:  r.atmFlag,
		AtmosphereConf:  r.atmConf,
		MaxAmplitude:    r.maxAmp[i],
		Noise:           r.noise[i],
	}
}
