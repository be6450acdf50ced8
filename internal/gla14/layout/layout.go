package layout

import (
	"fmt"
	"strings"
)

/*
GLA14 Physical Record Layout

Each physical record is a fixed-length block (recl bytes, 10000 in the
distributed products) holding 40 laser shots. Fields are NOT stored
shot-contiguous: every field occupies one contiguous array inside the record,
40 elements for per-shot scalars, 240 elements for the six Gaussian peak
fields (shot-major, the six peaks of shot i are adjacent), or a single element
for record-level values.

All multi-byte integers are big-endian. 32-bit fields are signed two's
complement, 16-bit and 8-bit fields are unsigned.

LEGACY (releases before 33):
├── rec_ndx            0    int32  ×1
├── lat/lon/elev       176  int32  ×40 each
├── sigma_att          2576 uint16 ×40
├── sig_beg_off        3112 int32  ×40
├── sig_end_off        3432 int32  ×40
├── gp_cnt_rng_off     3592 int32  ×240
├── g_amp / g_area     5236 int32  ×240 each
├── n_peaks            8116 uint8  ×40
├── land_var           8156 uint16 ×40
├── sat_corr_flg       8708 uint8  ×40
├── gval_rcv           8908 uint16 ×40
├── fr_ir_qa_flag      9148 uint8  ×40
└── max_rec_amp/noise  9434 uint16 ×40 each

RELEASE 33 moves sig_beg_off ahead of the attitude block (1256) and appends
two record-level atmosphere bytes after the cloud flags
(atm_char_flag 9188, atm_char_conf 9189). Everything else is unchanged.
*/

// Record layout constants shared by both formats (byte offsets from record start).
const (
	OFFSET_REC_NDX        = 0    // Record index
	OFFSET_LAT            = 176  // Latitude, micro-degrees
	OFFSET_LON            = 336  // Longitude, micro-degrees
	OFFSET_ELEV           = 496  // Uncorrected elevation, mm
	OFFSET_SIGMA_ATT      = 2576 // Attitude quality indicator
	OFFSET_SIG_END_OFF    = 3432 // Signal end range increment, mm
	OFFSET_GP_CNT_RNG_OFF = 3592 // Centroid range increment of six Gaussian peaks, mm
	OFFSET_G_AMP          = 5236 // Gaussian amplitude, 0.01 V
	OFFSET_G_AREA         = 6196 // Gaussian area, 0.01 V*ns
	OFFSET_N_PEAKS        = 8116 // Number of peaks found in the waveform
	OFFSET_LAND_VAR       = 8156 // Standard deviation of the land Gaussian fit
	OFFSET_SAT_CORR_FLG   = 8708 // Saturation correction flag (low nibble)
	OFFSET_GVAL_RCV       = 8908 // Receiver gain value
	OFFSET_FR_IR_QA_FLAG  = 9148 // Full-resolution IR cloud quality flag
	// Both formats place max_rec_amp at 9434. The release 33 reader skipped
	// from 9192 rather than 9190 and so landed on 9432; that slip is not kept.
	OFFSET_MAX_REC_AMP = 9434 // Maximum received amplitude
	OFFSET_NOISE       = 9514 // Background noise

	LEGACY_OFFSET_SIG_BEG_OFF = 3112 // Signal begin range increment, mm
	R33_OFFSET_SIG_BEG_OFF    = 1256 // Signal begin range increment, mm
	R33_OFFSET_ATM_CHAR_FLAG  = 9188 // Atmospheric characterization flag (record level)
	R33_OFFSET_ATM_CHAR_CONF  = 9189 // Atmospheric characterization confidence (record level)

	DEFAULT_RECORD_LENGTH = 10000 // recl of the distributed GLA14 products
)

// Unit scales applied to raw stored integers.
const (
	SCALE_MICRO_DEGREES = 1e-6 // micro-degrees -> degrees
	SCALE_MILLIMETERS   = 1e-3 // mm -> m
	SCALE_COUNTS        = 1.0  // raw counts, no conversion
)

// Per-field element counts.
const (
	COUNT_RECORD = 1
	COUNT_SHOT   = 40
	COUNT_PEAKS  = 240 // 40 shots × 6 Gaussian peaks
)

// Encoding is the storage type of a field element.
type Encoding int

const (
	Int32  Encoding = iota // big-endian signed 32-bit
	Uint16                 // big-endian unsigned 16-bit
	Uint8                  // unsigned byte
)

// Size returns the width of one element in bytes.
func (e Encoding) Size() int {
	switch e {
	case Int32:
		return 4
	case Uint16:
		return 2
	default:
		return 1
	}
}

func (e Encoding) String() string {
	switch e {
	case Int32:
		return "int32"
	case Uint16:
		return "uint16"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// FieldName names a record field using the product's own identifiers.
type FieldName string

const (
	RecordIndex       FieldName = "rec_ndx"
	Latitude          FieldName = "lat"
	Longitude         FieldName = "lon"
	Elevation         FieldName = "elev"
	AttitudeQuality   FieldName = "sigma_att"
	SignalBeginOffset FieldName = "sig_beg_off"
	SignalEndOffset   FieldName = "sig_end_off"
	PeakRangeOffset   FieldName = "gp_cnt_rng_off"
	PeakAmplitude     FieldName = "g_amp"
	PeakArea          FieldName = "g_area"
	PeakCount         FieldName = "n_peaks"
	LandFitSD         FieldName = "land_var"
	SaturationFlag    FieldName = "sat_corr_flg"
	ReceiverGain      FieldName = "gval_rcv"
	CloudFlag         FieldName = "fr_ir_qa_flag"
	AtmosphereFlag    FieldName = "atm_char_flag"
	AtmosphereConf    FieldName = "atm_char_conf"
	MaxAmplitude      FieldName = "max_rec_amp"
	Noise             FieldName = "noise"
)

// Field describes one contiguous array inside a physical record.
type Field struct {
	Name     FieldName
	Offset   int // bytes from record start
	Encoding Encoding
	Count    int     // number of elements
	Scale    float64 // raw -> physical multiplier
}

// Width returns the size of one element in bytes.
func (f Field) Width() int { return f.Encoding.Size() }

// Size returns the total number of bytes the field occupies.
func (f Field) Size() int { return f.Width() * f.Count }

// End returns the offset just past the field.
func (f Field) End() int { return f.Offset + f.Size() }

// Version tags a record format revision.
type Version int

const (
	Legacy    Version = iota // releases before 33
	Release33                // release 33 with atmospheric characterization
)

func (v Version) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case Release33:
		return "r33"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ParseVersion accepts "legacy", "r33", "release33" or "33" (case-insensitive).
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "old":
		return Legacy, nil
	case "r33", "release33", "33":
		return Release33, nil
	}
	return 0, fmt.Errorf("unknown layout %q: want legacy or r33", s)
}

// Layout is the immutable field table of one format version.
type Layout struct {
	Version Version
	Fields  []Field // in record order
	index   map[FieldName]int
}

func newLayout(v Version, fields []Field) *Layout {
	l := &Layout{Version: v, Fields: fields, index: make(map[FieldName]int, len(fields))}
	for i, f := range fields {
		l.index[f.Name] = i
	}
	return l
}

// Field looks up a field by name.
func (l *Layout) Field(name FieldName) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.Fields[i], true
}

// MustField looks up a field by name and panics if the layout lacks it.
func (l *Layout) MustField(name FieldName) Field {
	f, ok := l.Field(name)
	if !ok {
		panic(fmt.Sprintf("layout %s has no field %s", l.Version, name))
	}
	return f
}

// HasAtmosphere reports whether the record carries the release 33
// atmospheric characterization bytes.
func (l *Layout) HasAtmosphere() bool {
	_, ok := l.index[AtmosphereFlag]
	return ok
}

// End returns the offset just past the last field.
func (l *Layout) End() int {
	if len(l.Fields) == 0 {
		return 0
	}
	return l.Fields[len(l.Fields)-1].End()
}

// Validate checks that offsets strictly increase, fields do not overlap and
// the whole table fits inside a record of recordLength bytes.
func (l *Layout) Validate(recordLength int) error {
	prevEnd := 0
	for i, f := range l.Fields {
		if f.Count <= 0 {
			return fmt.Errorf("layout %s: field %s has count %d", l.Version, f.Name, f.Count)
		}
		if i > 0 && f.Offset < prevEnd {
			return fmt.Errorf("layout %s: field %s at %d overlaps previous field ending at %d",
				l.Version, f.Name, f.Offset, prevEnd)
		}
		prevEnd = f.End()
	}
	if end := l.End(); end > recordLength {
		return fmt.Errorf("layout %s needs %d bytes per record, record length is %d",
			l.Version, end, recordLength)
	}
	return nil
}

// For returns the layout of a version.
func For(v Version) (*Layout, error) {
	switch v {
	case Legacy:
		return legacy, nil
	case Release33:
		return release33, nil
	}
	return nil, fmt.Errorf("no layout for %s", v)
}

// Legacy and Release33 layouts. Callers must treat them as read-only.
var (
	legacy    = newLayout(Legacy, legacyFields())
	release33 = newLayout(Release33, release33Fields())
)

// LegacyLayout returns the pre-release-33 layout.
func LegacyLayout() *Layout { return legacy }

// Release33Layout returns the release 33 layout.
func Release33Layout() *Layout { return release33 }

func legacyFields() []Field {
	return []Field{
		{RecordIndex, OFFSET_REC_NDX, Int32, COUNT_RECORD, SCALE_COUNTS},
		{Latitude, OFFSET_LAT, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
		{Longitude, OFFSET_LON, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
		{Elevation, OFFSET_ELEV, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{AttitudeQuality, OFFSET_SIGMA_ATT, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{SignalBeginOffset, LEGACY_OFFSET_SIG_BEG_OFF, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{SignalEndOffset, OFFSET_SIG_END_OFF, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{PeakRangeOffset, OFFSET_GP_CNT_RNG_OFF, Int32, COUNT_PEAKS, SCALE_MILLIMETERS},
		{PeakAmplitude, OFFSET_G_AMP, Int32, COUNT_PEAKS, SCALE_COUNTS},
		{PeakArea, OFFSET_G_AREA, Int32, COUNT_PEAKS, SCALE_COUNTS},
		{PeakCount, OFFSET_N_PEAKS, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{LandFitSD, OFFSET_LAND_VAR, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{SaturationFlag, OFFSET_SAT_CORR_FLG, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{ReceiverGain, OFFSET_GVAL_RCV, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{CloudFlag, OFFSET_FR_IR_QA_FLAG, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{MaxAmplitude, OFFSET_MAX_REC_AMP, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{Noise, OFFSET_NOISE, Uint16, COUNT_SHOT, SCALE_COUNTS},
	}
}

func release33Fields() []Field {
	return []Field{
		{RecordIndex, OFFSET_REC_NDX, Int32, COUNT_RECORD, SCALE_COUNTS},
		{Latitude, OFFSET_LAT, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
		{Longitude, OFFSET_LON, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
		{Elevation, OFFSET_ELEV, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{SignalBeginOffset, R33_OFFSET_SIG_BEG_OFF, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{AttitudeQuality, OFFSET_SIGMA_ATT, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{SignalEndOffset, OFFSET_SIG_END_OFF, Int32, COUNT_SHOT, SCALE_MILLIMETERS},
		{PeakRangeOffset, OFFSET_GP_CNT_RNG_OFF, Int32, COUNT_PEAKS, SCALE_MILLIMETERS},
		{PeakAmplitude, OFFSET_G_AMP, Int32, COUNT_PEAKS, SCALE_COUNTS},
		{PeakArea, OFFSET_G_AREA, Int32, COUNT_PEAKS, SCALE_COUNTS},
		{PeakCount, OFFSET_N_PEAKS, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{LandFitSD, OFFSET_LAND_VAR, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{SaturationFlag, OFFSET_SAT_CORR_FLG, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{ReceiverGain, OFFSET_GVAL_RCV, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{CloudFlag, OFFSET_FR_IR_QA_FLAG, Uint8, COUNT_SHOT, SCALE_COUNTS},
		{AtmosphereFlag, R33_OFFSET_ATM_CHAR_FLAG, Uint8, COUNT_RECORD, SCALE_COUNTS},
		{AtmosphereConf, R33_OFFSET_ATM_CHAR_CONF, Uint8, COUNT_RECORD, SCALE_COUNTS},
		{MaxAmplitude, OFFSET_MAX_REC_AMP, Uint16, COUNT_SHOT, SCALE_COUNTS},
		{Noise, OFFSET_NOISE, Uint16, COUNT_SHOT, SCALE_COUNTS},
	}
}
