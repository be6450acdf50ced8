package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/codec"
	"github.com/banshee-data/gla14/internal/gla14/layout"
)

// passing returns inputs that satisfy every predicate of both layouts.
func passing() Inputs {
	return Inputs{
		Latitude:        37123456,
		Longitude:       -122654321,
		Elevation:       15250,
		Attitude:        0,
		SignalBegin:     -500,
		SignalEnd:       -9000,
		GroundOffset:    -100,
		GroundAmplitude: 120,
		GroundArea:      900,
		PeakCount:       2,
		LandVar:         150,
		Saturation:      0x10,
		Gain:            50,
		Cloud:           15,
		MaxAmplitude:    1000,
		Noise:           10,
	}
}

func TestPassingInputsKeep(t *testing.T) {
	for _, v := range []layout.Version{layout.Legacy, layout.Release33} {
		in := passing()
		assert.Equal(t, gla14.Rule(0), New(v).Evaluate(1, 0, &in), v.String())
	}
}

func TestSinglePredicateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Inputs)
		want   gla14.Rule
	}{
		{"bad latitude", func(in *Inputs) { in.Latitude = codec.BadInt }, gla14.RuleCoordinates},
		{"bad longitude", func(in *Inputs) { in.Longitude = codec.BadInt }, gla14.RuleCoordinates},
		{"bad elevation", func(in *Inputs) { in.Elevation = codec.BadInt }, gla14.RuleCoordinates},
		{"attitude residual", func(in *Inputs) { in.Attitude = 1 }, gla14.RuleAttitude},
		{"signal begin missing", func(in *Inputs) { in.SignalBegin = codec.BadInt }, gla14.RuleSignalBegin},
		{"signal begin positive", func(in *Inputs) { in.SignalBegin = 3 }, gla14.RuleSignalBegin},
		{"signal end positive", func(in *Inputs) { in.SignalEnd = 1 }, gla14.RuleSignalEnd},
		{"ground peak missing", func(in *Inputs) { in.GroundOffset = codec.BadInt }, gla14.RuleGroundPeak},
		{"ground peak positive", func(in *Inputs) { in.GroundOffset = 7 }, gla14.RuleGroundPeak},
		{"ground amplitude missing", func(in *Inputs) { in.GroundAmplitude = codec.BadInt }, gla14.RuleGroundAmplitude},
		{"ground area missing", func(in *Inputs) { in.GroundArea = codec.BadInt }, gla14.RuleGroundArea},
		{"no peaks", func(in *Inputs) { in.PeakCount = 0 }, gla14.RulePeakCount},
		{"land fit near sentinel", func(in *Inputs) { in.LandVar = 20001 }, gla14.RuleLandFit},
		{"saturated", func(in *Inputs) { in.Saturation = 0x03 }, gla14.RuleSaturation},
		{"saturated high nibble ignored", func(in *Inputs) { in.Saturation = 0xf4 }, gla14.RuleSaturation},
		{"gain too high", func(in *Inputs) { in.Gain = 201 }, gla14.RuleGain},
		{"zero noise", func(in *Inputs) { in.Noise = 0; in.MaxAmplitude = math.MaxUint16 }, gla14.RuleSNR},
		{"snr below 15", func(in *Inputs) { in.MaxAmplitude = 149 }, gla14.RuleSNR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := passing()
			tt.mutate(&in)
			assert.Equal(t, tt.want, New(layout.Legacy).Evaluate(0, 0, &in))
		})
	}
}

func TestBoundaryValuesPass(t *testing.T) {
	in := passing()
	in.SignalBegin = 0
	in.GroundOffset = 0
	in.LandVar = 20000
	in.Saturation = 0x02
	in.Gain = 200
	in.Cloud = 13
	in.MaxAmplitude = 150 // 150/10 = 15, exactly the legacy threshold
	assert.Equal(t, gla14.Rule(0), New(layout.Legacy).Evaluate(0, 0, &in))
}

func TestSNRThresholdDiffersByLayout(t *testing.T) {
	in := passing()
	in.MaxAmplitude = 199 // 199/10 truncates to 19

	assert.Equal(t, gla14.Rule(0), New(layout.Legacy).Evaluate(0, 0, &in))
	assert.Equal(t, gla14.RuleSNR, New(layout.Release33).Evaluate(0, 0, &in))
}

func TestSNRTruncates(t *testing.T) {
	assert.Equal(t, int64(19), SNR(199, 10))
	assert.Equal(t, int64(0), SNR(9, 10))
	assert.Equal(t, int64(0), SNR(math.MaxUint16, 0))
}

func TestLegacyCloud(t *testing.T) {
	in := passing()
	in.Cloud = 12
	in.AtmosphereConf = 0
	in.AtmosphereFlag = 0
	assert.Equal(t, gla14.RuleCloud, New(layout.Legacy).Evaluate(0, 0, &in))
}

func TestRelease33Atmosphere(t *testing.T) {
	tests := []struct {
		name  string
		cloud uint8
		flag  uint8
		conf  uint8
		want  gla14.Rule
	}{
		{"clear sky ignores atmosphere", 13, 2, 1, 0},
		{"cloud with good correction", 12, 0, 0, 0},
		{"cloud with odd optical depth class", 12, 3, 2, 0},
		{"cloud with low confidence", 12, 0, 1, gla14.RuleAtmosphereConfidence},
		{"low confidence short-circuits optical depth", 0, 4, 1, gla14.RuleAtmosphereConfidence},
		{"cloud with optical depth 2", 5, 2, 0, gla14.RuleOpticalDepth},
		{"cloud with optical depth 8", 5, 8, 3, gla14.RuleOpticalDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := passing()
			in.Cloud = tt.cloud
			in.AtmosphereFlag = tt.flag
			in.AtmosphereConf = tt.conf
			assert.Equal(t, tt.want, New(layout.Release33).Evaluate(0, 0, &in))
		})
	}
}

func TestAllPredicatesEvaluated(t *testing.T) {
	in := passing()
	in.Latitude = codec.BadInt
	in.Attitude = 9
	in.Gain = 900
	in.Noise = 0

	var seen []gla14.Rule
	p := New(layout.Legacy, WithObserver(func(_ int32, shot int, rule gla14.Rule, _ int64) {
		assert.Equal(t, 7, shot)
		seen = append(seen, rule)
	}))

	failed := p.Evaluate(3, 7, &in)
	want := []gla14.Rule{gla14.RuleCoordinates, gla14.RuleAttitude, gla14.RuleGain, gla14.RuleSNR}
	assert.Equal(t, want, seen, "observer sees every violation in record order")
	assert.Equal(t, want, failed.Rules())
}

func TestEveryBadCoordinateObserved(t *testing.T) {
	in := passing()
	in.Latitude = codec.BadInt
	in.Longitude = codec.BadInt
	in.Elevation = codec.BadInt

	var rules []gla14.Rule
	var values []int64
	p := New(layout.Release33, WithObserver(func(_ int32, _ int, rule gla14.Rule, value int64) {
		rules = append(rules, rule)
		values = append(values, value)
	}))

	assert.Equal(t, gla14.RuleCoordinates, p.Evaluate(0, 0, &in))
	assert.Equal(t, []gla14.Rule{gla14.RuleCoordinates, gla14.RuleCoordinates, gla14.RuleCoordinates}, rules)
	assert.Equal(t, []int64{int64(codec.BadInt), int64(codec.BadInt), int64(codec.BadInt)}, values)
}

func TestApplyNeverRestoresKeep(t *testing.T) {
	p := New(layout.Release33)

	s := gla14.Shot{Keep: true}
	bad := passing()
	bad.Attitude = 1
	p.Apply(&s, &bad)
	require.False(t, s.Keep)

	good := passing()
	p.Apply(&s, &good)
	assert.False(t, s.Keep, "a passing evaluation must not upgrade a rejected shot")
	assert.Equal(t, gla14.RuleAttitude, s.Rejections)
}

func TestWithThresholds(t *testing.T) {
	th := DefaultThresholds(layout.Release33)
	th.SNRMin = 5
	th.CloudMin = 1
	p := New(layout.Release33, WithThresholds(th))
	assert.Equal(t, int64(5), p.Thresholds().SNRMin)

	in := passing()
	in.MaxAmplitude = 60 // snr 6
	in.Cloud = 1
	in.AtmosphereConf = 1
	assert.Equal(t, gla14.Rule(0), p.Evaluate(0, 0, &in))
}
