package quality

import (
	"math"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/codec"
	"github.com/banshee-data/gla14/internal/gla14/layout"
)

// Observer receives every rule violation with the offending raw value.
// A rule may be reported more than once for one shot, e.g. coordinates.
type Observer func(recordIndex int32, shot int, rule gla14.Rule, value int64)

// DiagObserver writes violations to the diag log stream.
func DiagObserver(recordIndex int32, shot int, rule gla14.Rule, value int64) {
	gla14.Diagf("record %d shot %d rejected: %s = %d", recordIndex, shot, rule, value)
}

// Pipeline evaluates the quality predicates of one layout version.
// It holds no per-shot state and is safe for concurrent use.
type Pipeline struct {
	version    layout.Version
	thresholds Thresholds
	cloud      CloudPredicate
	observer   Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThresholds overrides the default limits.
func WithThresholds(t Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = t }
}

// WithObserver installs a violation observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New builds the pipeline for a layout version.
func New(v layout.Version, opts ...Option) *Pipeline {
	p := &Pipeline{
		version:    v,
		thresholds: DefaultThresholds(v),
	}
	for _, opt := range opts {
		opt(p)
	}
	if v == layout.Release33 {
		p.cloud = Release33Atmosphere{MinFlag: p.thresholds.CloudMin}
	} else {
		p.cloud = LegacyCloud{MinFlag: p.thresholds.CloudMin}
	}
	return p
}

// Version returns the layout version the pipeline was built for.
func (p *Pipeline) Version() layout.Version { return p.version }

// Thresholds returns the active limits.
func (p *Pipeline) Thresholds() Thresholds { return p.thresholds }

// SNR returns max amplitude over noise using truncating integer division.
// A zero noise floor is replaced by math.MaxInt32, which forces the ratio to
// zero instead of dividing by zero.
func SNR(maxAmplitude, noise uint16) int64 {
	n := int64(noise)
	if n == 0 {
		n = math.MaxInt32
	}
	return int64(maxAmplitude) / n
}

// Evaluate runs every predicate against in and returns the set of failed
// rules. A zero result means the shot is kept.
func (p *Pipeline) Evaluate(recordIndex int32, shot int, in *Inputs) gla14.Rule {
	var failed gla14.Rule
	fail := func(rule gla14.Rule, value int64) {
		failed |= rule
		if p.observer != nil {
			p.observer(recordIndex, shot, rule, value)
		}
	}

	if in.Latitude == codec.BadInt {
		fail(gla14.RuleCoordinates, int64(in.Latitude))
	}
	if in.Longitude == codec.BadInt {
		fail(gla14.RuleCoordinates, int64(in.Longitude))
	}
	if in.Elevation == codec.BadInt {
		fail(gla14.RuleCoordinates, int64(in.Elevation))
	}

	if in.Attitude != 0 {
		fail(gla14.RuleAttitude, int64(in.Attitude))
	}
	if codec.InvalidOffset(in.SignalBegin) {
		fail(gla14.RuleSignalBegin, int64(in.SignalBegin))
	}
	if codec.InvalidOffset(in.SignalEnd) {
		fail(gla14.RuleSignalEnd, int64(in.SignalEnd))
	}
	if codec.InvalidOffset(in.GroundOffset) {
		fail(gla14.RuleGroundPeak, int64(in.GroundOffset))
	}
	if in.GroundAmplitude == codec.BadInt {
		fail(gla14.RuleGroundAmplitude, int64(in.GroundAmplitude))
	}
	if in.GroundArea == codec.BadInt {
		fail(gla14.RuleGroundArea, int64(in.GroundArea))
	}
	if in.PeakCount < MIN_PEAKS {
		fail(gla14.RulePeakCount, int64(in.PeakCount))
	}
	if in.LandVar > p.thresholds.LandFitMax {
		fail(gla14.RuleLandFit, int64(in.LandVar))
	}
	if nibble := codec.LowNibble(in.Saturation); nibble > p.thresholds.SaturationMax {
		fail(gla14.RuleSaturation, int64(nibble))
	}
	if in.Gain > p.thresholds.GainMax {
		fail(gla14.RuleGain, int64(in.Gain))
	}
	if rule, value := p.cloud.Evaluate(in); rule != 0 {
		fail(rule, value)
	}
	if snr := SNR(in.MaxAmplitude, in.Noise); snr < p.thresholds.SNRMin {
		fail(gla14.RuleSNR, snr)
	}

	return failed
}

// Apply evaluates in and downgrades s for every failed rule. It never sets
// Keep back to true.
func (p *Pipeline) Apply(s *gla14.Shot, in *Inputs) {
	failed := p.Evaluate(s.Index, s.Shot, in)
	for _, rule := range failed.Rules() {
		s.Reject(rule)
	}
}
