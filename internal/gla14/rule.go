package gla14

import "strings"

// Rule identifies one quality predicate. Rules are bit flags so a shot can
// carry every predicate it violated.
type Rule uint32

// Rules in the order their fields appear in the record.
const (
	RuleCoordinates Rule = 1 << iota
	RuleAttitude
	RuleSignalBegin
	RuleSignalEnd
	RuleGroundPeak
	RuleGroundAmplitude
	RuleGroundArea
	RulePeakCount
	RuleLandFit
	RuleSaturation
	RuleGain
	RuleCloud
	RuleAtmosphereConfidence
	RuleOpticalDepth
	RuleSNR
)

// AllRules lists every rule in record order.
var AllRules = []Rule{
	RuleCoordinates,
	RuleAttitude,
	RuleSignalBegin,
	RuleSignalEnd,
	RuleGroundPeak,
	RuleGroundAmplitude,
	RuleGroundArea,
	RulePeakCount,
	RuleLandFit,
	RuleSaturation,
	RuleGain,
	RuleCloud,
	RuleAtmosphereConfidence,
	RuleOpticalDepth,
	RuleSNR,
}

var ruleNames = map[Rule]string{
	RuleCoordinates:          "coordinates",
	RuleAttitude:             "attitude",
	RuleSignalBegin:          "signal_begin",
	RuleSignalEnd:            "signal_end",
	RuleGroundPeak:           "ground_peak",
	RuleGroundAmplitude:      "ground_amplitude",
	RuleGroundArea:           "ground_area",
	RulePeakCount:            "peak_count",
	RuleLandFit:              "land_fit",
	RuleSaturation:           "saturation",
	RuleGain:                 "gain",
	RuleCloud:                "cloud",
	RuleAtmosphereConfidence: "atmosphere_confidence",
	RuleOpticalDepth:         "optical_depth",
	RuleSNR:                  "snr",
}

// Has reports whether every bit of o is set in r.
func (r Rule) Has(o Rule) bool { return r&o == o && o != 0 }

// Rules splits a rule set into its individual rules, in record order.
func (r Rule) Rules() []Rule {
	var out []Rule
	for _, rule := range AllRules {
		if r&rule != 0 {
			out = append(out, rule)
		}
	}
	return out
}

func (r Rule) String() string {
	if r == 0 {
		return "none"
	}
	if name, ok := ruleNames[r]; ok {
		return name
	}
	var names []string
	for _, rule := range r.Rules() {
		names = append(names, ruleNames[rule])
	}
	return strings.Join(names, "|")
}
