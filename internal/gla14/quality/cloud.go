package quality

import (
	"github.com/banshee-data/gla14/internal/gla14"
)

// CloudPredicate is the layout-specific cloud/atmosphere check. It returns
// the failed rule, or 0, and the raw value that caused the failure.
type CloudPredicate interface {
	Evaluate(in *Inputs) (gla14.Rule, int64)
}

// LegacyCloud fails any shot whose cloud flag is below MinFlag.
type LegacyCloud struct {
	MinFlag uint8
}

// Evaluate implements CloudPredicate.
func (c LegacyCloud) Evaluate(in *Inputs) (gla14.Rule, int64) {
	if in.Cloud < c.MinFlag {
		return gla14.RuleCloud, int64(in.Cloud)
	}
	return 0, 0
}

// Release33Atmosphere only looks at the atmosphere bytes when the shot's
// cloud flag suggests cloud. A low-confidence atmospheric correction fails
// first and short-circuits; otherwise the even optical-depth classes fail.
// With no cloud suspected the predicate never fails.
type Release33Atmosphere struct {
	MinFlag uint8
}

// atmosphere confidence and optical depth codes
const (
	ATM_CONF_LOW = 1
)

var highOpticalDepth = map[uint8]bool{2: true, 4: true, 6: true, 8: true}

// Evaluate implements CloudPredicate.
func (c Release33Atmosphere) Evaluate(in *Inputs) (gla14.Rule, int64) {
	if in.Cloud >= c.MinFlag {
		return 0, 0
	}
	if in.AtmosphereConf == ATM_CONF_LOW {
		return gla14.RuleAtmosphereConfidence, int64(in.AtmosphereConf)
	}
	if highOpticalDepth[in.AtmosphereFlag] {
		return gla14.RuleOpticalDepth, int64(in.AtmosphereFlag)
	}
	return 0, 0
}
