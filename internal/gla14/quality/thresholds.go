package quality

import (
	"github.com/banshee-data/gla14/internal/gla14/layout"
)

// Threshold defaults.
const (
	DEFAULT_LAND_FIT_MAX   = 20000 // land_var above this is "near sentinel"
	DEFAULT_SATURATION_MAX = 2     // low nibble 2 = correction needed, still usable
	DEFAULT_GAIN_MAX       = 200
	DEFAULT_CLOUD_MIN      = 13 // fr_ir_qa_flag <= 12 means cloud suspected
	LEGACY_SNR_MIN         = 15
	R33_SNR_MIN            = 20
	MIN_PEAKS              = 1
)

// Thresholds holds the numeric limits of the quality predicates.
type Thresholds struct {
	LandFitMax    uint16 // fail when land_var > LandFitMax
	SaturationMax uint8  // fail when low nibble of sat_corr_flg > SaturationMax
	GainMax       uint16 // fail when gval_rcv > GainMax
	CloudMin      uint8  // cloud suspected when fr_ir_qa_flag < CloudMin
	SNRMin        int64  // fail when max_rec_amp / noise < SNRMin
}

// DefaultThresholds returns the limits for a layout version. The SNR
// threshold differs between versions and both values are intentional.
func DefaultThresholds(v layout.Version) Thresholds {
	t := Thresholds{
		LandFitMax:    DEFAULT_LAND_FIT_MAX,
		SaturationMax: DEFAULT_SATURATION_MAX,
		GainMax:       DEFAULT_GAIN_MAX,
		CloudMin:      DEFAULT_CLOUD_MIN,
		SNRMin:        LEGACY_SNR_MIN,
	}
	if v == layout.Release33 {
		t.SNRMin = R33_SNR_MIN
	}
	return t
}
