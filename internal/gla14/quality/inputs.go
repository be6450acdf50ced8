package quality

// Inputs carries the raw stored values the predicates inspect for one shot.
// AtmosphereFlag and AtmosphereConf are record-level and identical for all
// 40 shots of a record; they are zero for the Legacy layout.
type Inputs struct {
	Latitude, Longitude, Elevation int32

	Attitude uint16

	SignalBegin int32
	SignalEnd   int32

	GroundOffset    int32 // gp_cnt_rng_off of peak 0
	GroundAmplitude int32 // g_amp of peak 0
	GroundArea      int32 // g_area of peak 0

	PeakCount  uint8
	LandVar    uint16
	Saturation uint8
	Gain       uint16
	Cloud      uint8

	AtmosphereFlag uint8
	AtmosphereConf uint8

	MaxAmplitude uint16
	Noise        uint16
}
