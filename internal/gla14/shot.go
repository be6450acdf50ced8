package gla14

import "fmt"

// ShotsPerRecord is the number of laser shots packed into one physical record.
const ShotsPerRecord = 40

// PeaksPerShot is the number of Gaussian peaks fitted to each return waveform.
const PeaksPerShot = 6

// Shot is one laser pulse decoded from a physical record.
// Heights are in meters; amplitudes and areas are raw counts
// (0.01 V and 0.01 V*ns respectively) with missing values replaced by 0.
type Shot struct {
	Index int32 // record index, shared by all shots in the record
	Shot  int   // position within the record, 0-39

	Latitude  float64 // degrees
	Longitude float64 // degrees
	Elevation float64 // meters

	// Raw range offsets in millimeters, retained for derived heights.
	SignalBeginOffset int32
	SignalEndOffset   int32
	PeakOffsets       [PeaksPerShot]int32 // centroid range offsets, peak 0 is ground

	SignalEndHeight float64                   // (end - begin) offset, meters
	GroundHeight    float64                   // peak 0 above signal begin, clamped at 0
	PeakHeights     [PeaksPerShot - 1]float64 // peaks 1-5 relative to peak 0, clamped at 0
	Amplitudes      [PeaksPerShot]int32
	Areas           [PeaksPerShot]int32

	Keep       bool
	Rejections Rule
}

// Reject downgrades the shot. A rejected shot is never restored.
func (s *Shot) Reject(r Rule) {
	s.Keep = false
	s.Rejections |= r
}

// Batch is the decoded content of one physical record.
type Batch struct {
	Index   int32  // stored record index
	Ordinal int64  // position of the record in the file, 0-based
	Offset  int64  // byte offset of the record in the file
	Layout  string // layout version name
	Shots   [ShotsPerRecord]Shot
}

// Kept returns the shots whose keep flag survived the quality pipeline,
// in shot order.
func (b *Batch) Kept() []Shot {
	kept := make([]Shot, 0, ShotsPerRecord)
	for _, s := range b.Shots {
		if s.Keep {
			kept = append(kept, s)
		}
	}
	return kept
}

// KeptCount returns the number of shots with Keep set.
func (b *Batch) KeptCount() int {
	n := 0
	for i := range b.Shots {
		if b.Shots[i].Keep {
			n++
		}
	}
	return n
}

func (b *Batch) String() string {
	return fmt.Sprintf("record %d (ordinal %d, offset %d, %s): %d/%d kept",
		b.Index, b.Ordinal, b.Offset, b.Layout, b.KeptCount(), ShotsPerRecord)
}
