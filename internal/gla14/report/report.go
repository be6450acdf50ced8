// Package report summarizes an extraction run: shot counts, rejection
// tallies per quality rule and distributions of the kept heights.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gla14/internal/gla14"
)

// Accumulator collects per-batch figures. It is not safe for concurrent use;
// feed it from the goroutine that consumes scanner output.
type Accumulator struct {
	Records    int64
	Shots      int64
	Kept       int64
	Rejections map[gla14.Rule]int64
	Truncation *gla14.TruncatedFileError

	latitude  []float64
	elevation []float64
	ground    []float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{Rejections: make(map[gla14.Rule]int64)}
}

// Add records one batch. A shot failing several rules counts once per rule.
func (a *Accumulator) Add(b *gla14.Batch) {
	a.Records++
	for i := range b.Shots {
		s := &b.Shots[i]
		a.Shots++
		if s.Keep {
			a.Kept++
			a.latitude = append(a.latitude, s.Latitude)
			a.elevation = append(a.elevation, s.Elevation)
			a.ground = append(a.ground, s.GroundHeight)
			continue
		}
		for _, r := range s.Rejections.Rules() {
			a.Rejections[r]++
		}
	}
}

// SetTruncation notes a partial trailing record.
func (a *Accumulator) SetTruncation(t *gla14.TruncatedFileError) { a.Truncation = t }

// Stats describes one distribution.
type Stats struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	P05    float64
	P50    float64
	P95    float64
}

// Describe computes Stats for x. x is not modified.
func Describe(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	s := Stats{
		N:    len(x),
		Mean: stat.Mean(sorted, nil),
		Min:  floats.Min(sorted),
		Max:  floats.Max(sorted),
		P05:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(x) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Summary is the end-of-run digest.
type Summary struct {
	Records      int64
	Shots        int64
	Kept         int64
	Rejections   map[string]int64 // rule name -> rejected shots
	Truncated    bool
	GroundHeight Stats
	Elevation    Stats
}

// Summary computes the digest of everything added so far.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		Records:      a.Records,
		Shots:        a.Shots,
		Kept:         a.Kept,
		Rejections:   make(map[string]int64, len(a.Rejections)),
		Truncated:    a.Truncation != nil,
		GroundHeight: Describe(a.ground),
		Elevation:    Describe(a.elevation),
	}
	for r, n := range a.Rejections {
		s.Rejections[r.String()] = n
	}
	return s
}

// KeptFraction returns kept shots over decoded shots.
func (s Summary) KeptFraction() float64 {
	if s.Shots == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.Shots)
}

// WriteText prints the summary as aligned text, rules in record order.
func (s Summary) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "records:   %d\n", s.Records)
	fmt.Fprintf(&b, "shots:     %d\n", s.Shots)
	fmt.Fprintf(&b, "kept:      %d (%.1f%%)\n", s.Kept, 100*s.KeptFraction())
	if s.Truncated {
		fmt.Fprintf(&b, "truncated: yes\n")
	}
	for _, r := range gla14.AllRules {
		if n := s.Rejections[r.String()]; n > 0 {
			fmt.Fprintf(&b, "  %-22s %d\n", r.String(), n)
		}
	}
	writeStats(&b, "ground height (m)", s.GroundHeight)
	writeStats(&b, "elevation (m)", s.Elevation)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeStats(b *strings.Builder, name string, st Stats) {
	if st.N == 0 {
		return
	}
	fmt.Fprintf(b, "%s: n=%d mean=%.2f sd=%.2f min=%.2f p05=%.2f p50=%.2f p95=%.2f max=%.2f\n",
		name, st.N, st.Mean, st.StdDev, st.Min, st.P05, st.P50, st.P95, st.Max)
}
