// Package csvout writes kept shots as comma-separated rows.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/codec"
)

// Columns is the output header, one entry per field of Row.
var Columns = []string{
	"rec_ndx", "lat", "lon", "elev", "SigEndOff",
	"SigBegHt", "gpCntRngOff2", "gpCntRngOff3", "gpCntRngOff4", "gpCntRngOff5", "gpCntRngOff6",
	"gAmp1", "gAmp2", "gAmp3", "gAmp4", "gAmp5", "gAmp6",
	"gArea1", "gArea2", "gArea3", "gArea4", "gArea5", "gArea6",
}

// Writer writes the header once and one row per kept shot.
type Writer struct {
	w           *csv.Writer
	wroteHeader bool
	rows        int64
}

// NewWriter returns a writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// WriteHeader writes the column names. WriteBatch calls it on first use.
func (w *Writer) WriteHeader() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	if err := w.w.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

// WriteBatch writes the kept shots of b in shot order and returns how many
// rows were written. Rejected shots are omitted.
func (w *Writer) WriteBatch(b *gla14.Batch) (int, error) {
	if err := w.WriteHeader(); err != nil {
		return 0, err
	}
	n := 0
	for i := range b.Shots {
		s := &b.Shots[i]
		if !s.Keep {
			continue
		}
		if err := w.w.Write(Row(s)); err != nil {
			return n, fmt.Errorf("write record %d shot %d: %w", s.Index, s.Shot, err)
		}
		n++
	}
	w.rows += int64(n)
	w.w.Flush()
	return n, w.w.Error()
}

// Rows returns the number of shot rows written.
func (w *Writer) Rows() int64 { return w.rows }

// Flush writes any buffered rows.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Row formats one shot. Coordinates have five decimals, elevation one,
// heights two, all rounded half up on the shortest decimal form of the value.
// Heights are derived from the raw peak offsets: a negative height or a
// missing secondary peak prints as 0, an exactly zero height as 0.00.
func Row(s *gla14.Shot) []string {
	row := make([]string, 0, len(Columns))
	row = append(row,
		strconv.FormatInt(int64(s.Index), 10),
		Decimal(s.Latitude, 5),
		Decimal(s.Longitude, 5),
		Decimal(s.Elevation, 1),
		Decimal(s.SignalEndHeight, 2),
	)

	ground := s.PeakOffsets[0]
	if codec.InvalidOffset(ground) {
		row = append(row, "0")
	} else {
		row = append(row, height(codec.Height(ground, s.SignalBeginOffset)))
	}
	for _, off := range s.PeakOffsets[1:] {
		if codec.InvalidOffset(off) {
			row = append(row, "0")
			continue
		}
		row = append(row, height(codec.Height(ground, off)))
	}

	for _, a := range s.Amplitudes {
		row = append(row, strconv.FormatInt(int64(a), 10))
	}
	for _, a := range s.Areas {
		row = append(row, strconv.FormatInt(int64(a), 10))
	}
	return row
}

func height(h float64) string {
	if h < 0 {
		return "0"
	}
	return Decimal(h, 2)
}

// Decimal formats v with the given number of decimals. Rounding is half up
// (ties away from zero) on the shortest decimal representation of v, so
// 0.125 prints as 0.13 at two places where %.2f would give 0.12.
func Decimal(v float64, places int) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) <= places {
		frac += strings.Repeat("0", places-len(frac))
		if places == 0 {
			return sign + whole
		}
		return sign + whole + "." + frac
	}

	roundUp := frac[places] >= '5'
	digits := []byte(whole + frac[:places])
	if roundUp {
		i := len(digits) - 1
		for ; i >= 0; i-- {
			if digits[i] == '9' {
				digits[i] = '0'
				continue
			}
			digits[i]++
			break
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		}
	}
	n := len(digits) - places
	if places == 0 {
		return sign + string(digits)
	}
	return sign + string(digits[:n]) + "." + string(digits[n:])
}
