// Package scan walks the physical records of a GLA14 file.
package scan

import (
	"fmt"
	"io"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/extract"
)

// Scanner decodes one record at a time from the end of the header to the last
// complete record. It is lazy, finite and not restartable.
//
//	for s.Next() {
//		b := s.Batch()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	r            io.ReaderAt
	size         int64
	headerLength int64
	ext          *extract.Extractor

	offset  int64
	ordinal int64
	buf     []byte

	batch *gla14.Batch
	err   error
	trunc *gla14.TruncatedFileError
	done  bool
}

// New returns a scanner over the size bytes of r. Records start at
// headerLength and are ext.RecordLength() bytes long.
func New(r io.ReaderAt, size, headerLength int64, ext *extract.Extractor) *Scanner {
	s := &Scanner{
		r:            r,
		size:         size,
		headerLength: headerLength,
		ext:          ext,
		offset:       headerLength,
	}
	if headerLength < 0 || headerLength > size {
		s.err = fmt.Errorf("%w: header length %d outside file of %d bytes", gla14.ErrBadHeader, headerLength, size)
		s.done = true
	}
	return s
}

// RecordCount returns the number of complete records after the header.
func (s *Scanner) RecordCount() int64 {
	if s.headerLength > s.size {
		return 0
	}
	return (s.size - s.headerLength) / int64(s.ext.RecordLength())
}

// Next decodes the next record. It returns false at the end of the records
// or on a structural error; check Err and Truncation afterwards.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	recl := int64(s.ext.RecordLength())
	remaining := s.size - s.offset
	if remaining < recl {
		if remaining > 0 {
			s.trunc = &gla14.TruncatedFileError{Offset: s.offset, Remaining: remaining, RecordLength: int(recl)}
			gla14.Opsf("warning: %v", s.trunc)
		}
		s.finish()
		return false
	}

	if s.buf == nil {
		// Allocated only once a complete record is known to fit.
		s.buf = make([]byte, recl)
	}
	n, err := s.r.ReadAt(s.buf, s.offset)
	if n < len(s.buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		s.err = fmt.Errorf("read record %d at offset %d: %w", s.ordinal, s.offset, err)
		s.finish()
		return false
	}

	b, err := s.ext.Decode(s.buf, s.ordinal, s.offset)
	if err != nil {
		s.err = err
		s.finish()
		return false
	}
	s.batch = b
	s.ordinal++
	s.offset += recl
	return true
}

func (s *Scanner) finish() {
	s.done = true
	s.batch = nil
}

// Batch returns the batch decoded by the last successful Next.
func (s *Scanner) Batch() *gla14.Batch { return s.batch }

// Err returns the structural error that stopped the scan, if any. A
// truncated tail is not an error; see Truncation.
func (s *Scanner) Err() error { return s.err }

// Truncation returns the partial trailing record found at the end of the
// file, or nil when the file ended on a record boundary.
func (s *Scanner) Truncation() *gla14.TruncatedFileError { return s.trunc }

// Records returns the number of records decoded so far.
func (s *Scanner) Records() int64 { return s.ordinal }
