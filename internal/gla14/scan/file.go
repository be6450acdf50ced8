package scan

import (
	"fmt"
	"io"

	"github.com/banshee-data/gla14/internal/fsutil"
	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/extract"
	"github.com/banshee-data/gla14/internal/gla14/header"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/gla14/quality"
)

// File is an open GLA14 granule with its parsed header and an extractor for
// the chosen layout.
type File struct {
	Path      string
	Header    header.Header
	Size      int64
	Extractor *extract.Extractor

	f fsutil.File
}

// Open parses the header of path and prepares an extractor for layout v.
// A nil pipeline selects the layout's default thresholds.
func Open(fsys fsutil.FileSystem, path string, v layout.Version, p *quality.Pipeline) (*File, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	h, err := header.Parse(io.NewSectionReader(f, 0, info.Size()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.HeaderLength() > info.Size() {
		f.Close()
		return nil, fmt.Errorf("%s: %w: header of %d records of %d bytes exceeds file of %d bytes",
			path, gla14.ErrBadHeader, h.HeaderRecords, h.RecordLength, info.Size())
	}
	l, err := layout.For(v)
	if err != nil {
		f.Close()
		return nil, err
	}
	ext, err := extract.New(l, h.RecordLength, p)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, Header: h, Size: info.Size(), Extractor: ext, f: f}, nil
}

// Scanner returns a sequential scanner over the file's records.
func (f *File) Scanner() *Scanner {
	return New(f.f, f.Size, f.Header.HeaderLength(), f.Extractor)
}

// ReaderAt exposes the underlying file for ScanParallel.
func (f *File) ReaderAt() io.ReaderAt { return f.f }

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }
