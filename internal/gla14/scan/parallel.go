package scan

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/extract"
)

// Result summarizes a parallel scan.
type Result struct {
	Records    int64
	Truncation *gla14.TruncatedFileError
}

// ScanParallel decodes every complete record of r on a pool of workers and
// calls fn with the batches in record order. Each record's byte range is
// headerLength + ordinal*recl, so workers never share a read position.
// An error from fn or a cancelled ctx stops the scan between records.
func ScanParallel(ctx context.Context, r io.ReaderAt, size, headerLength int64, ext *extract.Extractor, workers int, fn func(*gla14.Batch) error) (Result, error) {
	if headerLength < 0 || headerLength > size {
		return Result{}, fmt.Errorf("%w: header length %d outside file of %d bytes", gla14.ErrBadHeader, headerLength, size)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	recl := int64(ext.RecordLength())
	total := (size - headerLength) / recl
	var res Result
	if tail := (size - headerLength) % recl; tail > 0 {
		res.Truncation = &gla14.TruncatedFileError{
			Offset:       headerLength + total*recl,
			Remaining:    tail,
			RecordLength: int(recl),
		}
	}

	pool := sync.Pool{New: func() any { return make([]byte, recl) }}

	// One slot per in-flight record; the window bounds memory to
	// 2*workers batches regardless of file size.
	window := int64(2 * workers)
	slots := make([]chan *gla14.Batch, window)
	for i := range slots {
		slots[i] = make(chan *gla14.Batch, 1)
	}
	credits := make(chan struct{}, window)
	for i := int64(0); i < window; i++ {
		credits <- struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int64)

	g.Go(func() error {
		defer close(jobs)
		for ord := int64(0); ord < total; ord++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-credits:
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- ord:
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for ord := range jobs {
				buf := pool.Get().([]byte)
				off := headerLength + ord*recl
				n, err := r.ReadAt(buf, off)
				if n < len(buf) {
					pool.Put(buf)
					if err == nil || err == io.EOF {
						err = io.ErrUnexpectedEOF
					}
					return fmt.Errorf("read record %d at offset %d: %w", ord, off, err)
				}
				b, err := ext.Decode(buf, ord, off)
				pool.Put(buf)
				if err != nil {
					return err
				}
				select {
				case slots[ord%window] <- b:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		for ord := int64(0); ord < total; ord++ {
			var b *gla14.Batch
			select {
			case b = <-slots[ord%window]:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := fn(b); err != nil {
				return err
			}
			res.Records++
			credits <- struct{}{}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return res, err
	}
	if res.Truncation != nil {
		gla14.Opsf("warning: %v", res.Truncation)
	}
	return res, nil
}
