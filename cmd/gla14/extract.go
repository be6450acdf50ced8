package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/gla14/internal/config"
	"github.com/banshee-data/gla14/internal/db"
	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/csvout"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/gla14/quality"
	"github.com/banshee-data/gla14/internal/gla14/report"
	"github.com/banshee-data/gla14/internal/gla14/scan"
)

type extractOptions struct {
	input     string
	output    string
	layout    layout.Version
	diag      bool
	trace     bool
	workers   int
	dbPath    string
	chartPath string
	plotPath  string
	cfg       *config.QualityConfig
}

func (a *app) parseExtractFlags(args []string) (*extractOptions, error) {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	layoutName := fs.String("layout", "r33", "Record layout: legacy (before release 33) or r33")
	diag := fs.Bool("error", false, "Log every quality rule failure")
	trace := fs.Bool("position", false, "Log the byte offset of every field read")
	workers := fs.Int("workers", 0, "Decode workers (0 decodes sequentially)")
	configPath := fs.String("config", "", "Path to a quality config JSON file")
	dbPath := fs.String("db", "", "Record the run and kept shots in this sqlite database")
	chartPath := fs.String("chart", "", "Write an HTML rejection chart to this path")
	plotPath := fs.String("plot", "", "Write a PNG elevation profile to this path")
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "Usage: gla14 extract [options] <input> <output.csv>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, fmt.Errorf("extract needs an input and an output path, got %d arguments", fs.NArg())
	}

	opts := &extractOptions{
		input:     fs.Arg(0),
		output:    fs.Arg(1),
		diag:      *diag,
		trace:     *trace,
		dbPath:    *dbPath,
		chartPath: *chartPath,
		plotPath:  *plotPath,
		cfg:       config.EmptyQualityConfig(),
	}
	if *configPath != "" {
		cfg, err := config.LoadQualityConfigFS(a.fsys, *configPath)
		if err != nil {
			return nil, err
		}
		opts.cfg = cfg
	}

	// Explicit flags win over the config file.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts.layout = opts.cfg.GetLayout()
	if set["layout"] || opts.cfg.Layout == nil {
		v, err := layout.ParseVersion(*layoutName)
		if err != nil {
			return nil, err
		}
		opts.layout = v
	}
	opts.workers = opts.cfg.GetWorkers()
	if set["workers"] {
		opts.workers = *workers
	}
	if opts.workers < 0 {
		return nil, fmt.Errorf("workers must be non-negative, got %d", opts.workers)
	}
	return opts, nil
}

func (a *app) runExtract(ctx context.Context, args []string) error {
	opts, err := a.parseExtractFlags(args)
	if err != nil {
		return err
	}
	_, err = a.extract(ctx, opts)
	return err
}

// extract decodes opts.input into opts.output and returns the run summary.
func (a *app) extract(ctx context.Context, opts *extractOptions) (report.Summary, error) {
	w := gla14.LogWriters{Ops: a.stderr}
	if opts.diag {
		w.Diag = a.stderr
	}
	if opts.trace {
		w.Trace = a.stderr
	}
	gla14.SetLogWriters(w)

	pipelineOpts := []quality.Option{quality.WithThresholds(opts.cfg.Thresholds(opts.layout))}
	if opts.diag {
		pipelineOpts = append(pipelineOpts, quality.WithObserver(quality.DiagObserver))
	}
	pipeline := quality.New(opts.layout, pipelineOpts...)

	in, err := scan.Open(a.fsys, opts.input, opts.layout, pipeline)
	if err != nil {
		return report.Summary{}, err
	}
	defer in.Close()

	out, err := a.fsys.Create(opts.output)
	if err != nil {
		return report.Summary{}, fmt.Errorf("create %s: %w", opts.output, err)
	}
	defer out.Close()

	var (
		store *db.RunStore
		run   *db.Run
	)
	if opts.dbPath != "" {
		database, err := db.NewDB(opts.dbPath)
		if err != nil {
			return report.Summary{}, err
		}
		defer database.Close()
		store = db.NewRunStore(database, a.clock)
		run = &db.Run{
			SourcePath:   opts.input,
			Layout:       opts.layout.String(),
			RecordLength: in.Header.RecordLength,
			HeaderLength: in.Header.HeaderLength(),
		}
		if err := store.Create(run); err != nil {
			return report.Summary{}, err
		}
		gla14.Opsf("run %s: %s (%s layout)", run.RunID, filepath.Base(opts.input), opts.layout)
	}

	start := a.clock.Now()
	acc := report.NewAccumulator()
	csvw := csvout.NewWriter(out)

	err = a.decode(ctx, in, opts.workers, csvw, acc, store, run)
	if err == nil {
		err = csvw.Flush()
	}
	if err == nil {
		err = out.Close()
	}
	if err != nil {
		if store != nil {
			if ferr := store.Fail(run.RunID, err); ferr != nil {
				gla14.Opsf("run %s: %v", run.RunID, ferr)
			}
		}
		return report.Summary{}, err
	}

	summary := acc.Summary()
	if store != nil {
		totals := db.RunTotals{
			Records:    summary.Records,
			Shots:      summary.Shots,
			Kept:       summary.Kept,
			Rejections: summary.Rejections,
		}
		if acc.Truncation != nil {
			totals.TruncatedBytes = acc.Truncation.Remaining
		}
		if err := store.Complete(run.RunID, totals); err != nil {
			return summary, err
		}
	}
	if opts.chartPath != "" {
		if err := a.writeChart(acc, opts); err != nil {
			return summary, err
		}
	}
	if opts.plotPath != "" {
		if err := a.writePlot(acc, opts); err != nil {
			return summary, err
		}
	}

	gla14.Opsf("%s: %d records, %d of %d shots kept in %s",
		filepath.Base(opts.input), summary.Records, summary.Kept, summary.Shots,
		a.clock.Since(start).Round(time.Millisecond))
	return summary, summary.WriteText(a.stdout)
}

// decode streams every batch of in through the CSV writer, the accumulator
// and, when store is set, the run database.
func (a *app) decode(ctx context.Context, in *scan.File, workers int, csvw *csvout.Writer, acc *report.Accumulator, store *db.RunStore, run *db.Run) error {
	if err := csvw.WriteHeader(); err != nil {
		return err
	}
	sink := func(b *gla14.Batch) error {
		if _, err := csvw.WriteBatch(b); err != nil {
			return err
		}
		acc.Add(b)
		if store != nil {
			if _, err := store.InsertBatch(run.RunID, b); err != nil {
				return err
			}
		}
		return nil
	}

	if workers > 0 {
		res, err := scan.ScanParallel(ctx, in.ReaderAt(), in.Size, in.Header.HeaderLength(), in.Extractor, workers, sink)
		if err != nil {
			return err
		}
		acc.SetTruncation(res.Truncation)
		return nil
	}

	sc := in.Scanner()
	for sc.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink(sc.Batch()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	acc.SetTruncation(sc.Truncation())
	return nil
}

func (a *app) writeChart(acc *report.Accumulator, opts *extractOptions) error {
	f, err := a.fsys.Create(opts.chartPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.chartPath, err)
	}
	err = acc.WriteRejectionChart(f, "Rejected shots: "+filepath.Base(opts.input))
	return errors.Join(err, f.Close())
}

func (a *app) writePlot(acc *report.Accumulator, opts *extractOptions) error {
	f, err := a.fsys.Create(opts.plotPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.plotPath, err)
	}
	err = acc.WriteProfilePlot(f, filepath.Base(opts.input))
	return errors.Join(err, f.Close())
}
