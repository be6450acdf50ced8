package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gla14/internal/db"
	"github.com/banshee-data/gla14/internal/fsutil"
	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/testutil"
	"github.com/banshee-data/gla14/internal/timeutil"
	"github.com/banshee-data/gla14/internal/version"
)

const testRecl = 10000

func testApp(t *testing.T) (*app, *fsutil.MemoryFileSystem, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Cleanup(func() { gla14.SetLogWriters(gla14.LogWriters{}) })
	fsys := fsutil.NewMemoryFileSystem()
	var stdout, stderr bytes.Buffer
	return &app{
		fsys:   fsys,
		clock:  timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		stdout: &stdout,
		stderr: &stderr,
	}, fsys, &stdout, &stderr
}

func csvLines(t *testing.T, fsys *fsutil.MemoryFileSystem, name string) []string {
	t.Helper()
	data, err := fsys.ReadFile(name)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestExtractWritesKeptShots(t *testing.T) {
	a, fsys, stdout, _ := testApp(t)
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 2, testutil.Records(812, 3)...))

	require.NoError(t, a.run(context.Background(), "extract", []string{"granule.dat", "shots.csv"}))

	lines := csvLines(t, fsys, "shots.csv")
	require.Len(t, lines, 1+3*gla14.ShotsPerRecord)
	assert.True(t, strings.HasPrefix(lines[0], "rec_ndx,lat,lon,elev,"))
	assert.Equal(t, "812,37.12346,-122.65432,15.3,-8.50,0.40,0.20,0,0,0,0,120,80,40,0,0,0,900,500,200,0,0,0", lines[1])
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "814,"))
	assert.Contains(t, stdout.String(), "records:   3")
	assert.Contains(t, stdout.String(), "kept:      120 (100.0%)")
}

func TestExtractParallelMatchesSequential(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	records := testutil.Records(1, 9)
	records[4].Shots[7].Gain = 5000
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, records...))

	require.NoError(t, a.run(context.Background(), "extract", []string{"granule.dat", "seq.csv"}))
	require.NoError(t, a.run(context.Background(), "extract", []string{"-workers", "3", "granule.dat", "par.csv"}))

	seq := csvLines(t, fsys, "seq.csv")
	assert.Len(t, seq, 1+9*gla14.ShotsPerRecord-1)
	assert.Equal(t, seq, csvLines(t, fsys, "par.csv"))
}

func TestExtractTruncatedTailIsNotFatal(t *testing.T) {
	a, fsys, stdout, stderr := testApp(t)
	data := testutil.File(layout.Release33Layout(), testRecl, 1, testutil.Records(1, 2)...)
	data = append(data, make([]byte, 123)...)
	fsys.WriteFile("granule.dat", data)

	require.NoError(t, a.run(context.Background(), "extract", []string{"granule.dat", "shots.csv"}))

	assert.Len(t, csvLines(t, fsys, "shots.csv"), 1+2*gla14.ShotsPerRecord)
	assert.Contains(t, stderr.String(), "truncated file")
	assert.Contains(t, stdout.String(), "truncated: yes")
}

func TestExtractLegacyLayoutFlag(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	fsys.WriteFile("old.dat", testutil.File(layout.LegacyLayout(), testRecl, 1, testutil.Records(40, 1)...))

	require.NoError(t, a.run(context.Background(), "extract", []string{"-layout", "legacy", "old.dat", "shots.csv"}))

	lines := csvLines(t, fsys, "shots.csv")
	require.Len(t, lines, 1+gla14.ShotsPerRecord)
	assert.True(t, strings.HasPrefix(lines[1], "40,37.12346,"))
}

func TestExtractErrorFlagLogsRejections(t *testing.T) {
	a, fsys, _, stderr := testApp(t)
	rec := testutil.NewRecord(7)
	rec.Shots[3].Saturation = 0x1f
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, rec))

	require.NoError(t, a.run(context.Background(), "extract", []string{"-error", "granule.dat", "shots.csv"}))

	assert.Len(t, csvLines(t, fsys, "shots.csv"), gla14.ShotsPerRecord)
	assert.Contains(t, stderr.String(), "record 7 shot 3 rejected")
}

func TestExtractMissingInput(t *testing.T) {
	a, _, _, _ := testApp(t)
	err := a.run(context.Background(), "extract", []string{"missing.dat", "shots.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractBadHeader(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	fsys.WriteFile("junk.dat", []byte("not a header\n"))
	err := a.run(context.Background(), "extract", []string{"junk.dat", "shots.csv"})
	assert.ErrorIs(t, err, gla14.ErrStructural)
}

func TestExtractRecordsRun(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	rec := testutil.NewRecord(2)
	rec.Shots[0].Noise = 500
	data := append(testutil.File(layout.Release33Layout(), testRecl, 1, rec), make([]byte, 10)...)
	fsys.WriteFile("granule.dat", data)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	require.NoError(t, a.run(context.Background(), "extract", []string{"-db", dbPath, "granule.dat", "shots.csv"}))

	database, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	store := db.NewRunStore(database, nil)

	runs, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, db.RunCompleted, run.Status)
	assert.Equal(t, "r33", run.Layout)
	assert.Equal(t, "granule.dat", run.SourcePath)
	assert.EqualValues(t, 1, run.Records)
	assert.EqualValues(t, gla14.ShotsPerRecord, run.Shots)
	assert.EqualValues(t, gla14.ShotsPerRecord-1, run.Kept)
	assert.EqualValues(t, 10, run.TruncatedBytes)

	rejections, err := store.Rejections(run.RunID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rejections[gla14.RuleSNR.String()])

	shots, err := store.Shots(run.RunID, 100)
	require.NoError(t, err)
	assert.Len(t, shots, gla14.ShotsPerRecord-1)
}

func TestExtractWritesChart(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, testutil.Records(1, 1)...))

	require.NoError(t, a.run(context.Background(), "extract", []string{"-chart", "rejections.html", "granule.dat", "shots.csv"}))

	html, err := fsys.ReadFile("rejections.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "granule.dat")
}

func TestExtractWritesProfilePlot(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, testutil.Records(1, 2)...))

	require.NoError(t, a.run(context.Background(), "extract", []string{"-plot", "profile.png", "granule.dat", "shots.csv"}))

	png, err := fsys.ReadFile("profile.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "png signature")
}

func TestExtractPlotNeedsKeptShots(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	rec := testutil.NewRecord(1)
	for i := range rec.Shots {
		rec.Shots[i].Gain = 5000
	}
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, rec))

	err := a.run(context.Background(), "extract", []string{"-plot", "profile.png", "granule.dat", "shots.csv"})
	assert.ErrorContains(t, err, "no kept shots")
}

func TestParseExtractFlagsConfig(t *testing.T) {
	a, fsys, _, _ := testApp(t)
	cfgPath := "conf/quality.json"
	fsys.WriteFile(cfgPath, []byte(`{"layout":"legacy","snr_min":40,"workers":4}`))

	opts, err := a.parseExtractFlags([]string{"-config", cfgPath, "in.dat", "out.csv"})
	require.NoError(t, err)
	assert.Equal(t, layout.Legacy, opts.layout)
	assert.Equal(t, 4, opts.workers)
	assert.EqualValues(t, 40, opts.cfg.Thresholds(opts.layout).SNRMin)

	opts, err = a.parseExtractFlags([]string{"-config", cfgPath, "-layout", "r33", "-workers", "0", "in.dat", "out.csv"})
	require.NoError(t, err)
	assert.Equal(t, layout.Release33, opts.layout)
	assert.Equal(t, 0, opts.workers)
}

func TestParseExtractFlagsErrors(t *testing.T) {
	a, _, _, _ := testApp(t)
	for _, args := range [][]string{
		{"only-input.dat"},
		{"-layout", "r34", "in.dat", "out.csv"},
		{"-workers", "-2", "in.dat", "out.csv"},
		{"-config", "quality.yaml", "in.dat", "out.csv"},
	} {
		_, err := a.parseExtractFlags(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestConfigSNROverrideRejectsShots(t *testing.T) {
	a, fsys, stdout, _ := testApp(t)
	fsys.WriteFile("granule.dat", testutil.File(layout.Release33Layout(), testRecl, 1, testutil.Records(1, 1)...))
	cfgPath := "quality.json"
	// Good shots have SNR 1000/10 = 100.
	fsys.WriteFile(cfgPath, []byte(`{"snr_min":101}`))

	require.NoError(t, a.run(context.Background(), "extract", []string{"-config", cfgPath, "granule.dat", "shots.csv"}))

	assert.Len(t, csvLines(t, fsys, "shots.csv"), 1)
	assert.Contains(t, stdout.String(), "kept:      0 (0.0%)")
}

func TestVersionCommand(t *testing.T) {
	a, _, stdout, _ := testApp(t)
	require.NoError(t, a.run(context.Background(), "version", nil))
	assert.Equal(t, version.String()+"\n", stdout.String())
}

func TestUnknownCommand(t *testing.T) {
	a, _, _, _ := testApp(t)
	assert.Error(t, a.run(context.Background(), "frobnicate", nil))
}

func TestMigrateCommand(t *testing.T) {
	a, _, stdout, _ := testApp(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	require.NoError(t, a.run(context.Background(), "migrate", []string{"-db", dbPath, "up"}))
	assert.Contains(t, stdout.String(), "current version: 3")
}

func TestMigrateCommandTrailingFlags(t *testing.T) {
	a, _, stdout, _ := testApp(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	require.NoError(t, a.run(context.Background(), "migrate", []string{"up", "-db", dbPath}))
	require.NoError(t, a.run(context.Background(), "migrate", []string{"down", "-db", dbPath}))
	assert.Contains(t, stdout.String(), "current version: 2")
}
