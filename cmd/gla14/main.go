package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/gla14/internal/fsutil"
	"github.com/banshee-data/gla14/internal/timeutil"
	"github.com/banshee-data/gla14/internal/version"
)

// app carries the dependencies shared by every subcommand.
type app struct {
	fsys   fsutil.FileSystem
	clock  timeutil.Clock
	stdout io.Writer
	stderr io.Writer
}

func newApp() *app {
	return &app{
		fsys:   fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "extract":
		return a.runExtract(ctx, args)
	case "serve":
		return a.runServe(ctx, args)
	case "migrate":
		return a.runMigrate(args)
	case "version":
		fmt.Fprintln(a.stdout, version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `gla14 - GLAS/ICESat GLA14 land elevation extractor

Usage: gla14 <command> [options]

Commands:
  extract    Decode a GLA14 granule into a CSV of quality-filtered shots
  serve      Serve the run database debug pages (tailsql, backups)
  migrate    Manage the run database schema
  version    Show version information
  help       Show this help message

Examples:
  # Decode a release 33 granule
  gla14 extract GLA14_633_2131_002_0071_0_01_0001.DAT shots.csv

  # Decode an older granule, logging every rejected shot
  gla14 extract -layout legacy -error GLA14_428.DAT shots.csv

  # Decode on 4 workers and record the run
  gla14 extract -workers 4 -db runs.db -chart rejections.html granule.DAT shots.csv

  # Browse recorded runs
  gla14 serve -db runs.db -listen :8080`)
}
