package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/gla14/internal/db"
)

func (a *app) runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	dbPath := fs.String("db", "gla14.db", "Run database")
	listen := fs.String("listen", ":8080", "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/debug/", http.StatusFound)
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:              *listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serveUntilDone(ctx, server)
}

// serveUntilDone runs server until ctx is cancelled, then shuts it down.
func serveUntilDone(ctx context.Context, server *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("serving run database on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server stopped")
	return nil
}

func (a *app) runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	dbPath := fs.String("db", "gla14.db", "Run database")
	fs.Usage = func() { db.PrintMigrateHelp(a.stderr) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Flags may also follow the action: gla14 migrate up -db runs.db
	action := fs.Args()
	if len(action) > 0 {
		if err := fs.Parse(action[1:]); err != nil {
			return err
		}
		action = append([]string{action[0]}, fs.Args()...)
	}
	return db.RunMigrateCommand(action, *dbPath, a.stdout)
}
