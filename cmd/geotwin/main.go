// ABOUTME: Entrypoint for the geotwin dashboard server.
// ABOUTME: Loads .env and GEOTWIN_* config, starts the HTTP server, and shuts down on SIGINT/SIGTERM.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/snu-geoshm/geotwin/server"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to .env file with GEOTWIN_* variables")
	bind := flag.String("bind", "", "socket address to listen on (overrides GEOTWIN_BIND)")
	flag.Parse()

	if err := server.LoadDotEnv(*envFile); err != nil {
		log.Printf("warning: loading %s: %v", *envFile, err)
	}
	if *bind != "" {
		os.Setenv("GEOTWIN_BIND", *bind)
	}

	cfg, err := server.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "geotwin: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "geotwin: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Close() }()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("geotwin listening on %s (data dir %s)", cfg.Bind, cfg.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "geotwin: %v\n", err)
			os.Exit(1)
		}
	}
}
