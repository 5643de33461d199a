package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gleyba/test-db/internal/dbengine"
	"github.com/gleyba/test-db/internal/obs"
	"github.com/gleyba/test-db/internal/web"
)

//go:embed samples/*.csv
var sampleDir embed.FS

// global, so that we can inject it at build time
var (
	gitCommit      string
	buildTime      string
	buildGoVersion string
)

func main() {
	expose := flag.Bool("expose", false, "expose the server on the network, do not run it just locally")
	portHTTP := flag.Int("port-http", 8822, "port to listen on for http traffic")
	portHTTPS := flag.Int("port-https", 8823, "port to listen on for https traffic")
	wdir := flag.String("wdir", "", "working directory for the database")
	loadSamples := flag.Bool("samples", false, "load sample tables")
	useTLS := flag.Bool("tls", false, "use TLS when hosting the server")
	tlsCert := flag.String("tls-cert", "", "TLS certificate to use")
	tlsKey := flag.String("tls-key", "", "TLS key to use")
	dev := flag.Bool("dev", false, "use a development (console, unsampled) logger instead of a production one")
	version := flag.Bool("version", false, "print the binary's version")
	flag.Parse()

	if *version {
		fmt.Printf("build commit: %v\nbuild time: %v\ngo version: %v\n", gitCommit, buildTime, buildGoVersion)
		os.Exit(0)
	}

	log, err := obs.NewLogger(*dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Infow("starting up", "pid", os.Getpid())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		defer signal.Stop(signals)

		select {
		case s := <-signals:
			log.Infow("signal received, aborting", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, log, *wdir, *portHTTP, *portHTTPS, *expose, *loadSamples, *useTLS, *tlsCert, *tlsKey); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, log *zap.SugaredLogger, wdir string, portHTTP, portHTTPS int, expose bool, loadSamples, useTLS bool, tlsCert, tlsKey string) error {
	if wdir == "" {
		hdir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		wdir = filepath.Join(hdir, "testdb")
	}
	db, err := dbengine.NewDatabase(wdir, nil, log)
	if err != nil {
		return err
	}
	log.Infow("opened database", "working_directory", wdir)

	// blocking: the site isn't ready until every sample table has been
	// imported.
	if loadSamples {
		samplefs, err := fs.Sub(sampleDir, "samples")
		if err != nil {
			return err
		}
		if err := db.LoadSamples(samplefs); err != nil {
			return err
		}
	}

	return web.RunWebserver(ctx, db, log, expose, portHTTP, portHTTPS, useTLS, tlsCert, tlsKey)
}
