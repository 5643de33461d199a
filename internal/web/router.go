// Package web implements the HTTP surface: table import, query, status and
// listing endpoints, plus the TLS-redirect wrapper and graceful dual
// HTTP/HTTPS server lifecycle, with logging handled by structured zap
// fields rather than stdlib log.Printf calls.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gleyba/test-db/internal/dbengine"
)

// SetupRoutes builds the full handler, optionally wrapped in an
// HTTP->HTTPS redirect when useTLS is set — mirroring SetupRoutes's own
// conditional wrapping.
func SetupRoutes(db *dbengine.Database, log *zap.SugaredLogger, useTLS bool, portHTTPS int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", handleStatus())
	mux.HandleFunc("/api/tables", handleTables(db))
	mux.HandleFunc("/api/query", handleQuery(db, log))
	mux.HandleFunc("/upload/auto", handleUpload(db, log))
	mux.HandleFunc("/upload/remote", handleRemoteUpload(db, log))

	if !useTLS {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			host, _, err := net.SplitHostPort(r.Host)
			if err != nil {
				http.Error(w, "failed to parse URL", http.StatusInternalServerError)
				return
			}
			newURL := *r.URL
			newURL.Host = net.JoinHostPort(host, strconv.Itoa(portHTTPS))
			newURL.Scheme = "https"
			w.Header().Set("Cache-Control", "max-age=60")
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Servers bundles the live HTTP/HTTPS *http.Server handles RunWebserver
// creates, so callers (tests, graceful-shutdown hooks) can reach them.
type Servers struct {
	HTTP  *http.Server
	HTTPS *http.Server
}

// RunWebserver starts the HTTP server (and, if useTLS, the HTTPS server
// too) and blocks until either one exits with an error or ctx is canceled,
// in which case both are shut down gracefully. Mirrors
// web.RunWebserver's error-channel-plus-select shape.
func RunWebserver(ctx context.Context, db *dbengine.Database, log *zap.SugaredLogger, expose bool, portHTTP, portHTTPS int, useTLS bool, tlsCert, tlsKey string) error {
	handler := SetupRoutes(db, log, useTLS, portHTTPS)
	host := "localhost"
	if expose {
		host = ""
	}

	errs := make(chan error, 2)
	srv := &Servers{}

	address := net.JoinHostPort(host, strconv.Itoa(portHTTP))
	srv.HTTP = &http.Server{Addr: address, Handler: handler}
	log.Infow("listening", "scheme", "http", "address", address)
	go func() {
		errs <- srv.HTTP.ListenAndServe()
	}()

	if useTLS {
		if tlsCert == "" || tlsKey == "" {
			return fmt.Errorf("TLS enabled but no certificate/key supplied")
		}
		address = net.JoinHostPort(host, strconv.Itoa(portHTTPS))
		srv.HTTPS = &http.Server{Addr: address, Handler: handler}
		log.Infow("listening", "scheme", "https", "address", address)
		go func() {
			errs <- srv.HTTPS.ListenAndServeTLS(tlsCert, tlsKey)
		}()
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		var rerr error
		log.Info("http webserver shutting down")
		if err := srv.HTTP.Shutdown(context.Background()); err != nil && err != context.Canceled {
			rerr = err
		}
		if srv.HTTPS != nil {
			log.Info("https webserver shutting down")
			if err := srv.HTTPS.Shutdown(context.Background()); err != nil && err != context.Canceled {
				rerr = err
			}
		}
		return rerr
	}
}
