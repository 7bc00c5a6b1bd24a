package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
)

const shutdownTimeout = 5 * time.Second

// Router returns the status server's routes.
func (a *App) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/perf", a.perfHandler).Methods(http.MethodGet)
	r.HandleFunc("/perf/{graph}", a.perfHandler).Methods(http.MethodGet)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) perfHandler(w http.ResponseWriter, r *http.Request) {
	snap := a.Snapshot()
	var body any = snap
	if name, ok := mux.Vars(r)["graph"]; ok {
		p, found := snap.Perf[name]
		if !found {
			http.Error(w, fmt.Sprintf("no timings for graph %q", name), http.StatusNotFound)
			return
		}
		body = p
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("Failed to encode perf snapshot.", "error", err)
	}
}

// startStatusServer serves the status routes on port in the background. It
// returns the bound address.
func (a *App) startStatusServer(ctx context.Context, port int) (string, error) {
	logger := ctxlog.FromContext(ctx)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("status server: %w", err)
	}
	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.httpServer = srv
	addr := ln.Addr().String()

	go func() {
		logger.Info("Status server starting.", "address", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly.", "error", err)
		}
	}()
	return addr, nil
}

func (a *App) closeStatusServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("Status server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Debug("Shutting down status server.")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed.", "error", err)
		return err
	}
	a.httpServer = nil
	logger.Debug("Status server shut down gracefully.")
	return nil
}
