package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/sasha-s/go-deadlock"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	ctx    context.Context
	logger *slog.Logger
	config *Config

	httpServer *http.Server

	mu     deadlock.Mutex
	perf   map[string]vx.Perf
	status vx.Status
	runs   int
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := NewLogger(cfg.Log.Level, cfg.Log.Format, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		ctx:    ctx,
		logger: logger,
		config: cfg,
		perf:   map[string]vx.Perf{},
	}
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Context returns the base context carrying the application's logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Snapshot is the run state published by the status server.
type Snapshot struct {
	Runs   int                `json:"runs"`
	Status string             `json:"status"`
	Code   int32              `json:"code"`
	Perf   map[string]vx.Perf `json:"perf"`
}

// Snapshot copies the current run state.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	perf := make(map[string]vx.Perf, len(a.perf))
	for k, v := range a.perf {
		perf[k] = v
	}
	return Snapshot{
		Runs:   a.runs,
		Status: a.status.String(),
		Code:   int32(a.status),
		Perf:   perf,
	}
}

// record publishes the outcome of one graph execution.
func (a *App) record(graph string, status vx.Status, perf vx.Perf) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs++
	a.status = status
	a.perf[graph] = perf
}
