package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/demo"
	"github.com/specialistvlad/vxgraph/internal/events"
	"github.com/specialistvlad/vxgraph/internal/graphfile"
	"github.com/specialistvlad/vxgraph/internal/platform"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// DemoGraph is the key the demo graph's timings are published under.
const DemoGraph = "xyz"

// Run executes the configured graph. With no graph path it drives the demo
// controller through its lifecycle; otherwise it loads, builds and processes
// the graph files.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Status.Port > 0 {
		if _, err := a.startStatusServer(ctx, a.config.Status.Port); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.closeStatusServer(ctx))
		}()
	}

	sink, closeSink, err := a.openSink(ctx)
	if err != nil {
		return err
	}
	defer closeSink()

	if a.config.Graph == "" {
		err = a.runDemo(ctx, sink)
	} else {
		err = a.runGraphFile(ctx, sink)
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// openSink builds the event sink: the log always, plus a socket.io server
// when one is configured.
func (a *App) openSink(ctx context.Context) (events.Sink, func(), error) {
	logSink := events.NewLogSink(ctx)
	if a.config.Events.URL == "" {
		return logSink, func() {}, nil
	}
	remote, err := events.DialSocketIO(ctx, a.config.Events.URL, a.config.Events.Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event sink: %w", err)
	}
	closeFn := func() {
		if err := remote.Close(); err != nil {
			a.logger.Warn("Failed to close event sink.", "error", err)
		}
	}
	return events.Fanout{logSink, remote}, closeFn, nil
}

func (a *App) runDemo(ctx context.Context, sink events.Sink) error {
	ctrl := demo.New(demo.Config{Workers: a.config.Workers, Sink: sink})
	ctrl.OnCreate(ctx)
	defer ctrl.OnStop(ctx)

	if !ctrl.OnResume(ctx) {
		return errors.New("demo graph setup failed")
	}

	bar := a.progress(a.config.Iterations, "processing "+DemoGraph)
	for i := 0; i < a.config.Iterations; i++ {
		status := ctrl.OnClick(ctx)
		perf, _ := ctrl.Perf()
		a.record(DemoGraph, status, perf)
		if status != vx.Success {
			return fmt.Errorf("iteration %d: %w", i+1, status)
		}
		bar.Add(1)
	}
	bar.Finish()

	ctrl.OnPause(ctx)
	return ctrl.LastTeardownErr()
}

func (a *App) runGraphFile(ctx context.Context, sink events.Sink) (err error) {
	logger := ctxlog.FromContext(ctx)
	doc, err := graphfile.Load(ctx, a.config.Graph)
	if err != nil {
		return err
	}

	vc, err := platform.NewContext(platform.Options{
		Logger:  a.logger,
		Workers: a.config.Workers,
		Sink:    sink,
	})
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}
	defer func() {
		err = errors.Join(err, vc.Release())
	}()

	built, err := graphfile.Build(ctx, vc, doc)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	defer func() {
		err = errors.Join(err, built.Release())
	}()

	if err := built.Graph.Verify(); err != nil {
		return fmt.Errorf("graph verification failed: %w", err)
	}
	logger.Info("Graph verified.", "graph", built.Graph.ID(), "nodes", len(built.Nodes))

	key := filepath.Base(a.config.Graph)
	bar := a.progress(a.config.Iterations, "processing "+key)
	for i := 0; i < a.config.Iterations; i++ {
		status := vx.StatusOf(built.Graph.Process(ctx))
		a.record(key, status, built.Graph.Perf())
		if status != vx.Success {
			return fmt.Errorf("iteration %d: %w", i+1, status)
		}
		bar.Add(1)
	}
	bar.Finish()

	perf := built.Graph.Perf()
	logger.Info("Graph processed.", "runs", perf.Num, "avg", perf.Avg, "min", perf.Min, "max", perf.Max)
	return nil
}

// progress returns a bar on the app's writer for multi-iteration runs and a
// silent one otherwise.
func (a *App) progress(n int, desc string) *progressbar.ProgressBar {
	w := a.outW
	if n <= 1 {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
