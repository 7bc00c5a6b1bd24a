// Package events carries graph and node completion notifications out of the
// runtime.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/specialistvlad/vxgraph/internal/ctxlog"
)

// Kind names an event.
type Kind string

const (
	GraphVerified  Kind = "graph_verified"
	GraphCompleted Kind = "graph_completed"
	NodeCompleted  Kind = "node_completed"
	NodeError      Kind = "node_error"
)

// Event is one notification. Status holds the numeric runtime status.
type Event struct {
	Kind     Kind          `json:"kind"`
	Context  string        `json:"context"`
	Graph    string        `json:"graph"`
	Node     string        `json:"node,omitempty"`
	Kernel   string        `json:"kernel,omitempty"`
	Status   int32         `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Time     time.Time     `json:"time"`
}

// Sink receives events. Emit must not block the caller for long; it is
// called from graph workers.
type Sink interface {
	Emit(e Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}

// LogSink writes events to a logger at debug level, errors at warn level.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a sink logging through the logger carried by ctx.
func NewLogSink(ctx context.Context) *LogSink {
	return &LogSink{Logger: ctxlog.FromContext(ctx)}
}

func (s *LogSink) Emit(e Event) {
	attrs := []any{"kind", e.Kind, "graph", e.Graph, "status", e.Status, "duration", e.Duration}
	if e.Node != "" {
		attrs = append(attrs, "node", e.Node, "kernel", e.Kernel)
	}
	if e.Error != "" {
		s.Logger.Warn("Runtime event.", append(attrs, "error", e.Error)...)
		return
	}
	s.Logger.Debug("Runtime event.", attrs...)
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		s.Emit(e)
	}
}
