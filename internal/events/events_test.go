package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ got []Event }

func (r *recorder) Emit(e Event) { r.got = append(r.got, e) }

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, Discard{}, b}

	f.Emit(Event{Kind: NodeCompleted, Node: "n1"})
	f.Emit(Event{Kind: GraphCompleted})

	require.Len(t, a.got, 2)
	assert.Equal(t, a.got, b.got)
	assert.Equal(t, NodeCompleted, a.got[0].Kind)
}

func TestLogSink(t *testing.T) {
	ctx, buf := testutil.Context(t)
	s := NewLogSink(ctx)

	s.Emit(Event{Kind: NodeCompleted, Graph: "g", Node: "n1", Kernel: "k"})
	s.Emit(Event{Kind: NodeError, Graph: "g", Node: "n2", Kernel: "k", Status: -1, Error: "boom"})

	out := buf.String()
	assert.Contains(t, out, "kind=node_completed")
	assert.Contains(t, out, "node=n1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=boom")
}

func TestQueue(t *testing.T) {
	t.Run("poll returns events in order", func(t *testing.T) {
		q := NewQueue(4)
		_, ok := q.Poll()
		assert.False(t, ok)

		q.Emit(Event{Node: "a"})
		q.Emit(Event{Node: "b"})
		assert.Equal(t, 2, q.Len())

		e, ok := q.Poll()
		require.True(t, ok)
		assert.Equal(t, "a", e.Node)
		e, ok = q.Poll()
		require.True(t, ok)
		assert.Equal(t, "b", e.Node)
	})

	t.Run("full queue drops oldest", func(t *testing.T) {
		q := NewQueue(2)
		for _, n := range []string{"a", "b", "c"} {
			q.Emit(Event{Node: n})
		}
		assert.Equal(t, 1, q.Dropped())
		e, _ := q.Poll()
		assert.Equal(t, "b", e.Node)
	})

	t.Run("wait unblocks on emit", func(t *testing.T) {
		q := NewQueue(1)
		go func() {
			time.Sleep(10 * time.Millisecond)
			q.Emit(Event{Kind: GraphCompleted})
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		e, err := q.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, GraphCompleted, e.Kind)
	})

	t.Run("wait honours context", func(t *testing.T) {
		q := NewQueue(1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := q.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestDialSocketIORejectsBadURL(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := DialSocketIO(ctx, "not-a-url", "/")
	assert.ErrorContains(t, err, "needs a scheme and a host")
}

func TestConnectError(t *testing.T) {
	refused := errors.New("connection refused")
	tests := []struct {
		name    string
		payload []any
		want    string
	}{
		{"empty payload", nil, "connect_error without details"},
		{"error value", []any{refused}, "connection refused"},
		{"map payload", []any{map[string]any{"message": "denied"}}, "map[message:denied]"},
		{"nil entry", []any{nil}, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = connectError(tt.payload) })
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}
