package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// connectTimeout bounds how long DialSocketIO waits for the handshake.
const connectTimeout = 15 * time.Second

// SocketIOSink forwards events to a socket.io server, one message per event
// named after the event kind.
type SocketIOSink struct {
	client *socket.Socket
	logger *slog.Logger
}

// DialSocketIO connects to rawURL on namespace and returns a sink once the
// server has acknowledged the connection.
func DialSocketIO(ctx context.Context, rawURL, namespace string) (*SocketIOSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("event URL %q needs a scheme and a host", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to event server.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- connectError(errs)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOSink{client: io, logger: logger}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
}

func (s *SocketIOSink) Emit(e Event) {
	if err := s.client.Emit(string(e.Kind), e); err != nil {
		s.logger.Warn("Failed to forward event.", "kind", e.Kind, "error", err)
	}
}

// Close disconnects from the server.
func (s *SocketIOSink) Close() error {
	s.logger.Debug("Disconnecting from event server.", "sid", s.client.Id())
	s.client.Disconnect()
	return nil
}

// connectError turns a connect_error payload into an error. The payload may
// be empty.
func connectError(payload []any) error {
	if len(payload) == 0 {
		return errors.New("connect_error without details")
	}
	if err, ok := payload[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("%v", payload[0])
}
