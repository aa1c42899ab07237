package executorsvc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/config"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/protocol"
)

// fakeTransport is an in-memory stand-in for *websocket.Conn: inbound
// frames are queued up front, outbound frames are recorded for
// assertions, and ReadMessage blocks once the queue drains until the
// test closes it.
type fakeTransport struct {
	mu      sync.Mutex
	inbound [][]byte
	idx     int
	closed  bool

	outbound [][]byte
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return 0, nil, io.EOF
		}
		if f.idx < len(f.inbound) {
			frame := f.inbound[f.idx]
			f.idx++
			f.mu.Unlock()
			return 1, frame, nil
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outbound = append(f.outbound, data)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.outbound))
	copy(out, f.outbound)
	return out
}

func encodeFrame(t *testing.T, msgType string, payload any) []byte {
	t.Helper()
	frame, err := protocol.Encode(msgType, payload)
	require.NoError(t, err)
	return frame
}

func typesOf(t *testing.T, frames [][]byte) []string {
	t.Helper()
	var types []string
	for _, f := range frames {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		types = append(types, env.Type)
	}
	return types
}

func newTestServer() *Server {
	return NewServer(config.Executor{APIKey: "k", ExecutorID: "exec-1"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSession_PingReceivesPong(t *testing.T) {
	transport := &fakeTransport{inbound: [][]byte{
		encodeFrame(t, protocol.TypePing, protocol.Ping{}),
	}}
	srv := newTestServer()
	sess := newSession(transport, srv.controller, srv.cfg, srv.logger)

	go sess.run(context.Background())

	require.Eventually(t, func() bool {
		return len(typesOf(t, transport.frames())) >= 2
	}, time.Second, 5*time.Millisecond)

	transport.Close()
	require.Contains(t, typesOf(t, transport.frames()), protocol.TypePong)
}

func TestSession_ExecuteRequestRunsAndEmitsCompleted(t *testing.T) {
	pipeline := map[string]any{
		"sources": []any{},
		"stages": []any{
			[]any{map[string]any{"name": "totals", "query": "SELECT 1 AS n"}},
		},
	}
	raw, err := json.Marshal(pipeline)
	require.NoError(t, err)

	transport := &fakeTransport{inbound: [][]byte{
		encodeFrame(t, protocol.TypeExecuteRequest, protocol.ExecuteRequest{
			Pipeline: protocol.PipelineDoc{Format: "json", Text: string(raw)},
		}),
	}}
	srv := newTestServer()
	sess := newSession(transport, srv.controller, srv.cfg, srv.logger)

	go sess.run(context.Background())

	require.Eventually(t, func() bool {
		for _, frameType := range typesOf(t, transport.frames()) {
			if frameType == protocol.TypeEvent {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	transport.Close()

	foundAccepted, foundCompleted := false, false
	for _, f := range transport.frames() {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		switch env.Type {
		case protocol.TypeAccepted:
			var a protocol.Accepted
			require.NoError(t, json.Unmarshal(env.Payload, &a))
			require.Equal(t, 0, a.QueuePosition)
			foundAccepted = true
		case protocol.TypeEvent:
			var m protocol.EventMessage
			require.NoError(t, json.Unmarshal(env.Payload, &m))
			if m.Event.Kind == string(progress.EventCompleted) {
				foundCompleted = true
			}
		}
	}
	require.True(t, foundAccepted)
	require.True(t, foundCompleted)
}

func TestSession_DuplicateExecutionIDRejected(t *testing.T) {
	pipeline := map[string]any{
		"sources": []any{},
		"stages": []any{
			[]any{map[string]any{"name": "totals", "query": "SELECT 1 AS n"}},
		},
	}
	raw, err := json.Marshal(pipeline)
	require.NoError(t, err)

	req := protocol.ExecuteRequest{
		Pipeline:    protocol.PipelineDoc{Format: "json", Text: string(raw)},
		ExecutionID: "fixed-id",
	}

	transport := &fakeTransport{inbound: [][]byte{
		encodeFrame(t, protocol.TypeExecuteRequest, req),
		encodeFrame(t, protocol.TypeExecuteRequest, req),
	}}
	srv := newTestServer()
	sess := newSession(transport, srv.controller, srv.cfg, srv.logger)

	go sess.run(context.Background())

	require.Eventually(t, func() bool {
		return containsType(t, transport.frames(), protocol.TypeRejected)
	}, 2*time.Second, 10*time.Millisecond)

	transport.Close()
}

func containsType(t *testing.T, frames [][]byte, want string) bool {
	t.Helper()
	for _, ty := range typesOf(t, frames) {
		if ty == want {
			return true
		}
	}
	return false
}
