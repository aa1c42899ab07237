// Package remoteclient implements the C11 remote client: it dials an
// executor service's WebSocket endpoint, submits one pipeline at a
// time, and replays the events it receives onto a local
// progress.Tracker exactly as if the pipeline had run in process,
// grounded on aqueducts-cli/src/websocket_client.rs's WebSocketClient.
package remoteclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/protocol"
)

const apiKeyHeader = "X-API-Key"

// Client holds one WebSocket session to an executor. It is not safe
// for concurrent Run calls; each Run owns the connection until its
// pipeline reaches a terminal state.
type Client struct {
	conn *websocket.Conn
}

// Dial opens an authenticated session to addr ("host:port") and
// completes the hello handshake. The API key is never retained beyond
// this call, never logged, and never appears in a returned error.
func Dial(ctx context.Context, addr, apiKey string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/connect"}
	header := http.Header{apiKeyHeader: []string{apiKey}}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, aqerr.NewProtocolError("auth", "executor rejected the api key", nil)
		}
		return nil, aqerr.NewProtocolError("transport", fmt.Sprintf("dialing executor at %s", addr), err)
	}

	c := &Client{conn: conn}
	if err := c.writeFrame(protocol.TypeHello, protocol.Hello{ClientVersion: ProtocolClientVersion}); err != nil {
		_ = conn.Close()
		return nil, aqerr.NewProtocolError("transport", "sending hello", err)
	}
	return c, nil
}

// ProtocolClientVersion is reported in every Hello handshake.
const ProtocolClientVersion = "aqueducts-go/1"

// Close tears down the underlying connection without attempting a
// graceful WebSocket close handshake. Run does not close the
// connection itself; Close releases it, and also unblocks a read loop
// stuck mid-cancellation.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Cancel sends a standalone CancelRequest over an otherwise idle
// connection — used by a CLI invocation that didn't itself submit the
// execution and so has no Run call draining a response. The executor's
// queue controller is shared across every session, so this reaches the
// same execution regardless of which connection sent the original
// ExecuteRequest.
func (c *Client) Cancel(executionID string) error {
	if err := c.writeFrame(protocol.TypeCancelRequest, protocol.CancelRequest{ExecutionID: executionID}); err != nil {
		return aqerr.NewProtocolError("transport", "sending cancel request", err)
	}
	return nil
}

// Result is returned by Run once the executor reports a terminal
// event for the submitted execution.
type Result struct {
	ExecutionID string
	RowsWritten int64
}

// RemoteError wraps a terminal Failed event reported by the executor.
// It carries only what crossed the wire: a taxonomy category name and
// a message, not the concrete aqerr type that produced them on the
// executor side.
type RemoteError struct {
	Category string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Run submits doc for execution, optionally under a caller-supplied
// id (empty lets the executor mint one), and blocks until a terminal
// event arrives, forwarding every event onto tracker as it is
// received. If ctx is cancelled before that happens, Run sends a
// CancelRequest and keeps draining until the executor confirms
// cancellation or the connection drops.
//
// A transport failure returns immediately; per the remote execution
// model, it is not retried here, since the executor's own queue and
// slot state for this execution id are now unknown to the caller.
func (c *Client) Run(ctx context.Context, executionID string, doc protocol.PipelineDoc, params map[string]string, tracker progress.Tracker) (Result, error) {
	if tracker == nil {
		tracker = progress.Null{}
	}

	if err := c.writeFrame(protocol.TypeExecuteRequest, protocol.ExecuteRequest{
		Pipeline:    doc,
		ExecutionID: executionID,
		Params:      params,
	}); err != nil {
		return Result{}, aqerr.NewProtocolError("transport", "sending execute request", err)
	}

	type inbound struct {
		env protocol.Envelope
		err error
	}
	frames := make(chan inbound, 16)
	go func() {
		for {
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				frames <- inbound{err: err}
				return
			}
			env, err := protocol.Decode(raw)
			frames <- inbound{env: env, err: err}
			if err != nil {
				return
			}
		}
	}()

	result := Result{ExecutionID: executionID}
	cancelSent := false
	ctxDone := ctx.Done()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ping.C:
			_ = c.writeFrame(protocol.TypePing, protocol.Ping{})

		case <-ctxDone:
			ctxDone = nil
			if !cancelSent {
				cancelSent = true
				_ = c.writeFrame(protocol.TypeCancelRequest, protocol.CancelRequest{ExecutionID: result.ExecutionID})
			}

		case msg := <-frames:
			if msg.err != nil {
				return result, aqerr.NewProtocolError("transport", "connection lost while awaiting execution result", msg.err)
			}

			switch msg.env.Type {
			case protocol.TypeWelcome, protocol.TypePong:
				continue

			case protocol.TypeAccepted:
				var a protocol.Accepted
				if err := json.Unmarshal(msg.env.Payload, &a); err != nil {
					continue
				}
				result.ExecutionID = a.ExecutionID
				tracker.OnEvent(progress.Event{Kind: progress.EventQueuePosition, Position: a.QueuePosition})

			case protocol.TypeQueuePosition:
				var p protocol.QueuePosition
				if err := json.Unmarshal(msg.env.Payload, &p); err != nil {
					continue
				}
				tracker.OnEvent(progress.Event{Kind: progress.EventQueuePosition, Position: p.Position})

			case protocol.TypeRejected:
				var rej protocol.Rejected
				if err := json.Unmarshal(msg.env.Payload, &rej); err != nil {
					return result, aqerr.NewProtocolError("framing", "decoding rejected message", err)
				}
				return result, rejectionError(rej)

			case protocol.TypeEvent:
				var m protocol.EventMessage
				if err := json.Unmarshal(msg.env.Payload, &m); err != nil {
					continue
				}
				event := protocol.DecodeEvent(m.Event)
				tracker.OnEvent(event)
				if event.Kind == progress.EventDestinationCompleted {
					result.RowsWritten = event.RowsWritten
				}
				if err, terminal := terminalError(event); terminal {
					return result, err
				}

			default:
				continue
			}
		}
	}
}

// terminalError reports whether e ends the execution and, if so, the
// error Run should return for it (nil on a clean Completed event).
func terminalError(e progress.Event) (err error, terminal bool) {
	switch e.Kind {
	case progress.EventCompleted:
		return nil, true
	case progress.EventCancelled:
		return aqerr.NewCancelledError(e.RunID), true
	case progress.EventFailed:
		return &RemoteError{Category: e.ErrorCategory, Message: e.Message}, true
	default:
		return nil, false
	}
}

func rejectionError(r protocol.Rejected) error {
	switch r.Reason {
	case protocol.RejectUnauthenticated:
		return aqerr.NewProtocolError("auth", r.Message, nil)
	case protocol.RejectQueueFull:
		return aqerr.NewProtocolError("queue_full", r.Message, nil)
	case protocol.RejectDuplicateExecution:
		return aqerr.NewProtocolError("duplicate_execution", r.Message, nil)
	default:
		return aqerr.NewProtocolError("framing", string(r.Reason)+": "+r.Message, nil)
	}
}

func (c *Client) writeFrame(msgType string, payload any) error {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// pingInterval is the period at which Run sends a Ping while it waits
// for an execution's events, keeping a long-running call alive against
// idle-connection timeouts.
const pingInterval = 20 * time.Second
