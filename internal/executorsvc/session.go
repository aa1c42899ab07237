// Package executorsvc implements the C10 executor service: the
// session actor that owns one client's WebSocket connection, the
// single-slot execution queue shared across all sessions, and the
// chi-routed HTTP surface (/ws/connect, /api/health) that fronts them.
package executorsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/config"
	"github.com/aqueducts-go/aqueducts/internal/docformat"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/protocol"
	"github.com/aqueducts-go/aqueducts/internal/runner"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
	"github.com/aqueducts-go/aqueducts/pkg/template"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// transport is the minimal surface session needs from a websocket
// connection, letting tests drive the actor without a real socket.
type transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// session is the per-connection actor described in §4.10: it owns an
// inbound read loop and an outbound send queue, tracks every execution
// it has submitted to the shared queue controller, and tears all of
// them down on disconnect.
type session struct {
	conn       transport
	controller *queueController
	cfg        config.Executor
	logger     *slog.Logger

	send chan []byte

	mu          sync.Mutex
	owned       map[string]struct{}
	lastSubmitted string
}

func newSession(conn transport, controller *queueController, cfg config.Executor, logger *slog.Logger) *session {
	return &session{
		conn:       conn,
		controller: controller,
		cfg:        cfg,
		logger:     logger,
		send:       make(chan []byte, 64),
		owned:      make(map[string]struct{}),
	}
}

// SendEvent implements progress.OutboundSink, letting a ChannelBridge
// push a running execution's events onto this session's socket without
// ever holding a reference to it.
func (s *session) SendEvent(executionID string, e progress.Event) {
	frame, err := protocol.Encode(protocol.TypeEvent, protocol.EventMessage{
		ExecutionID: executionID,
		Event:       protocol.EncodeEvent(e),
	})
	if err != nil {
		s.logger.Error("encoding event", "execution_id", executionID, "error", err)
		return
	}
	s.send <- frame
}

// run drives the session until the connection closes: a writer
// goroutine drains s.send onto the socket while the calling goroutine
// reads and dispatches inbound frames.
func (s *session) run(ctx context.Context) {
	done := make(chan struct{})
	go s.writeLoop(done)
	defer close(done)
	defer s.cancelOwned()
	defer func() { _ = s.conn.Close() }()

	welcome, _ := protocol.Encode(protocol.TypeWelcome, protocol.Welcome{
		ExecutorID:      s.cfg.ExecutorID,
		ProtocolVersion: protocol.ProtocolVersion,
	})
	s.send <- welcome

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := s.dispatch(ctx, frame); err != nil {
			s.logger.Warn("dispatching inbound frame", "error", err)
		}
	}
}

func (s *session) writeLoop(done <-chan struct{}) {
	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *session) dispatch(ctx context.Context, frame []byte) error {
	env, err := protocol.Decode(frame)
	if err != nil {
		return err
	}

	switch env.Type {
	case protocol.TypeHello:
		// No session state keyed off the client version today; the
		// handshake exists for future compatibility negotiation.
		return nil
	case protocol.TypePing:
		pong, err := protocol.Encode(protocol.TypePong, protocol.Pong{})
		if err != nil {
			return err
		}
		s.send <- pong
		return nil
	case protocol.TypeExecuteRequest:
		var req protocol.ExecuteRequest
		if err := unmarshalPayload(env, &req); err != nil {
			return err
		}
		s.handleExecuteRequest(ctx, req)
		return nil
	case protocol.TypeCancelRequest:
		var req protocol.CancelRequest
		if err := unmarshalPayload(env, &req); err != nil {
			return err
		}
		s.handleCancelRequest(req)
		return nil
	default:
		return aqerr.NewProtocolError("framing", "unrecognised message type "+env.Type, nil)
	}
}

func (s *session) handleExecuteRequest(ctx context.Context, req protocol.ExecuteRequest) {
	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}

	s.mu.Lock()
	_, duplicate := s.owned[executionID]
	s.mu.Unlock()
	if duplicate {
		s.reject(protocol.RejectDuplicateExecution, "an execution with this id is already owned by this session", 0)
		return
	}

	pipeline, err := parsePipeline(req)
	if err != nil {
		s.send <- s.terminalFrame(executionID, err)
		return
	}

	// accepted gates the submitted job: tryAdvance may promote it into
	// the slot and start running it on another goroutine before this
	// one gets back from Submit, so the job itself waits on this
	// channel to guarantee the Accepted frame reaches s.send first.
	accepted := make(chan struct{})
	position, updates, ok := s.controller.Submit(executionID, func(runCtx context.Context) {
		<-accepted
		s.runPipeline(runCtx, executionID, pipeline)
	})
	if !ok {
		s.reject(protocol.RejectQueueFull, "the executor's queue is at capacity", 30)
		return
	}

	s.mu.Lock()
	s.owned[executionID] = struct{}{}
	s.lastSubmitted = executionID
	s.mu.Unlock()

	frame, _ := protocol.Encode(protocol.TypeAccepted, protocol.Accepted{
		ExecutionID:   executionID,
		QueuePosition: position,
	})
	s.send <- frame
	close(accepted)

	go s.forwardQueuePositions(updates)
}

// forwardQueuePositions relays position updates for a still-queued job
// onto the socket until it is promoted into the slot or cancelled,
// either of which closes the controller's listener channel for it.
func (s *session) forwardQueuePositions(updates <-chan protocol.QueuePosition) {
	for update := range updates {
		frame, err := protocol.Encode(protocol.TypeQueuePosition, update)
		if err != nil {
			continue
		}
		s.send <- frame
	}
}

func (s *session) runPipeline(ctx context.Context, executionID string, pipeline aqmodel.Pipeline) {
	sqlCfg := sqlctx.Config{
		MemoryLimitBytes: s.cfg.MemoryLimitBytes(),
		Logger:           s.logger,
	}
	tracker := progress.ChannelBridge{ExecutionID: executionID, Sink: s}
	_, _ = runner.Run(ctx, pipeline, sqlCfg, tracker)

	s.mu.Lock()
	delete(s.owned, executionID)
	s.mu.Unlock()
}

func (s *session) handleCancelRequest(req protocol.CancelRequest) {
	id := req.ExecutionID
	if id == "" {
		s.mu.Lock()
		id = s.lastSubmitted
		s.mu.Unlock()
	}
	if id == "" {
		return
	}
	s.controller.Cancel(id)
}

// cancelOwned cancels every execution this session submitted, whether
// still queued or occupying the slot, the moment the connection drops.
func (s *session) cancelOwned() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.owned))
	for id := range s.owned {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.controller.Cancel(id)
	}
}

func (s *session) reject(reason protocol.RejectReason, message string, retryAfter int) {
	frame, _ := protocol.Encode(protocol.TypeRejected, protocol.Rejected{
		Reason:            reason,
		Message:           message,
		RetryAfterSeconds: retryAfter,
	})
	s.send <- frame
}

// terminalFrame wraps a pre-execution failure (parse, template,
// validation) as the same Failed event shape a runner.Run terminal
// event would carry, so the client's event handling path is uniform
// regardless of how early an execution died.
func (s *session) terminalFrame(executionID string, err error) []byte {
	frame, _ := protocol.Encode(protocol.TypeEvent, protocol.EventMessage{
		ExecutionID: executionID,
		Event: protocol.EncodeEvent(progress.Event{
			Kind:          progress.EventFailed,
			ErrorCategory: aqerr.Category(err),
			Message:       err.Error(),
		}),
	})
	return frame
}

func parsePipeline(req protocol.ExecuteRequest) (aqmodel.Pipeline, error) {
	format := docformat.Format(req.Pipeline.Format)
	rendered, err := template.Render(req.Pipeline.Text, req.Params)
	if err != nil {
		return aqmodel.Pipeline{}, err
	}

	return docformat.Parse(format, rendered)
}

func unmarshalPayload(env protocol.Envelope, dst any) error {
	return json.Unmarshal(env.Payload, dst)
}
