// Package protocol defines the typed bidirectional wire messages
// exchanged between a remote client and the executor service, and their
// envelope encoding, grounded on aqueducts-executor/src/api's message
// set (adapted here to the richer session/auth model of this
// implementation's executor service).
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// ProtocolVersion is advertised in Welcome and is bumped whenever a
// message shape changes incompatibly.
const ProtocolVersion = 1

// Envelope is the self-describing `{type, payload}` wire format every
// message is encoded as.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals any client or server message into its envelope form.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Payload: raw}
	return json.Marshal(env)
}

// Decode splits a raw frame into its envelope; callers then switch on
// Type and unmarshal Payload into the matching struct.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// Client -> Server message types.
const (
	TypeHello          = "hello"
	TypeExecuteRequest = "execute_request"
	TypeCancelRequest  = "cancel_request"
	TypePing           = "ping"
)

// Server -> Client message types.
const (
	TypeWelcome      = "welcome"
	TypeAccepted     = "accepted"
	TypeQueuePosition = "queue_position"
	TypeEvent        = "event"
	TypeRejected     = "rejected"
	TypePong         = "pong"
)

// Hello is sent once by the client immediately after the handshake.
type Hello struct {
	ClientVersion string `json:"client_version"`
}

// ExecuteRequest submits a pipeline for execution. ExecutionID is
// caller-supplied and optional; when empty the server generates one.
type ExecuteRequest struct {
	Pipeline    PipelineDoc `json:"pipeline"`
	ExecutionID string      `json:"execution_id,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// PipelineDoc carries a pipeline document verbatim (format + raw text)
// so the server performs its own render/parse rather than trusting a
// pre-parsed structure from the wire.
type PipelineDoc struct {
	Format string `json:"format"` // "yaml" | "json" | "toml"
	Text   string `json:"text"`
}

// CancelRequest cancels a running or queued execution. ExecutionID is
// optional; when empty it cancels the sender's own most recent request.
type CancelRequest struct {
	ExecutionID string `json:"execution_id,omitempty"`
}

// Ping / Pong are liveness probes.
type Ping struct{}
type Pong struct{}

// Welcome is the server's handshake reply.
type Welcome struct {
	ExecutorID      string `json:"executor_id"`
	ProtocolVersion int    `json:"protocol_version"`
}

// Accepted acknowledges an ExecuteRequest and reports its initial queue
// position (0 means immediately admitted to the slot).
type Accepted struct {
	ExecutionID   string `json:"execution_id"`
	QueuePosition int    `json:"queue_position"`
}

// QueuePosition reports a waiting job's updated position.
type QueuePosition struct {
	ExecutionID string `json:"execution_id"`
	Position    int    `json:"position"`
}

// EventMessage wraps any progress.Event for a given execution.
type EventMessage struct {
	ExecutionID string         `json:"execution_id"`
	Event       EncodedEvent   `json:"event"`
}

// EncodedEvent is the wire-safe rendering of progress.Event.
type EncodedEvent struct {
	Kind            string             `json:"kind"`
	RunID           string             `json:"run_id,omitempty"`
	SourceName      string             `json:"source_name,omitempty"`
	StageName       string             `json:"stage_name,omitempty"`
	LevelIdx        int                `json:"level_idx,omitempty"`
	SubIdx          int                `json:"sub_idx,omitempty"`
	DurationMS      int64              `json:"duration_ms,omitempty"`
	Columns         []string           `json:"columns,omitempty"`
	Rows            [][]any            `json:"rows,omitempty"`
	Batch           int                `json:"batch,omitempty"`
	Schema          []aqmodel.Field    `json:"schema,omitempty"`
	PlanText        string             `json:"plan_text,omitempty"`
	DestinationName string             `json:"destination_name,omitempty"`
	RowsWritten     int64              `json:"rows_written,omitempty"`
	ErrorCategory   string             `json:"error_category,omitempty"`
	Message         string             `json:"message,omitempty"`
	Position        int                `json:"position,omitempty"`
}

// EncodeEvent converts a progress.Event into its wire form.
func EncodeEvent(e progress.Event) EncodedEvent {
	return EncodedEvent{
		Kind:            string(e.Kind),
		RunID:           e.RunID,
		SourceName:      e.SourceName,
		StageName:       e.StageName,
		LevelIdx:        e.LevelIdx,
		SubIdx:          e.SubIdx,
		DurationMS:      e.DurationMS,
		Columns:         e.Columns,
		Rows:            e.Rows,
		Batch:           e.Batch,
		Schema:          e.Schema,
		PlanText:        e.PlanText,
		DestinationName: e.DestinationName,
		RowsWritten:     e.RowsWritten,
		ErrorCategory:   e.ErrorCategory,
		Message:         e.Message,
		Position:        e.Position,
	}
}

// DecodeEvent converts a wire event back into a progress.Event.
func DecodeEvent(e EncodedEvent) progress.Event {
	return progress.Event{
		Kind:            progress.EventKind(e.Kind),
		RunID:           e.RunID,
		SourceName:      e.SourceName,
		StageName:       e.StageName,
		LevelIdx:        e.LevelIdx,
		SubIdx:          e.SubIdx,
		DurationMS:      e.DurationMS,
		Columns:         e.Columns,
		Rows:            e.Rows,
		Batch:           e.Batch,
		Schema:          e.Schema,
		PlanText:        e.PlanText,
		DestinationName: e.DestinationName,
		RowsWritten:     e.RowsWritten,
		ErrorCategory:   e.ErrorCategory,
		Message:         e.Message,
		Position:        e.Position,
	}
}

// RejectReason discriminates why the server refused an ExecuteRequest
// instead of admitting it; the session stays open after a rejection.
type RejectReason string

const (
	RejectUnauthenticated    RejectReason = "unauthenticated"
	RejectQueueFull          RejectReason = "queue_full"
	RejectDuplicateExecution RejectReason = "duplicate_execution"
)

// Rejected is sent when the server refuses a request outright.
type Rejected struct {
	Reason          RejectReason `json:"reason"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
	Message         string       `json:"message,omitempty"`
}
