// Package a2a implements the inter-service transport: JSON-RPC 2.0
// envelopes carrying JSON payloads in message text parts, the agent
// descriptor served at /.well-known/agent.json, and the client/server
// pair every examgen service is built on.
package a2a

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a task on the serving side.
type TaskState string

const (
	StateSubmitted TaskState = "submitted"
	StateWorking   TaskState = "working"
	StateCompleted TaskState = "completed"
	StateFailed    TaskState = "failed"
	StateCanceled  TaskState = "canceled"
)

// Part is a single content part of a message. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Message is the payload carrier inside an envelope.
type Message struct {
	Role      string `json:"role"`
	MessageID string `json:"message_id"`
	Parts     []Part `json:"parts"`
}

// NewMessage builds a message with a fresh 128-bit message id.
func NewMessage(role, text string) Message {
	return Message{
		Role:      role,
		MessageID: uuid.NewString(),
		Parts:     []Part{{Text: text}},
	}
}

// Text returns the first text part, or "".
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return ""
	}
	return m.Parts[0].Text
}

// Params is the request side of the envelope.
type Params struct {
	Message  Message                `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Status reports a task's state and, once finished, its response message.
type Status struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Result is the response side of the envelope.
type Result struct {
	Status Status `json:"status"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC error codes used on the wire.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request envelope.
type Request struct {
	JSONRPC string  `json:"jsonrpc"`
	ID      int     `json:"id"`
	Method  string  `json:"method"`
	Params  *Params `json:"params,omitempty"`
}

// Response is a JSON-RPC response envelope.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  *Result   `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// NewRequest wraps a payload string in a request envelope. The method is
// the skill/action name being invoked on the peer.
func NewRequest(id int, method, payload string, metadata map[string]interface{}) *Request {
	return &Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params: &Params{
			Message:  NewMessage("user", payload),
			Metadata: metadata,
		},
	}
}

// NewResponse wraps a payload string in a completed (or failed) response
// envelope matching the request's correlation id.
func NewResponse(id int, state TaskState, payload string) *Response {
	msg := NewMessage("agent", payload)
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  &Result{Status: Status{State: state, Message: &msg}},
	}
}

// NewErrorResponse builds a JSON-RPC error envelope. Only transport
// problems use this path; domain errors travel in-band in the payload.
func NewErrorResponse(id, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// actionProbe extracts the required action discriminator from a payload.
type actionProbe struct {
	Action string `json:"action"`
}

// DecodeAction parses an inner payload and returns its action field.
func DecodeAction(raw []byte) (string, error) {
	var p actionProbe
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	return p.Action, nil
}

// ErrorBody is the canonical in-band failure payload.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrorPayload renders an in-band failure as JSON text.
func ErrorPayload(msg string) string {
	b, _ := json.Marshal(ErrorBody{Success: false, Error: msg})
	return string(b)
}
