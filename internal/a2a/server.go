package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nswprep/examgen/internal/logging"
)

// Agent is the handler side of a service. Handle receives the decoded
// action discriminator together with the raw payload bytes and returns a
// value that marshals to the response payload. A returned error becomes a
// failed task with an in-band {"success":false,"error":...} body.
type Agent interface {
	Card() AgentCard
	Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error)
}

// Server hosts one agent behind the JSON-RPC envelope endpoint.
type Server struct {
	agent  Agent
	port   int
	log    *logging.Logger
	access zerolog.Logger
	srv    *http.Server
}

// NewServer wraps an agent in an HTTP server on the given port.
func NewServer(agent Agent, port int, access zerolog.Logger) *Server {
	return NewServerWithExtra(agent, port, access, nil)
}

// NewServerWithExtra additionally mounts a fallback handler for requests
// outside the task protocol, letting a role expose a REST surface on the
// same port.
func NewServerWithExtra(agent Agent, port int, access zerolog.Logger, extra http.Handler) *Server {
	s := &Server{
		agent:  agent,
		port:   port,
		log:    logging.Global().WithComponent(agent.Card().Name),
		access: access,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/agent.json", s.handleCard)
	mux.HandleFunc("POST /{$}", s.handleTask)
	if extra != nil {
		mux.Handle("/", extra)
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.accessLog(mux),
	}
	return s
}

// Handler exposes the server's HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe runs the server until the context is canceled or the
// listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on :%d", s.port)
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.access.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.agent.Card())
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, NewErrorResponse(0, CodeParseError, "invalid JSON-RPC request"))
		return
	}
	if req.JSONRPC != "2.0" || req.Params == nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidRequest, "missing params"))
		return
	}

	text := req.Params.Message.Text()
	s.log.Debug("task %d submitted", req.ID)

	raw := json.RawMessage(text)
	action, err := DecodeAction(raw)
	if err != nil {
		// Malformed payloads are a domain-level failure: the envelope was
		// fine, so the task completes with an in-band error body.
		s.writeResponse(w, NewResponse(req.ID, StateCompleted, ErrorPayload("Invalid JSON in task message")))
		return
	}
	if action == "" {
		action = req.Method
	}

	s.log.Debug("task %d working: %s", req.ID, action)
	result, err := s.agent.Handle(r.Context(), action, raw)
	if err != nil {
		s.log.Error("task %d failed: %v", req.ID, err)
		s.writeResponse(w, NewResponse(req.ID, StateFailed, ErrorPayload(err.Error())))
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, "marshaling result"))
		return
	}
	s.log.Debug("task %d completed", req.ID)
	s.writeResponse(w, NewResponse(req.ID, StateCompleted, string(payload)))
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("writing response: %v", err)
	}
}

// UnknownAction is the canonical handler result for an unsupported action.
func UnknownAction(action string) interface{} {
	return ErrorBody{Success: false, Error: fmt.Sprintf("Unknown action: %s", action)}
}
