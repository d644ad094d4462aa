// Package api serves the orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/logger"
	"github.com/codefionn/concierge/internal/orchestrator"
	"github.com/codefionn/concierge/internal/progress"
	"github.com/codefionn/concierge/internal/tools"
)

const maxRequestBody = 1 << 20

// Runner handles one request.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) *orchestrator.Result
}

// ToolLister lists the currently registered tools.
type ToolLister interface {
	ListAvailable() []tools.Info
}

// Server provides the HTTP interface of the orchestrator
type Server struct {
	runner  Runner
	tools   ToolLister
	addr    string
	metrics http.Handler
	server  *http.Server
	router  *httprouter.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a new API server
func NewServer(runner Runner, lister ToolLister, addr string, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		tools:  lister,
		addr:   addr,
		router: httprouter.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/v1/tools", s.handleTools)
	s.router.POST("/v1/requests", s.handleRequest)
	if s.metrics != nil {
		s.router.Handler(http.MethodGet, "/metrics", s.metrics)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("api: listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, consts.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// RequestPayload is the body of POST /v1/requests.
type RequestPayload struct {
	Text       string                           `json:"text"`
	Model      string                           `json:"model,omitempty"`
	SessionKey string                           `json:"session_key,omitempty"`
	Artifacts  []artifacts.Artifact             `json:"artifacts,omitempty"`
	History    []orchestrator.ConversationEntry `json:"history,omitempty"`
}

// StreamEvent is one NDJSON line of a streamed request.
type StreamEvent struct {
	Type    string               `json:"type"` // progress or result
	Kind    progress.Kind        `json:"kind,omitempty"`
	Message string               `json:"message,omitempty"`
	StepID  string               `json:"step_id,omitempty"`
	Result  *orchestrator.Result `json:"result,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("api: failed to write response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	infos := s.tools.ListAvailable()
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filtered := make([]tools.Info, 0, len(infos))
		for _, info := range infos {
			if strings.EqualFold(info.Category, category) {
				filtered = append(filtered, info)
			}
		}
		infos = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": infos})
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload RequestPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return
	}

	req := orchestrator.Request{
		Text:       payload.Text,
		Model:      payload.Model,
		SessionKey: payload.SessionKey,
		Artifacts:  payload.Artifacts,
		History:    payload.History,
	}

	if r.URL.Query().Get("stream") != "true" {
		writeJSON(w, http.StatusOK, s.runner.Run(r.Context(), req))
		return
	}
	s.stream(w, r, req)
}

// stream writes progress updates as NDJSON and ends with the result.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	var mu sync.Mutex
	enc := json.NewEncoder(w)
	emit := func(ev StreamEvent) error {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	req.Progress = func(u progress.Update) error {
		return emit(StreamEvent{Type: "progress", Kind: u.Kind, Message: u.Message, StepID: u.StepID})
	}
	result := s.runner.Run(r.Context(), req)
	if err := emit(StreamEvent{Type: "result", Result: result}); err != nil {
		logger.Debug("api: failed to write result: %v", err)
	}
}
