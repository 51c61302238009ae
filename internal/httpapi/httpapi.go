// Package httpapi is the external-interface binding for the gateway core
// (spec §6): it exposes the Dispatcher's UI-facing operations as JSON
// endpoints and the Event Bus as a Server-Sent Events stream. In the source
// product this role is played by an IPC bridge inside a desktop shell; here
// it is a local HTTP server, grounded on the teacher's
// internal/server/server.go router assembly and internal/server/gateway.go
// SSE-writing pattern.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/rakunlabs/ada"
	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"

	"github.com/deskllm/gateway/internal/catalog"
	"github.com/deskllm/gateway/internal/dispatcher"
)

// Server binds the Dispatcher to a local HTTP listener.
type Server struct {
	cfg  Config
	mux  *ada.Server
	disp *dispatcher.Dispatcher
}

// Config is the subset of process settings this binding needs.
type Config struct {
	Host string
	Port string
}

// New assembles the router: recover/cors/requestid/log middleware (teacher's
// server.go stack, minus the cluster/telemetry/forward-auth concerns this
// desktop-local core has no use for), then the seven UI-facing operations
// plus the SSE event stream.
func New(cfg Config, disp *dispatcher.Dispatcher) *Server {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
	)

	s := &Server{cfg: cfg, mux: mux, disp: disp}

	api := mux.Group("/api/v1")
	api.POST("/streams", s.startStream)
	api.POST("/streams/*", s.cancelStream)
	api.POST("/providers/test", s.testConnection)
	api.GET("/config", s.loadConfig)
	api.PUT("/config", s.saveConfig)
	api.POST("/config/default", s.setDefaultProvider)
	api.GET("/config/path", s.configPath)
	api.GET("/events", s.events)

	return s
}

// Start runs the listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.mux.StartWithContext(ctx, net.JoinHostPort(s.cfg.Host, s.cfg.Port))
}

type startStreamRequest struct {
	Provider catalog.Record    `json:"provider"`
	Prompts  catalog.PromptPair `json:"prompts"`
}

type startStreamResponse struct {
	StreamID catalog.StreamID `json:"stream_id"`
}

func (s *Server) startStream(w http.ResponseWriter, r *http.Request) {
	var req startStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "invalid request body: " + err.Error()})
		return
	}

	id, err := s.disp.StartStream(req.Provider, req.Prompts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startStreamResponse{StreamID: id})
}

// cancelStream handles POST /api/v1/streams/{id}. The id is extracted
// manually from the URL path (teacher's api_tokens.go extractAPITokenID
// pattern), not via a named route parameter.
func (s *Server) cancelStream(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/streams/"
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	s.disp.CancelStream(catalog.StreamID(id))
	writeJSON(w, http.StatusOK, responseMessage{Message: "cancelled"})
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	var rec catalog.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.disp.TestConnection(rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseMessage{Message: "ok"})
}

func (s *Server) loadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.disp.LoadConfig()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg catalog.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.disp.SaveConfig(cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseMessage{Message: "saved"})
}

type setDefaultRequest struct {
	Name string `json:"name"`
}

func (s *Server) setDefaultProvider(w http.ResponseWriter, r *http.Request) {
	var req setDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.disp.SetDefaultProvider(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseMessage{Message: "default set"})
}

func (s *Server) configPath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"path": s.disp.ConfigPath()})
}

// events handles GET /api/v1/events, the Event Bus subscription (spec §4.6):
// a long-lived SSE connection fanning out every catalog.Event published on
// "llm-stream". The UI filters by stream_id on receipt. Grounded on the
// teacher's writeSSEChunk/handleStreamingChat pattern in
// internal/server/gateway.go.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, &catalog.Error{Kind: catalog.ErrNetworkError, Message: "streaming not supported by this server"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	key, ch := s.disp.Bus().Subscribe()
	defer s.disp.Bus().Unsubscribe(key)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type responseMessage struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// errorResponse mirrors the taxonomy in spec §7: the kind is surfaced as a
// stable machine-readable string, message as the human-readable detail.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	kind, ok := catalog.KindOf(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Kind: "internal", Message: err.Error()})
		return
	}
	writeJSON(w, statusFor(kind), errorResponse{Kind: string(kind), Message: err.Error()})
}

// statusFor maps the error taxonomy (spec §7) to an HTTP status for the
// JSON operation endpoints. Session-local errors (ProviderError,
// ProtocolError, UnexpectedEnd, NetworkError) never reach here in practice —
// they surface as terminal NormalizedEvents on the bus instead — but a
// status is still assigned for completeness. test_connection reports any
// failed probe synchronously as ErrProviderError.
func statusFor(kind catalog.ErrKind) int {
	switch kind {
	case catalog.ErrConfigMissing:
		return http.StatusNotFound
	case catalog.ErrConfigInvalid, catalog.ErrInvalidConfig:
		return http.StatusBadRequest
	case catalog.ErrUnknownProvider:
		return http.StatusNotFound
	case catalog.ErrConfigIO, catalog.ErrNetworkError:
		return http.StatusBadGateway
	case catalog.ErrProviderError:
		return http.StatusBadGateway
	case catalog.ErrProtocolError, catalog.ErrUnexpectedEnd:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
