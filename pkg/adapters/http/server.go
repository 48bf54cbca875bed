package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/runner"
	"github.com/aretw0/conserje/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines the part of the concierge engine the HTTP API exposes.
type Engine interface {
	Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error)
	FollowUp(ctx context.Context, req domain.FollowUpRequest) (*domain.FollowUpResponse, error)
	Menu(category domain.Category, profile, intent string, guests int) ([]domain.MenuEntry, error)
}

// catalogVersioner is implemented by engines that expose their catalog.
type catalogVersioner interface {
	Catalog() *domain.Catalog
}

// Server implements ServerInterface.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager

	gatherer  prometheus.Gatherer
	validator *requestValidator
	logger    *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithSessions sets the session manager behind /v1/sessions.
// Defaults to an in-memory store.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithMetrics exposes the given gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestValidation checks request bodies and parameters against openapi.yaml.
func WithRequestValidation() Option {
	return func(s *Server) {
		v, err := newRequestValidator()
		if err != nil {
			s.logger.Error("Request validation disabled", "err", err)
			return
		}
		s.validator = v
	}
}

// NewServer creates a Server for the engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Sessions == nil {
		s.Sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.validator != nil {
		r.Use(s.validateRequests)
	}

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			s.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	handler := HandlerFromMux(s, r)
	return enableCORS(handler)
}

// NotifyReload tells subscribers of /v1/events that a new catalog version is live.
func (s *Server) NotifyReload(version string) {
	s.Streams.Broadcast(globalStream, "reload:"+version)
}

func (s *Server) validateRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.validator.validate(r.Context(), r); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			s.logger.Warn("Request rejected by schema", "path", r.URL.Path, "err", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="es">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Conserje API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// PostTurn handles the POST /v1/turn request.
func (s *Server) PostTurn(w http.ResponseWriter, r *http.Request) {
	var body domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostTurn: Invalid request body", "err", err)
		return
	}

	message, ok := s.sanitize(w, "PostTurn", body.Message)
	if !ok {
		return
	}
	body.Message = message

	resp, err := s.Engine.Turn(r.Context(), body)
	if err != nil {
		s.turnError(w, "PostTurn", err)
		return
	}
	s.writeJSON(w, "PostTurn", http.StatusOK, resp)
}

// PostFollowUp handles the POST /v1/followup request.
func (s *Server) PostFollowUp(w http.ResponseWriter, r *http.Request) {
	var body domain.FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostFollowUp: Invalid request body", "err", err)
		return
	}

	resp, err := s.Engine.FollowUp(r.Context(), body)
	switch {
	case errors.Is(err, domain.ErrUnknownSlot):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, fmt.Sprintf("FollowUp error: %v", err), http.StatusInternalServerError)
		s.logger.Error("FollowUp failed", "err", err)
		return
	}
	s.writeJSON(w, "PostFollowUp", http.StatusOK, resp)
}

// GetMenu handles the GET /v1/menu request.
func (s *Server) GetMenu(w http.ResponseWriter, r *http.Request, params MenuParams) {
	var (
		category        domain.Category
		profile, intent string
		guests          int
	)
	if params.Category != nil {
		category = domain.Category(*params.Category)
	}
	if params.Profile != nil {
		profile = *params.Profile
	}
	if params.Intent != nil {
		intent = *params.Intent
	}
	if params.Guests != nil {
		guests = *params.Guests
	}

	entries, err := s.Engine.Menu(category, profile, intent, guests)
	if errors.Is(err, domain.ErrNoMatchingRoom) {
		s.writeJSON(w, "GetMenu", http.StatusOK, MenuResponse{Menu: []domain.MenuEntry{}, NoMatch: true, Notice: conserje.NoRoomsNotice})
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Menu error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Menu failed", "err", err)
		return
	}
	s.writeJSON(w, "GetMenu", http.StatusOK, MenuResponse{Menu: entries})
}

// GetSession handles the GET /v1/sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Session load failed", "session_id", id, "err", err)
		return
	}
	s.writeJSON(w, "GetSession", http.StatusOK, sess)
}

// DeleteSession handles the DELETE /v1/sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Session delete failed", "session_id", id, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostSessionTurn handles the POST /v1/sessions/{id}/turn request.
func (s *Server) PostSessionTurn(w http.ResponseWriter, r *http.Request, id string) {
	var body SessionTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostSessionTurn: Invalid request body", "err", err)
		return
	}
	message, ok := s.sanitize(w, "PostSessionTurn", body.Message)
	if !ok {
		return
	}
	if body.Source == "" {
		body.Source = domain.SourceUser
	}

	before, err := s.Sessions.Load(r.Context(), id)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Session load failed", "session_id", id, "err", err)
		return
	}

	resp, after, err := s.Sessions.Turn(r.Context(), id, message, body.Source, s.Engine.Turn)
	if err != nil {
		s.turnError(w, "PostSessionTurn", err)
		return
	}

	// Calculate and Broadcast Diff
	if diff := domain.Diff(before, after); diff != nil {
		if bytes, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(id, string(bytes))
		}
	} else {
		s.logger.Debug("PostSessionTurn: No diff calculated", "session_id", id)
	}

	s.writeJSON(w, "PostSessionTurn", http.StatusOK, SessionTurnResponse{SessionID: id, Response: resp})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetHealth", http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	resp := map[string]string{
		"app":         "conserje-http",
		"version":     strings.TrimSpace(conserje.Version),
		"api_version": apiVersion,
	}
	if cv, ok := s.Engine.(catalogVersioner); ok {
		if c := cv.Catalog(); c != nil {
			resp["catalog_version"] = c.Version
			resp["hotel"] = c.Hotel.Name
		}
	}
	s.writeJSON(w, "GetInfo", http.StatusOK, resp)
}

func (s *Server) sanitize(w http.ResponseWriter, op, input string) (string, bool) {
	if input == "" {
		return input, true
	}
	clean, err := runner.SanitizeInput(input)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn(op+": Input rejected", "err", err, "size", len(input))
		return "", false
	}
	return clean, true
}

func (s *Server) turnError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrEmptyMessage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, fmt.Sprintf("Turn error: %v", err), http.StatusInternalServerError)
	s.logger.Error(op+" failed", "err", err)
}

func (s *Server) writeJSON(w http.ResponseWriter, op string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(op+" response encode failed", "err", err)
	}
}
