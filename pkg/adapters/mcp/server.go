package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/runner"
	"github.com/aretw0/conserje/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const catalogURI = "conserje://catalog"

// TurnResult is the structured output of ask_concierge.
type TurnResult struct {
	SessionID string               `json:"session_id,omitempty" jsonschema_description:"Session the turn was recorded in, when one was given"`
	Turn      *domain.TurnResponse `json:"turn" jsonschema_description:"Reply, menu, suggestions and decision of the turn"`
}

// MenuResult is the structured output of show_menu.
type MenuResult struct {
	Menu    []domain.MenuEntry `json:"menu" jsonschema_description:"Selectable entries"`
	NoMatch bool               `json:"no_match,omitempty" jsonschema_description:"True when no room fits the party"`
	Notice  string             `json:"notice,omitempty" jsonschema_description:"Reply to relay to the guest when no_match is set"`
}

// Engine defines the interface required by the MCP server to interact with the concierge.
type Engine interface {
	Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error)
	FollowUp(ctx context.Context, req domain.FollowUpRequest) (*domain.FollowUpResponse, error)
	Menu(category domain.Category, profile, intent string, guests int) ([]domain.MenuEntry, error)
	Catalog() *domain.Catalog
}

// Server wraps the concierge Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSessions sets the manager used when ask_concierge receives a session_id.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
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

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("conserje-mcp", strings.TrimSpace(conserje.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mostly for tests and custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func categoryNames() []string {
	out := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		out[i] = string(c)
	}
	return out
}

func (s *Server) registerTools() {
	askTool := mcp.NewTool("ask_concierge",
		mcp.WithDescription("Send a guest message to the hotel concierge and get its reply, menu and suggestions. "+
			"Pass session_id to let the server keep the conversation; otherwise pass history and state yourself."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Guest message, in Spanish")),
		mcp.WithString("session_id", mcp.Description("Conversation to continue (optional)")),
		mcp.WithString("active_item_id", mcp.Description("Menu entry id when the guest clicked a menu entry (optional)")),
		mcp.WithString("history", mcp.Description("JSON array of {role, content} messages, stateless mode only (optional)")),
		mcp.WithString("state", mcp.Description("JSON object with dates, guests, profile, intent, stateless mode only (optional)")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	menuTool := mcp.NewTool("show_menu",
		mcp.WithDescription("List the catalog categories, or the entries of one category filtered by profile, intent and party size."),
		mcp.WithString("category", mcp.Description("Category to list (optional)"), mcp.Enum(categoryNames()...)),
		mcp.WithString("profile", mcp.Description("Traveler profile: pareja, familia, negocios, grupo, solo (optional)")),
		mcp.WithString("intent", mcp.Description("Trip intent (optional)")),
		mcp.WithNumber("guests", mcp.Description("Party size (optional)")),
		mcp.WithOutputSchema[MenuResult](),
	)
	s.mcpServer.AddTool(menuTool, mcp.NewStructuredToolHandler(s.handleMenu))

	followUpTool := mcp.NewTool("ask_followup",
		mcp.WithDescription("Get one short clarifying question for a missing booking detail."),
		mcp.WithString("missing_field", mcp.Required(), mcp.Description("Slot to ask about"),
			mcp.Enum(string(domain.SlotDates), string(domain.SlotGuests), string(domain.SlotProfile), string(domain.SlotIntent))),
		mcp.WithString("active_item_id", mcp.Description("Item the conversation is about (optional)")),
		mcp.WithString("context_topic", mcp.Description("Category the conversation is about (optional)")),
		mcp.WithOutputSchema[domain.FollowUpResponse](),
	)
	s.mcpServer.AddTool(followUpTool, mcp.NewStructuredToolHandler(s.handleFollowUp))
}

// Handler methods for structured tools

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResult, error) {
	message, _ := args["message"].(string)
	sessionID, _ := args["session_id"].(string)
	clicked, _ := args["active_item_id"].(string)

	clean, err := runner.SanitizeInput(message)
	if err != nil {
		s.logger.Warn("MCP ask_concierge: Input rejected", "err", err, "size", len(message))
		return TurnResult{}, fmt.Errorf("input rejected: %w", err)
	}

	if sessionID != "" {
		var resp *domain.TurnResponse
		if clicked != "" {
			resp, _, err = s.sessions.Select(ctx, sessionID, domain.MenuEntry{ID: clicked, Label: clean}, s.engine.Turn)
		} else {
			resp, _, err = s.sessions.Turn(ctx, sessionID, clean, domain.SourceUser, s.engine.Turn)
		}
		if err != nil {
			return TurnResult{}, fmt.Errorf("turn failed: %w", err)
		}
		return TurnResult{SessionID: sessionID, Turn: resp}, nil
	}

	req := domain.TurnRequest{Message: clean, Source: domain.SourceUser}
	if clicked != "" {
		req.ActiveItemID = clicked
		req.Source = domain.SourceMenu
	}
	if raw, ok := args["history"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.History); err != nil {
			return TurnResult{}, fmt.Errorf("invalid history: %w", err)
		}
	}
	if raw, ok := args["state"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.State); err != nil {
			return TurnResult{}, fmt.Errorf("invalid state: %w", err)
		}
	}

	resp, err := s.engine.Turn(ctx, req)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResult{Turn: resp}, nil
}

func (s *Server) handleMenu(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MenuResult, error) {
	category, _ := args["category"].(string)
	profile, _ := args["profile"].(string)
	intent, _ := args["intent"].(string)
	guests := 0
	if n, ok := args["guests"].(float64); ok && n > 0 {
		guests = int(n)
	}

	entries, err := s.engine.Menu(domain.Category(category), profile, intent, guests)
	if errors.Is(err, domain.ErrNoMatchingRoom) {
		return MenuResult{Menu: []domain.MenuEntry{}, NoMatch: true, Notice: conserje.NoRoomsNotice}, nil
	}
	if err != nil {
		return MenuResult{}, fmt.Errorf("menu failed: %w", err)
	}
	return MenuResult{Menu: entries}, nil
}

func (s *Server) handleFollowUp(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.FollowUpResponse, error) {
	slot, _ := args["missing_field"].(string)
	itemID, _ := args["active_item_id"].(string)
	topic, _ := args["context_topic"].(string)

	resp, err := s.engine.FollowUp(ctx, domain.FollowUpRequest{
		Slot:         domain.Slot(slot),
		ActiveItemID: itemID,
		Category:     domain.Category(topic),
	})
	if err != nil {
		return domain.FollowUpResponse{}, fmt.Errorf("followup failed: %w", err)
	}
	return *resp, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(catalogURI, "Hotel catalog",
		mcp.WithResourceDescription("Rooms, services, facilities and local recommendations the concierge knows about"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := catalogJSON(s.engine.Catalog())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      catalogURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

func catalogJSON(c *domain.Catalog) (string, error) {
	if c == nil {
		return "", fmt.Errorf("no catalog loaded")
	}
	payload := struct {
		Hotel   domain.Hotel         `json:"hotel"`
		Version string               `json:"version"`
		Items   []domain.CatalogItem `json:"items"`
	}{c.Hotel, c.Version, c.Items}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	return string(b), nil
}
