package conserje

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/conserje/internal/compose"
	"github.com/aretw0/conserje/internal/dispatch"
	"github.com/aretw0/conserje/internal/menu"
	"github.com/aretw0/conserje/internal/rank"
	"github.com/aretw0/conserje/pkg/adapters/file"
	loamAdapter "github.com/aretw0/conserje/pkg/adapters/loam"
	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/observability"
	"github.com/aretw0/conserje/pkg/persistence/middleware"
	"github.com/aretw0/conserje/pkg/ports"
)

// Engine is the high-level entry point for the concierge library.
// It owns the read-only catalog and the dispatcher built over it, and is safe
// for concurrent use: turns share only the catalog and the two KV caches.
type Engine struct {
	mu         sync.RWMutex
	catalog    *domain.Catalog
	dispatcher *dispatch.Dispatcher

	loader      ports.CatalogLoader
	completer   ports.Completer
	embedder    ports.Embedder
	vectorCache ports.KVCache
	textCache   ports.KVCache
	metrics     *observability.Metrics
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom CatalogLoader, bypassing path-based loading.
func WithLoader(l ports.CatalogLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCatalog uses an already built catalog.
func WithCatalog(c *domain.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithCompleter enables the completion capability (generation, disambiguation, inference).
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithEmbedder enables embedding-based ranking.
func WithEmbedder(em ports.Embedder) Option {
	return func(e *Engine) {
		e.embedder = em
	}
}

// WithEmbeddingCache sets the cache for embedding vectors (default: in memory).
func WithEmbeddingCache(c ports.KVCache) Option {
	return func(e *Engine) {
		e.vectorCache = c
	}
}

// WithTextCache sets the cache for derived item texts (default: in memory).
func WithTextCache(c ports.KVCache) Option {
	return func(e *Engine) {
		e.textCache = c
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Engine.
// By default the catalog is read from catalogPath: a directory is opened as a Loam
// repository, a file is parsed as a single YAML/JSON document. With WithLoader or
// WithCatalog, catalogPath is only a descriptive label and may be empty.
func New(catalogPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if catalogPath != "" {
		eng.Name = filepath.Base(catalogPath)
		eng.logger = eng.logger.With("catalog", eng.Name)
	}

	if eng.loader == nil && eng.catalog == nil {
		loader, err := loaderFor(catalogPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}

	if eng.vectorCache == nil {
		eng.vectorCache = memory.NewCache()
	}
	if eng.textCache == nil {
		eng.textCache = memory.NewCache()
	}
	eng.vectorCache = middleware.NewCacheMetrics("vectors", eng.metrics)(eng.vectorCache)
	eng.textCache = middleware.NewCacheMetrics("texts", eng.metrics)(eng.textCache)
	eng.completer = observability.InstrumentCompleter(eng.completer, eng.metrics)
	eng.embedder = observability.InstrumentEmbedder(eng.embedder, eng.metrics)

	catalog := eng.catalog
	if catalog == nil {
		var err error
		catalog, err = eng.loader.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	eng.install(catalog)
	return eng, nil
}

func loaderFor(path string) (ports.CatalogLoader, error) {
	if path == "" {
		return nil, fmt.Errorf("catalogPath is required when no custom loader is provided")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}
	if info.IsDir() {
		return loamAdapter.Open(path)
	}
	return file.NewLoader(path), nil
}

// install swaps in a new catalog and the dispatcher built over it.
func (e *Engine) install(catalog *domain.Catalog) {
	rankOpts := []rank.Option{
		rank.WithVectorCache(e.vectorCache),
		rank.WithTextCache(e.textCache),
	}
	if e.embedder != nil {
		rankOpts = append(rankOpts, rank.WithEmbedder(e.embedder))
	}

	d := dispatch.New(catalog,
		dispatch.WithCompleter(e.completer),
		dispatch.WithLogger(e.logger),
		dispatch.WithRankOptions(rankOpts...),
		dispatch.WithComposeOptions(compose.WithRejectHook(e.metrics.GuardRejected)),
		dispatch.WithObserver(func(branch string, decision domain.Decision, elapsed time.Duration) {
			e.metrics.ObserveTurn(branch, string(decision.Mode), elapsed)
		}),
	)

	e.mu.Lock()
	e.catalog = catalog
	e.dispatcher = d
	e.mu.Unlock()

	e.logger.Info("catalog installed", "items", len(catalog.Items), "version", catalog.Version)
}

func (e *Engine) current() (*domain.Catalog, *dispatch.Dispatcher) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog, e.dispatcher
}

// Turn answers one guest message.
// It returns domain.ErrEmptyMessage when the message is blank.
func (e *Engine) Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
	_, d := e.current()
	return d.Dispatch(ctx, req)
}

// FollowUp returns a single clarifying question about a missing slot.
func (e *Engine) FollowUp(ctx context.Context, req domain.FollowUpRequest) (*domain.FollowUpResponse, error) {
	if !req.Slot.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSlot, req.Slot)
	}
	catalog, d := e.current()

	resp := &domain.FollowUpResponse{Category: req.Category}
	topic := ""
	if req.Category.Valid() {
		topic = req.Category.Label()
	}
	if req.ActiveItemID != "" {
		item, ok := catalog.Item(req.ActiveItemID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, req.ActiveItemID)
		}
		topic = item.Name
		resp.ActiveItemID = item.ID
		resp.Category = item.Category
	}

	question, err := d.Composer().FollowUpQuestion(ctx, req.Slot, topic, req.History, req.State)
	if err != nil {
		return nil, err
	}
	resp.Question = question
	return resp, nil
}

// Menu returns the entries of a category menu. An empty category returns the
// category menu itself (CAT_* entries). When the group rule removes every room
// it returns ErrNoMatchingRoom; NoRoomsNotice is the copy to show instead.
func (e *Engine) Menu(category domain.Category, profile, intent string, guests int) ([]domain.MenuEntry, error) {
	_, d := e.current()
	if category == "" {
		return d.Menus().Categories(""), nil
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	res := d.Menus().Build(category, menu.Filters{Profile: profile, Intent: intent, GuestCount: guests})
	if res.NoMatch {
		return nil, fmt.Errorf("%w: %d guests, profile %q", domain.ErrNoMatchingRoom, guests, res.Profile)
	}
	return res.Entries(), nil
}

// NoRoomsNotice is the guest-facing reply for ErrNoMatchingRoom.
const NoRoomsNotice = compose.NoRoomsForProfile

// Catalog returns the catalog currently installed. Callers must not mutate it.
func (e *Engine) Catalog() *domain.Catalog {
	c, _ := e.current()
	return c
}

// Branches returns the dispatcher's decision list, in evaluation order.
func (e *Engine) Branches() []string {
	_, d := e.current()
	return d.Branches()
}

// Reload reads the catalog again through the loader and installs it.
// On failure the previous catalog stays in place.
func (e *Engine) Reload(ctx context.Context) error {
	if e.loader == nil {
		return fmt.Errorf("engine has no catalog loader")
	}
	catalog, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	e.install(catalog)
	return nil
}

// Watch reloads the catalog whenever the loader reports a change and signals
// each successful reload on the returned channel.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	reloaded := make(chan struct{}, 1)
	go func() {
		defer close(reloaded)
		for range changes {
			if err := e.Reload(ctx); err != nil {
				e.logger.Warn("catalog reload failed, keeping previous version", "err", err)
				continue
			}
			select {
			case reloaded <- struct{}{}:
			default:
			}
		}
	}()
	return reloaded, nil
}
