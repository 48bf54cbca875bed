package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/internal/config"
	"github.com/aretw0/conserje/pkg/adapters/file"
	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/adapters/openai"
	"github.com/aretw0/conserje/pkg/adapters/redis"
	"github.com/aretw0/conserje/pkg/observability"
	"github.com/aretw0/conserje/pkg/persistence/middleware"
	"github.com/aretw0/conserje/pkg/ports"
	"github.com/aretw0/conserje/pkg/session"
)

// ErrNoCatalog is returned when neither a flag, the config file nor the
// environment name a catalog.
var ErrNoCatalog = errors.New("no catalog configured (use --catalog or CONSERJE_CATALOG)")

// Stack is the set of collaborators every command shares: the engine, the
// session manager and the metrics registry, built once from the Config.
type Stack struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Engine   *conserje.Engine
	Sessions *session.Manager

	redis *backend.Client
}

// NewStack connects the backends named in cfg and loads the catalog.
// Call Close when done.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if cfg.Catalog.Path == "" {
		return nil, ErrNoCatalog
	}
	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Metrics:  observability.NewMetrics(),
	}
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := s.Metrics.Register(s.Registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	if err := s.build(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) build(ctx context.Context) error {
	cfg := s.Config

	engineOpts := []conserje.Option{
		conserje.WithLogger(s.Logger),
		conserje.WithMetrics(s.Metrics),
	}

	if cfg.OpenAI.Enabled() {
		oc := openai.Config{
			APIKey:        cfg.OpenAI.APIKey,
			BaseURL:       cfg.OpenAI.BaseURL,
			ChatModel:     cfg.OpenAI.ChatModel,
			ClassifyModel: cfg.OpenAI.ClassifyModel,
			EmbedModel:    cfg.OpenAI.EmbedModel,
			Timeout:       cfg.OpenAI.Timeout,
		}
		api, err := openai.NewAPI(oc)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts,
			conserje.WithCompleter(openai.NewCompleter(api, oc, openai.WithLogger(s.Logger))),
			conserje.WithEmbedder(openai.NewEmbedder(api, oc, openai.WithLogger(s.Logger))),
		)
	} else {
		s.Logger.Info("no OpenAI key configured, replies come from templates")
	}

	if cfg.Cache.Driver == "redis" {
		client, err := s.redisClient(ctx)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts,
			conserje.WithEmbeddingCache(redis.NewCache(client,
				redis.WithCacheTTL(cfg.Cache.TTL), redis.WithCachePrefix(cfg.Cache.Prefix+"vec:"))),
			conserje.WithTextCache(redis.NewCache(client,
				redis.WithCacheTTL(cfg.Cache.TTL), redis.WithCachePrefix(cfg.Cache.Prefix+"txt:"))),
		)
	}

	engine, err := conserje.New(cfg.Catalog.Path, engineOpts...)
	if err != nil {
		return fmt.Errorf("error initializing conserje: %w", err)
	}
	s.Engine = engine

	sessions, err := s.newSessions(ctx)
	if err != nil {
		return err
	}
	s.Sessions = sessions
	return nil
}

func (s *Stack) newSessions(ctx context.Context) (*session.Manager, error) {
	cfg := s.Config
	managerOpts := []session.Option{
		session.WithLogger(s.Logger),
		session.WithHistoryLimit(cfg.Session.HistoryLimit),
	}

	var store ports.SessionStore
	switch cfg.Session.Store {
	case "file":
		store = file.NewStore(cfg.Session.Dir)
	case "redis":
		client, err := s.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		store = redis.NewStore(client, redis.WithTTL(cfg.Session.TTL), redis.WithPrefix(cfg.Session.Prefix))
		managerOpts = append(managerOpts,
			session.WithLocker(redis.NewLocker(client, cfg.Session.Prefix), cfg.Session.LockTTL))
	default:
		store = memory.NewStore()
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(store)
	}
	// Redaction wraps encryption so only masked text is ever sealed.
	if cfg.Session.RedactPII {
		store = middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(store)
	}

	return session.NewManager(store, managerOpts...), nil
}

func (s *Stack) redisClient(ctx context.Context) (*backend.Client, error) {
	if s.redis != nil {
		return s.redis, nil
	}
	client, err := redis.Connect(ctx, s.Config.Redis.URL)
	if err != nil {
		return nil, err
	}
	s.redis = client
	return client, nil
}

// Close releases the backend connections.
func (s *Stack) Close() error {
	if s.redis != nil {
		err := s.redis.Close()
		s.redis = nil
		return err
	}
	return nil
}
