// Package openai implements the completion and embedding capabilities on the OpenAI API.
//
// Every call is attempted once under a per-call timeout. Failures wrap
// domain.ErrCapabilityUnavailable so the engine degrades instead of surfacing them.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
	openai "github.com/sashabaranov/go-openai"
)

// Default model names.
const (
	DefaultChatModel     = openai.GPT4o
	DefaultClassifyModel = openai.GPT4oMini
	DefaultEmbedModel    = string(openai.SmallEmbedding3)
	DefaultTimeout       = 20 * time.Second
)

// API is the subset of the go-openai client the adapters use.
type API interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config selects the models and endpoint.
type Config struct {
	APIKey        string
	BaseURL       string
	ChatModel     string
	ClassifyModel string
	EmbedModel    string
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.ClassifyModel == "" {
		c.ClassifyModel = DefaultClassifyModel
	}
	if c.EmbedModel == "" {
		c.EmbedModel = DefaultEmbedModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// NewAPI builds a go-openai client from cfg.
func NewAPI(cfg Config) (API, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// Option configures the adapters.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Completer implements ports.Completer.
type Completer struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// NewCompleter creates a Completer over api.
func NewCompleter(api API, cfg Config, opts ...Option) *Completer {
	o := buildOptions(opts)
	return &Completer{api: api, cfg: cfg.withDefaults(), logger: o.logger}
}

// Model returns the chat model name.
func (c *Completer) Model() string { return c.cfg.ChatModel }

// Complete sends one chat completion. Classification calls use the classify model.
func (c *Completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	model := c.cfg.ChatModel
	if req.Purpose == ports.PurposeClassify {
		model = c.cfg.ClassifyModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if req.User != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		c.logger.Warn("openai completion failed", "model", model, "err", err)
		return "", fmt.Errorf("%w: completion: %v", domain.ErrCapabilityUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", domain.ErrCapabilityUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embedder implements ports.Embedder.
type Embedder struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// NewEmbedder creates an Embedder over api.
func NewEmbedder(api API, cfg Config, opts ...Option) *Embedder {
	o := buildOptions(opts)
	return &Embedder{api: api, cfg: cfg.withDefaults(), logger: o.logger}
}

// Model returns the embedding model name; caches fold it into their keys.
func (e *Embedder) Model() string { return e.cfg.EmbedModel }

// Embed embeds texts in one request and returns the vectors in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.cfg.EmbedModel),
	})
	if err != nil {
		e.logger.Warn("openai embedding failed", "model", e.cfg.EmbedModel, "err", err)
		return nil, fmt.Errorf("%w: embedding: %v", domain.ErrCapabilityUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: embedding returned %d vectors for %d texts",
			domain.ErrCapabilityUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrCapabilityUnavailable, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
