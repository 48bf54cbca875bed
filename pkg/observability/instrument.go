package observability

import (
	"context"
	"time"

	"github.com/aretw0/conserje/pkg/ports"
)

// InstrumentCompleter wraps c so every call is counted and timed.
// A nil Metrics returns c unchanged.
func InstrumentCompleter(c ports.Completer, m *Metrics) ports.Completer {
	if c == nil || m == nil {
		return c
	}
	return &completer{next: c, metrics: m}
}

type completer struct {
	next    ports.Completer
	metrics *Metrics
}

func (c *completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	start := time.Now()
	out, err := c.next.Complete(ctx, req)
	c.metrics.CapabilityCall(CapabilityCompletion, time.Since(start), err)
	return out, err
}

// InstrumentEmbedder wraps e so every call is counted and timed.
// The wrapper keeps reporting the wrapped model name, which cache keys depend on.
func InstrumentEmbedder(e ports.Embedder, m *Metrics) ports.Embedder {
	if e == nil || m == nil {
		return e
	}
	base := &embedder{next: e, metrics: m}
	if namer, ok := e.(ports.ModelNamer); ok {
		return &namedEmbedder{embedder: base, namer: namer}
	}
	return base
}

type embedder struct {
	next    ports.Embedder
	metrics *Metrics
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := e.next.Embed(ctx, texts)
	e.metrics.CapabilityCall(CapabilityEmbedding, time.Since(start), err)
	return out, err
}

type namedEmbedder struct {
	*embedder
	namer ports.ModelNamer
}

func (e *namedEmbedder) Model() string { return e.namer.Model() }
