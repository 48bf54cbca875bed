package ports

import (
	"context"

	"github.com/aretw0/conserje/pkg/domain"
)

// CatalogLoader loads the catalog items and governance rules.
// It is called once at startup; the result is read-only afterwards.
type CatalogLoader interface {
	Load(ctx context.Context) (*domain.Catalog, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload in development.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying catalog changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
