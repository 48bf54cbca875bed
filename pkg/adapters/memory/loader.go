package memory

import (
	"context"

	"github.com/aretw0/conserje/pkg/domain"
)

// Loader implements ports.CatalogLoader over items held in memory.
type Loader struct {
	hotel domain.Hotel
	items []domain.CatalogItem
	rules []domain.GovernanceRule
}

// NewLoader creates a loader from domain objects. Validation happens on Load.
func NewLoader(hotel domain.Hotel, items []domain.CatalogItem, rules []domain.GovernanceRule) *Loader {
	return &Loader{
		hotel: hotel,
		items: append([]domain.CatalogItem(nil), items...),
		rules: append([]domain.GovernanceRule(nil), rules...),
	}
}

// Load builds a fresh, validated catalog.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	return domain.NewCatalog(l.hotel, l.items, l.rules)
}
