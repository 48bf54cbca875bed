package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam repository of markdown/YAML documents to ports.CatalogLoader.
//
// Every document with no "kind" (or kind: item) is a catalog item whose frontmatter uses
// the catalog field names (id, nombre_publico, tipo, ...). The markdown body fills
// desc_experiencial when the frontmatter leaves it empty. One optional kind: hotel
// document describes the property and kind: reglas documents carry governance rules.
type Loader struct {
	Repo *loam.TypedRepository[Frontmatter]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[Frontmatter]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

type itemDoc struct {
	path  string
	order int
	item  domain.CatalogItem
}

// Load reads every document and builds a validated catalog.
// Items are ordered by "orden", then by document path.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	var (
		hotel domain.Hotel
		rules []domain.GovernanceRule
		items []itemDoc
	)
	for _, doc := range docs {
		meta := doc.Data
		switch meta.Kind() {
		case KindHotel:
			if err := decode(meta, &hotel); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.ID, err)
			}
		case KindRules:
			var rd rulesDocument
			if err := decode(meta, &rd); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.ID, err)
			}
			rules = append(rules, rd.Rules...)
		case KindItem:
			var item domain.CatalogItem
			if err := decode(meta, &item); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.ID, err)
			}
			if item.ID == "" {
				item.ID = trimExtension(filepath.Base(doc.ID))
			}
			if item.Experiential == "" {
				item.Experiential = strings.TrimSpace(doc.Content)
			}
			items = append(items, itemDoc{path: doc.ID, order: meta.Order(), item: item})
		default:
			return nil, fmt.Errorf("%s: unknown kind %q", doc.ID, meta.Kind())
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].order != items[j].order {
			return items[i].order < items[j].order
		}
		return items[i].path < items[j].path
	})
	out := make([]domain.CatalogItem, len(items))
	for i, d := range items {
		out[i] = d.item
	}
	return domain.NewCatalog(hotel, out, rules)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: a pending signal already means "reload".
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
