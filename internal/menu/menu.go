// Package menu builds category listings and choice menus from the catalog.
package menu

import (
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

// Filters narrow a category listing. Empty values do not filter.
type Filters struct {
	Profile    string
	Intent     string
	GuestCount int
}

// Result is a filtered category listing.
type Result struct {
	Category domain.Category
	Items    []domain.CatalogItem
	// Profile is the effective profile (explicit, or derived from the guest count for rooms).
	Profile string
	// Relaxed is true when profile/intent filters emptied the list and were dropped.
	Relaxed bool
	// NoMatch is true when the group rule removed every room.
	NoMatch bool
}

// Entries returns the result as menu choices.
func (r Result) Entries() []domain.MenuEntry {
	return Entries(r.Items)
}

// Builder reads a catalog. It never mutates it.
type Builder struct {
	catalog *domain.Catalog
}

// New creates a Builder over catalog.
func New(catalog *domain.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Build lists a category with the given filters.
func (b *Builder) Build(category domain.Category, f Filters) Result {
	items := b.catalog.ByCategory(category)
	res := Result{Category: category, Profile: f.Profile}

	count := f.GuestCount
	if category == domain.CategoryRooms {
		if count == 0 && isGroupProfile(f.Profile) {
			count = 3
		}
		if res.Profile == "" {
			res.Profile = DerivedProfile(count)
		}
	}

	filtered := Filter(items, res.Profile, f.Intent)
	if len(filtered) == 0 {
		filtered = items
		res.Relaxed = len(items) > 0 && (res.Profile != "" || f.Intent != "")
	}

	if category == domain.CategoryRooms {
		allowed := make([]domain.CatalogItem, 0, len(filtered))
		for _, item := range filtered {
			if !RestrictedForGroup(item, count, res.Profile) {
				allowed = append(allowed, item)
			}
		}
		if len(allowed) == 0 && len(filtered) > 0 {
			res.NoMatch = true
		}
		filtered = allowed
	}

	res.Items = filtered
	return res
}

// Filter keeps the items that explicitly list profile and intent.
// Empty filters keep everything; the input order is preserved.
func Filter(items []domain.CatalogItem, profile, intent string) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if profile != "" && !listed(item.Profiles, profile) {
			continue
		}
		if intent != "" && !listed(item.Intents, intent) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Alternatives lists rooms suitable for the party, used when the selected room is restricted.
func (b *Builder) Alternatives(count int, profile string) []domain.CatalogItem {
	res := b.Build(domain.CategoryRooms, Filters{Profile: profile, GuestCount: count})
	return res.Items
}

// Discovery interleaves facilities and services round-robin so neither dominates the top.
func (b *Builder) Discovery() []domain.CatalogItem {
	facilities := b.catalog.ByCategory(domain.CategoryFacilities)
	services := b.catalog.ByCategory(domain.CategoryServices)
	out := make([]domain.CatalogItem, 0, len(facilities)+len(services))
	for i := 0; i < len(facilities) || i < len(services); i++ {
		if i < len(facilities) {
			out = append(out, facilities[i])
		}
		if i < len(services) {
			out = append(out, services[i])
		}
	}
	return out
}

// Categories returns one CAT_ entry per category present in the catalog, minus exclude.
func (b *Builder) Categories(exclude domain.Category) []domain.MenuEntry {
	out := make([]domain.MenuEntry, 0, len(domain.Categories))
	for _, c := range b.catalog.PresentCategories() {
		if c == exclude {
			continue
		}
		out = append(out, domain.MenuEntry{ID: c.MenuID(), Label: c.Label()})
	}
	return out
}

// Entries converts items to menu choices.
func Entries(items []domain.CatalogItem) []domain.MenuEntry {
	out := make([]domain.MenuEntry, 0, len(items))
	for _, item := range items {
		out = append(out, item.MenuEntry())
	}
	return out
}

// DerivedProfile maps a head count to a profile: 3+ grupo, 2 pareja, 1 solo.
func DerivedProfile(count int) string {
	switch {
	case count >= 3:
		return "grupo"
	case count == 2:
		return "pareja"
	case count == 1:
		return "solo"
	}
	return ""
}

// RestrictedForGroup reports whether a room must be hidden from a party of count
// guests or a grupo/familia profile.
func RestrictedForGroup(item domain.CatalogItem, count int, profile string) bool {
	if item.Category != domain.CategoryRooms {
		return false
	}
	if count < 3 && !isGroupProfile(profile) {
		return false
	}
	for _, tag := range item.Restrictions {
		switch text.Normalize(tag) {
		case "grupo", "grupos", "familia", "familias":
			return true
		}
	}
	return false
}

func isGroupProfile(profile string) bool {
	p := text.Normalize(profile)
	return p == "grupo" || p == "familia"
}

func listed(values []string, want string) bool {
	w := text.Normalize(want)
	for _, v := range values {
		if text.Normalize(v) == w {
			return true
		}
	}
	return false
}
