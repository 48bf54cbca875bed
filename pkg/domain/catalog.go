package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Category classifies a catalog item. It is fixed when the item is created.
type Category string

const (
	CategoryRooms           Category = "Habitaciones"
	CategoryServices        Category = "Servicios"
	CategoryFacilities      Category = "Instalaciones"
	CategoryRecommendations Category = "Recomendaciones_Locales"
)

// Categories lists every known category in canonical order.
var Categories = []Category{
	CategoryRooms,
	CategoryServices,
	CategoryFacilities,
	CategoryRecommendations,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the guest-facing label ("Recomendaciones locales").
func (c Category) Label() string {
	words := strings.Fields(strings.ReplaceAll(string(c), "_", " "))
	for i, w := range words {
		w = strings.ToLower(w)
		if i == 0 && w != "" {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

// MenuID returns the menu entry id that opens the whole category.
func (c Category) MenuID() string {
	return CategoryMenuPrefix + string(c)
}

// CategoryFromMenuID parses a "CAT_<Category>" menu id.
func CategoryFromMenuID(id string) (Category, bool) {
	if !strings.HasPrefix(id, CategoryMenuPrefix) {
		return "", false
	}
	c := Category(strings.TrimPrefix(id, CategoryMenuPrefix))
	return c, c.Valid()
}

// CatalogItem is a single room, service, facility or local recommendation.
// List fields are never nil once the item went through Normalize.
type CatalogItem struct {
	ID           string   `json:"id" yaml:"id" mapstructure:"id"`
	Name         string   `json:"nombre_publico" yaml:"nombre_publico" mapstructure:"nombre_publico"`
	Category     Category `json:"tipo" yaml:"tipo" mapstructure:"tipo"`
	Subcategory  string   `json:"categoria,omitempty" yaml:"categoria,omitempty" mapstructure:"categoria"`
	Factual      string   `json:"desc_factual,omitempty" yaml:"desc_factual,omitempty" mapstructure:"desc_factual"`
	Experiential string   `json:"desc_experiencial,omitempty" yaml:"desc_experiencial,omitempty" mapstructure:"desc_experiencial"`
	Intents      []string `json:"intenciones" yaml:"intenciones" mapstructure:"intenciones"`
	Profiles     []string `json:"perfil_ideal" yaml:"perfil_ideal" mapstructure:"perfil_ideal"`
	Restrictions []string `json:"restricciones_requisitos" yaml:"restricciones_requisitos" mapstructure:"restricciones_requisitos"`
	Conditions   []string `json:"condiciones_servicio" yaml:"condiciones_servicio" mapstructure:"condiciones_servicio"`
	Images       []string `json:"imagenes_url" yaml:"imagenes_url" mapstructure:"imagenes_url"`
	Phrases      []string `json:"frases_sugeridas" yaml:"frases_sugeridas" mapstructure:"frases_sugeridas"`
	CTAs         []string `json:"ctas" yaml:"ctas" mapstructure:"ctas"`
	Opening      string   `json:"horario_apertura,omitempty" yaml:"horario_apertura,omitempty" mapstructure:"horario_apertura"`
	Closing      string   `json:"horario_cierre,omitempty" yaml:"horario_cierre,omitempty" mapstructure:"horario_cierre"`
	CheckIn      string   `json:"check_in,omitempty" yaml:"check_in,omitempty" mapstructure:"check_in"`
	CheckOut     string   `json:"check_out,omitempty" yaml:"check_out,omitempty" mapstructure:"check_out"`
	PriceFrom    string   `json:"precio_desde,omitempty" yaml:"precio_desde,omitempty" mapstructure:"precio_desde"`
	MapURL       string   `json:"mapa_url,omitempty" yaml:"mapa_url,omitempty" mapstructure:"mapa_url"`
	BookingURL   string   `json:"reserva_url,omitempty" yaml:"reserva_url,omitempty" mapstructure:"reserva_url"`
}

// Normalize replaces nil list fields with empty slices and trims scalar fields.
func (i *CatalogItem) Normalize() {
	i.ID = strings.TrimSpace(i.ID)
	i.Name = strings.TrimSpace(i.Name)
	i.Factual = strings.TrimSpace(i.Factual)
	i.Experiential = strings.TrimSpace(i.Experiential)
	for _, list := range []*[]string{
		&i.Intents, &i.Profiles, &i.Restrictions, &i.Conditions,
		&i.Images, &i.Phrases, &i.CTAs,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// HasHours reports whether opening or closing time is known.
func (i CatalogItem) HasHours() bool {
	return i.Opening != "" || i.Closing != ""
}

// MenuEntry returns the item as a selectable menu choice.
func (i CatalogItem) MenuEntry() MenuEntry {
	return MenuEntry{ID: i.ID, Label: i.Name}
}

// GovernanceRule is a business copy rule handed to the completion capability.
type GovernanceRule struct {
	ID       string `json:"regla_id" yaml:"regla_id" mapstructure:"regla_id"`
	Key      string `json:"regla_clave" yaml:"regla_clave" mapstructure:"regla_clave"`
	Practice string `json:"descripcion_practica" yaml:"descripcion_practica" mapstructure:"descripcion_practica"`
}

// Hotel describes the property the catalog belongs to.
type Hotel struct {
	Name            string `json:"nombre,omitempty" yaml:"nombre,omitempty" mapstructure:"nombre"`
	City            string `json:"ciudad,omitempty" yaml:"ciudad,omitempty" mapstructure:"ciudad"`
	BookingURL      string `json:"reserva_url,omitempty" yaml:"reserva_url,omitempty" mapstructure:"reserva_url"`
	EscalationEmail string `json:"email_escalamiento,omitempty" yaml:"email_escalamiento,omitempty" mapstructure:"email_escalamiento"`
}

// Catalog is the immutable collection of items and rules the engine reads from.
// Build it with NewCatalog; never mutate the slices it returns.
type Catalog struct {
	Hotel   Hotel
	Items   []CatalogItem
	Rules   []GovernanceRule
	Version string

	index map[string]int
}

// NewCatalog normalizes, validates and indexes the given items.
func NewCatalog(hotel Hotel, items []CatalogItem, rules []GovernanceRule) (*Catalog, error) {
	normalized := make([]CatalogItem, len(items))
	for i, item := range items {
		item.Normalize()
		normalized[i] = item
	}
	if rules == nil {
		rules = []GovernanceRule{}
	}
	if hotel.Name == "" {
		hotel.Name = DefaultHotelName
	}
	if hotel.City == "" {
		hotel.City = DefaultHotelCity
	}
	if hotel.EscalationEmail == "" {
		hotel.EscalationEmail = DefaultEscalationEmail
	}

	c := &Catalog{
		Hotel: hotel,
		Items: normalized,
		Rules: rules,
		index: make(map[string]int, len(normalized)),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for i, item := range c.Items {
		c.index[item.ID] = i
	}
	c.Version = c.fingerprint()
	return c, nil
}

// Validate checks ids, names and categories.
func (c *Catalog) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(c.Items))
	for pos, item := range c.Items {
		switch {
		case item.ID == "":
			problems = append(problems, fmt.Sprintf("item #%d has no id", pos))
		case seen[item.ID]:
			problems = append(problems, fmt.Sprintf("duplicate id %q", item.ID))
		}
		seen[item.ID] = true
		if item.Name == "" {
			problems = append(problems, fmt.Sprintf("item %q has no nombre_publico", item.ID))
		}
		if !item.Category.Valid() {
			problems = append(problems, fmt.Sprintf("item %q has unknown tipo %q", item.ID, item.Category))
		}
	}
	if len(problems) > 0 {
		return &CatalogValidationError{Problems: problems}
	}
	return nil
}

// Item looks an item up by id.
func (c *Catalog) Item(id string) (CatalogItem, bool) {
	pos, ok := c.index[id]
	if !ok {
		return CatalogItem{}, false
	}
	return c.Items[pos], true
}

// ByCategory returns the items of one category in catalog order.
func (c *Catalog) ByCategory(cat Category) []CatalogItem {
	out := make([]CatalogItem, 0)
	for _, item := range c.Items {
		if item.Category == cat {
			out = append(out, item)
		}
	}
	return out
}

// PresentCategories returns the categories that have at least one item, in first-seen order.
func (c *Catalog) PresentCategories() []Category {
	seen := make(map[Category]bool)
	out := make([]Category, 0, len(Categories))
	for _, item := range c.Items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	return out
}

// BookingURL returns the booking reference for an item, falling back to the hotel's.
func (c *Catalog) BookingURL(item CatalogItem) string {
	if item.BookingURL != "" {
		return item.BookingURL
	}
	return c.Hotel.BookingURL
}

func (c *Catalog) fingerprint() string {
	d := xxhash.New()
	for _, item := range c.Items {
		for _, field := range []string{item.ID, item.Name, string(item.Category), item.Factual, item.Experiential} {
			_, _ = d.WriteString(strconv.Itoa(len(field)))
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(field)
		}
		for _, list := range [][]string{item.Restrictions, item.Conditions, item.Phrases} {
			_, _ = d.WriteString(strings.Join(list, "\x00"))
			_, _ = d.WriteString("\x01")
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
