package loam

import (
	"fmt"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Document kinds recognized in the frontmatter "kind" key. Documents without a
// kind are catalog items.
const (
	KindItem  = "item"
	KindHotel = "hotel"
	KindRules = "reglas"
)

// Frontmatter is the raw header of a catalog document.
// It stays untyped so one repository can hold items, hotel data and rules side by side.
type Frontmatter map[string]any

// Kind returns the document kind, defaulting to KindItem.
func (f Frontmatter) Kind() string {
	if k, ok := f["kind"].(string); ok && k != "" {
		return k
	}
	return KindItem
}

// Order returns the optional "orden" key used to sort items; documents without it sort last.
func (f Frontmatter) Order() int {
	var holder struct {
		Order *int `mapstructure:"orden"`
	}
	if err := decode(f, &holder); err != nil || holder.Order == nil {
		return int(^uint(0) >> 1)
	}
	return *holder.Order
}

// rulesDocument is the shape of a KindRules document.
type rulesDocument struct {
	Rules []domain.GovernanceRule `mapstructure:"reglas"`
}

// decode maps frontmatter onto a tagged struct. Strict loam mode hands numbers
// over as json.Number, so weak typing turns "precio_desde: 180" into a string.
func decode(src map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(src); err != nil {
		return fmt.Errorf("decode frontmatter: %w", err)
	}
	return nil
}
