package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// ErrMalformed is returned when a classification answer is not the expected JSON record.
var ErrMalformed = errors.New("malformed classification")

// Classification is the structured (intent, profile, category) record.
type Classification struct {
	Intent   string          `json:"intent"`
	Profile  string          `json:"profile"`
	Category domain.Category `json:"tipo"`
}

// PetContext says whether the guest travels with an animal and if its size is still needed.
type PetContext struct {
	HasPet    bool
	NeedsSize bool
	Animal    string
}

// Inferer asks the completion capability for structured classifications and
// degrades to the keyword tables whenever the capability is absent or fails.
type Inferer struct {
	completer ports.Completer
	logger    *slog.Logger
}

// NewInferer creates an Inferer. A nil completer means "keywords only".
func NewInferer(completer ports.Completer, logger *slog.Logger) *Inferer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inferer{completer: completer, logger: logger}
}

// Available reports whether a completion capability is wired.
func (i *Inferer) Available() bool {
	return i != nil && i.completer != nil
}

const classifyPrompt = "Extrae intención (trabajo/descanso/aventura), perfil (solo/pareja/grupo/familia/primera_vez) " +
	"y tipo (Habitaciones/Servicios/Instalaciones/Recomendaciones_Locales) si aplica. " +
	"Devuelve SOLO JSON con las claves intent, profile, tipo."

// Classify returns the structured classification of message. Unknown labels are dropped;
// any capability or parse failure yields the zero Classification.
func (i *Inferer) Classify(ctx context.Context, message string) Classification {
	if !i.Available() {
		return Classification{}
	}
	var out Classification
	if err := i.ask(ctx, classifyPrompt, message, 120, &out); err != nil {
		i.logger.Warn("classification unavailable", "err", err)
		return Classification{}
	}
	if !knownLabel(intentTable, out.Intent) {
		out.Intent = ""
	}
	if !knownLabel(profileTable, out.Profile) {
		out.Profile = ""
	}
	if !out.Category.Valid() {
		out.Category = ""
	}
	return out
}

const petPrompt = `Eres un clasificador de intención para un conserje.
Devuelve SOLO JSON válido con las claves:
- has_pet (boolean)
- needs_size (boolean)
- animal (string o null)
Reglas:
- has_pet=true si el usuario pregunta por llevar/venir/viajar con un animal.
- needs_size=true si el tamaño es necesario para coordinar (perros/gatos o animal desconocido).
- needs_size=false para aves y animales pequeños en jaula.
- Si size_hint no es null, needs_size debe ser false.`

// PetContext infers whether the guest travels with a pet and whether its size must be asked.
func (i *Inferer) PetContext(ctx context.Context, message, sizeHint string) PetContext {
	fallback := PetContext{HasPet: MentionsPet(message)}
	fallback.NeedsSize = fallback.HasPet && sizeHint == "" && !SmallAnimal(message)
	if !i.Available() {
		return fallback
	}

	hint := "null"
	if sizeHint != "" {
		hint = fmt.Sprintf("%q", sizeHint)
	}
	user := fmt.Sprintf("Mensaje: %q\nsize_hint: %s", message, hint)

	var out struct {
		HasPet    bool    `json:"has_pet"`
		NeedsSize bool    `json:"needs_size"`
		Animal    *string `json:"animal"`
	}
	if err := i.ask(ctx, petPrompt, user, 80, &out); err != nil {
		i.logger.Warn("pet context unavailable", "err", err)
		return fallback
	}
	pc := PetContext{HasPet: out.HasPet, NeedsSize: out.NeedsSize && sizeHint == ""}
	if out.Animal != nil {
		pc.Animal = *out.Animal
	}
	return pc
}

const listPrompt = `Decide si el huésped pide una LISTA de la categoría o una RESPUESTA específica.
Devuelve SOLO JSON válido con la clave "list" (boolean).`

// ListIntent decides whether the guest wants the whole category listed.
func (i *Inferer) ListIntent(ctx context.Context, message string, category domain.Category) bool {
	fallback := containsAny(text.Normalize(message), listCues)
	if !i.Available() {
		return fallback
	}
	var out struct {
		List bool `json:"list"`
	}
	user := fmt.Sprintf("Categoría: %s\nMensaje: %q", category, message)
	if err := i.ask(ctx, listPrompt, user, 50, &out); err != nil {
		i.logger.Warn("list intent unavailable", "err", err)
		return fallback
	}
	return out.List
}

func (i *Inferer) ask(ctx context.Context, system, user string, maxTokens int, v any) error {
	raw, err := i.completer.Complete(ctx, ports.CompletionRequest{
		System:    system,
		User:      user,
		MaxTokens: maxTokens,
		Purpose:   ports.PurposeClassify,
		JSON:      true,
	})
	if err != nil {
		return err
	}
	return DecodeJSON(raw, v)
}

// DecodeJSON parses the first JSON object found in raw (models sometimes wrap it in fences).
func DecodeJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no object in %q", ErrMalformed, raw)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func knownLabel(table []labelRule, label string) bool {
	for _, rule := range table {
		if rule.Label == label {
			return true
		}
	}
	return false
}
