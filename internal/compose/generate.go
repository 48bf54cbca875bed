package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/conserje/internal/guard"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

const (
	historyWindow    = 4
	replyTokens      = 200
	followUpTokens   = 80
	conditionTokens  = 120
	replyTemperature = 0.3
)

var errEmptyCompletion = errors.New("empty completion")

// GenerateInput is the context of one generated reply.
type GenerateInput struct {
	Message string
	Items   []domain.CatalogItem
	History []domain.Message
	State   domain.ConversationState
}

// Generate asks the completion capability for a reply grounded on in.Items.
// Callers must run the result through the guard.
func (c *Composer) Generate(ctx context.Context, in GenerateInput) (string, error) {
	if c.completer == nil {
		return "", domain.ErrCapabilityUnavailable
	}
	user := fmt.Sprintf("Consulta del huésped: %s\n\nEstado conocido: %s\n\nContexto del catálogo:\n%s",
		in.Message, describeState(in.State), BuildContext(in.Items))
	out, err := c.completer.Complete(ctx, ports.CompletionRequest{
		System:      c.systemPrompt(),
		User:        user,
		History:     domain.Recent(in.History, historyWindow),
		MaxTokens:   replyTokens,
		Temperature: replyTemperature,
		Purpose:     ports.PurposeChat,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyCompletion
	}
	return out, nil
}

func (c *Composer) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el conserje digital de %s, en %s. Respondes en español, cálido y breve.\n",
		c.catalog.Hotel.Name, c.catalog.Hotel.City)
	if len(c.catalog.Rules) > 0 {
		b.WriteString("\nREGLAS:\n")
		for _, rule := range c.catalog.Rules {
			fmt.Fprintf(&b, "- %s: %s\n", rule.Key, rule.Practice)
		}
	}
	b.WriteString(`
INSTRUCCIONES:
- Usa solo la información del contexto. Si no está, dilo y ofrece confirmarlo con el hotel.
- No repitas la descripción completa de la tarjeta que el huésped ya ve.
- No menciones otras habitaciones, servicios o lugares que no estén en el contexto.
- Máximo dos oraciones y, si hace falta, una sola pregunta al final.
- No inventes precios, horarios ni disponibilidad.
- Para reservas, deriva al canal oficial.`)
	return b.String()
}

// BuildContext renders catalog items as the prompt context block.
func BuildContext(items []domain.CatalogItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- Nombre: %s\n  Tipo: %s\n", item.Name, item.Category.Label())
		if item.Factual != "" {
			fmt.Fprintf(&b, "  Factual: %s\n", item.Factual)
		}
		if item.Experiential != "" {
			fmt.Fprintf(&b, "  Experiencial: %s\n", item.Experiential)
		}
		if r := tagList(item.Restrictions); r != "" {
			fmt.Fprintf(&b, "  Restricciones: %s\n", r)
		}
		if cond := tagList(item.Conditions); cond != "" {
			fmt.Fprintf(&b, "  Condiciones: %s\n", cond)
		}
		if item.HasHours() {
			fmt.Fprintf(&b, "  Horario: %s - %s\n", orDash(item.Opening), orDash(item.Closing))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeState(s domain.ConversationState) string {
	parts := make([]string, 0, 4)
	for _, slot := range []domain.Slot{domain.SlotDates, domain.SlotGuests, domain.SlotProfile, domain.SlotIntent} {
		if v := s.Get(slot); v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", slotHints[slot], v))
		}
	}
	if len(parts) == 0 {
		return "ninguno"
	}
	return strings.Join(parts, ", ")
}

// ShortlistRequest asks for a reply presenting several ranked items.
type ShortlistRequest struct {
	Message  string
	Category domain.Category
	Items    []domain.CatalogItem
	History  []domain.Message
	State    domain.ConversationState
}

// Shortlist presents ranked items: generated when possible, category copy otherwise.
func (c *Composer) Shortlist(ctx context.Context, req ShortlistRequest) Reply {
	check := guard.Check{
		LastReply: domain.LastAssistant(req.History),
		Category:  req.Category,
		Allowed:   ids(req.Items),
		State:     req.State,
	}
	if c.completer != nil && len(req.Items) > 0 {
		out, err := c.Generate(ctx, GenerateInput{Message: req.Message, Items: req.Items, History: req.History, State: req.State})
		if err != nil {
			c.logger.Warn("generated shortlist unavailable", "err", err)
		} else {
			check.Candidate = out
			v := c.guard.Sanitize(check)
			if !v.Rejected {
				return Reply{Text: v.Reply, Source: SourceGenerated, Mode: domain.ModeInform, Reason: "ranked_shortlist"}
			}
			c.rejected(v.Reason)
		}
	}
	r := Reply{Text: ShortlistFallback(req.Category), Source: SourceTemplate, Mode: domain.ModeInform, Reason: "ranked_shortlist"}
	return c.guarded(r, check)
}

// FollowUpQuestion returns one clarifying question for slot. Unknown slots
// yield domain.ErrUnknownSlot; capability failures fall back to the fixed question.
func (c *Composer) FollowUpQuestion(ctx context.Context, slot domain.Slot, topic string, history []domain.Message, state domain.ConversationState) (string, error) {
	fallback, ok := DefaultFollowUp(slot)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSlot, slot)
	}
	if c.completer == nil {
		return fallback, nil
	}

	system := fmt.Sprintf("Eres el conserje digital de %s. Haz UNA sola pregunta breve y amable para conocer %s del huésped. "+
		"No repitas lo que ya sabes. Devuelve solo la pregunta.", c.catalog.Hotel.Name, slotHints[slot])
	if topic == "" {
		topic = "estadía"
	}
	user := fmt.Sprintf("Tema: %s\nEstado conocido: %s", topic, describeState(state))
	out, err := c.completer.Complete(ctx, ports.CompletionRequest{
		System:      system,
		User:        user,
		History:     domain.Recent(history, historyWindow),
		MaxTokens:   followUpTokens,
		Temperature: replyTemperature,
		Purpose:     ports.PurposeChat,
	})
	if err != nil {
		c.logger.Warn("follow-up question unavailable", "slot", slot, "err", err)
		return fallback, nil
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" || !strings.Contains(out, "?") || text.Equal(out, domain.LastAssistant(history)) {
		return fallback, nil
	}
	return out, nil
}

const conditionsPrompt = "Reescribe condiciones de servicio en español natural y breve. No inventes datos. " +
	"No agregues precios ni horarios. Devuelve SOLO el texto final, sin comillas ni listas."

// FormatConditions turns condition tags into a sentence fragment. Without a
// completion capability (or when it fails) the tags are joined with commas.
func (c *Composer) FormatConditions(ctx context.Context, tags []string, topic string) string {
	joined := tagList(tags)
	if joined == "" || c.completer == nil {
		return joined
	}
	out, err := c.completer.Complete(ctx, ports.CompletionRequest{
		System:      conditionsPrompt,
		User:        fmt.Sprintf("Servicio: %s\nCondiciones: %s", topic, joined),
		MaxTokens:   conditionTokens,
		Temperature: replyTemperature,
		Purpose:     ports.PurposeChat,
	})
	if err != nil {
		c.logger.Warn("conditions rewrite unavailable", "err", err)
		return joined
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return joined
	}
	return out
}
