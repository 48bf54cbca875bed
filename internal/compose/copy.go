package compose

import (
	"fmt"
	"strings"

	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

// Fixed guest-facing copy.
const (
	NotConfirmedHours   = "No tengo el horario confirmado en este momento. ¿Quieres que lo confirme?"
	NotConfirmedField   = "No tengo ese dato confirmado en este momento. ¿Quieres que lo confirme?"
	Declined            = "Entiendo. ¿Quieres revisar otras opciones?"
	GroupRestricted     = "Esta habitación no es adecuada para grupos. Te comparto opciones más cómodas para ustedes."
	NoRoomsForProfile   = "No tengo habitaciones para ese perfil en este momento. ¿Prefieres algo específico (cama, tamaño o vista)?"
	ServicesListing     = "Servicios disponibles. Puedes elegir entre:"
	InsideHotel         = "Dentro del hotel puedes aprovechar estos espacios y servicios:"
	PetCoordinated      = "Perfecto, lo coordinamos."
	PetOffer            = "Puedo coordinarlo cuando quieras."
	PetIntro            = "Sí, contamos con pet friendly."
	PetAskSize          = "¿Qué tamaño tiene?"
	roomContinuation    = "¿Quieres que te recomiende algo dentro del hotel o un plan cerca del hotel?"
	facilityHours       = "¿Quieres que te comparta el horario?"
	facilityUse         = "¿Te gustaría usarla?"
	recommendationWay   = "¿Quieres que te indique cómo llegar?"
	genericContinuation = "¿Cómo te puedo ayudar con esto?"
)

// Escalation is the human hand-off reply.
func Escalation(email string) string {
	return fmt.Sprintf("Para gestionarlo correctamente, prefiero que escribas directamente a nuestro equipo: %s.", email)
}

// NoMatch is the reply when nothing in the catalog answers the message.
func NoMatch(email string) string {
	return fmt.Sprintf("No tengo ese dato confirmado en este momento. Si quieres, puedo confirmarlo con el hotel o puedes escribir a %s.", email)
}

// Listing introduces a category menu.
func Listing(category domain.Category, profile string, items []domain.CatalogItem) string {
	if category == domain.CategoryServices && profile == "" {
		return ServicesListing
	}
	if len(items) == 0 {
		return fmt.Sprintf("No tengo %s para ese perfil en este momento. ¿Prefieres algo específico?", strings.ToLower(category.Label()))
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	joined := strings.Join(names, ", ")
	question := "¿Cuál te interesa?"
	if category == domain.CategoryRooms {
		question = "¿Te interesa alguna en particular?"
	}
	if profile != "" {
		return fmt.Sprintf("Para %s, tengo estas opciones: %s. %s", ProfileLabel(profile), joined, question)
	}
	switch category {
	case domain.CategoryRooms:
		return fmt.Sprintf("Tengo estas opciones de habitaciones: %s. %s", joined, question)
	case domain.CategoryFacilities:
		return fmt.Sprintf("Tengo estas instalaciones: %s. %s", joined, question)
	case domain.CategoryRecommendations:
		return fmt.Sprintf("Tengo estas recomendaciones: %s. %s", joined, question)
	}
	return fmt.Sprintf("Tengo estas opciones: %s. %s", joined, question)
}

// ShortlistFallback is used when no generated shortlist reply survives.
func ShortlistFallback(category domain.Category) string {
	switch category {
	case domain.CategoryRooms:
		return "Tengo opciones que podrían encajar. ¿Qué prefieres: cama, tamaño o vista?"
	case domain.CategoryFacilities:
		return "Tenemos varias instalaciones. ¿Qué te interesa usar?"
	case domain.CategoryServices:
		return "Tenemos varios servicios disponibles. ¿Cuál te interesa?"
	case domain.CategoryRecommendations:
		return "Tengo algunas opciones cerca. ¿Qué tipo de plan prefieres?"
	}
	return "Te comparto algunas opciones que podrían interesarte. ¿Cuál quieres revisar?"
}

// ProfileLabel renders a profile label for guests ("primera_vez" -> "primera vez").
func ProfileLabel(profile string) string {
	return strings.ReplaceAll(profile, "_", " ")
}

// GuestsFromProfile infers a head count description from pareja/solo.
func GuestsFromProfile(profile string) string {
	switch text.Normalize(profile) {
	case "pareja":
		return "2 personas"
	case "solo":
		return "1 persona"
	}
	return ""
}

// Detail is the first sentence of the factual and experiential descriptions
// (or the first suggested phrase), at most two sentences.
func Detail(item domain.CatalogItem) string {
	parts := make([]string, 0, 2)
	if item.Factual != "" {
		parts = append(parts, text.FirstSentence(item.Factual))
	}
	if item.Experiential != "" {
		parts = append(parts, text.FirstSentence(item.Experiential))
	} else if len(item.Phrases) > 0 {
		parts = append(parts, text.FirstSentence(item.Phrases[0]))
	}
	return text.JoinNonEmpty(" ", parts...)
}

// Hours answers an opening-hours question from structured fields.
func Hours(item domain.CatalogItem) string {
	if item.HasHours() {
		return fmt.Sprintf("Horario: %s a %s.", orDash(item.Opening), orDash(item.Closing))
	}
	if item.CheckIn != "" || item.CheckOut != "" {
		return fmt.Sprintf("El check in es desde las %s y el check out hasta las %s.", orDash(item.CheckIn), orDash(item.CheckOut))
	}
	return NotConfirmedHours
}

// RawConditions joins condition and restriction tags, or "" when the item has none.
func RawConditions(item domain.CatalogItem) string {
	return text.JoinNonEmpty(". ",
		tagList(item.Conditions),
		tagList(item.Restrictions),
	)
}

func tagList(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(strings.ReplaceAll(t, "_", " ")), " ")
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}

// ServiceFollowUp picks the per-service follow-up question by item id.
func ServiceFollowUp(item domain.CatalogItem, mentionsPet, smallAnimal bool) string {
	id := strings.ToLower(item.ID)
	switch {
	case strings.Contains(id, "transfer"):
		return "¿Fecha y hora de vuelo?"
	case strings.Contains(id, "mascotas"), strings.Contains(id, "pet"):
		if mentionsPet && smallAnimal {
			return "¿Quieres que lo coordinemos?"
		}
		if mentionsPet {
			return PetAskSize
		}
		return "¿Viajas con mascota? ¿Qué tamaño?"
	case strings.Contains(id, "room_service"):
		return "¿Para qué hora lo necesitas?"
	case strings.Contains(id, "lavanderia"):
		return "¿Para cuándo y cuántas prendas?"
	case strings.Contains(id, "estacion"):
		return "¿Llegas en auto? ¿Qué día?"
	case strings.Contains(id, "wifi"):
		return "¿Lo necesitas para trabajo o streaming?"
	case strings.Contains(id, "limpieza"):
		return "¿Prefieres un horario específico?"
	case strings.Contains(id, "concierge"):
		return "¿En qué te puedo ayudar hoy?"
	case strings.Contains(id, "asistencia"):
		return "¿Qué necesitas coordinar?"
	}
	return "¿Para qué día lo necesitas?"
}

// IsPetService reports whether item is the pet-friendly service.
func IsPetService(item domain.CatalogItem) bool {
	id := strings.ToLower(item.ID)
	return item.Category == domain.CategoryServices && (strings.Contains(id, "mascotas") || strings.Contains(id, "pet"))
}

func timePhrase(pref string) string {
	switch pref {
	case "mediodía":
		return "al mediodía"
	case "":
		return ""
	}
	return "por la " + pref
}

// DefaultFollowUp is the deterministic clarifying question per slot.
func DefaultFollowUp(slot domain.Slot) (string, bool) {
	switch slot {
	case domain.SlotDates:
		return "¿Qué fechas tienes en mente?", true
	case domain.SlotGuests:
		return "¿Para cuántas personas sería?", true
	case domain.SlotProfile:
		return "¿Viajas solo, en pareja, en familia o en grupo?", true
	case domain.SlotIntent:
		return "¿El viaje es por trabajo, descanso o aventura?", true
	}
	return "", false
}

var slotHints = map[domain.Slot]string{
	domain.SlotDates:   "fechas",
	domain.SlotGuests:  "personas",
	domain.SlotProfile: "perfil",
	domain.SlotIntent:  "motivo del viaje",
}
