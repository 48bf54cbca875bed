package guard

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

var bridges = map[domain.Category][]string{
	domain.CategoryRooms: {
		"Te dejo los detalles en la tarjeta. ¿Quieres que te recomiende algo dentro del hotel o un plan corto por Miraflores?",
		"Ahí tienes la habitación. ¿Te recomiendo algo dentro del hotel o un plan cerca?",
		"Buena elección para tu estadía. ¿Te cuento qué más hay dentro del hotel o prefieres un plan cerca?",
	},
	domain.CategoryServices: {
		"Te dejo el detalle del servicio. ¿Quieres que lo coordinemos?",
		"Lo podemos preparar para tu llegada. ¿Te ayudo a coordinarlo?",
		"Queda a tu disposición durante la estadía. ¿Lo coordinamos?",
	},
	domain.CategoryFacilities: {
		"Te dejo la información del espacio. ¿Quieres saber el horario?",
		"Es uno de los rincones favoritos de nuestros huéspedes. ¿Te comparto el horario?",
		"Puedes usarlo durante tu estadía. ¿Te cuento en qué horario está abierto?",
	},
	domain.CategoryRecommendations: {
		"Es un plan cercano al hotel. ¿Quieres que te indique cómo llegar?",
		"Queda muy cerca. ¿Te comparto cómo llegar?",
		"Vale la pena conocerlo durante tu visita. ¿Te indico la ruta?",
	},
}

var neutralBridges = []string{
	"Entendido. Podemos seguir con otro detalle de tu estadía.",
	"Perfecto. ¿Hay algo más en lo que te pueda ayudar?",
	"Claro. ¿Quieres revisar otra opción del hotel?",
}

// Bridges returns the bridge family of a category (neutral ones when unknown).
func Bridges(category domain.Category) []string {
	if v, ok := bridges[category]; ok {
		return v
	}
	return neutralBridges
}

// Seed derives a deterministic seed from the item id and the known slots.
// Fields are length-prefixed so ("ab","c") and ("a","bc") never collide.
func Seed(itemID string, state domain.ConversationState) uint64 {
	d := xxhash.New()
	for _, field := range []string{itemID, state.Dates, state.Guests, state.Profile, state.Intent} {
		_, _ = d.WriteString(strconv.Itoa(len(field)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(field)
	}
	return d.Sum64()
}

// Pick selects a variant from seed. It is a pure function of its inputs.
func Pick(seed uint64, variants []string) string {
	if len(variants) == 0 {
		return ""
	}
	return variants[seed%uint64(len(variants))]
}

// Bridge picks the bridge for the check's item (or category), skipping any variant
// that would repeat the last reply.
func (g *Guard) Bridge(c Check) string {
	category := c.Category
	id := ""
	if c.Item != nil {
		category = c.Item.Category
		id = c.Item.ID
	}
	return BridgeFor(category, id, c.State, c.LastReply)
}

// BridgeFor is Bridge without a Check.
func BridgeFor(category domain.Category, itemID string, state domain.ConversationState, lastReply string) string {
	variants := Bridges(category)
	seed := Seed(itemID, state)
	start := int(seed % uint64(len(variants)))
	for i := 0; i < len(variants); i++ {
		v := variants[(start+i)%len(variants)]
		if lastReply == "" || (!text.Equal(v, lastReply) && text.OverlapRatio(v, lastReply) < nearDuplicateRatio) {
			return v
		}
	}
	return Pick(seed, variants)
}
