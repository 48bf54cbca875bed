// Package guard rejects replies that loop, echo a card already on screen, or
// mention items outside the current focus, replacing them with a bridge sentence.
package guard

import (
	"strings"

	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

// Rejection reasons, in evaluation order.
const (
	ReasonDuplicate          = "duplicate"
	ReasonNearDuplicate      = "near_duplicate"
	ReasonCrossContamination = "cross_contamination"
	ReasonCardEcho           = "card_echo"
)

const (
	nearDuplicateRatio = 0.9
	cardEchoRatio      = 0.45
	cardEchoKeywords   = 4
	// minRepeatTokens is the fewest 4+ char tokens a candidate needs before the
	// repeat rules apply. Short structured answers ("Horario: 07:00 a 22:00.")
	// share the topic word with the question that offered them.
	minRepeatTokens = 3
)

// progressMarkers mean the reply moves the conversation forward even if it
// reuses card vocabulary (schedule, confirmation, coordination).
var progressMarkers = []string{"horario", "check in", "check out", "perfecto", "fecha", "fechas", "personas", "te ayudo"}

var progressStems = []string{"confirm", "coordin", "reserv", "taman"}

// Check is one candidate reply plus the context needed to judge it.
type Check struct {
	Candidate string
	LastReply string
	// Item is the focused item, if any.
	Item *domain.CatalogItem
	// Category picks the bridge family when there is no focused item.
	Category domain.Category
	// Allowed lists the item IDs the reply may name besides the focus.
	Allowed []string
	// CardShown enables the card-echo rule: the focused item is (or was just) on screen.
	CardShown bool
	State     domain.ConversationState
}

// Verdict is the guard's decision.
type Verdict struct {
	Reply    string
	Rejected bool
	Reason   string
}

// Guard checks replies against one catalog.
type Guard struct {
	catalog *domain.Catalog
}

// New creates a Guard.
func New(catalog *domain.Catalog) *Guard {
	return &Guard{catalog: catalog}
}

// Sanitize returns the candidate unchanged or a deterministic bridge when a rule fires.
func (g *Guard) Sanitize(c Check) Verdict {
	if reason := g.reject(c); reason != "" {
		return Verdict{Reply: g.Bridge(c), Rejected: true, Reason: reason}
	}
	return Verdict{Reply: strings.TrimSpace(c.Candidate)}
}

// reject reports the first rule the candidate breaks, or "".
func (g *Guard) reject(c Check) string {
	cand := text.Normalize(c.Candidate)
	if cand == "" {
		return ReasonDuplicate
	}
	if c.LastReply != "" && text.LongTokenCount(c.Candidate) >= minRepeatTokens {
		if cand == text.Normalize(c.LastReply) {
			return ReasonDuplicate
		}
		if text.OverlapRatio(c.Candidate, c.LastReply) >= nearDuplicateRatio {
			return ReasonNearDuplicate
		}
	}
	if g.mentionsForeignItem(cand, c) {
		return ReasonCrossContamination
	}
	if c.CardShown && c.Item != nil && EchoesCard(c.Candidate, *c.Item) && !HasProgress(c.Candidate) {
		return ReasonCardEcho
	}
	return ""
}

func (g *Guard) mentionsForeignItem(cand string, c Check) bool {
	if g.catalog == nil {
		return false
	}
	allowed := make(map[string]bool, len(c.Allowed)+1)
	for _, id := range c.Allowed {
		allowed[id] = true
	}
	if c.Item != nil {
		allowed[c.Item.ID] = true
	}

	// Blank out allowed names first so a foreign name nested inside one does not count.
	padded := " " + cand + " "
	for _, item := range g.catalog.Items {
		if allowed[item.ID] {
			if name := text.Normalize(item.Name); name != "" {
				padded = strings.ReplaceAll(padded, " "+name+" ", "  ")
			}
		}
	}
	for _, item := range g.catalog.Items {
		if allowed[item.ID] {
			continue
		}
		if name := text.Normalize(item.Name); name != "" && strings.Contains(padded, " "+name+" ") {
			return true
		}
	}
	return false
}

// CardCorpus is the text a guest sees on an item card.
func CardCorpus(item domain.CatalogItem) string {
	parts := []string{item.Factual, item.Experiential}
	if item.CheckIn != "" {
		parts = append(parts, "check in "+item.CheckIn)
	}
	if item.CheckOut != "" {
		parts = append(parts, "check out "+item.CheckOut)
	}
	if item.Opening != "" {
		parts = append(parts, "horario "+item.Opening)
	}
	if item.Closing != "" {
		parts = append(parts, "horario "+item.Closing)
	}
	parts = append(parts, item.PriceFrom)
	return text.JoinNonEmpty(" ", parts...)
}

// EchoesCard reports whether reply repeats the card of item.
func EchoesCard(reply string, item domain.CatalogItem) bool {
	corpus := CardCorpus(item)
	if corpus == "" || strings.TrimSpace(reply) == "" {
		return false
	}
	if text.OverlapRatio(reply, corpus) >= cardEchoRatio || text.OverlapRatio(corpus, reply) >= cardEchoRatio {
		return true
	}
	return text.SharedMeaningful(reply, corpus) >= cardEchoKeywords
}

// HasProgress reports whether reply carries schedule, confirmation or coordination language.
func HasProgress(reply string) bool {
	n := text.Normalize(reply)
	for _, m := range progressMarkers {
		if text.Contains(n, m) {
			return true
		}
	}
	for _, stem := range progressStems {
		if text.HasPrefixWord(n, stem) {
			return true
		}
	}
	return false
}
