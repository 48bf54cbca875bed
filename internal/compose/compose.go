// Package compose writes guest-facing replies: structured answers from catalog
// fields, the room reservation flow, the pet-friendly flow, deterministic
// templates and, when a completion capability is wired, generated text that
// always passes through the guard before it reaches the guest.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/guard"
	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// Reply sources, reported in traces.
const (
	SourceStructured  = "structured"
	SourceReservation = "reservation"
	SourcePet         = "pet"
	SourceTemplate    = "template"
	SourceGenerated   = "generated"
	SourceBridge      = "bridge"
)

// Request is everything the composer needs to answer about one item.
type Request struct {
	Item    domain.CatalogItem
	Signals classify.Signals
	// State already includes the slots filled by this turn.
	State   domain.ConversationState
	History []domain.Message
	// CardShown is true when the item card is (or was just) on screen.
	CardShown bool
	// Generate allows a generated reply for free-form questions.
	Generate bool
	// Context lists further items the generated reply may mention.
	Context []domain.CatalogItem
}

// Reply is a composed answer plus decision hints for the dispatcher.
type Reply struct {
	Text    string
	Source  string
	Mode    domain.DecisionMode
	Reason  string
	Missing []domain.Slot
	// Rejected holds the guard reason when the first candidate was replaced.
	Rejected string
}

// Composer builds replies for one catalog.
type Composer struct {
	catalog   *domain.Catalog
	completer ports.Completer
	inferer   *classify.Inferer
	guard     *guard.Guard
	logger    *slog.Logger
	onReject  func(reason string)
}

// Option configures a Composer.
type Option func(*Composer)

// WithCompleter enables generated replies, condition rewriting and pet inference.
func WithCompleter(c ports.Completer) Option {
	return func(cp *Composer) {
		cp.completer = c
	}
}

// WithLogger sets the logger used for degraded capability calls.
func WithLogger(l *slog.Logger) Option {
	return func(cp *Composer) {
		if l != nil {
			cp.logger = l
		}
	}
}

// WithRejectHook registers a callback invoked with the reason of every guard rejection.
func WithRejectHook(fn func(reason string)) Option {
	return func(cp *Composer) {
		cp.onReject = fn
	}
}

// New creates a Composer.
func New(catalog *domain.Catalog, opts ...Option) *Composer {
	c := &Composer{
		catalog: catalog,
		guard:   guard.New(catalog),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.inferer = classify.NewInferer(c.completer, c.logger)
	return c
}

// Guard exposes the guard bound to the composer's catalog.
func (c *Composer) Guard() *guard.Guard {
	return c.guard
}

// Item answers about a single resolved item.
func (c *Composer) Item(ctx context.Context, req Request) Reply {
	item := req.Item
	check := guard.Check{
		LastReply: domain.LastAssistant(req.History),
		Item:      &item,
		CardShown: req.CardShown,
		State:     req.State,
	}

	if r, ok := c.structured(ctx, req); ok {
		return c.guarded(r, check)
	}
	if item.Category == domain.CategoryRooms {
		if r, ok := c.reservation(req); ok {
			return c.guarded(r, check)
		}
	}
	if IsPetService(item) {
		if r, ok := c.pet(ctx, req); ok {
			return c.guarded(r, check)
		}
	}
	if req.Generate && c.completer != nil {
		items := append([]domain.CatalogItem{item}, req.Context...)
		out, err := c.Generate(ctx, GenerateInput{
			Message: req.Signals.Raw,
			Items:   items,
			History: req.History,
			State:   req.State,
		})
		if err != nil {
			c.logger.Warn("generated reply unavailable", "item", item.ID, "err", err)
		} else {
			check.Candidate = out
			check.Allowed = ids(req.Context)
			v := c.guard.Sanitize(check)
			if !v.Rejected {
				return Reply{Text: v.Reply, Source: SourceGenerated, Mode: domain.ModeInform, Reason: "generated"}
			}
			c.rejected(v.Reason)
			check.Candidate = ""
		}
	}
	return c.guarded(c.template(req), check)
}

// guarded runs r through the guard. A rejected clarifying question is retried
// with the plain slot question before falling back to a bridge.
func (c *Composer) guarded(r Reply, check guard.Check) Reply {
	check.Candidate = r.Text
	v := c.guard.Sanitize(check)
	if !v.Rejected {
		r.Text = v.Reply
		return r
	}
	c.rejected(v.Reason)
	r.Rejected = v.Reason

	if r.Mode == domain.ModeClarify && len(r.Missing) > 0 {
		if q, ok := DefaultFollowUp(r.Missing[0]); ok {
			check.Candidate = q
			if retry := c.guard.Sanitize(check); !retry.Rejected {
				r.Text = retry.Reply
				return r
			}
		}
	}
	r.Text = v.Reply
	r.Source = SourceBridge
	if r.Mode != domain.ModeRedirectReservation {
		r.Mode = domain.ModeInform
	}
	return r
}

func (c *Composer) rejected(reason string) {
	if c.onReject != nil {
		c.onReject(reason)
	}
}

// structured answers hours, price and conditions questions from catalog fields.
func (c *Composer) structured(ctx context.Context, req Request) (Reply, bool) {
	s, item := req.Signals, req.Item
	r := Reply{Source: SourceStructured, Mode: domain.ModeInform}

	switch {
	case s.AsksHours:
		r.Text, r.Reason = Hours(item), "structured_hours"
		if r.Text == NotConfirmedHours {
			r.Reason = "not_confirmed"
		}
	case s.AsksPrice:
		r.Reason = "structured_price"
		switch {
		case item.PriceFrom != "":
			r.Text = fmt.Sprintf("La tarifa parte desde %s.", item.PriceFrom)
		case len(item.Conditions) > 0:
			r.Text = sentence(upperFirst(c.FormatConditions(ctx, item.Conditions, item.Name)))
		default:
			r.Text, r.Reason = NotConfirmedField, "not_confirmed"
		}
	case s.AsksConditions && !asksRoomAvailability(s, item):
		r.Reason = "structured_conditions"
		tags := append(append([]string{}, item.Conditions...), item.Restrictions...)
		if formatted := c.FormatConditions(ctx, tags, item.Name); formatted != "" {
			r.Text = sentence(upperFirst(formatted))
		} else {
			r.Text, r.Reason = NotConfirmedField, "not_confirmed"
		}
	default:
		return Reply{}, false
	}
	return r, true
}

// Availability of a room is a reservation question, not a conditions one.
func asksRoomAvailability(s classify.Signals, item domain.CatalogItem) bool {
	return item.Category == domain.CategoryRooms && text.HasPrefixWord(s.Normalized, "disponib")
}

// reservation applies the room booking flow when the guest shows reservation
// intent or fills a slot.
func (c *Composer) reservation(req Request) (Reply, bool) {
	s := req.Signals
	known := req.State.Dates != "" || req.State.Guests != ""
	if !s.Action && !s.SlotHint() && !(s.Affirmative && known) {
		return Reply{}, false
	}

	dates, guests := req.State.Dates, req.State.Guests
	if guests == "" {
		guests = GuestsFromProfile(req.State.Profile)
	}
	url := c.catalog.BookingURL(req.Item)
	r := Reply{Source: SourceReservation}

	switch {
	case dates != "" && guests != "":
		r.Mode, r.Reason, r.Missing = domain.ModeRedirectReservation, "booking_ready", []domain.Slot{}
		r.Text = fmt.Sprintf("Perfecto, %s (%s). %s", dates, guests, c.bookingLine(url))
	case dates != "":
		r.Mode, r.Reason, r.Missing = domain.ModeClarify, "missing_guests", []domain.Slot{domain.SlotGuests}
		r.Text = fmt.Sprintf("Perfecto, para %s. ¿Para cuántas personas?", dates)
	case guests != "":
		r.Mode, r.Reason, r.Missing = domain.ModeClarify, "missing_dates", []domain.Slot{domain.SlotDates}
		r.Text = fmt.Sprintf("Perfecto, %s. ¿Qué fechas tienes en mente?", guests)
	default:
		r.Mode, r.Reason, r.Missing = domain.ModeRedirectReservation, "booking_reference", []domain.Slot{domain.SlotDates, domain.SlotGuests}
		r.Text = c.bookingReference(url)
	}
	return r, true
}

func (c *Composer) bookingLine(url string) string {
	if url != "" {
		return "Te ayudo a reservar en nuestro canal oficial: " + url
	}
	return fmt.Sprintf("Te ayudo a reservar: escríbenos a %s.", c.catalog.Hotel.EscalationEmail)
}

func (c *Composer) bookingReference(url string) string {
	if url != "" {
		return "Puedes revisar disponibilidad y reservar en nuestro canal oficial: " + url
	}
	return fmt.Sprintf("Para revisar disponibilidad, escríbenos a %s.", c.catalog.Hotel.EscalationEmail)
}

// pet runs the pet-friendly flow: conditions on yes, proceed on a known size,
// ask the size once otherwise.
func (c *Composer) pet(ctx context.Context, req Request) (Reply, bool) {
	s, item := req.Signals, req.Item
	last := text.Normalize(domain.LastAssistant(req.History))
	r := Reply{Source: SourcePet, Mode: domain.ModeInform}

	if s.Affirmative {
		if petDetailsShared(last) {
			r.Text, r.Reason = PetCoordinated, "pet_confirmed"
			return r, true
		}
		tags := append(append([]string{}, item.Conditions...), item.Restrictions...)
		conditions := sentence(upperFirst(c.FormatConditions(ctx, tags, item.Name)))
		r.Text, r.Reason = text.JoinNonEmpty(" ", conditions, PetOffer), "pet_conditions"
		return r, true
	}
	if s.PetSize != "" {
		r.Text, r.Reason = fmt.Sprintf("Perfecto, tamaño %s. %s", s.PetSize, PetOffer), "pet_size"
		return r, true
	}

	size, asked := petSizeHistory(req.History)
	pc := c.inferer.PetContext(ctx, s.Raw, size)
	if !pc.HasPet {
		return Reply{}, false
	}
	tail, reason := PetOffer, "pet_offer"
	if pc.NeedsSize && !asked {
		tail, reason = PetAskSize, "pet_size_needed"
	}
	detail := text.FirstSentence(item.Factual)
	if req.CardShown {
		detail = ""
	}
	r.Text = text.JoinNonEmpty(" ", PetIntro, detail, tail)
	r.Reason = reason
	return r, true
}

// petSizeHistory returns the last size the guest named and whether the size
// question was already asked anywhere in the conversation.
func petSizeHistory(history []domain.Message) (size string, asked bool) {
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			if sz := classify.PetSize(m.Content); sz != "" {
				size = sz
			}
		case domain.RoleAssistant:
			if text.HasPrefixWord(text.Normalize(m.Content), "taman") {
				asked = true
			}
		}
	}
	return size, asked
}

func petDetailsShared(lastNormalized string) bool {
	if text.Contains(lastNormalized, "coordinarlo cuando quieras") {
		return true
	}
	for _, stem := range []string{"condicion", "costo", "cargo", "especial"} {
		if text.HasPrefixWord(lastNormalized, stem) {
			return true
		}
	}
	return false
}

// template is the deterministic detail plus continuation reply.
func (c *Composer) template(req Request) Reply {
	s, item := req.Signals, req.Item
	r := Reply{Source: SourceTemplate, Mode: domain.ModeInform, Reason: "item_detail"}

	if s.Affirmative {
		if progress, ok := affirmativeProgress(item); ok {
			r.Text, r.Reason = progress, "item_progress"
			return r
		}
	}

	detail := Detail(item)
	var continuation string
	switch item.Category {
	case domain.CategoryRooms:
		continuation = roomContinuation
	case domain.CategoryServices:
		switch {
		case s.TimePreference != "":
			detail = ""
			continuation = fmt.Sprintf("Perfecto, %s. ¿Quieres que lo coordinemos?", timePhrase(s.TimePreference))
		case s.DateHint != "":
			detail = ""
			continuation = fmt.Sprintf("Perfecto, para %s. ¿Quieres que lo coordinemos?", s.DateHint)
		default:
			continuation = ServiceFollowUp(item, s.MentionsPet, s.SmallAnimal)
		}
	case domain.CategoryFacilities:
		continuation = facilityUse
		if item.HasHours() {
			continuation = facilityHours
		}
	case domain.CategoryRecommendations:
		continuation = recommendationWay
	default:
		continuation = genericContinuation
	}
	r.Text = text.JoinNonEmpty(" ", detail, continuation)
	return r
}

// affirmativeProgress answers a "sí" to the item's own continuation question.
// Rooms have none: the card itself is the answer.
func affirmativeProgress(item domain.CatalogItem) (string, bool) {
	switch item.Category {
	case domain.CategoryServices:
		return "Perfecto, lo coordinamos. " + ServiceFollowUp(item, false, false), true
	case domain.CategoryFacilities:
		if item.HasHours() {
			return Hours(item), true
		}
		return "Perfecto. Está disponible para ti durante tu estadía.", true
	case domain.CategoryRecommendations:
		if item.MapURL != "" {
			return "Puedes llegar siguiendo esta ruta: " + item.MapURL, true
		}
		return "Queda cerca del hotel. En recepción te indicamos cómo llegar.", true
	}
	return "", false
}

func upperFirst(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func ids(items []domain.CatalogItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
