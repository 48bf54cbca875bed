package dispatch

import (
	"context"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/compose"
	"github.com/aretw0/conserje/internal/cta"
	"github.com/aretw0/conserje/internal/guard"
	"github.com/aretw0/conserje/internal/menu"
	"github.com/aretw0/conserje/internal/rank"
	"github.com/aretw0/conserje/internal/resolve"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

const (
	categoryShortlistSize = 3
	shortlistSize         = 5
	listWordLimit         = 2
)

func (d *Dispatcher) matchEscalation(_ context.Context, t *Turn) bool {
	return t.Signals.Escalation
}

func (d *Dispatcher) handleEscalation(_ context.Context, t *Turn) *domain.TurnResponse {
	return &domain.TurnResponse{
		Reply:        compose.Escalation(d.catalog.Hotel.EscalationEmail),
		ActiveItemID: t.Request.ActiveItemID,
		Decision:     domain.Decision{Mode: domain.ModeEscalateHuman, Reason: "sensitive_topic"},
	}
}

func (d *Dispatcher) matchInsideHotel(_ context.Context, t *Turn) bool {
	if !t.Signals.InsideHotel {
		return false
	}
	if _, ok := t.Focus(); ok {
		return true
	}
	return text.Contains(text.Normalize(t.LastReply()), "dentro del hotel")
}

func (d *Dispatcher) handleInsideHotel(_ context.Context, t *Turn) *domain.TurnResponse {
	items := d.menus.Discovery()
	return &domain.TurnResponse{
		Reply:    compose.InsideHotel,
		Menu:     menu.Entries(items),
		Decision: domain.Decision{Mode: domain.ModeShowMenu, Reason: "inside_hotel"},
	}
}

// queryCategory returns the category the turn asks about and whether the guest
// clicked the category entry itself.
func (t *Turn) queryCategory() (domain.Category, bool) {
	if t.Request.Source == domain.SourceMenu {
		if c, ok := domain.CategoryFromMenuID(t.Request.ActiveItemID); ok {
			return c, true
		}
	}
	return t.Signals.QueryCategory, false
}

func (d *Dispatcher) matchCategoryQuery(_ context.Context, t *Turn) bool {
	category, explicit := t.queryCategory()
	if category == "" {
		return false
	}
	if explicit {
		return true
	}
	_, named := t.Direct()
	return !named
}

func (d *Dispatcher) handleCategoryQuery(ctx context.Context, t *Turn) *domain.TurnResponse {
	category, explicit := t.queryCategory()
	s := t.Signals

	listOnly := explicit || s.BareCategory ||
		(!s.Question && len(s.Tokens) <= listWordLimit) ||
		d.inferer.ListIntent(ctx, s.Raw, category)
	if !listOnly {
		candidates := d.menus.Build(category, t.Filters())
		ranking := d.ranker.Rank(ctx, s.Raw, candidates.Items)
		if top := aboveShortlist(ranking, categoryShortlistSize); len(top) > 0 {
			reply := d.composer.Shortlist(ctx, compose.ShortlistRequest{
				Message:  s.Raw,
				Category: category,
				Items:    top,
				History:  t.History,
				State:    t.State,
			})
			t.replySource = reply.Source
			return &domain.TurnResponse{
				Reply:    reply.Text,
				Items:    top,
				Menu:     menu.Entries(top),
				CTAs:     cta.Build(cta.Input{Signals: s, Category: category, State: t.State, Reply: reply.Text, Mode: reply.Mode}),
				Category: category,
				Decision: domain.Decision{Mode: reply.Mode, Reason: reply.Reason},
			}
		}
	}
	return d.listing(t, category)
}

func (d *Dispatcher) listing(t *Turn, category domain.Category) *domain.TurnResponse {
	res := d.menus.Build(category, t.Filters())
	if res.NoMatch {
		return &domain.TurnResponse{
			Reply:    compose.NoRoomsForProfile,
			Menu:     d.menus.Categories(category),
			Category: category,
			Decision: domain.Decision{Mode: domain.ModeShowMenu, Reason: "no_rooms_for_profile"},
		}
	}
	profile := res.Profile
	if res.Relaxed {
		profile = ""
	}
	return &domain.TurnResponse{
		Reply:    compose.Listing(category, profile, res.Items),
		Menu:     res.Entries(),
		Category: category,
		Decision: domain.Decision{Mode: domain.ModeShowMenu, Reason: "category_listing"},
	}
}

func (d *Dispatcher) matchFollowUp(ctx context.Context, t *Turn) bool {
	return t.Resolution(ctx).Source == resolve.SourceCarryOver
}

func (d *Dispatcher) handleFollowUp(ctx context.Context, t *Turn) *domain.TurnResponse {
	res := t.Resolution(ctx)
	item := res.Item
	switch {
	case t.Signals.Negative:
		return d.declined(item)
	case res.Repeat:
		t.replySource = compose.SourceBridge
		return &domain.TurnResponse{
			Reply:           guard.BridgeFor(item.Category, item.ID, t.State, t.LastReply()),
			Category:        item.Category,
			ActiveItemID:    item.ID,
			LastShownItemID: t.Request.LastShownItemID,
			Decision:        domain.Decision{Mode: domain.ModeInform, Reason: "repeat"},
		}
	}
	showCard := t.Signals.Affirmative && t.Request.LastShownItemID != item.ID
	return d.itemResponse(ctx, t, item, showCard, false)
}

func (d *Dispatcher) matchItem(ctx context.Context, t *Turn) bool {
	return t.Resolution(ctx).Found
}

func (d *Dispatcher) handleItem(ctx context.Context, t *Turn) *domain.TurnResponse {
	res := t.Resolution(ctx)
	if t.Signals.Negative {
		return d.declined(res.Item)
	}
	direct := res.Source == resolve.SourceExplicit || res.Source == resolve.SourceName
	showCard := direct && t.Request.LastShownItemID != res.Item.ID
	return d.itemResponse(ctx, t, res.Item, showCard, !direct)
}

func (d *Dispatcher) declined(item domain.CatalogItem) *domain.TurnResponse {
	return &domain.TurnResponse{
		Reply:    compose.Declined,
		Menu:     d.menus.Categories(item.Category),
		Category: item.Category,
		Decision: domain.Decision{Mode: domain.ModeShowMenu, Reason: "declined"},
	}
}

// itemResponse answers about item. Rooms restricted for the party are replaced
// by alternatives before anything is composed.
func (d *Dispatcher) itemResponse(ctx context.Context, t *Turn, item domain.CatalogItem, showCard, withContext bool) *domain.TurnResponse {
	if menu.RestrictedForGroup(item, t.GuestCount(), t.State.Profile) {
		alternatives := d.menus.Alternatives(t.GuestCount(), t.State.Profile)
		return &domain.TurnResponse{
			Reply:    compose.GroupRestricted,
			Menu:     menu.Entries(alternatives),
			Category: domain.CategoryRooms,
			Decision: domain.Decision{Mode: domain.ModeShowMenu, Reason: "group_restricted"},
		}
	}

	s := t.Signals
	req := compose.Request{
		Item:      item,
		Signals:   s,
		State:     t.State,
		History:   t.History,
		CardShown: showCard || t.Request.LastShownItemID == item.ID,
		Generate:  freeform(s),
	}
	if withContext {
		req.Context = related(t.Ranking(ctx), item)
	}
	reply := d.composer.Item(ctx, req)
	t.replySource = reply.Source

	resp := &domain.TurnResponse{
		Reply:           reply.Text,
		Category:        item.Category,
		ActiveItemID:    item.ID,
		LastShownItemID: t.Request.LastShownItemID,
		Decision:        domain.Decision{Mode: reply.Mode, Reason: reply.Reason, Missing: reply.Missing},
	}
	if showCard {
		resp.Items = []domain.CatalogItem{item}
		resp.LastShownItemID = item.ID
	}
	resp.CTAs = cta.Build(cta.Input{Signals: s, Item: &item, State: t.State, Reply: reply.Text, Mode: reply.Mode})
	return resp
}

// freeform is a question that no structured path answers.
func freeform(s classify.Signals) bool {
	return s.Question && !s.SlotHint() && !s.Affirmative && !s.Action &&
		!s.AsksHours && !s.AsksPrice && !s.AsksConditions
}

// related returns up to two other ranked items of the same category that may be
// mentioned next to item in a generated reply.
func related(ranking rank.Ranking, item domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, 2)
	for _, e := range ranking.Entries {
		if len(out) == 2 || e.Score < ranking.ShortlistThreshold() {
			break
		}
		if e.Item.ID != item.ID && e.Item.Category == item.Category {
			out = append(out, e.Item)
		}
	}
	return out
}

// shortlistRanking ranks the candidates left after the state filters, using
// the structured classification when the keyword tables found nothing.
func (d *Dispatcher) shortlistRanking(ctx context.Context, t *Turn) (rank.Ranking, domain.Category) {
	var category domain.Category
	if d.inferer.Available() && (t.State.Intent == "" || t.State.Profile == "" || t.Signals.Category == "") {
		cls := d.inferer.Classify(ctx, t.Request.Message)
		t.State = t.State.Merge(domain.ConversationState{Intent: cls.Intent, Profile: cls.Profile})
		category = cls.Category
	}
	if category == "" {
		category = t.Signals.Category
	}

	candidates := d.catalog.Items
	if category != "" {
		candidates = d.catalog.ByCategory(category)
	}
	if filtered := menu.Filter(candidates, t.State.Profile, t.State.Intent); len(filtered) > 0 {
		candidates = filtered
	}
	candidates = withoutRestricted(candidates, t.GuestCount(), t.State.Profile)
	if len(candidates) == len(d.catalog.Items) {
		return t.Ranking(ctx), category
	}
	return d.ranker.Rank(ctx, t.Request.Message, candidates), category
}

func (d *Dispatcher) matchNoMatch(ctx context.Context, t *Turn) bool {
	ranking, category := d.shortlistRanking(ctx, t)
	t.shortlist = &ranking
	t.shortlistCategory = category
	top, ok := ranking.Top()
	return !ok || top.Score < ranking.ShortlistThreshold() || rank.KeywordScore(t.Request.Message, top.Item) == 0
}

func (d *Dispatcher) handleNoMatch(_ context.Context, t *Turn) *domain.TurnResponse {
	return d.noMatchResponse(t)
}

func (d *Dispatcher) noMatchResponse(t *Turn) *domain.TurnResponse {
	return &domain.TurnResponse{
		Reply:    compose.NoMatch(d.catalog.Hotel.EscalationEmail),
		Menu:     d.menus.Categories(""),
		Decision: domain.Decision{Mode: domain.ModeClarify, Reason: "no_confident_match"},
	}
}

func (d *Dispatcher) handleShortlist(ctx context.Context, t *Turn) *domain.TurnResponse {
	if t.shortlist == nil {
		ranking, category := d.shortlistRanking(ctx, t)
		t.shortlist, t.shortlistCategory = &ranking, category
	}
	top := t.shortlist.Items(shortlistSize)
	reply := d.composer.Shortlist(ctx, compose.ShortlistRequest{
		Message:  t.Request.Message,
		Category: t.shortlistCategory,
		Items:    top,
		History:  t.History,
		State:    t.State,
	})
	t.replySource = reply.Source
	return &domain.TurnResponse{
		Reply:    reply.Text,
		Menu:     menu.Entries(top),
		CTAs:     cta.Build(cta.Input{Signals: t.Signals, Category: t.shortlistCategory, State: t.State, Reply: reply.Text, Mode: reply.Mode}),
		Category: t.shortlistCategory,
		Decision: domain.Decision{Mode: reply.Mode, Reason: reply.Reason},
	}
}

func aboveShortlist(r rank.Ranking, n int) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, n)
	for _, e := range r.Entries {
		if len(out) == n || e.Score < r.ShortlistThreshold() {
			break
		}
		out = append(out, e.Item)
	}
	return out
}

func withoutRestricted(items []domain.CatalogItem, count int, profile string) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if !menu.RestrictedForGroup(item, count, profile) {
			out = append(out, item)
		}
	}
	return out
}
