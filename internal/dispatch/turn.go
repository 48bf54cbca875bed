package dispatch

import (
	"context"
	"time"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/menu"
	"github.com/aretw0/conserje/internal/rank"
	"github.com/aretw0/conserje/internal/resolve"
	"github.com/aretw0/conserje/pkg/domain"
)

// Turn is the working state of one dispatch. Expensive lookups (ranking,
// resolution) are computed on first use and shared by later branches.
type Turn struct {
	Request domain.TurnRequest
	Signals classify.Signals
	// History is the request history without a trailing copy of the message.
	History []domain.Message
	// State is the request state merged with the slots this message fills.
	State domain.ConversationState

	d           *Dispatcher
	trace       []string
	replySource string
	started     time.Time

	ranking    *rank.Ranking
	direct     *resolve.Resolution
	directOK   bool
	resolution *resolve.Resolution

	shortlist         *rank.Ranking
	shortlistCategory domain.Category
}

func newTurn(d *Dispatcher, req domain.TurnRequest) *Turn {
	history := resolve.TrimHistory(req.Message, req.History)
	s := classify.Analyze(req.Message, history)
	return &Turn{
		Request: req,
		Signals: s,
		History: history,
		State:   req.State.Merge(s.StateUpdate()),
		d:       d,
	}
}

// LastReply is the most recent assistant message.
func (t *Turn) LastReply() string {
	return domain.LastAssistant(t.History)
}

// GuestCount is the party size known so far.
func (t *Turn) GuestCount() int {
	return classify.ParseGuestCount(t.State.Guests)
}

// Filters are the menu filters implied by the state.
func (t *Turn) Filters() menu.Filters {
	return menu.Filters{Profile: t.State.Profile, Intent: t.State.Intent, GuestCount: t.GuestCount()}
}

// Ranking ranks the whole catalog against the message.
func (t *Turn) Ranking(ctx context.Context) rank.Ranking {
	if t.ranking == nil {
		r := t.d.ranker.Rank(ctx, t.Request.Message, t.d.catalog.Items)
		t.ranking = &r
	}
	return *t.ranking
}

func (t *Turn) input(ctx context.Context, withRanking bool) resolve.Input {
	in := resolve.Input{
		Signals:         t.Signals,
		History:         t.History,
		ActiveItemID:    t.Request.ActiveItemID,
		LastShownItemID: t.Request.LastShownItemID,
		Source:          t.Request.Source,
	}
	if withRanking {
		in.Ranking = t.Ranking(ctx)
	}
	return in
}

// Direct is the explicit-id or name resolution, without capability calls.
func (t *Turn) Direct() (resolve.Resolution, bool) {
	if t.direct == nil {
		res, ok := t.d.resolver.Direct(t.input(context.Background(), false))
		t.direct, t.directOK = &res, ok
	}
	return *t.direct, t.directOK
}

// Resolution runs the full resolver chain once.
func (t *Turn) Resolution(ctx context.Context) resolve.Resolution {
	if t.resolution == nil {
		var res resolve.Resolution
		if direct, ok := t.Direct(); ok {
			res = direct
		} else {
			res = t.d.resolver.Resolve(ctx, t.input(ctx, true))
		}
		t.resolution = &res
	}
	return *t.resolution
}

// Focus is the item under discussion before this message.
func (t *Turn) Focus() (domain.CatalogItem, bool) {
	return t.d.resolver.Focus(t.input(context.Background(), false))
}
