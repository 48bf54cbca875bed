// Package dispatch routes a turn through an ordered list of branches. The
// first branch whose Match reports true handles the turn; the order is data,
// so each branch can be tested and reordered on its own.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/compose"
	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/menu"
	"github.com/aretw0/conserje/internal/rank"
	"github.com/aretw0/conserje/internal/resolve"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// Branch names, in default order.
const (
	BranchEscalation    = "escalation"
	BranchInsideHotel   = "inside_hotel"
	BranchCategoryQuery = "category_query"
	BranchFollowUp      = "followup"
	BranchItem          = "item"
	BranchNoMatch       = "no_match"
	BranchShortlist     = "shortlist"
)

// Branch is one guard/handler pair of the decision list.
type Branch struct {
	Name   string
	Match  func(ctx context.Context, t *Turn) bool
	Handle func(ctx context.Context, t *Turn) *domain.TurnResponse
}

// Observer receives the branch taken, the decision and the elapsed time of every dispatched turn.
type Observer func(branch string, decision domain.Decision, elapsed time.Duration)

// Dispatcher answers turns against one catalog. It holds no per-session state
// and is safe for concurrent use when its capabilities and caches are.
type Dispatcher struct {
	catalog   *domain.Catalog
	ranker    *rank.Ranker
	resolver  *resolve.Resolver
	composer  *compose.Composer
	menus     *menu.Builder
	inferer   *classify.Inferer
	completer ports.Completer
	logger    *slog.Logger
	observer  Observer
	branches  []Branch

	rankOpts    []rank.Option
	composeOpts []compose.Option
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCompleter wires the completion capability into every component.
func WithCompleter(c ports.Completer) Option {
	return func(d *Dispatcher) {
		d.completer = c
	}
}

// WithRankOptions passes options (embedder, caches) to the ranker.
func WithRankOptions(opts ...rank.Option) Option {
	return func(d *Dispatcher) {
		d.rankOpts = append(d.rankOpts, opts...)
	}
}

// WithComposeOptions passes options to the composer.
func WithComposeOptions(opts ...compose.Option) Option {
	return func(d *Dispatcher) {
		d.composeOpts = append(d.composeOpts, opts...)
	}
}

// WithLogger sets the logger of the dispatcher and its components.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver registers a callback run after every dispatched turn.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithBranches replaces the decision list.
func WithBranches(build func(d *Dispatcher) []Branch) Option {
	return func(d *Dispatcher) {
		d.branches = build(d)
	}
}

// New creates a Dispatcher over catalog.
func New(catalog *domain.Catalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog: catalog,
		menus:   menu.New(catalog),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	rankOpts := append([]rank.Option{rank.WithLogger(d.logger)}, d.rankOpts...)
	d.ranker = rank.New(catalog.Version, rankOpts...)
	d.resolver = resolve.New(catalog, resolve.WithCompleter(d.completer), resolve.WithLogger(d.logger))
	composeOpts := append([]compose.Option{compose.WithCompleter(d.completer), compose.WithLogger(d.logger)}, d.composeOpts...)
	d.composer = compose.New(catalog, composeOpts...)
	d.inferer = classify.NewInferer(d.completer, d.logger)
	if d.branches == nil {
		d.branches = d.DefaultBranches()
	}
	return d
}

// DefaultBranches returns the standard decision list.
func (d *Dispatcher) DefaultBranches() []Branch {
	return []Branch{
		{Name: BranchEscalation, Match: d.matchEscalation, Handle: d.handleEscalation},
		{Name: BranchInsideHotel, Match: d.matchInsideHotel, Handle: d.handleInsideHotel},
		{Name: BranchCategoryQuery, Match: d.matchCategoryQuery, Handle: d.handleCategoryQuery},
		{Name: BranchFollowUp, Match: d.matchFollowUp, Handle: d.handleFollowUp},
		{Name: BranchItem, Match: d.matchItem, Handle: d.handleItem},
		{Name: BranchNoMatch, Match: d.matchNoMatch, Handle: d.handleNoMatch},
		{Name: BranchShortlist, Match: always, Handle: d.handleShortlist},
	}
}

// Branches returns the names of the configured branches in order.
func (d *Dispatcher) Branches() []string {
	names := make([]string, 0, len(d.branches))
	for _, b := range d.branches {
		names = append(names, b.Name)
	}
	return names
}

// Composer exposes the reply composer (used by the follow-up API).
func (d *Dispatcher) Composer() *compose.Composer {
	return d.composer
}

// Menus exposes the menu builder.
func (d *Dispatcher) Menus() *menu.Builder {
	return d.menus
}

// Dispatch answers one turn. It is a pure function of the request, the catalog
// and the capabilities' answers.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}
	req.Message = message

	t := newTurn(d, req)
	t.started = time.Now()
	for _, b := range d.branches {
		t.trace = append(t.trace, b.Name)
		if !b.Match(ctx, t) {
			continue
		}
		resp := b.Handle(ctx, t)
		if resp == nil {
			continue
		}
		d.finish(t, b.Name, resp)
		return resp, nil
	}

	// Unreachable with the default list: the shortlist branch always matches.
	resp := d.noMatchResponse(t)
	d.finish(t, BranchNoMatch, resp)
	return resp, nil
}

func (d *Dispatcher) finish(t *Turn, branch string, resp *domain.TurnResponse) {
	resp.State = t.State
	resp.Intent = t.State.Intent
	resp.Profile = t.State.Profile
	if resp.Items == nil {
		resp.Items = []domain.CatalogItem{}
	}
	if resp.Menu == nil {
		resp.Menu = []domain.MenuEntry{}
	}
	if resp.CTAs == nil {
		resp.CTAs = []string{}
	}
	if resp.Decision.Missing == nil {
		resp.Decision.Missing = []domain.Slot{}
	}
	if t.Request.Debug {
		resp.Trace = append(t.trace, "taken:"+branch)
		if t.resolution != nil && t.resolution.Found {
			resp.Trace = append(resp.Trace, "resolve:"+string(t.resolution.Source)+":"+t.resolution.Item.ID)
		}
		if t.replySource != "" {
			resp.Trace = append(resp.Trace, "reply:"+t.replySource)
		}
	}
	d.logger.Debug("turn dispatched",
		"branch", branch,
		"mode", resp.Decision.Mode,
		"reason", resp.Decision.Reason,
		"active_item", resp.ActiveItemID,
	)
	if d.observer != nil {
		d.observer(branch, resp.Decision, time.Since(t.started))
	}
}

func always(context.Context, *Turn) bool { return true }
