// Package resolve decides which catalog item a turn is about.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/rank"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// Source tells how the active item was found.
type Source string

const (
	SourceNone          Source = ""
	SourceExplicit      Source = "explicit"
	SourceName          Source = "name"
	SourceCarryOver     Source = "carryover"
	SourceDisambiguated Source = "disambiguated"
	SourceSemantic      Source = "semantic"
	SourceFocus         Source = "focus"
)

const (
	maxCandidates     = 6
	rankedCandidates  = 5
	shortMessageWords = 4
	keywordNameScore  = 2
)

// Input is the per-turn context of a resolution.
type Input struct {
	Signals classify.Signals
	// History must not contain a trailing copy of the message (see TrimHistory).
	History         []domain.Message
	ActiveItemID    string
	LastShownItemID string
	Source          domain.Source
	Ranking         rank.Ranking
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Item   domain.CatalogItem
	Found  bool
	Source Source
	// Repeat is set when the message repeats the previous user message in follow-up shape.
	Repeat bool
}

// Resolver finds the active item of a turn. It never mutates the catalog.
type Resolver struct {
	catalog   *domain.Catalog
	completer ports.Completer
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCompleter enables disambiguation through the completion capability.
func WithCompleter(c ports.Completer) Option {
	return func(r *Resolver) {
		r.completer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver.
func New(catalog *domain.Catalog, opts ...Option) *Resolver {
	r := &Resolver{catalog: catalog, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Direct resolves only from the explicit menu id or an item named in the message.
// The dispatcher uses it to tell an item question from a category question.
func (r *Resolver) Direct(in Input) (Resolution, bool) {
	res := Resolution{Repeat: IsRepeat(in.Signals, in.History)}
	if in.Source == domain.SourceMenu && in.ActiveItemID != "" {
		if item, ok := r.catalog.Item(in.ActiveItemID); ok {
			res.Item, res.Found, res.Source = item, true, SourceExplicit
			return res, true
		}
	}
	if item, ok := r.NameMatch(in.Signals); ok {
		res.Item, res.Found, res.Source = item, true, SourceName
		return res, true
	}
	return res, false
}

// Resolve runs the full priority chain: explicit id, name, carry-over,
// disambiguation, semantic match, focus.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	if res, ok := r.Direct(in); ok {
		return res
	}
	res := Resolution{Repeat: IsRepeat(in.Signals, in.History)}

	focus, hasFocus := r.Focus(in)
	if hasFocus && in.Signals.LowInformation() {
		res.Item, res.Found, res.Source = focus, true, SourceCarryOver
		return res
	}

	// Disambiguation arbitrates between the focus and the ranked candidates;
	// with nothing in focus the ranking alone decides.
	if r.completer != nil && hasFocus {
		choice, err := r.disambiguate(ctx, in, focus)
		switch {
		case err != nil:
			r.logger.Warn("disambiguation unavailable", "err", err)
		case choice == choiceNone:
			return res
		case choice == choiceActive:
			res.Item, res.Found, res.Source = focus, true, SourceDisambiguated
			return res
		case choice != choiceActive:
			if item, ok := r.catalog.Item(choice); ok {
				res.Item, res.Found, res.Source = item, true, SourceDisambiguated
				return res
			}
		}
	}

	if item, ok := in.Ranking.Resolved(); ok {
		res.Item, res.Found, res.Source = item, true, SourceSemantic
		return res
	}
	if hasFocus {
		res.Item, res.Found, res.Source = focus, true, SourceFocus
	}
	return res
}

// NameMatch finds the item a message names: the longest item name contained in
// the message, a word of the message that belongs to exactly one name ("king"),
// or for short messages a unique best keyword score of at least two.
func (r *Resolver) NameMatch(s classify.Signals) (domain.CatalogItem, bool) {
	n := s.Normalized
	if n == "" || !s.Informative {
		return domain.CatalogItem{}, false
	}

	var best domain.CatalogItem
	bestLen := 0
	for _, item := range r.catalog.Items {
		name := text.Normalize(item.Name)
		if name != "" && text.Contains(n, name) && len(name) > bestLen {
			best, bestLen = item, len(name)
		}
	}
	if bestLen > 0 {
		return best, true
	}

	if item, ok := r.uniqueNameContaining(n); ok {
		return item, true
	}

	if len(s.Tokens) <= shortMessageWords {
		return r.keywordMatch(n)
	}
	return domain.CatalogItem{}, false
}

// uniqueNameContaining matches a message that is a whole-word fragment of exactly one item name.
func (r *Resolver) uniqueNameContaining(n string) (domain.CatalogItem, bool) {
	if classify.IsCategoryWord(n) {
		return domain.CatalogItem{}, false
	}
	var match domain.CatalogItem
	count := 0
	for _, item := range r.catalog.Items {
		if text.Contains(text.Normalize(item.Name), n) {
			match = item
			count++
		}
	}
	return match, count == 1
}

func (r *Resolver) keywordMatch(n string) (domain.CatalogItem, bool) {
	query := strings.Join(text.MeaningfulTokens(n), " ")
	if query == "" {
		return domain.CatalogItem{}, false
	}
	var best domain.CatalogItem
	bestScore, ties := 0, 0
	for _, item := range r.catalog.Items {
		score := rank.KeywordScore(query, item)
		switch {
		case score > bestScore:
			best, bestScore, ties = item, score, 1
		case score == bestScore && score > 0:
			ties++
		}
	}
	if bestScore >= keywordNameScore && ties == 1 {
		return best, true
	}
	return domain.CatalogItem{}, false
}

// Focus is the item the conversation is currently about: the request's active
// item, else the last shown item, else the item named in the last assistant turn.
func (r *Resolver) Focus(in Input) (domain.CatalogItem, bool) {
	for _, id := range []string{in.ActiveItemID, in.LastShownItemID} {
		if id == "" {
			continue
		}
		if item, ok := r.catalog.Item(id); ok {
			return item, true
		}
	}
	return r.namedIn(domain.LastAssistant(in.History))
}

func (r *Resolver) namedIn(reply string) (domain.CatalogItem, bool) {
	n := text.Normalize(reply)
	if n == "" {
		return domain.CatalogItem{}, false
	}
	var best domain.CatalogItem
	bestLen := 0
	for _, item := range r.catalog.Items {
		name := text.Normalize(item.Name)
		if name != "" && text.Contains(n, name) && len(name) > bestLen {
			best, bestLen = item, len(name)
		}
	}
	return best, bestLen > 0
}

const (
	choiceActive = "active"
	choiceNone   = "none"
)

const disambiguatePrompt = `Eres un enrutador de intención para un conserje. Devuelve SOLO JSON válido con la clave "choice".
Valores posibles:
- "active" si el mensaje sigue hablando del ítem activo.
- el id exacto de un candidato si el mensaje se refiere a él.
- "none" si el mensaje no se refiere a ningún candidato.`

func (r *Resolver) disambiguate(ctx context.Context, in Input, focus domain.CatalogItem) (string, error) {
	candidates := Candidates(in.Ranking, focus, true)

	var b strings.Builder
	fmt.Fprintf(&b, "Mensaje: %q\n", in.Signals.Raw)
	fmt.Fprintf(&b, "Ítem activo: %s (%s)\n", focus.ID, focus.Name)
	b.WriteString("Candidatos:\n")
	for _, item := range candidates {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", item.ID, item.Name, item.Category.Label())
	}

	raw, err := r.completer.Complete(ctx, ports.CompletionRequest{
		System:      disambiguatePrompt,
		User:        b.String(),
		History:     domain.Recent(in.History, 4),
		MaxTokens:   80,
		Temperature: 0,
		Purpose:     ports.PurposeClassify,
		JSON:        true,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Choice string `json:"choice"`
	}
	if err := classify.DecodeJSON(raw, &out); err != nil {
		return "", err
	}
	choice := strings.TrimSpace(out.Choice)
	if choice == choiceActive || choice == choiceNone {
		return choice, nil
	}
	for _, item := range candidates {
		if item.ID == choice {
			return choice, nil
		}
	}
	return "", fmt.Errorf("%w: unknown choice %q", classify.ErrMalformed, choice)
}

// Candidates returns the focus followed by the top ranked items, without duplicates.
func Candidates(ranking rank.Ranking, focus domain.CatalogItem, hasFocus bool) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, maxCandidates)
	seen := make(map[string]bool, maxCandidates)
	if hasFocus {
		out = append(out, focus)
		seen[focus.ID] = true
	}
	for _, item := range ranking.Items(rankedCandidates) {
		if len(out) == maxCandidates {
			break
		}
		if !seen[item.ID] {
			seen[item.ID] = true
			out = append(out, item)
		}
	}
	return out
}

// TrimHistory drops a trailing user entry that duplicates message.
func TrimHistory(message string, history []domain.Message) []domain.Message {
	if n := len(history); n > 0 && history[n-1].Role == domain.RoleUser && text.Equal(history[n-1].Content, message) {
		return history[:n-1]
	}
	return history
}

// IsRepeat reports a verbatim repeat of the previous user message in follow-up shape.
func IsRepeat(s classify.Signals, history []domain.Message) bool {
	prev := domain.LastUser(history)
	return prev != "" && s.Normalized != "" && text.Normalize(prev) == s.Normalized && s.LowInformation()
}
