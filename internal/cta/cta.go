// Package cta derives at most two call-to-action labels for a reply.
package cta

import (
	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
)

// The fixed label vocabulary. The same action always surfaces with the same wording.
const (
	ReserveRoom       = "Reservar habitación"
	CheckAvailability = "Revisar disponibilidad"
	CoordinateService = "Coordinar servicio"
	RequestInfo       = "Solicitar información"
	SeeMoreAreas      = "Ver más áreas"
	Directions        = "Cómo llegar"
)

// Vocabulary lists every label the builder can emit.
var Vocabulary = []string{ReserveRoom, CheckAvailability, CoordinateService, RequestInfo, SeeMoreAreas, Directions}

// MaxLabels is the maximum number of CTAs per reply.
const MaxLabels = 2

// inCardActions are reply phrases that already offer the service action.
var inCardActions = []string{"coordinarlo", "lo coordinamos", "coordinemos", "lo coordino"}

// Input is what the builder looks at.
type Input struct {
	Signals  classify.Signals
	Item     *domain.CatalogItem
	Category domain.Category
	State    domain.ConversationState
	Reply    string
	Mode     domain.DecisionMode
}

// Build returns up to MaxLabels labels, never nil.
func Build(in Input) []string {
	out := make([]string, 0, MaxLabels)
	if in.Mode == domain.ModeEscalateHuman {
		return out
	}

	category := in.Category
	if in.Item != nil {
		category = in.Item.Category
	}
	if text.EndsWithQuestion(in.Reply) && category != domain.CategoryRooms {
		return out
	}

	s := in.Signals
	anySlot := in.State.Dates != "" || in.State.Guests != "" || in.State.Profile != ""

	switch category {
	case domain.CategoryRooms:
		ready := in.State.Dates != "" && in.State.Guests != ""
		trigger := s.Action || (s.Affirmative && anySlot) || in.Mode == domain.ModeRedirectReservation
		if ready {
			out = append(out, ReserveRoom)
		}
		if trigger {
			out = append(out, CheckAvailability)
		}
	case domain.CategoryServices:
		if (s.Action || s.Affirmative || in.State.Dates != "") && !pointsToAction(in.Reply) {
			out = append(out, CoordinateService)
		}
		if s.Action {
			out = append(out, RequestInfo)
		}
	case domain.CategoryFacilities:
		if s.Action || s.Affirmative {
			out = append(out, SeeMoreAreas)
		}
		if s.Action {
			out = append(out, RequestInfo)
		}
	case domain.CategoryRecommendations:
		if (s.Wayfinding || s.Affirmative) && in.Item != nil && in.Item.MapURL != "" {
			out = append(out, Directions)
		}
		if s.Action {
			out = append(out, RequestInfo)
		}
	}

	if len(out) == 0 && in.Mode == domain.ModeRedirectReservation {
		out = append(out, CheckAvailability)
	}
	return dedupe(out)
}

func pointsToAction(reply string) bool {
	n := text.Normalize(reply)
	for _, p := range inCardActions {
		if text.Contains(n, p) {
			return true
		}
	}
	return false
}

func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, MaxLabels)
	for _, l := range labels {
		if seen[l] || len(out) == MaxLabels {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
