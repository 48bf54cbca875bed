package cta_test

import (
	"testing"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/cta"
	"github.com/aretw0/conserje/internal/testutils"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	c := testutils.Catalog(t)
	get := func(id string) *domain.CatalogItem {
		it, ok := c.Item(id)
		require.True(t, ok)
		return &it
	}

	tests := []struct {
		name string
		in   cta.Input
		want []string
	}{
		{
			name: "room with action intent asks availability even after a question",
			in: cta.Input{
				Signals: classify.Analyze("quiero reservar", nil),
				Item:    get(testutils.DeluxeKing),
				Reply:   "Perfecto. ¿Qué fechas tienes en mente?",
			},
			want: []string{cta.CheckAvailability},
		},
		{
			name: "room ready to book",
			in: cta.Input{
				Signals: classify.Analyze("si", nil),
				Item:    get(testutils.DeluxeKing),
				State:   domain.ConversationState{Dates: "12/05", Guests: "2 personas"},
				Reply:   "Perfecto, 12/05 (2 personas).",
			},
			want: []string{cta.ReserveRoom, cta.CheckAvailability},
		},
		{
			name: "room without trigger",
			in:   cta.Input{Signals: classify.Analyze("cuéntame más", nil), Item: get(testutils.DeluxeKing)},
			want: []string{},
		},
		{
			name: "service suppressed by trailing question",
			in: cta.Input{
				Signals: classify.Analyze("si", nil),
				Item:    get(testutils.Transfer),
				Reply:   "¿Fecha y hora de vuelo?",
			},
			want: []string{},
		},
		{
			name: "service coordinate",
			in: cta.Input{
				Signals: classify.Analyze("si", nil),
				Item:    get(testutils.Transfer),
				Reply:   "Perfecto.",
			},
			want: []string{cta.CoordinateService},
		},
		{
			name: "service reply already offers the action",
			in: cta.Input{
				Signals: classify.Analyze("si", nil),
				Item:    get(testutils.Mascotas),
				Reply:   "Perfecto, lo coordinamos.",
			},
			want: []string{},
		},
		{
			name: "facility action",
			in: cta.Input{
				Signals: classify.Analyze("quiero solicitar acceso", nil),
				Item:    get(testutils.Coworking),
				Reply:   "Claro.",
			},
			want: []string{cta.SeeMoreAreas, cta.RequestInfo},
		},
		{
			name: "recommendation directions",
			in: cta.Input{
				Signals: classify.Analyze("cómo llego", nil),
				Item:    get(testutils.Kennedy),
				Reply:   "Está a cinco minutos.",
			},
			want: []string{cta.Directions},
		},
		{
			name: "escalation never has ctas",
			in: cta.Input{
				Signals: classify.Analyze("quiero reservar", nil),
				Item:    get(testutils.DeluxeKing),
				Mode:    domain.ModeEscalateHuman,
			},
			want: []string{},
		},
		{
			name: "redirect without other labels",
			in: cta.Input{
				Category: domain.CategoryRooms,
				Mode:     domain.ModeRedirectReservation,
				Reply:    "Puedes reservar aquí.",
			},
			want: []string{cta.CheckAvailability},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cta.Build(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), cta.MaxLabels)
			for _, l := range got {
				assert.Contains(t, cta.Vocabulary, l)
			}
		})
	}
}
