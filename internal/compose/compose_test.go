package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/guard"
	"github.com/aretw0/conserje/internal/testutils"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  ports.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func request(t *testing.T, catalog *domain.Catalog, id, message string, history ...domain.Message) Request {
	t.Helper()
	item, ok := catalog.Item(id)
	require.True(t, ok, id)
	s := classify.Analyze(message, history)
	return Request{
		Item:    item,
		Signals: s,
		State:   domain.ConversationState{}.Merge(s.StateUpdate()),
		History: history,
	}
}

func assistant(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}

func TestItem_StructuredAnswers(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		message string
		want    string
		reason  string
	}{
		{"facility hours", testutils.Spa, "¿A qué hora abre?", "Horario: 09:00 a 21:00.", "structured_hours"},
		{"room check in", testutils.DeluxeKing, "¿a qué hora es el check in?", "El check in es desde las 15:00 y el check out hasta las 12:00.", "structured_hours"},
		{"room price", testutils.DeluxeKing, "¿cuál es el precio?", "La tarifa parte desde USD 180.", "structured_price"},
		{"service price from conditions", testutils.Transfer, "¿cuánto cuesta?", "Reserva con 24 horas de anticipación.", "structured_price"},
		{"missing conditions", testutils.Lavanderia, "¿tiene condiciones?", NotConfirmedField, "not_confirmed"},
		{"missing hours", testutils.Lavanderia, "¿a qué hora?", NotConfirmedHours, "not_confirmed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Item(ctx, request(t, catalog, tt.id, tt.message))
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, SourceStructured, got.Source)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, domain.ModeInform, got.Mode)
		})
	}
}

func TestItem_RoomReservation(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)
	ctx := context.Background()

	t.Run("intent without slots gives the booking reference", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.DeluxeKing, "quiero reservar"))
		assert.Equal(t, domain.ModeRedirectReservation, got.Mode)
		assert.Equal(t, "booking_reference", got.Reason)
		assert.Contains(t, got.Text, "https://reservas.humanohoteles.com/deluxe-king")
		assert.Equal(t, []domain.Slot{domain.SlotDates, domain.SlotGuests}, got.Missing)
	})

	t.Run("dates only asks for guests", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.DeluxeKing, "12/05"))
		assert.Equal(t, "Perfecto, para 12/05. ¿Para cuántas personas?", got.Text)
		assert.Equal(t, domain.ModeClarify, got.Mode)
		assert.Equal(t, []domain.Slot{domain.SlotGuests}, got.Missing)
	})

	t.Run("guests only asks for dates", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.SuiteTerraza, "somos 2 personas"))
		assert.Equal(t, "Perfecto, 2 personas. ¿Qué fechas tienes en mente?", got.Text)
		assert.Equal(t, []domain.Slot{domain.SlotDates}, got.Missing)
	})

	t.Run("both slots redirect to booking", func(t *testing.T) {
		req := request(t, catalog, testutils.SuiteTerraza, "2 personas")
		req.State = req.State.Merge(domain.ConversationState{Dates: "12/05"})
		got := c.Item(ctx, req)
		assert.Equal(t, domain.ModeRedirectReservation, got.Mode)
		assert.Equal(t, "booking_ready", got.Reason)
		assert.Empty(t, got.Missing)
		assert.True(t, strings.HasPrefix(got.Text, "Perfecto, 12/05 (2 personas)."))
		assert.Contains(t, got.Text, testutils.FixtureBookingURL)
	})

	t.Run("repeated answer retries with the plain slot question", func(t *testing.T) {
		req := request(t, catalog, testutils.DeluxeKing, "12/05", assistant("Perfecto, para 12/05. ¿Para cuántas personas?"))
		got := c.Item(ctx, req)
		assert.Equal(t, "¿Para cuántas personas sería?", got.Text)
		assert.Equal(t, domain.ModeClarify, got.Mode)
		assert.Equal(t, guard.ReasonDuplicate, got.Rejected)
	})
}

func TestItem_PetFlow(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)
	ctx := context.Background()

	first := c.Item(ctx, request(t, catalog, testutils.Mascotas, "Pet friendly"))
	assert.Equal(t, SourcePet, first.Source)
	assert.True(t, strings.HasPrefix(first.Text, PetIntro))
	assert.Equal(t, 1, strings.Count(first.Text, PetAskSize))

	history := []domain.Message{{Role: domain.RoleUser, Content: "Pet friendly"}, assistant(first.Text)}
	sized := c.Item(ctx, request(t, catalog, testutils.Mascotas, "mediano", history...))
	assert.Equal(t, "Perfecto, tamaño mediano. Puedo coordinarlo cuando quieras.", sized.Text)
	assert.NotContains(t, sized.Text, PetAskSize)

	history = append(history, domain.Message{Role: domain.RoleUser, Content: "mediano"}, assistant(sized.Text))
	confirmed := c.Item(ctx, request(t, catalog, testutils.Mascotas, "si", history...))
	assert.Equal(t, PetCoordinated, confirmed.Text)
}

func TestItem_PetSizeAskedOnce(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)
	ctx := context.Background()

	first := c.Item(ctx, request(t, catalog, testutils.Mascotas, "Pet friendly"))
	require.Contains(t, first.Text, PetAskSize)

	t.Run("unrelated turn in between", func(t *testing.T) {
		history := []domain.Message{
			{Role: domain.RoleUser, Content: "Pet friendly"},
			assistant(first.Text),
			{Role: domain.RoleUser, Content: "¿el spa abre temprano?"},
			assistant("El Spa abre a las 09:00."),
		}
		got := c.Item(ctx, request(t, catalog, testutils.Mascotas, "tengo un perro", history...))
		assert.Equal(t, SourcePet, got.Source)
		assert.NotContains(t, got.Text, PetAskSize)
		assert.Equal(t, "pet_offer", got.Reason)
	})

	t.Run("size given in an earlier turn", func(t *testing.T) {
		history := []domain.Message{
			{Role: domain.RoleUser, Content: "mi perro es grande"},
			assistant("Claro, ¿en qué más te ayudo?"),
		}
		got := c.Item(ctx, request(t, catalog, testutils.Mascotas, "tengo un perro", history...))
		assert.NotContains(t, got.Text, PetAskSize)
		assert.Equal(t, "pet_offer", got.Reason)
	})
}

func TestItem_PetAffirmativeSharesConditions(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)

	got := c.Item(context.Background(), request(t, catalog, testutils.Mascotas, "si", assistant("Sí, contamos con pet friendly.")))
	assert.Equal(t, "Cargo adicional por noche, vacunas al día, máximo una mascota por habitación. Puedo coordinarlo cuando quieras.", got.Text)
	assert.Equal(t, "pet_conditions", got.Reason)
}

func TestItem_Templates(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)
	ctx := context.Background()

	t.Run("facility with hours", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.Coworking, "coworking"))
		assert.Equal(t, "Sala de trabajo con wifi de alta velocidad y café de especialidad. Un rincón tranquilo para concentrarte. ¿Quieres que te comparta el horario?", got.Text)
		assert.Equal(t, SourceTemplate, got.Source)
	})

	t.Run("facility yes gives the hours", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.Coworking, "si", assistant("¿Quieres que te comparta el horario?")))
		assert.Equal(t, "Horario: 07:00 a 22:00.", got.Text)
	})

	t.Run("service follow-up by id", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.Transfer, "transfer"))
		assert.True(t, strings.HasSuffix(got.Text, "¿Fecha y hora de vuelo?"), got.Text)
	})

	t.Run("service with time preference", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.Lavanderia, "por la tarde"))
		assert.Equal(t, "Perfecto, por la tarde. ¿Quieres que lo coordinemos?", got.Text)
	})

	t.Run("recommendation yes gives the route", func(t *testing.T) {
		got := c.Item(ctx, request(t, catalog, testutils.Kennedy, "dale", assistant("¿Quieres que te indique cómo llegar?")))
		assert.Contains(t, got.Text, "https://maps.example/parque-kennedy")
	})
}

func TestItem_CardEchoBecomesBridge(t *testing.T) {
	catalog := testutils.Catalog(t)
	c := New(catalog)

	req := request(t, catalog, testutils.DeluxeKing, "ok")
	req.CardShown = true
	got := c.Item(context.Background(), req)

	assert.Equal(t, SourceBridge, got.Source)
	assert.Equal(t, guard.ReasonCardEcho, got.Rejected)
	assert.Contains(t, guard.Bridges(domain.CategoryRooms), got.Text)
}

func TestItem_Generated(t *testing.T) {
	catalog := testutils.Catalog(t)
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		stub := &stubCompleter{reply: "Sí, es ideal para relajarte después de caminar."}
		c := New(catalog, WithCompleter(stub))
		req := request(t, catalog, testutils.Spa, "¿es bueno para relajarse?")
		req.Generate = true

		got := c.Item(ctx, req)
		assert.Equal(t, SourceGenerated, got.Source)
		assert.Equal(t, stub.reply, got.Text)
		assert.Equal(t, ports.PurposeChat, stub.last.Purpose)
		assert.Equal(t, 200, stub.last.MaxTokens)
		assert.Contains(t, stub.last.System, "sin_presion: No insistas")
		assert.Contains(t, stub.last.User, "Nombre: Spa")
	})

	t.Run("foreign item falls back to template", func(t *testing.T) {
		var reasons []string
		stub := &stubCompleter{reply: "Te recomiendo el Coworking y también el Spa."}
		c := New(catalog, WithCompleter(stub), WithRejectHook(func(r string) { reasons = append(reasons, r) }))
		req := request(t, catalog, testutils.Spa, "¿es bueno para relajarse?")
		req.Generate = true

		got := c.Item(ctx, req)
		assert.Equal(t, SourceTemplate, got.Source)
		assert.NotContains(t, got.Text, "Coworking")
		assert.Equal(t, []string{guard.ReasonCrossContamination}, reasons)
	})

	t.Run("capability failure falls back to template", func(t *testing.T) {
		stub := &stubCompleter{err: errors.New("timeout")}
		c := New(catalog, WithCompleter(stub))
		req := request(t, catalog, testutils.Spa, "¿es bueno para relajarse?")
		req.Generate = true

		got := c.Item(ctx, req)
		assert.Equal(t, SourceTemplate, got.Source)
		assert.NotEmpty(t, got.Text)
	})
}

func TestShortlist(t *testing.T) {
	catalog := testutils.Catalog(t)
	spa, _ := catalog.Item(testutils.Spa)
	cowork, _ := catalog.Item(testutils.Coworking)
	req := ShortlistRequest{Message: "algo para relajarme", Category: domain.CategoryFacilities, Items: []domain.CatalogItem{spa, cowork}}

	t.Run("fallback copy without completer", func(t *testing.T) {
		got := New(catalog).Shortlist(context.Background(), req)
		assert.Equal(t, ShortlistFallback(domain.CategoryFacilities), got.Text)
		assert.Equal(t, "ranked_shortlist", got.Reason)
	})

	t.Run("generated reply may name shortlisted items", func(t *testing.T) {
		stub := &stubCompleter{reply: "El Spa y el Coworking están abiertos hoy."}
		got := New(catalog, WithCompleter(stub)).Shortlist(context.Background(), req)
		assert.Equal(t, stub.reply, got.Text)
	})

	t.Run("generated reply naming other items is rejected", func(t *testing.T) {
		stub := &stubCompleter{reply: "Te recomiendo la Deluxe King."}
		got := New(catalog, WithCompleter(stub)).Shortlist(context.Background(), req)
		assert.Equal(t, ShortlistFallback(domain.CategoryFacilities), got.Text)
	})
}

func TestFollowUpQuestion(t *testing.T) {
	catalog := testutils.Catalog(t)
	ctx := context.Background()

	_, err := New(catalog).FollowUpQuestion(ctx, domain.Slot("presupuesto"), "", nil, domain.ConversationState{})
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)

	for _, slot := range []domain.Slot{domain.SlotDates, domain.SlotGuests, domain.SlotProfile, domain.SlotIntent} {
		want, _ := DefaultFollowUp(slot)
		got, err := New(catalog).FollowUpQuestion(ctx, slot, "", nil, domain.ConversationState{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	tests := []struct {
		name string
		stub *stubCompleter
		want string
	}{
		{"generated", &stubCompleter{reply: "¿Cuántos viajan contigo?"}, "¿Cuántos viajan contigo?"},
		{"not a question", &stubCompleter{reply: "Claro."}, "¿Para cuántas personas sería?"},
		{"failure", &stubCompleter{err: errors.New("down")}, "¿Para cuántas personas sería?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(catalog, WithCompleter(tt.stub)).FollowUpQuestion(ctx, domain.SlotGuests, "Deluxe King", nil, domain.ConversationState{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 80, tt.stub.last.MaxTokens)
			assert.Contains(t, tt.stub.last.System, "personas")
		})
	}
}

func TestFormatConditions(t *testing.T) {
	catalog := testutils.Catalog(t)
	ctx := context.Background()
	tags := []string{"cargo_adicional", "  vacunas  al día "}

	assert.Equal(t, "cargo adicional, vacunas al día", New(catalog).FormatConditions(ctx, tags, "Pet friendly"))
	assert.Empty(t, New(catalog).FormatConditions(ctx, nil, "Pet friendly"))

	stub := &stubCompleter{reply: `"Tiene un cargo adicional y requiere vacunas al día."`}
	assert.Equal(t, "Tiene un cargo adicional y requiere vacunas al día.", New(catalog, WithCompleter(stub)).FormatConditions(ctx, tags, "Pet friendly"))
	assert.Contains(t, stub.last.User, "cargo adicional, vacunas al día")

	failing := &stubCompleter{err: errors.New("down")}
	assert.Equal(t, "cargo adicional, vacunas al día", New(catalog, WithCompleter(failing)).FormatConditions(ctx, tags, "Pet friendly"))
}

func TestListing(t *testing.T) {
	catalog := testutils.Catalog(t)
	rooms := catalog.ByCategory(domain.CategoryRooms)[:2]

	assert.Equal(t, "Tengo estas opciones de habitaciones: Deluxe King, Suite Terraza. ¿Te interesa alguna en particular?",
		Listing(domain.CategoryRooms, "", rooms))
	assert.Equal(t, "Para primera vez, tengo estas opciones: Deluxe King, Suite Terraza. ¿Te interesa alguna en particular?",
		Listing(domain.CategoryRooms, "primera_vez", rooms))
	assert.Equal(t, ServicesListing, Listing(domain.CategoryServices, "", catalog.ByCategory(domain.CategoryServices)))
	assert.Equal(t, "Tengo estas instalaciones: Coworking, Spa. ¿Cuál te interesa?",
		Listing(domain.CategoryFacilities, "", catalog.ByCategory(domain.CategoryFacilities)))
	assert.Equal(t, "Tengo estas recomendaciones: Parque Kennedy, Malecón de Miraflores. ¿Cuál te interesa?",
		Listing(domain.CategoryRecommendations, "", catalog.ByCategory(domain.CategoryRecommendations)))
}

func TestBuildContext(t *testing.T) {
	catalog := testutils.Catalog(t)
	pet, _ := catalog.Item(testutils.Mascotas)
	spa, _ := catalog.Item(testutils.Spa)

	got := BuildContext([]domain.CatalogItem{pet, spa})
	assert.Contains(t, got, "- Nombre: Pet friendly\n  Tipo: Servicios\n")
	assert.Contains(t, got, "  Condiciones: cargo adicional por noche, vacunas al día\n")
	assert.Contains(t, got, "  Horario: 09:00 - 21:00")
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestGuestsFromProfile(t *testing.T) {
	assert.Equal(t, "2 personas", GuestsFromProfile("pareja"))
	assert.Equal(t, "1 persona", GuestsFromProfile("solo"))
	assert.Empty(t, GuestsFromProfile("familia"))
}
