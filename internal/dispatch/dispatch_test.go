package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje/internal/compose"
	"github.com/aretw0/conserje/internal/guard"
	"github.com/aretw0/conserje/internal/testutils"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return s.reply, s.err
}

func user(content string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content}
}

func assistant(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}

func menuIDs(entries []domain.MenuEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func dispatch(t *testing.T, d *Dispatcher, req domain.TurnRequest) *domain.TurnResponse {
	t.Helper()
	resp, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestScenarioA_CategoryListing(t *testing.T) {
	d := New(testutils.Catalog(t))
	resp := dispatch(t, d, domain.TurnRequest{Message: "Habitaciones", Source: domain.SourceUser, Debug: true})

	assert.Equal(t, domain.ModeShowMenu, resp.Decision.Mode)
	assert.Equal(t, domain.CategoryRooms, resp.Category)
	assert.Equal(t, []string{testutils.DeluxeKing, testutils.SuiteTerraza, testutils.FamilyRoom, testutils.DobleTwin}, menuIDs(resp.Menu))
	assert.Equal(t, "Tengo estas opciones de habitaciones: Deluxe King, Suite Terraza, Family Room, Doble Twin. ¿Te interesa alguna en particular?", resp.Reply)
	assert.Contains(t, resp.Trace, "taken:"+BranchCategoryQuery)
	assert.NotNil(t, resp.Items)
	assert.NotNil(t, resp.CTAs)
}

func TestScenarioB_AffirmativeShowsCard(t *testing.T) {
	d := New(testutils.Catalog(t))
	last := "Suite de 48 m2 con terraza privada. ¿Quieres ver más detalles?"
	resp := dispatch(t, d, domain.TurnRequest{
		Message:      "si",
		ActiveItemID: testutils.SuiteTerraza,
		History:      []domain.Message{user("Suite Terraza"), assistant(last)},
		Source:       domain.SourceUser,
	})

	require.Len(t, resp.Items, 1)
	assert.Equal(t, testutils.SuiteTerraza, resp.Items[0].ID)
	assert.Equal(t, testutils.SuiteTerraza, resp.LastShownItemID)
	assert.Equal(t, testutils.SuiteTerraza, resp.ActiveItemID)
	assert.NotEqual(t, domain.ModeEscalateHuman, resp.Decision.Mode)
	assert.False(t, text.Equal(last, resp.Reply))
	assert.False(t, guard.EchoesCard(resp.Reply, resp.Items[0]) && !guard.HasProgress(resp.Reply))
}

func TestScenarioC_Escalation(t *testing.T) {
	d := New(testutils.Catalog(t))
	for _, req := range []domain.TurnRequest{
		{Message: "Quiero poner un reclamo por un cobro", ActiveItemID: testutils.SuiteTerraza},
		{Message: "esto es un fraude", ActiveItemID: domain.CategoryServices.MenuID(), Source: domain.SourceMenu},
		{Message: "Habitaciones y un reclamo"},
	} {
		resp := dispatch(t, d, req)
		assert.Equal(t, domain.ModeEscalateHuman, resp.Decision.Mode, req.Message)
		assert.Contains(t, resp.Reply, domain.DefaultEscalationEmail)
		assert.Empty(t, resp.CTAs)
	}
}

func TestScenarioD_PetSizeAskedOnce(t *testing.T) {
	d := New(testutils.Catalog(t))
	first := dispatch(t, d, domain.TurnRequest{Message: "Pet friendly", Source: domain.SourceUser})

	assert.Equal(t, testutils.Mascotas, first.ActiveItemID)
	assert.Equal(t, domain.CategoryServices, first.Category)
	assert.Equal(t, 1, strings.Count(first.Reply, compose.PetAskSize))

	second := dispatch(t, d, domain.TurnRequest{
		Message:         "mediano",
		ActiveItemID:    first.ActiveItemID,
		LastShownItemID: first.LastShownItemID,
		History:         []domain.Message{user("Pet friendly"), assistant(first.Reply)},
		State:           first.State,
	})
	assert.Equal(t, testutils.Mascotas, second.ActiveItemID)
	assert.NotContains(t, second.Reply, compose.PetAskSize)
	assert.Contains(t, second.Reply, "mediano")
}

func TestScenarioE_GroupRestriction(t *testing.T) {
	d := New(testutils.Catalog(t))
	restricted := map[string]bool{testutils.DeluxeKing: true, testutils.SuiteTerraza: true}

	for name, req := range map[string]domain.TurnRequest{
		"guest hint on a focused suite": {Message: "somos 5 personas", ActiveItemID: testutils.SuiteTerraza},
		"menu click with a known group": {
			Message: "Deluxe King", ActiveItemID: testutils.DeluxeKing, Source: domain.SourceMenu,
			State: domain.ConversationState{Guests: "5 personas"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			resp := dispatch(t, d, req)
			assert.Equal(t, domain.ModeShowMenu, resp.Decision.Mode)
			assert.Equal(t, compose.GroupRestricted, resp.Reply)
			require.NotEmpty(t, resp.Menu)
			for _, e := range resp.Menu {
				assert.False(t, restricted[e.ID], e.ID)
			}
			for _, item := range resp.Items {
				assert.False(t, restricted[item.ID], item.ID)
			}
		})
	}
}

func TestGroupRestriction_CategoryListing(t *testing.T) {
	d := New(testutils.Catalog(t))
	resp := dispatch(t, d, domain.TurnRequest{Message: "habitaciones", State: domain.ConversationState{Guests: "5 personas"}})

	assert.Equal(t, []string{testutils.FamilyRoom, testutils.DobleTwin}, menuIDs(resp.Menu))
}

func TestRepeatedFollowUpIsIdempotent(t *testing.T) {
	d := New(testutils.Catalog(t))
	req := domain.TurnRequest{
		Message:         "si",
		ActiveItemID:    testutils.Coworking,
		LastShownItemID: testutils.Coworking,
		History:         []domain.Message{user("si"), assistant("Horario: 07:00 a 22:00.")},
	}

	first := dispatch(t, d, req)
	second := dispatch(t, d, req)

	assert.Equal(t, first, second)
	assert.Equal(t, "repeat", first.Decision.Reason)
	assert.False(t, text.Equal(first.Reply, "Horario: 07:00 a 22:00."))
	assert.Contains(t, guard.Bridges(domain.CategoryFacilities), first.Reply)
}

func TestTrailingHistoryCopyIsIgnored(t *testing.T) {
	d := New(testutils.Catalog(t))
	base := domain.TurnRequest{
		Message:      "12/05",
		ActiveItemID: testutils.DeluxeKing,
		History:      []domain.Message{user("Deluxe King"), assistant("¿Qué fechas tienes en mente?")},
	}
	withCopy := base
	withCopy.History = append(append([]domain.Message{}, base.History...), user("12/05"))

	assert.Equal(t, dispatch(t, d, base), dispatch(t, d, withCopy))
}

func TestNoCrossContamination(t *testing.T) {
	stub := &stubCompleter{reply: "Te recomiendo la Suite Terraza y el Spa."}
	d := New(testutils.Catalog(t), WithCompleter(stub))

	resp := dispatch(t, d, domain.TurnRequest{Message: "¿el coworking es silencioso?", Debug: true})

	assert.Equal(t, testutils.Coworking, resp.ActiveItemID)
	assert.NotContains(t, resp.Reply, "Suite Terraza")
	assert.NotContains(t, resp.Reply, "Spa")
	assert.Contains(t, resp.Trace, "reply:"+compose.SourceTemplate)
}

func TestMenuRoundTrip(t *testing.T) {
	catalog := testutils.Catalog(t)
	d := New(catalog)

	for _, category := range catalog.PresentCategories() {
		listing := dispatch(t, d, domain.TurnRequest{
			Message: category.Label(), ActiveItemID: category.MenuID(), Source: domain.SourceMenu,
		})
		require.Equal(t, domain.ModeShowMenu, listing.Decision.Mode, category)
		require.NotEmpty(t, listing.Menu, category)

		for _, entry := range listing.Menu {
			resp := dispatch(t, d, domain.TurnRequest{Message: entry.Label, ActiveItemID: entry.ID, Source: domain.SourceMenu})
			assert.Equal(t, entry.ID, resp.ActiveItemID, entry.Label)
			require.Len(t, resp.Items, 1, entry.Label)
			assert.Equal(t, entry.ID, resp.Items[0].ID)
		}
	}
}

func TestEmptyMessage(t *testing.T) {
	d := New(testutils.Catalog(t))
	for _, msg := range []string{"", "   ", "\n\t"} {
		resp, err := d.Dispatch(context.Background(), domain.TurnRequest{Message: msg})
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
		assert.Nil(t, resp)
	}
}

func TestBranches(t *testing.T) {
	catalog := testutils.Catalog(t)

	t.Run("inside hotel", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "¿qué hay dentro del hotel?", ActiveItemID: testutils.DeluxeKing})
		assert.Equal(t, compose.InsideHotel, resp.Reply)
		assert.Equal(t, []string{testutils.Coworking, testutils.Transfer, testutils.Spa, testutils.Mascotas, testutils.Lavanderia}, menuIDs(resp.Menu))
	})

	t.Run("negative shows the other categories", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "no gracias", ActiveItemID: testutils.Spa})
		assert.Equal(t, compose.Declined, resp.Reply)
		assert.Equal(t, "declined", resp.Decision.Reason)
		assert.NotContains(t, menuIDs(resp.Menu), domain.CategoryFacilities.MenuID())
		assert.Len(t, resp.Menu, 3)
	})

	t.Run("category switch wins over the focus", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "habitaciones", ActiveItemID: testutils.Spa})
		assert.Equal(t, domain.CategoryRooms, resp.Category)
		assert.Empty(t, resp.ActiveItemID)
	})

	t.Run("category question gives a ranked shortlist", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "¿tienen habitaciones con vista?"})
		assert.Equal(t, domain.ModeInform, resp.Decision.Mode)
		assert.Equal(t, "ranked_shortlist", resp.Decision.Reason)
		assert.Equal(t, []string{testutils.SuiteTerraza}, menuIDs(resp.Menu))
		assert.Equal(t, compose.ShortlistFallback(domain.CategoryRooms), resp.Reply)
	})

	t.Run("category menu click lists", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{
			Message: "Instalaciones", ActiveItemID: domain.CategoryFacilities.MenuID(), Source: domain.SourceMenu,
		})
		assert.Equal(t, "Tengo estas instalaciones: Coworking, Spa. ¿Cuál te interesa?", resp.Reply)
	})

	t.Run("no confident match", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "¿tienen helipuerto?"})
		assert.Equal(t, domain.ModeClarify, resp.Decision.Mode)
		assert.Equal(t, "no_confident_match", resp.Decision.Reason)
		assert.Len(t, resp.Menu, 4)
		assert.Contains(t, resp.Reply, domain.DefaultEscalationEmail)
	})

	t.Run("shortlist", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{Message: "quisiera un lugar tranquilo hoy", Debug: true})
		assert.Contains(t, resp.Trace, "taken:"+BranchShortlist)
		assert.Equal(t, domain.ModeInform, resp.Decision.Mode)
		assert.NotEmpty(t, resp.Menu)
		assert.Equal(t, "descanso", resp.Intent)
	})

	t.Run("room reservation", func(t *testing.T) {
		resp := dispatch(t, New(catalog), domain.TurnRequest{
			Message: "2 personas", ActiveItemID: testutils.DeluxeKing,
			State: domain.ConversationState{Dates: "12/05"},
		})
		assert.Equal(t, domain.ModeRedirectReservation, resp.Decision.Mode)
		assert.Equal(t, "2 personas", resp.State.Guests)
		assert.Contains(t, resp.CTAs, "Reservar habitación")
	})
}

func TestObserverAndCustomBranches(t *testing.T) {
	var seen []string
	d := New(testutils.Catalog(t),
		WithObserver(func(branch string, _ domain.Decision, _ time.Duration) { seen = append(seen, branch) }),
		WithBranches(func(d *Dispatcher) []Branch {
			return []Branch{{
				Name:  "echo",
				Match: func(context.Context, *Turn) bool { return true },
				Handle: func(_ context.Context, t *Turn) *domain.TurnResponse {
					return &domain.TurnResponse{Reply: t.Request.Message}
				},
			}}
		}),
	)

	resp := dispatch(t, d, domain.TurnRequest{Message: "hola"})
	assert.Equal(t, "hola", resp.Reply)
	assert.Equal(t, []string{"echo"}, seen)
	assert.Equal(t, []string{"echo"}, d.Branches())
	assert.Equal(t, []domain.Slot{}, resp.Decision.Missing)
}

func TestOfferedHoursAreGiven(t *testing.T) {
	d := New(testutils.Catalog(t))
	offer := "Sala de trabajo con wifi de alta velocidad y café de especialidad. Un rincón tranquilo para concentrarte. ¿Quieres que te comparta el horario?"
	history := []domain.Message{user("Coworking"), assistant(offer)}

	for _, msg := range []string{"si", "¿A qué hora abre?"} {
		t.Run(msg, func(t *testing.T) {
			resp := dispatch(t, d, domain.TurnRequest{
				Message:      msg,
				ActiveItemID: testutils.Coworking,
				History:      history,
				Source:       domain.SourceUser,
				Debug:        true,
			})
			assert.Contains(t, resp.Reply, "07:00 a 22:00")
			assert.NotContains(t, guard.Bridges(domain.CategoryFacilities), resp.Reply)
			assert.Equal(t, testutils.Coworking, resp.ActiveItemID)
		})
	}
}
