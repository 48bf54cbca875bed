package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/internal/rank"
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

func input(message string, history ...domain.Message) Input {
	return Input{Signals: classify.Analyze(message, history), History: history, Source: domain.SourceUser}
}

func manualRanking(t *testing.T, catalog *domain.Catalog, score float64, ids ...string) rank.Ranking {
	t.Helper()
	r := rank.Ranking{Path: rank.PathEmbedding}
	for i, id := range ids {
		item, ok := catalog.Item(id)
		require.True(t, ok, id)
		r.Entries = append(r.Entries, rank.Entry{Item: item, Score: score / float64(i+1)})
	}
	return r
}

func TestResolve_DirectMatches(t *testing.T) {
	catalog := testutils.Catalog(t)
	r := New(catalog)

	tests := []struct {
		name   string
		in     Input
		wantID string
		source Source
	}{
		{
			name:   "menu click",
			in:     Input{Signals: classify.Analyze("Spa", nil), ActiveItemID: testutils.Spa, Source: domain.SourceMenu},
			wantID: testutils.Spa, source: SourceExplicit,
		},
		{
			name:   "unknown menu id falls back to the name",
			in:     Input{Signals: classify.Analyze("Suite Terraza", nil), ActiveItemID: "HAB_GONE", Source: domain.SourceMenu},
			wantID: testutils.SuiteTerraza, source: SourceName,
		},
		{"name inside a sentence", input("me interesa la suite terraza por favor"), testutils.SuiteTerraza, SourceName},
		{"accents ignored", input("¿Cómo es el Malecon de Miraflores?"), testutils.Malecon, SourceName},
		{"fragment of one name", input("king"), testutils.DeluxeKing, SourceName},
		{"short message with keywords", input("sauna y masajes"), testutils.Spa, SourceName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), tt.in)
			require.True(t, res.Found)
			assert.Equal(t, tt.wantID, res.Item.ID)
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestDirect_IgnoresCategoryWordsAndFiller(t *testing.T) {
	r := New(testutils.Catalog(t))
	for _, msg := range []string{"habitaciones", "si", "ok", "quiero algo lindo"} {
		_, ok := r.Direct(input(msg))
		assert.False(t, ok, msg)
	}
}

func TestResolve_CarryOver(t *testing.T) {
	catalog := testutils.Catalog(t)
	r := New(catalog)
	ctx := context.Background()

	in := input("12/05")
	in.ActiveItemID = testutils.DeluxeKing
	res := r.Resolve(ctx, in)
	assert.Equal(t, testutils.DeluxeKing, res.Item.ID)
	assert.Equal(t, SourceCarryOver, res.Source)

	in = input("si")
	in.LastShownItemID = testutils.Coworking
	res = r.Resolve(ctx, in)
	assert.Equal(t, testutils.Coworking, res.Item.ID)
	assert.Equal(t, SourceCarryOver, res.Source)

	in = input("ok", domain.Message{Role: domain.RoleAssistant, Content: "El Spa abre temprano. ¿Quieres que te comparta el horario?"})
	res = r.Resolve(ctx, in)
	assert.Equal(t, testutils.Spa, res.Item.ID)
	assert.Equal(t, SourceCarryOver, res.Source)
}

func TestResolve_Disambiguation(t *testing.T) {
	catalog := testutils.Catalog(t)
	ctx := context.Background()
	const question = "¿qué me recomiendas para la noche?"

	t.Run("candidate id", func(t *testing.T) {
		stub := &stubCompleter{reply: `{"choice":"INST_SPA"}`}
		in := input(question)
		in.ActiveItemID = testutils.DeluxeKing
		in.Ranking = manualRanking(t, catalog, 0.1, testutils.Coworking, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.Equal(t, testutils.Spa, res.Item.ID)
		assert.Equal(t, SourceDisambiguated, res.Source)
		assert.Equal(t, ports.PurposeClassify, stub.last.Purpose)
		assert.True(t, stub.last.JSON)
		assert.Contains(t, stub.last.User, "- INST_SPA: Spa (Instalaciones)")
	})

	t.Run("none stops resolution", func(t *testing.T) {
		stub := &stubCompleter{reply: `{"choice":"none"}`}
		in := input(question)
		in.ActiveItemID = testutils.DeluxeKing
		in.Ranking = manualRanking(t, catalog, 0.5, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.False(t, res.Found)
	})

	t.Run("active keeps the focus", func(t *testing.T) {
		stub := &stubCompleter{reply: "```json\n{\"choice\": \"active\"}\n```"}
		in := input(question)
		in.ActiveItemID = testutils.DeluxeKing
		in.Ranking = manualRanking(t, catalog, 0.5, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.Equal(t, testutils.DeluxeKing, res.Item.ID)
		assert.Equal(t, SourceDisambiguated, res.Source)
		assert.Contains(t, stub.last.User, "Ítem activo: HAB_DELUXE_KING (Deluxe King)")
	})

	t.Run("failure falls through to the semantic match", func(t *testing.T) {
		stub := &stubCompleter{err: errors.New("timeout")}
		in := input(question)
		in.ActiveItemID = testutils.DeluxeKing
		in.Ranking = manualRanking(t, catalog, 0.5, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.Equal(t, testutils.Spa, res.Item.ID)
		assert.Equal(t, SourceSemantic, res.Source)
	})

	t.Run("unknown id is ignored", func(t *testing.T) {
		stub := &stubCompleter{reply: `{"choice":"HAB_DELUXE_KING"}`}
		in := input(question)
		in.ActiveItemID = testutils.Coworking
		in.Ranking = manualRanking(t, catalog, 0.1, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.Equal(t, testutils.Coworking, res.Item.ID)
		assert.Equal(t, SourceFocus, res.Source)
	})

	t.Run("no focus leaves the ranking in charge", func(t *testing.T) {
		stub := &stubCompleter{reply: `{"choice":"none"}`}
		in := input(question)
		in.Ranking = manualRanking(t, catalog, 0.5, testutils.Spa)

		res := New(catalog, WithCompleter(stub)).Resolve(ctx, in)
		assert.Equal(t, 0, stub.calls)
		assert.Equal(t, testutils.Spa, res.Item.ID)
		assert.Equal(t, SourceSemantic, res.Source)
	})
}

func TestResolve_SemanticAndFocusFallbacks(t *testing.T) {
	catalog := testutils.Catalog(t)
	r := New(catalog)
	ctx := context.Background()

	in := input("me gustaría un sauna con masajes luego del viaje")
	in.Ranking = rank.New(catalog.Version).Rank(ctx, in.Signals.Raw, catalog.Items)
	res := r.Resolve(ctx, in)
	assert.Equal(t, testutils.Spa, res.Item.ID)
	assert.Equal(t, SourceSemantic, res.Source)

	in = input("¿qué me recomiendas para la noche?")
	in.Ranking = manualRanking(t, catalog, 0.1, testutils.Spa)
	in.ActiveItemID = testutils.Transfer
	res = r.Resolve(ctx, in)
	assert.Equal(t, testutils.Transfer, res.Item.ID)
	assert.Equal(t, SourceFocus, res.Source)

	in.ActiveItemID = ""
	res = r.Resolve(ctx, in)
	assert.False(t, res.Found)
	assert.Equal(t, SourceNone, res.Source)
}

func TestRepeatAndHistory(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "Sí"},
		{Role: domain.RoleAssistant, Content: "Perfecto."},
	}
	assert.True(t, IsRepeat(classify.Analyze("si", history), history))
	assert.False(t, IsRepeat(classify.Analyze("no", history), history))
	assert.False(t, IsRepeat(classify.Analyze("si", nil), nil))

	withCopy := append(append([]domain.Message{}, history...), domain.Message{Role: domain.RoleUser, Content: "12/05"})
	assert.Equal(t, history, TrimHistory("12/05", withCopy))
	assert.Equal(t, history, TrimHistory("otra cosa", history))
}

func TestCandidates(t *testing.T) {
	catalog := testutils.Catalog(t)
	ranking := rank.Ranking{Path: rank.PathKeyword}
	for _, item := range catalog.Items {
		ranking.Entries = append(ranking.Entries, rank.Entry{Item: item, Score: 1})
	}
	focus, _ := catalog.Item(testutils.FamilyRoom)

	got := Candidates(ranking, focus, true)
	require.Len(t, got, 5, "the focus is also ranked third and appears once")
	assert.Equal(t, testutils.FamilyRoom, got[0].ID)
	assert.Equal(t, testutils.DeluxeKing, got[1].ID)

	ids := make(map[string]bool)
	for _, item := range got {
		assert.False(t, ids[item.ID], "duplicate %s", item.ID)
		ids[item.ID] = true
	}
	assert.Len(t, Candidates(ranking, domain.CatalogItem{}, false), 5)

	kennedy, _ := catalog.Item(testutils.Kennedy)
	assert.Len(t, Candidates(ranking, kennedy, true), 6)
}
