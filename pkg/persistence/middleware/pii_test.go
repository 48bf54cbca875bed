package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	session := domain.NewSession("pii-session")
	session.State.Guests = "2 personas"
	session.History = append(session.History,
		domain.Message{Role: domain.RoleUser, Content: "Escríbeme a ana.perez@example.com o al +51 987 654 321"},
		domain.Message{Role: domain.RoleAssistant, Content: "Perfecto, lo coordinamos."},
	)

	require.NoError(t, secureStore.Save(ctx, session))

	// The in-memory session keeps the original text.
	assert.Contains(t, session.History[0].Content, "ana.perez@example.com")

	stored, err := underlyingStore.Load(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, "Escríbeme a *** o al ***", stored.History[0].Content)
	assert.Equal(t, "Perfecto, lo coordinamos.", stored.History[1].Content)
	assert.Equal(t, "2 personas", stored.State.Guests, "slots are not redacted")
}

func TestPIIMiddleware_CardNumbers(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(underlyingStore)

	session := domain.NewSession("card")
	session.History = append(session.History,
		domain.Message{Role: domain.RoleUser, Content: "mi tarjeta es 4111 1111 1111 1111"},
	)
	require.NoError(t, secureStore.Save(context.Background(), session))

	stored, err := underlyingStore.Load(context.Background(), "card")
	require.NoError(t, err)
	assert.NotContains(t, stored.History[0].Content, "4111")
}
