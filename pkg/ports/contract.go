package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.State = domain.ConversationState{Dates: "12/05", Guests: "2 personas"}
		session.ActiveItemID = "HAB_DELUXE_KING"
		session.History = append(session.History,
			domain.Message{Role: domain.RoleUser, Content: "Habitaciones"},
			domain.Message{Role: domain.RoleAssistant, Content: "Tengo estas opciones."},
		)

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.State, loaded.State)
		assert.Equal(t, session.ActiveItemID, loaded.ActiveItemID)
		assert.Equal(t, session.History, loaded.History)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1))
		_ = store.Save(ctx, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunKVCacheContract verifies the read-through cache semantics the ranker relies on.
func RunKVCacheContract(t *testing.T, cache KVCache) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("150405.000000")

	t.Run("Miss", func(t *testing.T) {
		value, ok, err := cache.Get(ctx, key+"-missing")
		require.NoError(t, err, "a miss is not an error")
		assert.False(t, ok)
		assert.Nil(t, value)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, []byte("vector-bytes")))

		value, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("vector-bytes"), value)
	})

	t.Run("Stored Value Is Isolated", func(t *testing.T) {
		buf := []byte("original")
		require.NoError(t, cache.Put(ctx, key+"-iso", buf))
		buf[0] = 'X'

		value, ok, err := cache.Get(ctx, key+"-iso")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "original", string(value))
	})
}

// RunCatalogLoaderContract verifies that a loader returns a valid catalog
// containing exactly the expected item IDs in order.
func RunCatalogLoaderContract(t *testing.T, loader CatalogLoader, wantIDs []string) {
	ctx := context.Background()

	catalog, err := loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, catalog)

	t.Run("Items", func(t *testing.T) {
		got := make([]string, 0, len(catalog.Items))
		for _, item := range catalog.Items {
			got = append(got, item.ID)
		}
		assert.Equal(t, wantIDs, got)
	})

	t.Run("Lookup", func(t *testing.T) {
		for _, id := range wantIDs {
			item, ok := catalog.Item(id)
			assert.True(t, ok, "item %s should be indexed", id)
			assert.True(t, item.Category.Valid())
			assert.NotNil(t, item.Restrictions, "list fields must never be nil")
		}
	})

	t.Run("Versioned", func(t *testing.T) {
		assert.NotEmpty(t, catalog.Version)
	})
}
