package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/conserje/pkg/adapters/file"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultSessionDir, file.NewStore("").BasePath)
}

func TestFileStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	s := domain.NewSession("overwrite")
	require.NoError(t, store.Save(ctx, s))
	s.State.Guests = "3 personas"
	require.NoError(t, store.Save(ctx, s))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "overwrite.json", entries[0].Name())

	loaded, err := store.Load(ctx, "overwrite")
	require.NoError(t, err)
	assert.Equal(t, "3 personas", loaded.State.Guests)
}

func TestFileStore_RejectsBadIDs(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, domain.NewSession("")))
	assert.Error(t, store.Save(ctx, domain.NewSession("../escape")))
	_, err := store.Load(ctx, "a/b")
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, nil))
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	_, err := file.NewStore(dir).Load(context.Background(), "broken")
	assert.ErrorContains(t, err, "unmarshal")
}

func TestFileStore_ListMissingDir(t *testing.T) {
	ids, err := file.NewStore(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
