package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/pkg/domain"
)

const sampleCatalog = "../../examples/humano/catalogo.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "conserje version")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", sampleCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "11 items, 3 rules")
	assert.Contains(t, out, "Catalog is valid!")
}

func TestValidateCommand_BrokenCatalog(t *testing.T) {
	_, err := execute(t, "validate", "does-not-exist.yaml")
	assert.ErrorContains(t, err, "validation failed")
}

func TestMenuCommand(t *testing.T) {
	out, err := execute(t, "menu", "--json", "--category", string(domain.CategoryRooms), sampleCatalog)
	require.NoError(t, err)

	var entries []domain.MenuEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Contains(t, e.ID, "HAB_")
	}
}

func TestMenuCommand_NoRoomForTheParty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - id: HAB_DELUXE_KING
    nombre_publico: Deluxe King
    tipo: Habitaciones
    restricciones_requisitos: [grupos]
`), 0o644))

	out, err := execute(t, "menu", "--json=false", "--category", string(domain.CategoryRooms), "--guests", "4", path)
	require.NoError(t, err)
	assert.Contains(t, out, conserje.NoRoomsNotice)
	assert.NotContains(t, out, "HAB_DELUXE_KING")
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", sampleCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `hotel(("Hotel Humano"))`)
}
