package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteCatalogDir writes files (relative path → content) into a fresh temp dir
// and returns its path. Subdirectories are created as needed.
func WriteCatalogDir(t testing.TB, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "mkdir for %s", name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "write %s", name)
	}
	return dir
}
