package loam

import (
	"fmt"
	"path/filepath"

	"github.com/aretw0/loam"
)

// Open initializes a read-only, strict Loam repository at dir and returns its loader.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numbers as json.Number across markdown and YAML documents.
	// ReadOnly keeps loam from creating its dev sandbox; the catalog is never written.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[Frontmatter](repo)), nil
}
