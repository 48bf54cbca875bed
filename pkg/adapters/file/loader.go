// Package file reads a catalog from a single YAML (or JSON) document and keeps
// sessions as JSON files on disk.
package file

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aretw0/conserje/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a single-file catalog.
type Document struct {
	Hotel domain.Hotel            `yaml:"hotel"`
	Items []domain.CatalogItem    `yaml:"items"`
	Rules []domain.GovernanceRule `yaml:"reglas"`
}

// Loader implements ports.CatalogLoader over one file.
type Loader struct {
	path string
}

// NewLoader creates a loader for path. The file is read on every Load.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and validates the catalog file.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a catalog document. Unknown keys are rejected so typos in field
// names surface at startup instead of as silently empty fields.
func Parse(raw []byte) (*domain.Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return domain.NewCatalog(doc.Hotel, doc.Items, doc.Rules)
}
