// Package source provides the catalog.Source implementations: a JSON file, an HTTP endpoint,
// a PostgreSQL table and a Redis read-through cache in front of any of them.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/abgdnv/storefront/internal/catalog"
)

var _ catalog.Source = (*FileSource)(nil)

// FileSource reads a {"products": [...]} document from disk on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return catalog.DecodePayload(f)
}
