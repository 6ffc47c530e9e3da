package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Source delivers the full product list. Implementations live in the source package.
type Source interface {
	Fetch(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]Product, error) {
	return f(ctx)
}

// DecodePayload reads a {"products": [...]} document and validates its records.
func DecodePayload(r io.Reader) ([]Product, error) {
	var payload Payload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog payload: %w", err)
	}
	if payload.Products == nil {
		return nil, fmt.Errorf("catalog payload has no products field")
	}
	if err := Validate(payload.Products); err != nil {
		return nil, fmt.Errorf("invalid catalog payload: %w", err)
	}
	return payload.Products, nil
}
