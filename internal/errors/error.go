// Package errors provides custom error types for catalog and cart operations.
package errors

import "errors"

var ErrCatalogLoadFailure = errors.New("catalog load failed")
var ErrStaleCatalogLoad = errors.New("catalog load superseded by a newer load")
var ErrProductNotFound = errors.New("product not found")
var ErrInvalidQuantity = errors.New("quantity must be at least 1")
var ErrInsufficientStock = errors.New("quantity exceeds available stock")

// ErrReentrantMutation is the panic value raised when a listener mutates the store that is notifying it.
var ErrReentrantMutation = errors.New("store mutated from inside one of its listeners")
