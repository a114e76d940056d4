package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogmirror/backend/internal/domain/catalog"
)

// Provider failure classes
var (
	ErrProviderUnavailable     = errors.New("integration: catalog provider unavailable")
	ErrProviderRateLimited     = errors.New("integration: catalog provider rate limited")
	ErrProviderAuthFailed      = errors.New("integration: catalog provider authentication failed")
	ErrProviderRequestFailed   = errors.New("integration: catalog provider request failed")
	ErrProviderInvalidResponse = errors.New("integration: invalid catalog provider response")
)

// ProviderError is the only error shape surfaced by a CatalogProvider
type ProviderError struct {
	Op        string
	Retriable bool
	Err       error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	kind := "non-retriable"
	if e.Retriable {
		kind = "retriable"
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err for operation op
func NewProviderError(op string, retriable bool, err error) *ProviderError {
	return &ProviderError{Op: op, Retriable: retriable, Err: err}
}

// IsRetriable reports whether err is a ProviderError that may be retried
func IsRetriable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retriable
}

// ProductPage is one page of products. An empty NextCursor means no more pages.
type ProductPage struct {
	Items []catalog.MirroredProduct
	// Skipped lists records of the page the provider could not decode
	Skipped    []catalog.RecordFailure
	NextCursor string
	// Total is the provider's total item count, or 0 when unknown
	Total int
}

// VariationPage is one page of variations of a single parent product
type VariationPage struct {
	Items      []catalog.MirroredVariation
	Skipped    []catalog.RecordFailure
	NextCursor string
	Total      int
}

// CatalogProvider is the port to the external catalog. Returned records carry
// no organization; the caller stamps it before writing them.
type CatalogProvider interface {
	FetchProductsPage(ctx context.Context, cursor string) (*ProductPage, error)
	FetchVariationsPage(ctx context.Context, parentID int64, cursor string) (*VariationPage, error)
}
