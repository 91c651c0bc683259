package repositories

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
)

// ListFilter selects documents by predicates on top-level data fields.
// All predicates must hold for a document to match.
type ListFilter struct {
	// Equals matches the field's text rendering (strings as-is, numbers and
	// booleans in their JSON form).
	Equals map[string]string

	// AtLeast matches integer fields greater than or equal to the bound.
	// Timestamps are unix milliseconds.
	AtLeast map[string]int64
}

// Where returns a filter with a single equality predicate
func Where(field, value string) ListFilter {
	return ListFilter{Equals: map[string]string{field: value}}
}

// And adds an equality predicate
func (f ListFilter) And(field, value string) ListFilter {
	equals := make(map[string]string, len(f.Equals)+1)
	for k, v := range f.Equals {
		equals[k] = v
	}
	equals[field] = value
	f.Equals = equals
	return f
}

// Since adds a lower bound on an integer field
func (f ListFilter) Since(field string, bound int64) ListFilter {
	atLeast := make(map[string]int64, len(f.AtLeast)+1)
	for k, v := range f.AtLeast {
		atLeast[k] = v
	}
	atLeast[field] = bound
	f.AtLeast = atLeast
	return f
}

// DocumentStore is the persistence port of the policy engine
type DocumentStore interface {
	// Get retrieves a document; returns services.ErrDocumentNotFound when absent
	Get(ctx context.Context, collection, key string) (*models.Document, error)

	// List retrieves documents matching the filter, in insertion order
	List(ctx context.Context, collection string, filter ListFilter) ([]*models.Document, error)

	// Put creates or replaces a document. doc.Version must equal the stored
	// version (zero for a create); the stored copy is returned with the next version.
	// A stale version fails with services.ErrConcurrentUpdate.
	Put(ctx context.Context, collection string, doc *models.Document) (*models.Document, error)

	// Delete removes a document. A non-zero version must match the stored version.
	Delete(ctx context.Context, collection, key string, version int64) error

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store's resources
	Close() error
}

// TransactionManager is implemented by stores that can run a sequence of
// reads and writes atomically.
type TransactionManager interface {
	// InTransaction executes a function within a transaction.
	// Commits if fn succeeds, rolls back on error. Store calls made with the
	// context passed to fn participate in the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
