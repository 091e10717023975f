// Package docstore is the boundary to the external document store. Records are
// addressed by collection and key; the store never interprets their contents.
package docstore

import (
	"context"
	"errors"
)

// MaxBatchSize is the largest number of deletes committed in one batch
const MaxBatchSize = 500

var (
	ErrNotFound      = errors.New("document not found")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// Store is a collection-style document store
type Store interface {
	// Get decodes the document into dst, or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, dst any) error
	// Set creates or overwrites the document.
	Set(ctx context.Context, collection, id string, src any) error
	// Add stores the document under a generated id.
	Add(ctx context.Context, collection string, src any) (string, error)
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// QueryLess returns up to limit documents whose numeric field is strictly below value.
	QueryLess(ctx context.Context, collection, field string, value int64, limit int) ([]Document, error)
	// DeleteBatch removes up to MaxBatchSize documents.
	DeleteBatch(ctx context.Context, collection string, ids []string) error
	// Ping performs a minimal read to confirm connectivity.
	Ping(ctx context.Context) error
	Close() error
}

// Document is a query result that can be decoded lazily
type Document struct {
	ID     string
	decode func(dst any) error
}

// DataTo decodes the document body into dst
func (d Document) DataTo(dst any) error {
	return d.decode(dst)
}
