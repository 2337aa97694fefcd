package repositories

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the id is taken
	ErrAlreadyExists = errors.New("document already exists")
)

// TransactionManager runs a unit of work atomically where the backend supports it
type TransactionManager interface {
	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a store transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// Document is a raw JSON document addressed by collection and id
type Document struct {
	ID   string
	Data []byte
}

// Filter restricts List to documents whose top-level field equals Value
// when rendered as text.
type Filter struct {
	Field string
	Value string
}

// Eq builds an equality filter
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// DocumentStore is the key/value document service the application runs on.
// Writes are last-write-wins; no version check is performed.
type DocumentStore interface {
	TransactionManager

	// Get returns the document or ErrNotFound
	Get(ctx context.Context, collection, id string) (*Document, error)

	// List returns matching documents ordered by id
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Create inserts a new document or returns ErrAlreadyExists
	Create(ctx context.Context, collection string, doc Document) error

	// Set inserts or replaces a document
	Set(ctx context.Context, collection string, doc Document) error

	// Delete removes a document or returns ErrNotFound
	Delete(ctx context.Context, collection, id string) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases store resources
	Close() error
}
