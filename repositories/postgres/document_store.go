package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/repositories"
)

const uniqueViolation = "23505"

// DocumentStore implements repositories.DocumentStore on a JSONB table
type DocumentStore struct {
	*TransactionManager
	db     *DB
	logger *zap.Logger
}

// NewDocumentStore creates a store backed by db
func NewDocumentStore(db *DB, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		TransactionManager: NewTransactionManager(db, logger),
		db:                 db,
		logger:             logger,
	}
}

// Get returns the document or repositories.ErrNotFound
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*repositories.Document, error) {
	query := `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	var data []byte
	err := GetExecutor(ctx, s.db).QueryRowContext(ctx, query, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &repositories.Document{ID: id, Data: data}, nil
}

// List returns matching documents ordered by id
func (s *DocumentStore) List(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	query, args := buildListQuery(collection, filters)

	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []repositories.Document
	for rows.Next() {
		var doc repositories.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func buildListQuery(collection string, filters []repositories.Filter) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT id, data FROM documents WHERE collection = $1")
	args := []interface{}{collection}
	for _, f := range filters {
		fmt.Fprintf(&b, " AND data->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Field, f.Value)
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args
}

// Create inserts a new document or returns repositories.ErrAlreadyExists
func (s *DocumentStore) Create(ctx context.Context, collection string, doc repositories.Document) error {
	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, collection, doc.ID, string(doc.Data))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s/%s: %w", collection, doc.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Debug("document created", zap.String("collection", collection), zap.String("id", doc.ID))
	return nil
}

// Set inserts or replaces a document
func (s *DocumentStore) Set(ctx context.Context, collection string, doc repositories.Document) error {
	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP
	`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, collection, doc.ID, string(doc.Data))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s/%s: %w", collection, doc.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to set document: %w", err)
	}

	s.logger.Debug("document written", zap.String("collection", collection), zap.String("id", doc.ID))
	return nil
}

// Delete removes a document or returns repositories.ErrNotFound
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	result, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, repositories.ErrNotFound)
	}

	s.logger.Debug("document deleted", zap.String("collection", collection), zap.String("id", id))
	return nil
}

// HealthCheck pings the database
func (s *DocumentStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close closes the connection pool
func (s *DocumentStore) Close() error {
	return s.db.Close()
}
