// Package memory provides an in-process DocumentStore for local development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/repositories"
)

type txKey struct{}

// Store keeps documents as JSON bytes keyed by collection and id
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
	logger      *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
		logger:      logger,
	}
}

// lock acquires the store mutex unless ctx is already inside InTransaction,
// which holds it for the whole unit of work.
func (s *Store) lock(ctx context.Context) func() {
	if _, ok := ctx.Value(txKey{}).(*transaction); ok {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Get returns the document or ErrNotFound
func (s *Store) Get(ctx context.Context, collection, id string) (*repositories.Document, error) {
	defer s.lock(ctx)()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, repositories.ErrNotFound)
	}
	return &repositories.Document{ID: id, Data: clone(data)}, nil
}

// List returns matching documents ordered by id
func (s *Store) List(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	defer s.lock(ctx)()

	docs := make([]repositories.Document, 0, len(s.collections[collection]))
	for id, data := range s.collections[collection] {
		ok, err := matches(data, filters)
		if err != nil {
			return nil, fmt.Errorf("filter %s/%s: %w", collection, id, err)
		}
		if ok {
			docs = append(docs, repositories.Document{ID: id, Data: clone(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Create inserts a new document or returns ErrAlreadyExists
func (s *Store) Create(ctx context.Context, collection string, doc repositories.Document) error {
	defer s.lock(ctx)()

	if _, ok := s.collections[collection][doc.ID]; ok {
		return fmt.Errorf("%s/%s: %w", collection, doc.ID, repositories.ErrAlreadyExists)
	}
	s.put(ctx, collection, doc)
	return nil
}

// Set inserts or replaces a document
func (s *Store) Set(ctx context.Context, collection string, doc repositories.Document) error {
	defer s.lock(ctx)()

	s.put(ctx, collection, doc)
	return nil
}

// Delete removes a document or returns ErrNotFound
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	defer s.lock(ctx)()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, repositories.ErrNotFound)
	}
	s.record(ctx, collection, id)
	delete(s.collections[collection], id)
	return nil
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) put(ctx context.Context, collection string, doc repositories.Document) {
	s.record(ctx, collection, doc.ID)
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		s.collections[collection] = c
	}
	c[doc.ID] = clone(doc.Data)
}

// record saves the prior state of a document so a rollback can restore it
func (s *Store) record(ctx context.Context, collection, id string) {
	tx, ok := ctx.Value(txKey{}).(*transaction)
	if !ok {
		return
	}
	key := collection + "\x00" + id
	if _, seen := tx.undo[key]; seen {
		return
	}
	prev, existed := s.collections[collection][id]
	tx.undo[key] = undoEntry{collection: collection, id: id, data: clone(prev), existed: existed}
}

// InTransaction runs fn while holding the store lock. Writes made by fn are
// reverted if it returns an error.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if outer, ok := ctx.Value(txKey{}).(*transaction); ok {
		return fn(ctx, outer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s, undo: make(map[string]undoEntry)}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	tx.ctx = txCtx

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}
	return tx.Commit()
}

type undoEntry struct {
	collection string
	id         string
	data       []byte
	existed    bool
}

type transaction struct {
	store *Store
	ctx   context.Context
	undo  map[string]undoEntry
	done  bool
}

// Commit discards the undo log
func (t *transaction) Commit() error {
	t.done = true
	t.undo = nil
	return nil
}

// Rollback restores every document touched by the transaction
func (t *transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for _, e := range t.undo {
		if !e.existed {
			delete(t.store.collections[e.collection], e.id)
			continue
		}
		t.store.collections[e.collection][e.id] = e.data
	}
	t.store.logger.Debug("transaction rolled back", zap.Int("documents", len(t.undo)))
	return nil
}

// Context returns the transaction context
func (t *transaction) Context() context.Context {
	return t.ctx
}

func matches(data []byte, filters []repositories.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, err
	}
	for _, f := range filters {
		text, ok := asText(fields[f.Field])
		if !ok || text != f.Value {
			return false, nil
		}
	}
	return true, nil
}

// asText renders a scalar the way Postgres ->> does. Nulls and nested
// values never match.
func asText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
