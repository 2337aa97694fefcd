package repositories

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dsz/skyfleet/models"
)

// Collection names
const (
	CollectionUsers         = "users"
	CollectionPilots        = "pilots"
	CollectionDrones        = "drones"
	CollectionMissions      = "missions"
	CollectionFlightLogs    = "flightLogs"
	CollectionNotifications = "notifications"
)

// Collection is a typed view over one collection of a DocumentStore
type Collection[T any] struct {
	store DocumentStore
	name  string
}

// NewCollection creates a typed collection
func NewCollection[T any](store DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads and decodes one document
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return &v, nil
}

// List loads and decodes matching documents
func (c *Collection[T]) List(ctx context.Context, filters ...Filter) ([]T, error) {
	docs, err := c.store.List(ctx, c.name, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, doc.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// IDs returns the ids of every document in the collection
func (c *Collection[T]) IDs(ctx context.Context) ([]string, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// Create encodes and inserts v under id
func (c *Collection[T]) Create(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Create(ctx, c.name, Document{ID: id, Data: data})
}

// Set encodes and upserts v under id
func (c *Collection[T]) Set(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Set(ctx, c.name, Document{ID: id, Data: data})
}

// Delete removes the document with id
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// Repositories aggregates the typed collections of the application
type Repositories struct {
	Store         DocumentStore
	Users         *Collection[models.User]
	Pilots        *Collection[models.Pilot]
	Drones        *Collection[models.Drone]
	Missions      *Collection[models.Mission]
	FlightLogs    *Collection[models.FlightLog]
	Notifications *Collection[models.Notification]
}

// NewRepositories binds every collection to store
func NewRepositories(store DocumentStore) *Repositories {
	return &Repositories{
		Store:         store,
		Users:         NewCollection[models.User](store, CollectionUsers),
		Pilots:        NewCollection[models.Pilot](store, CollectionPilots),
		Drones:        NewCollection[models.Drone](store, CollectionDrones),
		Missions:      NewCollection[models.Mission](store, CollectionMissions),
		FlightLogs:    NewCollection[models.FlightLog](store, CollectionFlightLogs),
		Notifications: NewCollection[models.Notification](store, CollectionNotifications),
	}
}

// InTransaction runs fn through the store's transaction manager
func (r *Repositories) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.Store.InTransaction(ctx, func(ctx context.Context, _ Transaction) error {
		return fn(ctx)
	})
}
