package store

import (
	"context"
)

// Document is a raw stored document. Nested documents are plain
// map[string]any and arrays are []any.
type Document = map[string]any

// Snapshot pairs a document with its key.
type Snapshot struct {
	Key string
	Doc Document
}

// Query selects documents in a collection. Prefix, when set, restricts the
// OrderBy field to the half-open range [Prefix, Prefix+maxRune), which is how
// a case-insensitive username prefix search is expressed against the store.
type Query struct {
	Equals  map[string]any // equality match on dotted field paths
	OrderBy string         // dotted field path to sort by
	Prefix  string         // prefix range on the OrderBy field
	Desc    bool
	Limit   int
}

// Store is the opaque document store the sync core is written against.
// Guarantees: field-level updates to a single document are atomic; there is
// no transaction spanning two documents; subscriptions re-deliver the full
// document (or full query result) on any change, possibly coalescing
// intermediate states but never dropping the final one.
type Store interface {
	// Get returns the document or models.ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// SetFields merges the given dotted field paths into the document,
	// creating it if absent.
	SetFields(ctx context.Context, collection, key string, fields map[string]any) error

	// RemoveFields deletes the given dotted field paths. Removing an absent
	// field is not an error.
	RemoveFields(ctx context.Context, collection, key string, paths ...string) error

	// AddToSet appends value to an array field if not already present.
	AddToSet(ctx context.Context, collection, key, field string, value any) error

	// Insert adds a new document. If doc carries an "_id" string it is used
	// as the key, otherwise one is generated. The "_id" entry is stripped
	// from the stored fields either way.
	Insert(ctx context.Context, collection string, doc Document) (string, error)

	// Find runs a one-shot query.
	Find(ctx context.Context, collection string, q Query) ([]Snapshot, error)

	// Watch subscribes to a single document. The current state (which may be
	// absent) is delivered first, then the full document again on every
	// change.
	Watch(ctx context.Context, collection, key string) (*Subscription, error)

	// WatchQuery subscribes to a query. The full result set is re-delivered
	// on every change to the collection.
	WatchQuery(ctx context.Context, collection string, q Query) (*Subscription, error)
}

// Subscription is a cancellable live view. Updates is closed after Cancel.
// Delivery coalesces: if the consumer lags, intermediate states may be
// skipped but the latest state is always delivered.
type Subscription struct {
	updates chan []Snapshot
	cancel  func()
}

// NewSubscription is used by store implementations.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{
		updates: make(chan []Snapshot, 1),
		cancel:  cancel,
	}
}

func (s *Subscription) Updates() <-chan []Snapshot {
	return s.updates
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Deliver pushes a new state, replacing any undelivered one.
func (s *Subscription) Deliver(snaps []Snapshot) {
	for {
		select {
		case s.updates <- snaps:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// Close closes the update channel. Called by the owning implementation once
// no more deliveries can happen.
func (s *Subscription) Close() {
	close(s.updates)
}
