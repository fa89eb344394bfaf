package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"social-graph-service/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same semantics as the mongo
// adapter: per-document atomic field updates, no cross-document transactions,
// full re-delivery to watchers on every change. Used by tests and local
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]map[string]*entry
	seq      int64
	watchers map[int64]*watcher
	nextID   int64
}

type entry struct {
	doc Document
	seq int64 // insertion order, tie-break for equal sort keys
}

type watcher struct {
	collection string
	key        string // single-document watch when set
	query      Query
	isQuery    bool
	sub        *Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]map[string]*entry),
		watchers: make(map[int64]*watcher),
	}
}

func (m *MemoryStore) Get(_ context.Context, collection, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[collection][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, models.ErrNotFound)
	}
	return deepCopy(e.doc), nil
}

func (m *MemoryStore) SetFields(_ context.Context, collection, key string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.ensure(collection, key)
	for path, value := range fields {
		setPath(e.doc, path, deepCopyValue(value))
	}
	m.notify(collection)
	return nil
}

func (m *MemoryStore) RemoveFields(_ context.Context, collection, key string, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[collection][key]
	if !ok {
		return nil
	}
	for _, path := range paths {
		removePath(e.doc, path)
	}
	m.notify(collection)
	return nil
}

func (m *MemoryStore) AddToSet(_ context.Context, collection, key, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.ensure(collection, key)
	current, _ := getPath(e.doc, field)
	arr, _ := current.([]any)
	for _, existing := range arr {
		if existing == value {
			return nil
		}
	}
	setPath(e.doc, field, append(arr, deepCopyValue(value)))
	m.notify(collection)
	return nil
}

func (m *MemoryStore) Insert(_ context.Context, collection string, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _ := doc["_id"].(string)
	if key == "" {
		key = uuid.New().String()
	}
	stored := deepCopy(doc)
	delete(stored, "_id")

	if m.data[collection] == nil {
		m.data[collection] = make(map[string]*entry)
	}
	m.seq++
	m.data[collection][key] = &entry{doc: stored, seq: m.seq}
	m.notify(collection)
	return key, nil
}

func (m *MemoryStore) Find(_ context.Context, collection string, q Query) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(collection, q), nil
}

func (m *MemoryStore) Watch(_ context.Context, collection, key string) (*Subscription, error) {
	return m.addWatcher(&watcher{collection: collection, key: key}), nil
}

func (m *MemoryStore) WatchQuery(_ context.Context, collection string, q Query) (*Subscription, error) {
	return m.addWatcher(&watcher{collection: collection, query: q, isQuery: true}), nil
}

func (m *MemoryStore) addWatcher(w *watcher) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	sub := NewSubscription(func() { m.removeWatcher(id) })
	w.sub = sub
	m.watchers[id] = w

	sub.Deliver(m.evaluate(w))
	return sub
}

func (m *MemoryStore) removeWatcher(id int64) {
	m.mu.Lock()
	w, ok := m.watchers[id]
	if ok {
		delete(m.watchers, id)
	}
	m.mu.Unlock()
	if ok {
		w.sub.Close()
	}
}

// notify re-evaluates every watcher on the collection. Called with the write
// lock held, so each watcher observes a consistent post-write state.
func (m *MemoryStore) notify(collection string) {
	for _, w := range m.watchers {
		if w.collection == collection {
			w.sub.Deliver(m.evaluate(w))
		}
	}
}

func (m *MemoryStore) evaluate(w *watcher) []Snapshot {
	if w.isQuery {
		return m.find(w.collection, w.query)
	}
	e, ok := m.data[w.collection][w.key]
	if !ok {
		return []Snapshot{}
	}
	return []Snapshot{{Key: w.key, Doc: deepCopy(e.doc)}}
}

func (m *MemoryStore) find(collection string, q Query) []Snapshot {
	type hit struct {
		snap Snapshot
		sort any
		seq  int64
	}
	var hits []hit

	for key, e := range m.data[collection] {
		if !matches(e.doc, q) {
			continue
		}
		sortKey, _ := getPath(e.doc, q.OrderBy)
		hits = append(hits, hit{
			snap: Snapshot{Key: key, Doc: deepCopy(e.doc)},
			sort: sortKey,
			seq:  e.seq,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		c := compareValues(hits[i].sort, hits[j].sort)
		if c == 0 {
			c = int(hits[i].seq - hits[j].seq)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	out := make([]Snapshot, len(hits))
	for i, h := range hits {
		out[i] = h.snap
	}
	return out
}

func matches(doc Document, q Query) bool {
	for path, want := range q.Equals {
		got, ok := getPath(doc, path)
		if !ok || got != want {
			return false
		}
	}
	if q.Prefix != "" {
		v, ok := getPath(doc, q.OrderBy)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, q.Prefix) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) ensure(collection, key string) *entry {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]*entry)
	}
	e, ok := m.data[collection][key]
	if !ok {
		m.seq++
		e = &entry{doc: make(Document), seq: m.seq}
		m.data[collection][key] = e
	}
	return e
}

/** -------------------- path and value helpers -------------------- */

func getPath(doc Document, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		current, ok = v.(map[string]any)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

func setPath(doc Document, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func removePath(doc Document, path string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	default:
		an, aok := toFloat(a)
		bn, bok := toFloat(b)
		if aok && bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
		}
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func deepCopy(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
