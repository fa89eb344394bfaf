package store

import (
	"context"
	"testing"
	"time"

	"social-graph-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFieldsDottedPathsUpsert(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	err := m.SetFields(ctx, "users", "alice", map[string]any{
		"email":                      "alice@example.com",
		"userInformation.username":   "Alice",
		"friendRequestsSent.bob":     "2024-01-01T00:00:00Z",
		"friendRequestsSent.charlie": "2024-01-02T00:00:00Z",
	})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "users", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", doc["email"])
	info := doc["userInformation"].(map[string]any)
	assert.Equal(t, "Alice", info["username"])
	sent := doc["friendRequestsSent"].(map[string]any)
	assert.Len(t, sent, 2)
	assert.Equal(t, "2024-01-01T00:00:00Z", sent["bob"])
}

func TestGetMissing(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.Get(context.Background(), "users", "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveFields(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.SetFields(ctx, "users", "alice", map[string]any{
		"friends.bob":   "2024-01-01T00:00:00Z",
		"friends.carol": "2024-01-02T00:00:00Z",
	}))
	require.NoError(t, m.RemoveFields(ctx, "users", "alice", "friends.bob", "friends.absent"))
	require.NoError(t, m.RemoveFields(ctx, "users", "nobody", "friends.bob")) // missing doc is not an error

	doc, err := m.Get(ctx, "users", "alice")
	require.NoError(t, err)
	friends := doc["friends"].(map[string]any)
	assert.Len(t, friends, 1)
	assert.Contains(t, friends, "carol")
}

func TestAddToSetNoDuplicates(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.AddToSet(ctx, "users", "alice", "conversations", "alice_bob"))
	require.NoError(t, m.AddToSet(ctx, "users", "alice", "conversations", "alice_bob"))
	require.NoError(t, m.AddToSet(ctx, "users", "alice", "conversations", "alice_carol"))

	doc, err := m.Get(ctx, "users", "alice")
	require.NoError(t, err)
	assert.Equal(t, []any{"alice_bob", "alice_carol"}, doc["conversations"])
}

func TestInsertUsesProvidedID(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	key, err := m.Insert(ctx, "messages", Document{"_id": "msg-1", "text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", key)

	doc, err := m.Get(ctx, "messages", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", doc["text"])
	assert.NotContains(t, doc, "_id")

	generated, err := m.Insert(ctx, "messages", Document{"text": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated)
}

func TestFindOrderPrefixLimit(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for _, u := range [][2]string{{"u1", "bella"}, {"u2", "ben"}, {"u3", "carl"}, {"u4", "bernard"}} {
		require.NoError(t, m.SetFields(ctx, "users", u[0], map[string]any{
			"userInformation.lowercaseUsername": u[1],
		}))
	}

	q := Query{OrderBy: "userInformation.lowercaseUsername", Prefix: "be"}
	snaps, err := m.Find(ctx, "users", q)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "u1", snaps[0].Key)
	assert.Equal(t, "u2", snaps[1].Key)
	assert.Equal(t, "u4", snaps[2].Key)

	q.Limit = 2
	snaps, err = m.Find(ctx, "users", q)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	q.Limit = 0
	q.Desc = true
	snaps, err = m.Find(ctx, "users", q)
	require.NoError(t, err)
	assert.Equal(t, "u4", snaps[0].Key)
}

func TestFindEqualsAndNumericOrder(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for i, msg := range []Document{
		{"_id": "m1", "conversationId": "a_b", "timestamp": int64(300)},
		{"_id": "m2", "conversationId": "a_b", "timestamp": int64(100)},
		{"_id": "m3", "conversationId": "a_c", "timestamp": int64(200)},
	} {
		_, err := m.Insert(ctx, "messages", msg)
		require.NoError(t, err, i)
	}

	snaps, err := m.Find(ctx, "messages", Query{
		Equals:  map[string]any{"conversationId": "a_b"},
		OrderBy: "timestamp",
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "m2", snaps[0].Key)
	assert.Equal(t, "m1", snaps[1].Key)
}

func TestWatchDeliversInitialAndUpdates(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sub, err := m.Watch(ctx, "users", "alice")
	require.NoError(t, err)
	defer sub.Cancel()

	snaps := <-sub.Updates()
	assert.Empty(t, snaps) // document does not exist yet

	require.NoError(t, m.SetFields(ctx, "users", "alice", map[string]any{"email": "alice@example.com"}))

	snaps = readLatest(t, sub)
	require.Len(t, snaps, 1)
	assert.Equal(t, "alice@example.com", snaps[0].Doc["email"])
}

func TestWatchCoalescesToLatest(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sub, err := m.Watch(ctx, "users", "alice")
	require.NoError(t, err)
	defer sub.Cancel()

	// Burst of writes without a consumer; only the final state must survive.
	for i, email := range []string{"a@x", "b@x", "c@x"} {
		require.NoError(t, m.SetFields(ctx, "users", "alice", map[string]any{"email": email}), i)
	}

	var last []Snapshot
	deadline := time.After(time.Second)
drain:
	for {
		select {
		case snaps := <-sub.Updates():
			last = snaps
			if len(snaps) == 1 && snaps[0].Doc["email"] == "c@x" {
				break drain
			}
		case <-deadline:
			break drain
		}
	}
	require.Len(t, last, 1)
	assert.Equal(t, "c@x", last[0].Doc["email"])
}

func TestWatchQueryTracksResultSet(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sub, err := m.WatchQuery(ctx, "messages", Query{
		Equals:  map[string]any{"conversationId": "a_b"},
		OrderBy: "timestamp",
	})
	require.NoError(t, err)
	defer sub.Cancel()

	<-sub.Updates() // initial empty set

	_, err = m.Insert(ctx, "messages", Document{"_id": "m1", "conversationId": "a_b", "timestamp": int64(1)})
	require.NoError(t, err)
	_, err = m.Insert(ctx, "messages", Document{"_id": "m2", "conversationId": "other", "timestamp": int64(2)})
	require.NoError(t, err)

	snaps := readLatest(t, sub)
	require.Len(t, snaps, 1)
	assert.Equal(t, "m1", snaps[0].Key)
}

func TestCancelClosesUpdates(t *testing.T) {
	m := NewMemoryStore()

	sub, err := m.Watch(context.Background(), "users", "alice")
	require.NoError(t, err)

	sub.Cancel()
	sub.Cancel() // safe to repeat

	for range sub.Updates() {
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.SetFields(ctx, "users", "alice", map[string]any{"friends.bob": "ts"}))

	doc, err := m.Get(ctx, "users", "alice")
	require.NoError(t, err)
	doc["friends"].(map[string]any)["mallory"] = "ts"

	fresh, err := m.Get(ctx, "users", "alice")
	require.NoError(t, err)
	assert.Len(t, fresh["friends"].(map[string]any), 1)
}

func readLatest(t *testing.T, sub *Subscription) []Snapshot {
	t.Helper()
	select {
	case snaps := <-sub.Updates():
		return snaps
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}
