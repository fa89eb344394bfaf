package repository

import (
	"context"

	"social-graph-service/internal/models"
	"social-graph-service/internal/store"
)

const MessagesCollection = "messages"

// MessageRepository is the append-only conversation log. Messages are never
// updated or removed once appended.
type MessageRepository struct {
	store store.Store
}

func NewMessageRepository(s store.Store) *MessageRepository {
	return &MessageRepository{store: s}
}

func (r *MessageRepository) Append(ctx context.Context, msg *models.Message) error {
	doc := msg.Document()
	doc["_id"] = msg.ID
	_, err := r.store.Insert(ctx, MessagesCollection, doc)
	return err
}

// List returns the conversation's messages ordered by timestamp, ties broken
// by insertion order at the store.
func (r *MessageRepository) List(ctx context.Context, conversationKey string, desc bool) ([]*models.Message, error) {
	snaps, err := r.store.Find(ctx, MessagesCollection, conversationQuery(conversationKey, desc))
	if err != nil {
		return nil, err
	}
	msgs := make([]*models.Message, len(snaps))
	for i, snap := range snaps {
		msgs[i] = models.MessageFromDocument(snap.Key, snap.Doc)
	}
	return msgs, nil
}

// Watch re-delivers the full ordered log on every change.
func (r *MessageRepository) Watch(ctx context.Context, conversationKey string) (*store.Subscription, error) {
	return r.store.WatchQuery(ctx, MessagesCollection, conversationQuery(conversationKey, false))
}

func conversationQuery(conversationKey string, desc bool) store.Query {
	return store.Query{
		Equals:  map[string]any{"conversationId": conversationKey},
		OrderBy: "timestamp",
		Desc:    desc,
	}
}
