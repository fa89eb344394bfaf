package repository

import (
	"context"
	"errors"

	"social-graph-service/internal/models"
	"social-graph-service/internal/store"
)

const ConversationsCollection = "conversations"

type ConversationRepository struct {
	store store.Store
}

func NewConversationRepository(s store.Store) *ConversationRepository {
	return &ConversationRepository{store: s}
}

func (r *ConversationRepository) Get(ctx context.Context, key string) (*models.Conversation, error) {
	doc, err := r.store.Get(ctx, ConversationsCollection, key)
	if err != nil {
		return nil, err
	}
	return models.ConversationFromDocument(key, doc), nil
}

// Ensure creates the conversation document if absent. Idempotent: a concurrent
// create from the other participant merges into the same document.
func (r *ConversationRepository) Ensure(ctx context.Context, key string, participants []string) (*models.Conversation, error) {
	conv, err := r.Get(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	parts := make([]any, len(participants))
	for i, p := range participants {
		parts[i] = p
	}
	fields := map[string]any{"participants": parts}
	if err := r.store.SetFields(ctx, ConversationsCollection, key, fields); err != nil {
		return nil, err
	}
	return &models.Conversation{Key: key, Participants: participants}, nil
}

// Touch merge-sets the last message timestamp.
func (r *ConversationRepository) Touch(ctx context.Context, key string, ts int64) error {
	return r.store.SetFields(ctx, ConversationsCollection, key, map[string]any{
		"lastMessageTimestamp": ts,
	})
}

func (r *ConversationRepository) Watch(ctx context.Context, key string) (*store.Subscription, error) {
	return r.store.Watch(ctx, ConversationsCollection, key)
}
