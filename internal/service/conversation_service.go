package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
)

// ConversationKey derives the canonical conversation identifier for a user
// pair: both ids sorted, joined with "_". Order-independent, so both
// participants always address the same document.
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// ParticipantsFromKey splits a conversation key back into its pair. User ids
// never contain "_", so the split is unambiguous.
func ParticipantsFromKey(key string) ([]string, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("malformed conversation key %q: %w", key, models.ErrNotFound)
	}
	return parts, nil
}

// ConversationService owns conversation identity, metadata and each user's
// conversation index.
type ConversationService struct {
	conversations *repository.ConversationRepository
	users         *repository.UserRepository
}

func NewConversationService(conversations *repository.ConversationRepository, users *repository.UserRepository) *ConversationService {
	return &ConversationService{conversations: conversations, users: users}
}

// Ensure creates the conversation document for the pair if absent and returns
// its key. Idempotent.
func (s *ConversationService) Ensure(ctx context.Context, a, b string) (string, error) {
	key := ConversationKey(a, b)
	ids := []string{a, b}
	sort.Strings(ids)
	if _, err := s.conversations.Ensure(ctx, key, ids); err != nil {
		return "", err
	}
	return key, nil
}

// RecordParticipation adds the key to both participants' conversation
// indexes. Set-add semantics: re-recording never duplicates the key.
func (s *ConversationService) RecordParticipation(ctx context.Context, key string) error {
	participants, err := ParticipantsFromKey(key)
	if err != nil {
		return err
	}
	for _, id := range participants {
		if err := s.users.AddConversation(ctx, id, key); err != nil {
			return fmt.Errorf("record participation for %s: %w", id, err)
		}
	}
	return nil
}

func (s *ConversationService) Get(ctx context.Context, key string) (*models.Conversation, error) {
	return s.conversations.Get(ctx, key)
}

// Exists reports whether the conversation document has been created.
func (s *ConversationService) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.conversations.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Touch merge-sets the conversation's last message timestamp.
func (s *ConversationService) Touch(ctx context.Context, key string, ts int64) error {
	return s.conversations.Touch(ctx, key, ts)
}

// List resolves the user's conversation index into metadata, newest activity
// first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]models.ConversationResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.ConversationResponse, 0, len(user.Conversations))
	for _, key := range user.Conversations {
		conv, err := s.conversations.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, models.ConversationResponse{
			Key:                  conv.Key,
			Participants:         conv.Participants,
			LastMessageTimestamp: conv.LastMessageTimestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTimestamp > out[j].LastMessageTimestamp
	})
	return out, nil
}

// IndexStream is a cancellable live view of a user's conversation keys.
type IndexStream struct {
	updates chan []string
	cancel  func()
}

func (s *IndexStream) Updates() <-chan []string { return s.updates }
func (s *IndexStream) Cancel()                  { s.cancel() }

// SubscribeIndex delivers the user's conversation key set on every change to
// the user document.
func (s *ConversationService) SubscribeIndex(ctx context.Context, userID string) (*IndexStream, error) {
	sub, err := s.users.Watch(ctx, userID)
	if err != nil {
		return nil, err
	}

	stream := &IndexStream{
		updates: make(chan []string, 1),
		cancel:  sub.Cancel,
	}

	go func() {
		defer close(stream.updates)
		for snaps := range sub.Updates() {
			keys := []string{}
			if len(snaps) > 0 {
				keys = models.UserFromDocument(userID, snaps[0].Doc).Conversations
			}
			deliverLatest(stream.updates, keys)
		}
	}()

	return stream, nil
}
