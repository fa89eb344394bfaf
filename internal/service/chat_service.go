package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// OutgoingItem is one message submitted to SendMessage. An unresolved
// Attachment is uploaded before any message document is created; if the
// upload fails the whole send fails as a unit. Image/Video carry references
// that already resolved through the media pipeline.
type OutgoingItem struct {
	Text       string
	Image      string
	Video      string
	Attachment *MediaUpload
}

// ChatService appends immutable messages to per-conversation logs and exposes
// merged, de-duplicated, time-ordered live views to subscribers.
type ChatService struct {
	messages      *repository.MessageRepository
	conversations *ConversationService
	users         *repository.UserRepository
	media         *MediaService
	producer      sarama.SyncProducer // optional cross-instance fanout
	topic         string

	mu            sync.Mutex
	lastTimestamp int64
}

func NewChatService(
	messages *repository.MessageRepository,
	conversations *ConversationService,
	users *repository.UserRepository,
	media *MediaService,
	producer sarama.SyncProducer,
	topic string,
) *ChatService {
	return &ChatService{
		messages:      messages,
		conversations: conversations,
		users:         users,
		media:         media,
		producer:      producer,
		topic:         topic,
	}
}

// SendMessage appends a batch to the conversation's log. Attachments resolve
// first, the conversation document and both participants' indexes are
// (re)established on every send, timestamps are strictly increasing across
// sends so submission order survives, and the conversation metadata is
// touched last.
func (s *ChatService) SendMessage(ctx context.Context, conversationKey, authorID string, items []OutgoingItem) ([]models.Message, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty message batch")
	}

	participants, err := ParticipantsFromKey(conversationKey)
	if err != nil {
		return nil, err
	}
	if participants[0] != authorID && participants[1] != authorID {
		return nil, fmt.Errorf("author %s is not a participant of %s: %w", authorID, conversationKey, models.ErrPermissionDenied)
	}

	author, err := s.users.Get(ctx, authorID)
	if err != nil {
		return nil, err
	}

	// Resolve every attachment before any message document exists. A failed
	// upload aborts the whole send with no orphan message or index update.
	type prepared struct {
		id  string
		ref models.AttachmentRef
	}
	preps := make([]prepared, len(items))
	for i, item := range items {
		preps[i].id = uuid.New().String()
		if item.Attachment == nil {
			continue
		}
		ref, err := s.media.Attach(ctx, preps[i].id, *item.Attachment, nil)
		if err != nil {
			return nil, err
		}
		preps[i].ref = ref
	}

	// Both calls are idempotent, so they run on every send. A retry after a
	// failure between them repairs whichever half is missing.
	if _, err := s.conversations.Ensure(ctx, participants[0], participants[1]); err != nil {
		return nil, err
	}
	if err := s.conversations.RecordParticipation(ctx, conversationKey); err != nil {
		return nil, err
	}

	sent := make([]models.Message, len(items))
	for i, item := range items {
		msg := models.Message{
			ID:              preps[i].id,
			ConversationKey: conversationKey,
			AuthorID:        authorID,
			AuthorName:      author.UserInformation.Username,
			Text:            item.Text,
			Image:           item.Image,
			Video:           item.Video,
			Timestamp:       s.nextTimestamp(),
		}
		switch preps[i].ref.Kind {
		case "image":
			msg.Image = preps[i].ref.URL
		case "video":
			msg.Video = preps[i].ref.URL
		}
		if err := s.messages.Append(ctx, &msg); err != nil {
			return nil, fmt.Errorf("append message: %w", err)
		}
		sent[i] = msg
	}

	if err := s.conversations.Touch(ctx, conversationKey, sent[len(sent)-1].Timestamp); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	s.publishEvent(conversationKey, sent)
	return sent, nil
}

// nextTimestamp assigns strictly increasing unix millis across every send
// this instance handles. Two sends landing in the same millisecond must not
// collide, or the later message would sort before earlier ones in every
// consumer view.
func (s *ChatService) nextTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= s.lastTimestamp {
		now = s.lastTimestamp + 1
	}
	s.lastTimestamp = now
	return now
}

// ListMessages returns the log for display, newest first.
func (s *ChatService) ListMessages(ctx context.Context, conversationKey string) ([]*models.Message, error) {
	return s.messages.List(ctx, conversationKey, true)
}

// MessageStream is a cancellable, merged live view of one conversation's log.
type MessageStream struct {
	updates chan []models.Message
	cancel  func()
}

func (s *MessageStream) Updates() <-chan []models.Message { return s.updates }
func (s *MessageStream) Cancel()                          { s.cancel() }

// SubscribeMessages delivers the full ordered message set on every change.
// Deliveries from the store may be full or partial re-deliveries, so the
// stream merges by message id and re-sorts; ties on timestamp keep first
// appearance order, which matches insertion order at the store.
func (s *ChatService) SubscribeMessages(ctx context.Context, conversationKey string) (*MessageStream, error) {
	sub, err := s.messages.Watch(ctx, conversationKey)
	if err != nil {
		return nil, err
	}

	stream := &MessageStream{
		updates: make(chan []models.Message, 1),
		cancel:  sub.Cancel,
	}

	go func() {
		defer close(stream.updates)

		seen := make(map[string]bool)
		var ordered []models.Message

		for snaps := range sub.Updates() {
			for _, snap := range snaps {
				if seen[snap.Key] {
					continue
				}
				seen[snap.Key] = true
				ordered = append(ordered, *models.MessageFromDocument(snap.Key, snap.Doc))
			}
			sort.SliceStable(ordered, func(i, j int) bool {
				return ordered[i].Timestamp < ordered[j].Timestamp
			})

			view := make([]models.Message, len(ordered))
			copy(view, ordered)
			deliverLatest(stream.updates, view)
		}
	}()

	return stream, nil
}

// MessageEvent is the payload fanned out over kafka after a successful send.
type MessageEvent struct {
	ConversationKey string           `json:"conversationId"`
	Messages        []models.Message `json:"messages"`
}

func (s *ChatService) publishEvent(conversationKey string, messages []models.Message) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(MessageEvent{ConversationKey: conversationKey, Messages: messages})
	if err != nil {
		slog.Error("Failed to marshal message event", "error", err)
		return
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(conversationKey),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		slog.Error("Failed to publish message event", "conversation", conversationKey, "error", err)
	}
}
