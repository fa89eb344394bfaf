package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
	"social-graph-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addToSetFlaky fails AddToSet for a chosen document a given number of times.
// Simulates a transient failure while recording conversation participation.
type addToSetFlaky struct {
	store.Store
	failKey   string
	failCount int
}

func (f *addToSetFlaky) AddToSet(ctx context.Context, collection, key, field string, value any) error {
	if key == f.failKey && f.failCount > 0 {
		f.failCount--
		return errors.New("injected write failure")
	}
	return f.Store.AddToSet(ctx, collection, key, field, value)
}

type chatFixture struct {
	chat          *ChatService
	conversations *ConversationService
	users         *repository.UserRepository
	blobs         *fakeBlobStore
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	mem := store.NewMemoryStore()
	users := repository.NewUserRepository(mem)
	for _, u := range []string{"alice", "bob", "carol"} {
		seedUser(t, users, u, u)
	}

	blobs := newFakeBlobStore()
	conversations := NewConversationService(repository.NewConversationRepository(mem), users)
	chat := NewChatService(
		repository.NewMessageRepository(mem),
		conversations,
		users,
		NewMediaService(blobs),
		nil, "",
	)
	return &chatFixture{chat: chat, conversations: conversations, users: users, blobs: blobs}
}

func TestSendMessageCreatesConversationAndIndexes(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	sent, err := f.chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{
		{Text: "first"}, {Text: "second"}, {Text: "third"},
	})
	require.NoError(t, err)
	require.Len(t, sent, 3)

	// Batch order survives through strictly increasing timestamps.
	for i := 1; i < len(sent); i++ {
		assert.Greater(t, sent[i].Timestamp, sent[i-1].Timestamp)
	}
	assert.Equal(t, "alice", sent[0].AuthorID)
	assert.Equal(t, "alice", sent[0].AuthorName)

	conv, err := f.conversations.Get(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Equal(t, sent[2].Timestamp, conv.LastMessageTimestamp)

	for _, id := range []string{"alice", "bob"} {
		u, err := f.users.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice_bob"}, u.Conversations)
	}

	msgs, err := f.chat.ListMessages(ctx, "alice_bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "third", msgs[0].Text) // newest first
	assert.Equal(t, "first", msgs[2].Text)
}

func TestParticipationRepairedOnRetry(t *testing.T) {
	mem := store.NewMemoryStore()
	flaky := &addToSetFlaky{Store: mem, failKey: "bob", failCount: 1}
	users := repository.NewUserRepository(flaky)
	healthy := repository.NewUserRepository(mem)
	for _, u := range []string{"alice", "bob"} {
		seedUser(t, healthy, u, u)
	}
	conversations := NewConversationService(repository.NewConversationRepository(mem), users)
	chat := NewChatService(
		repository.NewMessageRepository(mem),
		conversations,
		users,
		NewMediaService(newFakeBlobStore()),
		nil, "",
	)
	ctx := context.Background()

	// The first send fails while indexing bob; the retry must complete both
	// participants' indexes even though the conversation document exists.
	_, err := chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{{Text: "hi"}})
	require.Error(t, err)

	sent, err := chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{{Text: "hi again"}})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	for _, id := range []string{"alice", "bob"} {
		u, err := healthy.Get(ctx, id)
		require.NoError(t, err)
		assert.Contains(t, u.Conversations, "alice_bob", id)
	}
}

func TestTimestampsMonotonicAcrossSends(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Back-to-back sends land within the same millisecond; the later message
	// must still sort after every earlier one.
	first, err := f.chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{{Text: "hello"}, {Text: "there"}})
	require.NoError(t, err)
	second, err := f.chat.SendMessage(ctx, "alice_bob", "bob", []OutgoingItem{{Text: "hi"}})
	require.NoError(t, err)

	assert.Greater(t, second[0].Timestamp, first[1].Timestamp)

	msgs, err := f.chat.ListMessages(ctx, "alice_bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Text) // newest first
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.SendMessage(context.Background(), "alice_bob", "carol", []OutgoingItem{{Text: "hi"}})
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestSendMessageEmptyBatch(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.SendMessage(context.Background(), "alice_bob", "alice", nil)
	assert.Error(t, err)
}

func TestSendMessageResolvesAttachment(t *testing.T) {
	f := newChatFixture(t)

	up := upload("pixels", "image/png", "image")
	sent, err := f.chat.SendMessage(context.Background(), "alice_bob", "alice", []OutgoingItem{{
		Text:       "look",
		Attachment: &up,
	}})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	assert.Equal(t, "https://blobs.test/messages/"+sent[0].ID, sent[0].Image)
	assert.Empty(t, sent[0].Video)
	assert.True(t, f.blobs.has("messages/"+sent[0].ID))
}

func TestUploadFailureAbortsWholeSend(t *testing.T) {
	f := newChatFixture(t)
	f.blobs.fail = true
	ctx := context.Background()

	up := upload("frames", "video/mp4", "video")
	_, err := f.chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{
		{Text: "plain"},
		{Attachment: &up},
	})
	require.ErrorIs(t, err, models.ErrUploadFailed)

	// No orphan message, no conversation, no index entries.
	msgs, err := f.chat.ListMessages(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	exists, err := f.conversations.Exists(ctx, "alice_bob")
	require.NoError(t, err)
	assert.False(t, exists)

	alice, err := f.users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.Conversations)
}

func TestSubscribeMessagesMergesAndOrders(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	stream, err := f.chat.SubscribeMessages(ctx, "alice_bob")
	require.NoError(t, err)
	defer stream.Cancel()

	_, err = f.chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{{Text: "hello"}, {Text: "there"}})
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, "alice_bob", "bob", []OutgoingItem{{Text: "hi"}})
	require.NoError(t, err)

	requireEventually(t, stream.Updates(), func(view []models.Message) bool {
		if len(view) != 3 {
			return false
		}
		ordered := sort.SliceIsSorted(view, func(i, j int) bool {
			return view[i].Timestamp < view[j].Timestamp
		})
		seen := make(map[string]bool, len(view))
		for _, m := range view {
			if seen[m.ID] {
				return false
			}
			seen[m.ID] = true
		}
		return ordered && view[0].Text == "hello" && view[2].Text == "hi"
	})
}

func TestTwoSubscribersConverge(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	aliceView, err := f.chat.SubscribeMessages(ctx, "alice_bob")
	require.NoError(t, err)
	defer aliceView.Cancel()
	bobView, err := f.chat.SubscribeMessages(ctx, "alice_bob")
	require.NoError(t, err)
	defer bobView.Cancel()

	_, err = f.chat.SendMessage(ctx, "alice_bob", "alice", []OutgoingItem{{Text: "ping"}})
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, "alice_bob", "bob", []OutgoingItem{{Text: "pong"}})
	require.NoError(t, err)

	both := func(view []models.Message) bool {
		return len(view) == 2 && view[0].Text == "ping" && view[1].Text == "pong"
	}
	requireEventually(t, aliceView.Updates(), both)
	requireEventually(t, bobView.Updates(), both)
}
