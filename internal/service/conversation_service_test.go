package service

import (
	"context"
	"testing"

	"social-graph-service/internal/repository"
	"social-graph-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationFixture(t *testing.T) (*ConversationService, *repository.UserRepository) {
	t.Helper()
	mem := store.NewMemoryStore()
	users := repository.NewUserRepository(mem)
	for _, u := range []string{"alice", "bob"} {
		seedUser(t, users, u, u)
	}
	return NewConversationService(repository.NewConversationRepository(mem), users), users
}

func TestConversationKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice_bob", ConversationKey("alice", "bob"))
	assert.Equal(t, "alice_bob", ConversationKey("bob", "alice"))
}

func TestParticipantsFromKey(t *testing.T) {
	parts, err := ParticipantsFromKey("alice_bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, parts)

	for _, malformed := range []string{"", "alice", "_bob", "alice_", "a_b_c"} {
		_, err := ParticipantsFromKey(malformed)
		assert.Error(t, err, malformed)
	}
}

func TestEnsureIdempotent(t *testing.T) {
	svc, _ := newConversationFixture(t)
	ctx := context.Background()

	key, err := svc.Ensure(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", key)

	again, err := svc.Ensure(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	conv, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
}

func TestRecordParticipationSetSemantics(t *testing.T) {
	svc, users := newConversationFixture(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, svc.RecordParticipation(ctx, "alice_bob"))
	require.NoError(t, svc.RecordParticipation(ctx, "alice_bob"))

	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	bob, err := users.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice_bob"}, alice.Conversations)
	assert.Equal(t, []string{"alice_bob"}, bob.Conversations)
}

func TestListNewestFirst(t *testing.T) {
	mem := store.NewMemoryStore()
	users := repository.NewUserRepository(mem)
	for _, u := range []string{"alice", "bob", "carol"} {
		seedUser(t, users, u, u)
	}
	svc := NewConversationService(repository.NewConversationRepository(mem), users)
	ctx := context.Background()

	for _, other := range []string{"bob", "carol"} {
		_, err := svc.Ensure(ctx, "alice", other)
		require.NoError(t, err)
		require.NoError(t, svc.RecordParticipation(ctx, ConversationKey("alice", other)))
	}
	require.NoError(t, svc.Touch(ctx, "alice_bob", 1000))
	require.NoError(t, svc.Touch(ctx, "alice_carol", 2000))

	convs, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "alice_carol", convs[0].Key)
	assert.Equal(t, "alice_bob", convs[1].Key)
}

func TestSubscribeIndex(t *testing.T) {
	svc, users := newConversationFixture(t)
	ctx := context.Background()

	stream, err := svc.SubscribeIndex(ctx, "alice")
	require.NoError(t, err)
	defer stream.Cancel()

	requireEventually(t, stream.Updates(), func(keys []string) bool {
		return len(keys) == 0
	})

	require.NoError(t, users.AddConversation(ctx, "alice", "alice_bob"))
	requireEventually(t, stream.Updates(), func(keys []string) bool {
		return len(keys) == 1 && keys[0] == "alice_bob"
	})
}
