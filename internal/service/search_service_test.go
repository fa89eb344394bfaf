package service

import (
	"context"
	"testing"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
	"social-graph-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchFixture(t *testing.T) (*SearchService, *repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(store.NewMemoryStore())
	for _, u := range [][2]string{
		{"u1", "Bella"}, {"u2", "Ben"}, {"u3", "Carl"}, {"u4", "bernard"},
	} {
		err := users.Create(context.Background(), &models.User{
			ID: u[0],
			UserInformation: models.UserInformation{
				Username:          u[1],
				LowercaseUsername: normalizePrefix(u[1]),
			},
		})
		require.NoError(t, err)
	}
	return NewSearchService(users), users
}

func usernames(results []models.UserSummary) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Username
	}
	return out
}

func TestSearchPrefix(t *testing.T) {
	svc, _ := newSearchFixture(t)

	results, err := svc.Search(context.Background(), "be", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bella", "Ben", "bernard"}, usernames(results))
}

func TestSearchCaseInsensitive(t *testing.T) {
	svc, _ := newSearchFixture(t)

	results, err := svc.Search(context.Background(), "  BeL ", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bella"}, usernames(results))
}

func TestSearchEmptyPrefix(t *testing.T) {
	svc, _ := newSearchFixture(t)

	results, err := svc.Search(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchLimit(t *testing.T) {
	svc, _ := newSearchFixture(t)

	results, err := svc.Search(context.Background(), "be", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bella", "Ben"}, usernames(results))
}

func TestSearchNoMatch(t *testing.T) {
	svc, _ := newSearchFixture(t)

	results, err := svc.Search(context.Background(), "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSubscribeSearchLiveResults(t *testing.T) {
	svc, users := newSearchFixture(t)
	ctx := context.Background()

	stream, err := svc.Subscribe(ctx, "be", 0)
	require.NoError(t, err)
	defer stream.Cancel()

	requireEventually(t, stream.Updates(), func(results []models.UserSummary) bool {
		return len(results) == 3
	})

	err = users.Create(ctx, &models.User{
		ID: "u5",
		UserInformation: models.UserInformation{
			Username:          "Beth",
			LowercaseUsername: "beth",
		},
	})
	require.NoError(t, err)

	requireEventually(t, stream.Updates(), func(results []models.UserSummary) bool {
		return len(results) == 4
	})
}

func TestSubscribeEmptyPrefix(t *testing.T) {
	svc, _ := newSearchFixture(t)

	stream, err := svc.Subscribe(context.Background(), "", 0)
	require.NoError(t, err)

	results, ok := <-stream.Updates()
	require.True(t, ok)
	assert.Empty(t, results)

	_, ok = <-stream.Updates()
	assert.False(t, ok) // closed immediately after the single empty result
}
