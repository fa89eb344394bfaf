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

func TestAttachStoresUnderProvisionalID(t *testing.T) {
	blobs := newFakeBlobStore()
	svc := NewMediaService(blobs)

	var progressed int64
	ref, err := svc.Attach(context.Background(), "msg-123", upload("pixels", "image/png", "image"), func(n int64) {
		progressed = n
	})
	require.NoError(t, err)

	assert.Equal(t, "https://blobs.test/messages/msg-123", ref.URL)
	assert.Equal(t, "image", ref.Kind)
	assert.Equal(t, int64(6), progressed)
	assert.True(t, blobs.has("messages/msg-123"))
}

func TestAttachWrapsUploadFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.fail = true
	svc := NewMediaService(blobs)

	_, err := svc.Attach(context.Background(), "msg-123", upload("pixels", "image/png", "image"), nil)
	assert.ErrorIs(t, err, models.ErrUploadFailed)
}

func TestUploadProfilePictureUsesFixedObjectName(t *testing.T) {
	blobs := newFakeBlobStore()
	svc := NewMediaService(blobs)

	url, err := svc.UploadProfilePicture(context.Background(), "alice", upload("jpeg", "image/jpeg", "image"), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://blobs.test/profilePictures/alice.jpg", url)
	assert.True(t, blobs.has("profilePictures/alice.jpg"))
}

func TestSetProfilePictureRecordsURL(t *testing.T) {
	mem := store.NewMemoryStore()
	users := repository.NewUserRepository(mem)
	seedUser(t, users, "alice", "alice")

	svc := NewUserService(users, NewMediaService(newFakeBlobStore()))
	ctx := context.Background()

	url, err := svc.SetProfilePicture(ctx, "alice", upload("jpeg", "image/jpeg", "image"))
	require.NoError(t, err)

	alice, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, url, alice.UserInformation.ProfilePicture)
}

func TestUpdateProfileKeepsLowercaseUsernameInSync(t *testing.T) {
	users := repository.NewUserRepository(store.NewMemoryStore())
	seedUser(t, users, "alice", "alice")

	svc := NewUserService(users, NewMediaService(newFakeBlobStore()))
	ctx := context.Background()

	name := "AliceInWonderland"
	bio := "down the rabbit hole"
	updated, err := svc.UpdateProfile(ctx, "alice", &models.UpdateProfileRequest{Username: &name, Bio: &bio})
	require.NoError(t, err)

	assert.Equal(t, "AliceInWonderland", updated.UserInformation.Username)
	assert.Equal(t, "aliceinwonderland", updated.UserInformation.LowercaseUsername)
	assert.Equal(t, "down the rabbit hole", updated.UserInformation.Bio)
	assert.Equal(t, "alice@example.com", updated.Email) // untouched fields survive
}
