package repository

import (
	"context"
	"fmt"

	"social-graph-service/internal/models"
	"social-graph-service/internal/store"
)

const UsersCollection = "users"

// UserRepository is typed field-path access to user documents. Every
// relationship mutation is a single-field write so the store's per-document
// atomicity is the unit of consistency.
type UserRepository struct {
	store store.Store
}

func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, id)
	if err != nil {
		return nil, err
	}
	return models.UserFromDocument(id, doc), nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if _, err := r.store.Get(ctx, UsersCollection, user.ID); err == nil {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	return r.store.SetFields(ctx, UsersCollection, user.ID, user.Document())
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	snaps, err := r.store.Find(ctx, UsersCollection, store.Query{
		Equals: map[string]any{"email": email},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
	}
	return models.UserFromDocument(snaps[0].Key, snaps[0].Doc), nil
}

/** -------------------- relationship field writes -------------------- */

func (r *UserRepository) SetRequestSent(ctx context.Context, userID, targetID, ts string) error {
	return r.store.SetFields(ctx, UsersCollection, userID, map[string]any{
		"friendRequestsSent." + targetID: ts,
	})
}

func (r *UserRepository) RemoveRequestSent(ctx context.Context, userID, targetID string) error {
	return r.store.RemoveFields(ctx, UsersCollection, userID, "friendRequestsSent."+targetID)
}

func (r *UserRepository) SetRequestReceived(ctx context.Context, userID, sourceID, ts string) error {
	return r.store.SetFields(ctx, UsersCollection, userID, map[string]any{
		"friendRequestsReceived." + sourceID: ts,
	})
}

func (r *UserRepository) RemoveRequestReceived(ctx context.Context, userID, sourceID string) error {
	return r.store.RemoveFields(ctx, UsersCollection, userID, "friendRequestsReceived."+sourceID)
}

func (r *UserRepository) SetFriend(ctx context.Context, userID, friendID, ts string) error {
	return r.store.SetFields(ctx, UsersCollection, userID, map[string]any{
		"friends." + friendID: ts,
	})
}

func (r *UserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return r.store.RemoveFields(ctx, UsersCollection, userID, "friends."+friendID)
}

/** -------------------- conversation index and profile -------------------- */

// AddConversation records a conversation key on the user's index with set
// semantics; duplicate keys never accumulate.
func (r *UserRepository) AddConversation(ctx context.Context, userID, conversationKey string) error {
	return r.store.AddToSet(ctx, UsersCollection, userID, "conversations", conversationKey)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, fields map[string]any) error {
	return r.store.SetFields(ctx, UsersCollection, userID, fields)
}

/** -------------------- search and subscriptions -------------------- */

// SearchByUsernamePrefix runs a bounded prefix range scan over the
// normalized username field.
func (r *UserRepository) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]*models.User, error) {
	snaps, err := r.store.Find(ctx, UsersCollection, usernamePrefixQuery(prefix, limit))
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, len(snaps))
	for i, snap := range snaps {
		users[i] = models.UserFromDocument(snap.Key, snap.Doc)
	}
	return users, nil
}

// WatchUsernamePrefix is the live variant of SearchByUsernamePrefix.
func (r *UserRepository) WatchUsernamePrefix(ctx context.Context, prefix string, limit int) (*store.Subscription, error) {
	return r.store.WatchQuery(ctx, UsersCollection, usernamePrefixQuery(prefix, limit))
}

// Watch subscribes to one user document; the full document is re-delivered
// on every change.
func (r *UserRepository) Watch(ctx context.Context, userID string) (*store.Subscription, error) {
	return r.store.Watch(ctx, UsersCollection, userID)
}

func usernamePrefixQuery(prefix string, limit int) store.Query {
	return store.Query{
		OrderBy: "userInformation.lowercaseUsername",
		Prefix:  prefix,
		Limit:   limit,
	}
}
