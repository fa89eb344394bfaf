package service

import (
	"context"

	"social-graph-service/internal/repository"
)

// PresenceService tracks which users are connected and fans status flips out
// to interested devices over redis pub/sub.
type PresenceService struct {
	presence repository.PresenceRepository
	users    *repository.UserRepository
}

func NewPresenceService(presence repository.PresenceRepository, users *repository.UserRepository) *PresenceService {
	return &PresenceService{presence: presence, users: users}
}

func (s *PresenceService) SetOnline(ctx context.Context, userID string) error {
	if err := s.presence.SetOnline(ctx, userID); err != nil {
		return err
	}
	return s.presence.PublishStatusUpdate(ctx, &repository.StatusUpdate{UserID: userID, Status: "online"})
}

func (s *PresenceService) SetOffline(ctx context.Context, userID string) error {
	if err := s.presence.SetOffline(ctx, userID); err != nil {
		return err
	}
	return s.presence.PublishStatusUpdate(ctx, &repository.StatusUpdate{UserID: userID, Status: "offline"})
}

// OnlineFriends returns the subset of the user's friends currently online.
func (s *PresenceService) OnlineFriends(ctx context.Context, userID string) ([]string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	friendIDs := make([]string, 0, len(user.Friends))
	for id := range user.Friends {
		friendIDs = append(friendIDs, id)
	}
	return s.presence.OnlineAmong(ctx, friendIDs)
}

func (s *PresenceService) SubscribeStatusUpdates(ctx context.Context) (<-chan *repository.StatusUpdate, error) {
	return s.presence.SubscribeStatusUpdates(ctx)
}
