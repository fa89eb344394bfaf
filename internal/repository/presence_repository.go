package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusChannel = "user_status"

// StatusUpdate is published over redis pub/sub when a user's presence flips.
type StatusUpdate struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // "online" | "offline"
}

type PresenceRepository interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	GetStatus(ctx context.Context, userID string) (string, error)
	OnlineAmong(ctx context.Context, userIDs []string) ([]string, error)
	SubscribeStatusUpdates(ctx context.Context) (<-chan *StatusUpdate, error)
	PublishStatusUpdate(ctx context.Context, update *StatusUpdate) error
	Close() error
}

type presenceRepository struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func NewPresenceRepository(client *redis.Client) PresenceRepository {
	return &presenceRepository{client: client}
}

// SetOnline - TTL 5 minutes, refreshed by client heartbeats
func (r *presenceRepository) SetOnline(ctx context.Context, userID string) error {
	return r.client.Set(ctx, "presence:"+userID, "online", 5*time.Minute).Err()
}

// SetOffline - TTL 1 minute (avoid flicker on reconnect)
func (r *presenceRepository) SetOffline(ctx context.Context, userID string) error {
	return r.client.Set(ctx, "presence:"+userID, "offline", 1*time.Minute).Err()
}

func (r *presenceRepository) GetStatus(ctx context.Context, userID string) (string, error) {
	status, err := r.client.Get(ctx, "presence:"+userID).Result()
	if err == redis.Nil {
		return "offline", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// OnlineAmong filters the given ids down to the ones currently online.
func (r *presenceRepository) OnlineAmong(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	// Pipeline to reduce roundtrips
	cmds, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Get(ctx, "presence:"+id)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, err
	}

	online := make([]string, 0)
	for i, cmd := range cmds {
		if val, _ := cmd.(*redis.StringCmd).Result(); val == "online" {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}

func (r *presenceRepository) SubscribeStatusUpdates(ctx context.Context) (<-chan *StatusUpdate, error) {
	if r.pubsub == nil {
		r.pubsub = r.client.Subscribe(ctx, statusChannel)
	}

	ch := make(chan *StatusUpdate)
	go func() {
		defer close(ch)
		for msg := range r.pubsub.Channel() {
			var update StatusUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				slog.Error("Failed to unmarshal status update", "error", err)
				continue
			}
			select {
			case ch <- &update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (r *presenceRepository) PublishStatusUpdate(ctx context.Context, update *StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, statusChannel, payload).Err()
}

func (r *presenceRepository) Close() error {
	if r.pubsub != nil {
		return r.pubsub.Close()
	}
	return nil
}
