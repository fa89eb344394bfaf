package service

import (
	"context"
	"strings"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
)

// DefaultSearchLimit bounds every directory query.
const DefaultSearchLimit = 50

// SearchService is the prefix-only directory search over the normalized
// username field. An empty prefix yields no results rather than the whole
// directory.
type SearchService struct {
	users *repository.UserRepository
}

func NewSearchService(users *repository.UserRepository) *SearchService {
	return &SearchService{users: users}
}

// Search runs a one-shot, case-insensitive prefix query.
func (s *SearchService) Search(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	prefix = normalizePrefix(prefix)
	if prefix == "" {
		return []models.UserSummary{}, nil
	}
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	users, err := s.users.SearchByUsernamePrefix(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// SearchStream is a cancellable live result view for an active query.
type SearchStream struct {
	updates chan []models.UserSummary
	cancel  func()
}

func (s *SearchStream) Updates() <-chan []models.UserSummary { return s.updates }
func (s *SearchStream) Cancel()                              { s.cancel() }

// Subscribe keeps the result set of a prefix query live while it is open. An
// empty prefix returns an already-closed stream delivering one empty result.
func (s *SearchService) Subscribe(ctx context.Context, prefix string, limit int) (*SearchStream, error) {
	prefix = normalizePrefix(prefix)
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	stream := &SearchStream{updates: make(chan []models.UserSummary, 1)}

	if prefix == "" {
		stream.cancel = func() {}
		stream.updates <- []models.UserSummary{}
		close(stream.updates)
		return stream, nil
	}

	sub, err := s.users.WatchUsernamePrefix(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	stream.cancel = sub.Cancel

	go func() {
		defer close(stream.updates)
		for snaps := range sub.Updates() {
			results := make([]models.UserSummary, 0, len(snaps))
			for _, snap := range snaps {
				results = append(results, models.UserFromDocument(snap.Key, snap.Doc).Summary())
			}
			deliverLatest(stream.updates, results)
		}
	}()

	return stream, nil
}

func normalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

func summaries(users []*models.User) []models.UserSummary {
	out := make([]models.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	return out
}
