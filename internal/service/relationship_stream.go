package service

import (
	"context"

	"social-graph-service/internal/models"
)

// StateStream is a cancellable live view of the derived relationship state
// between a viewer and a subject.
type StateStream struct {
	updates chan models.RelationshipState
	cancel  func()
}

func (s *StateStream) Updates() <-chan models.RelationshipState { return s.updates }
func (s *StateStream) Cancel()                                  { s.cancel() }

// SubscribeState watches both user documents and re-derives the state
// whenever either side changes. Consecutive duplicates are suppressed.
func (s *RelationshipService) SubscribeState(ctx context.Context, viewerID, subjectID string) (*StateStream, error) {
	viewerSub, err := s.users.Watch(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	subjectSub, err := s.users.Watch(ctx, subjectID)
	if err != nil {
		viewerSub.Cancel()
		return nil, err
	}

	stream := &StateStream{
		updates: make(chan models.RelationshipState, 1),
		cancel: func() {
			viewerSub.Cancel()
			subjectSub.Cancel()
		},
	}

	go func() {
		defer close(stream.updates)

		var viewer, subject *models.User
		var last models.RelationshipState
		emitted := false

		viewerCh := viewerSub.Updates()
		subjectCh := subjectSub.Updates()

		for viewerCh != nil || subjectCh != nil {
			select {
			case snaps, ok := <-viewerCh:
				if !ok {
					viewerCh = nil
					continue
				}
				if len(snaps) > 0 {
					viewer = models.UserFromDocument(viewerID, snaps[0].Doc)
				}
			case snaps, ok := <-subjectCh:
				if !ok {
					subjectCh = nil
					continue
				}
				if len(snaps) > 0 {
					subject = models.UserFromDocument(subjectID, snaps[0].Doc)
				}
			}

			if viewer == nil || subject == nil {
				continue
			}
			state, _ := deriveState(viewer, subject)
			if emitted && state == last {
				continue
			}
			last, emitted = state, true
			deliverLatest(stream.updates, state)
		}
	}()

	return stream, nil
}
