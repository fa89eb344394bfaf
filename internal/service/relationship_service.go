package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
)

// RelationshipService drives the four-state friendship machine between two
// independently stored user documents. The store gives per-document atomic
// field updates only, so every operation is a pair (or two pairs) of
// single-document writes designed to be idempotent and order-independent,
// with Reconcile repairing any half-applied pair.
type RelationshipService struct {
	users *repository.UserRepository
}

func NewRelationshipService(users *repository.UserRepository) *RelationshipService {
	return &RelationshipService{users: users}
}

// State derives the relationship from the viewer's perspective by reading
// both documents. An asymmetric pair triggers an opportunistic reconcile
// before the state is reported.
func (s *RelationshipService) State(ctx context.Context, viewerID, subjectID string) (models.RelationshipState, error) {
	viewer, subject, err := s.loadPair(ctx, viewerID, subjectID)
	if err != nil {
		return models.RelationshipNone, err
	}

	state, mirrored := deriveState(viewer, subject)
	if mirrored {
		return state, nil
	}

	if err := s.Reconcile(ctx, viewerID, subjectID); err != nil {
		slog.Error("Opportunistic reconcile failed", "viewer", viewerID, "subject", subjectID, "error", err)
		return state, nil
	}
	viewer, subject, err = s.loadPair(ctx, viewerID, subjectID)
	if err != nil {
		return models.RelationshipNone, err
	}
	state, _ = deriveState(viewer, subject)
	return state, nil
}

// SendRequest moves None -> RequestSentByViewer. If the subject already sent
// a request the other way, the pre-existing request takes precedence and the
// call is routed to accept instead of writing a contradictory entry.
func (s *RelationshipService) SendRequest(ctx context.Context, viewerID, subjectID string) error {
	if viewerID == subjectID {
		return fmt.Errorf("cannot send a friend request to yourself")
	}
	return s.withReconcileRetry(ctx, viewerID, subjectID, s.sendRequestOnce)
}

func (s *RelationshipService) sendRequestOnce(ctx context.Context, viewerID, subjectID string) error {
	viewer, subject, err := s.loadPair(ctx, viewerID, subjectID)
	if err != nil {
		return err
	}

	switch state, _ := deriveState(viewer, subject); state {
	case models.RelationshipRequestReceived:
		// Simultaneous mutual request: accept the existing one.
		return s.acceptOnce(ctx, viewerID, subjectID)
	case models.RelationshipRequestSent:
		return nil // already sent, re-application is a no-op
	case models.RelationshipFriends:
		return fmt.Errorf("already friends: %w", models.ErrStaleState)
	}

	ts := nowTimestamp()
	if err := s.users.SetRequestSent(ctx, viewerID, subjectID, ts); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if err := s.users.SetRequestReceived(ctx, subjectID, viewerID, ts); err != nil {
		return fmt.Errorf("send request mirror (%v): %w", err, models.ErrPartialWrite)
	}
	return nil
}

// CancelRequest moves RequestSentByViewer -> None.
func (s *RelationshipService) CancelRequest(ctx context.Context, viewerID, subjectID string) error {
	return s.withReconcileRetry(ctx, viewerID, subjectID, func(ctx context.Context, v, sub string) error {
		viewer, subject, err := s.loadPair(ctx, v, sub)
		if err != nil {
			return err
		}

		switch state, _ := deriveState(viewer, subject); state {
		case models.RelationshipNone:
			return nil // already cancelled
		case models.RelationshipRequestSent:
		default:
			return fmt.Errorf("cancel request: %w", models.ErrStaleState)
		}

		if err := s.users.RemoveRequestSent(ctx, v, sub); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		if err := s.users.RemoveRequestReceived(ctx, sub, v); err != nil {
			return fmt.Errorf("cancel request mirror (%v): %w", err, models.ErrPartialWrite)
		}
		return nil
	})
}

// AcceptRequest moves RequestReceivedByViewer -> Friends. Four single-document
// writes: both request entries are removed first, then both friend entries are
// added, so an interrupted accept is always either completable or re-runnable.
func (s *RelationshipService) AcceptRequest(ctx context.Context, viewerID, subjectID string) error {
	return s.withReconcileRetry(ctx, viewerID, subjectID, s.acceptOnce)
}

func (s *RelationshipService) acceptOnce(ctx context.Context, viewerID, subjectID string) error {
	viewer, subject, err := s.loadPair(ctx, viewerID, subjectID)
	if err != nil {
		return err
	}

	switch state, _ := deriveState(viewer, subject); state {
	case models.RelationshipFriends:
		return nil // concurrent accept from the other device already landed
	case models.RelationshipRequestReceived:
	default:
		return fmt.Errorf("accept request: %w", models.ErrStaleState)
	}

	if err := s.users.RemoveRequestReceived(ctx, viewerID, subjectID); err != nil {
		return fmt.Errorf("accept request (%v): %w", err, models.ErrPartialWrite)
	}
	if err := s.users.RemoveRequestSent(ctx, subjectID, viewerID); err != nil {
		return fmt.Errorf("accept request (%v): %w", err, models.ErrPartialWrite)
	}

	ts := nowTimestamp()
	if err := s.users.SetFriend(ctx, viewerID, subjectID, ts); err != nil {
		return fmt.Errorf("accept request (%v): %w", err, models.ErrPartialWrite)
	}
	if err := s.users.SetFriend(ctx, subjectID, viewerID, ts); err != nil {
		return fmt.Errorf("accept request mirror (%v): %w", err, models.ErrPartialWrite)
	}
	return nil
}

// RejectRequest moves RequestReceivedByViewer -> None.
func (s *RelationshipService) RejectRequest(ctx context.Context, viewerID, subjectID string) error {
	return s.withReconcileRetry(ctx, viewerID, subjectID, func(ctx context.Context, v, sub string) error {
		viewer, subject, err := s.loadPair(ctx, v, sub)
		if err != nil {
			return err
		}

		switch state, _ := deriveState(viewer, subject); state {
		case models.RelationshipNone:
			return nil
		case models.RelationshipRequestReceived:
		default:
			return fmt.Errorf("reject request: %w", models.ErrStaleState)
		}

		if err := s.users.RemoveRequestReceived(ctx, v, sub); err != nil {
			return fmt.Errorf("reject request: %w", err)
		}
		if err := s.users.RemoveRequestSent(ctx, sub, v); err != nil {
			return fmt.Errorf("reject request mirror (%v): %w", err, models.ErrPartialWrite)
		}
		return nil
	})
}

// RemoveFriend moves Friends -> None, symmetric removal on both documents.
func (s *RelationshipService) RemoveFriend(ctx context.Context, viewerID, subjectID string) error {
	if viewerID == subjectID {
		return fmt.Errorf("cannot remove self as a friend")
	}
	return s.withReconcileRetry(ctx, viewerID, subjectID, func(ctx context.Context, v, sub string) error {
		viewer, subject, err := s.loadPair(ctx, v, sub)
		if err != nil {
			return err
		}

		switch state, _ := deriveState(viewer, subject); state {
		case models.RelationshipNone:
			return nil
		case models.RelationshipFriends:
		default:
			return fmt.Errorf("remove friend: %w", models.ErrStaleState)
		}

		if err := s.users.RemoveFriend(ctx, v, sub); err != nil {
			return fmt.Errorf("remove friend: %w", err)
		}
		if err := s.users.RemoveFriend(ctx, sub, v); err != nil {
			return fmt.Errorf("remove friend mirror (%v): %w", err, models.ErrPartialWrite)
		}
		return nil
	})
}

// Reconcile re-reads both documents, diffs them against the mirror invariant
// and repairs forward: an established friendship on either side wins over any
// request remnant, requests recorded in both directions are promoted to
// friendship, and a lone half of a request pair is completed. Every repair is
// an idempotent single-field write, so concurrent reconciles from both
// participants converge.
func (s *RelationshipService) Reconcile(ctx context.Context, aID, bID string) error {
	a, b, err := s.loadPair(ctx, aID, bID)
	if err != nil {
		return err
	}

	aFriend, aFriendOK := a.Friends[bID]
	bFriend, bFriendOK := b.Friends[aID]
	aSent, aSentOK := a.RequestsSent[bID]
	bRecv, bRecvOK := b.RequestsReceived[aID]
	bSent, bSentOK := b.RequestsSent[aID]
	aRecv, aRecvOK := a.RequestsReceived[bID]

	forward := aSentOK || bRecvOK // a -> b request evidence
	reverse := bSentOK || aRecvOK // b -> a request evidence

	switch {
	case aFriendOK || bFriendOK:
		ts := firstNonEmpty(aFriend, bFriend, nowTimestamp())
		if !aFriendOK {
			if err := s.users.SetFriend(ctx, aID, bID, ts); err != nil {
				return fmt.Errorf("reconcile friends: %w", err)
			}
		}
		if !bFriendOK {
			if err := s.users.SetFriend(ctx, bID, aID, ts); err != nil {
				return fmt.Errorf("reconcile friends mirror: %w", err)
			}
		}
		return s.clearRequests(ctx, aID, bID)

	case forward && reverse:
		// Both sides asked: both wanted the friendship, so establish it.
		ts := nowTimestamp()
		if err := s.users.SetFriend(ctx, aID, bID, ts); err != nil {
			return fmt.Errorf("reconcile mutual requests: %w", err)
		}
		if err := s.users.SetFriend(ctx, bID, aID, ts); err != nil {
			return fmt.Errorf("reconcile mutual requests mirror: %w", err)
		}
		return s.clearRequests(ctx, aID, bID)

	case forward:
		ts := firstNonEmpty(aSent, bRecv, nowTimestamp())
		if !aSentOK {
			if err := s.users.SetRequestSent(ctx, aID, bID, ts); err != nil {
				return fmt.Errorf("reconcile request: %w", err)
			}
		}
		if !bRecvOK {
			if err := s.users.SetRequestReceived(ctx, bID, aID, ts); err != nil {
				return fmt.Errorf("reconcile request mirror: %w", err)
			}
		}
		return nil

	case reverse:
		ts := firstNonEmpty(bSent, aRecv, nowTimestamp())
		if !bSentOK {
			if err := s.users.SetRequestSent(ctx, bID, aID, ts); err != nil {
				return fmt.Errorf("reconcile request: %w", err)
			}
		}
		if !aRecvOK {
			if err := s.users.SetRequestReceived(ctx, aID, bID, ts); err != nil {
				return fmt.Errorf("reconcile request mirror: %w", err)
			}
		}
		return nil
	}

	return nil // consistent None
}

func (s *RelationshipService) clearRequests(ctx context.Context, aID, bID string) error {
	if err := s.users.RemoveRequestSent(ctx, aID, bID); err != nil {
		return err
	}
	if err := s.users.RemoveRequestReceived(ctx, aID, bID); err != nil {
		return err
	}
	if err := s.users.RemoveRequestSent(ctx, bID, aID); err != nil {
		return err
	}
	return s.users.RemoveRequestReceived(ctx, bID, aID)
}

/** -------------------- listings -------------------- */

// ListFriends resolves the viewer's friends map into profile summaries.
func (s *RelationshipService) ListFriends(ctx context.Context, viewerID string) ([]models.FriendResponse, error) {
	viewer, err := s.users.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	friends := make([]models.FriendResponse, 0, len(viewer.Friends))
	for id, since := range viewer.Friends {
		friend, err := s.users.Get(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		friends = append(friends, models.FriendResponse{
			ID:             id,
			Username:       friend.UserInformation.Username,
			ProfilePicture: friend.UserInformation.ProfilePicture,
			Since:          since,
		})
	}
	return friends, nil
}

// ListRequests returns the viewer's pending requests, received and sent.
func (s *RelationshipService) ListRequests(ctx context.Context, viewerID string) (received, sent []models.FriendRequestEntry, err error) {
	viewer, err := s.users.Get(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}

	resolve := func(entries map[string]string) []models.FriendRequestEntry {
		out := make([]models.FriendRequestEntry, 0, len(entries))
		for id, ts := range entries {
			entry := models.FriendRequestEntry{UserID: id, Timestamp: ts}
			if other, err := s.users.Get(ctx, id); err == nil {
				entry.Username = other.UserInformation.Username
			}
			out = append(out, entry)
		}
		return out
	}

	return resolve(viewer.RequestsReceived), resolve(viewer.RequestsSent), nil
}

/** -------------------- internals -------------------- */

// withReconcileRetry runs op, and on a StaleState or PartialWrite outcome
// reconciles the pair and retries once before surfacing the failure.
func (s *RelationshipService) withReconcileRetry(ctx context.Context, aID, bID string, op func(ctx context.Context, a, b string) error) error {
	err := op(ctx, aID, bID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrStaleState) && !errors.Is(err, models.ErrPartialWrite) {
		return err
	}

	if rerr := s.Reconcile(ctx, aID, bID); rerr != nil {
		slog.Error("Reconcile after failed mutation", "a", aID, "b", bID, "error", rerr)
		return err
	}
	return op(ctx, aID, bID)
}

func (s *RelationshipService) loadPair(ctx context.Context, aID, bID string) (*models.User, *models.User, error) {
	a, err := s.users.Get(ctx, aID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.users.Get(ctx, bID)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// deriveState computes the viewer-perspective state and whether the pair is
// mirrored. Precedence when facts disagree: friendship wins, then a request
// the viewer received, then one the viewer sent.
func deriveState(viewer, subject *models.User) (models.RelationshipState, bool) {
	_, vFriend := viewer.Friends[subject.ID]
	_, sFriend := subject.Friends[viewer.ID]
	_, vSent := viewer.RequestsSent[subject.ID]
	_, sRecv := subject.RequestsReceived[viewer.ID]
	_, vRecv := viewer.RequestsReceived[subject.ID]
	_, sSent := subject.RequestsSent[viewer.ID]

	switch {
	case vFriend || sFriend:
		return models.RelationshipFriends, vFriend && sFriend && !vSent && !sRecv && !vRecv && !sSent
	case vRecv || sSent:
		return models.RelationshipRequestReceived, vRecv && sSent && !vSent && !sRecv
	case vSent || sRecv:
		return models.RelationshipRequestSent, vSent && sRecv
	default:
		return models.RelationshipNone, true
	}
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
