package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseCancelsTrackedSubscriptions(t *testing.T) {
	m := NewManager()
	s := m.SignIn("alice")

	cancelled := []int{}
	s.Track(func() { cancelled = append(cancelled, 1) })
	s.Track(func() { cancelled = append(cancelled, 2) })

	s.Close()
	assert.Equal(t, []int{1, 2}, cancelled)

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("session context should be cancelled after Close")
	}
}

func TestCloseIdempotent(t *testing.T) {
	m := NewManager()
	s := m.SignIn("alice")

	calls := 0
	s.Track(func() { calls++ })

	s.Close()
	s.Close()
	assert.Equal(t, 1, calls)
}

func TestTrackAfterCloseCancelsImmediately(t *testing.T) {
	m := NewManager()
	s := m.SignIn("alice")
	s.Close()

	called := false
	s.Track(func() { called = true })
	assert.True(t, called)
}

func TestAuthStateObservers(t *testing.T) {
	m := NewManager()

	type event struct {
		userID   string
		signedIn bool
	}
	var events []event
	unsubscribe := m.OnAuthStateChange(func(userID string, signedIn bool) {
		events = append(events, event{userID, signedIn})
	})

	s := m.SignIn("alice")
	m.SignOut(s)

	require.Len(t, events, 2)
	assert.Equal(t, event{"alice", true}, events[0])
	assert.Equal(t, event{"alice", false}, events[1])

	unsubscribe()
	m.SignIn("bob")
	assert.Len(t, events, 2)
}

func TestSignOutClosesSession(t *testing.T) {
	m := NewManager()
	s := m.SignIn("alice")

	cancelled := false
	s.Track(func() { cancelled = true })

	m.SignOut(s)
	assert.True(t, cancelled)
	assert.Equal(t, "alice", s.UserID)
}
