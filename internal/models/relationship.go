package models

// RelationshipState is the friendship status between a viewer and a subject,
// derived by reading both user documents. It is never stored directly.
type RelationshipState string

const (
	RelationshipNone            RelationshipState = "none"
	RelationshipRequestSent     RelationshipState = "request_sent"
	RelationshipRequestReceived RelationshipState = "request_received"
	RelationshipFriends         RelationshipState = "friends"
)

/** -------------------- DTOs -------------------- */

type FriendRequestRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type RelationshipResponse struct {
	UserID string            `json:"userId"`
	State  RelationshipState `json:"state"`
}

// FriendResponse represents one friend entry returned to the client.
type FriendResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Since          string `json:"since,omitempty"`
}

// FriendRequestEntry is a pending request, either sent or received.
type FriendRequestEntry struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	Timestamp string `json:"timestamp"`
}
