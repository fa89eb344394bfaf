package models

/** --------------------ENTITIES-------------------- */

// UserInformation holds the profile fields nested under "userInformation" in
// the user document. LowercaseUsername is maintained alongside Username so
// the directory search can run a case-insensitive prefix range scan.
type UserInformation struct {
	Username          string `json:"username"`
	LowercaseUsername string `json:"lowercaseUsername"`
	Bio               string `json:"bio,omitempty"`
	Country           string `json:"country,omitempty"`
	DateOfBirth       string `json:"dateOfBirth,omitempty"`
	ProfilePicture    string `json:"profilePicture,omitempty"`
}

// User is the per-user document. Relationship facts live in three timestamped
// maps keyed by the other user's id; for any pair at most one of the three
// holds an entry, mirrored on the other user's document.
type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	Password        string          `json:"-"` // bcrypt hash, never returned in responses
	UserInformation UserInformation `json:"userInformation"`

	Friends          map[string]string `json:"friends"`                // friend id -> accepted at (RFC3339)
	RequestsSent     map[string]string `json:"friendRequestsSent"`     // target id -> sent at
	RequestsReceived map[string]string `json:"friendRequestsReceived"` // source id -> sent at
	Conversations    []string          `json:"conversations"`          // conversation keys, set semantics
}

// UserFromDocument decodes a raw store document into a User.
func UserFromDocument(id string, doc map[string]any) *User {
	u := &User{
		ID:               id,
		Email:            docString(doc, "email"),
		Password:         docString(doc, "password"),
		Friends:          docStringMap(doc, "friends"),
		RequestsSent:     docStringMap(doc, "friendRequestsSent"),
		RequestsReceived: docStringMap(doc, "friendRequestsReceived"),
		Conversations:    docStringSlice(doc, "conversations"),
	}
	if info, ok := doc["userInformation"].(map[string]any); ok {
		u.UserInformation = UserInformation{
			Username:          docString(info, "username"),
			LowercaseUsername: docString(info, "lowercaseUsername"),
			Bio:               docString(info, "bio"),
			Country:           docString(info, "country"),
			DateOfBirth:       docString(info, "dateOfBirth"),
			ProfilePicture:    docString(info, "profilePicture"),
		}
	}
	return u
}

// Document encodes the user into store field form. Only used at account
// creation; every later mutation is a field-path write.
func (u *User) Document() map[string]any {
	return map[string]any{
		"email":    u.Email,
		"password": u.Password,
		"userInformation": map[string]any{
			"username":          u.UserInformation.Username,
			"lowercaseUsername": u.UserInformation.LowercaseUsername,
			"bio":               u.UserInformation.Bio,
			"country":           u.UserInformation.Country,
			"dateOfBirth":       u.UserInformation.DateOfBirth,
			"profilePicture":    u.UserInformation.ProfilePicture,
		},
		"friends":                map[string]any{},
		"friendRequestsSent":     map[string]any{},
		"friendRequestsReceived": map[string]any{},
		"conversations":          []any{},
	}
}

/** -------------------- DTOs -------------------- */

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Country     string `json:"country,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// LoginRequest represents the request for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response for a successful login
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	UserInformation UserInformation `json:"userInformation"`
	FriendsCount    int             `json:"friendsCount"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
	Bio      *string `json:"bio,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// UserSummary is a directory search hit.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (u *User) Response() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		UserInformation: u.UserInformation,
		FriendsCount:    len(u.Friends),
	}
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.UserInformation.Username,
		ProfilePicture: u.UserInformation.ProfilePicture,
	}
}
