package service

import (
	"context"
	"strings"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
)

// UserService reads and edits profile state. Username edits keep the
// normalized search field in sync with the display field.
type UserService struct {
	users *repository.UserRepository
	media *MediaService
}

func NewUserService(users *repository.UserRepository, media *MediaService) *UserService {
	return &UserService{users: users, media: media}
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.Get(ctx, userID)
}

// UpdateProfile applies the present fields only; absent fields stay untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	fields := make(map[string]any)
	if req.Username != nil {
		fields["userInformation.username"] = *req.Username
		fields["userInformation.lowercaseUsername"] = strings.ToLower(*req.Username)
	}
	if req.Bio != nil {
		fields["userInformation.bio"] = *req.Bio
	}
	if req.Country != nil {
		fields["userInformation.country"] = *req.Country
	}

	if len(fields) > 0 {
		if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.users.Get(ctx, userID)
}

// SetProfilePicture uploads the avatar and records its durable URL on the
// profile.
func (s *UserService) SetProfilePicture(ctx context.Context, userID string, up MediaUpload) (string, error) {
	url, err := s.media.UploadProfilePicture(ctx, userID, up, nil)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfile(ctx, userID, map[string]any{
		"userInformation.profilePicture": url,
	}); err != nil {
		return "", err
	}
	return url, nil
}
