package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService creates accounts and issues the JWTs the API and websocket
// layers use to recover the current user id.
type AuthService struct {
	users      *repository.UserRepository
	jwtSecret  string
	expiration time.Duration
}

func NewAuthService(users *repository.UserRepository, jwtSecret string, expiration time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, expiration: expiration}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already exists")
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Password: string(hashed),
		UserInformation: models.UserInformation{
			Username:          req.Username,
			LowercaseUsername: strings.ToLower(req.Username),
			Country:           req.Country,
			DateOfBirth:       req.DateOfBirth,
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", models.ErrPermissionDenied)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrPermissionDenied)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user.Response()}, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.expiration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken validates a token and extracts the subject user id. Used by
// the websocket handshake, which cannot rely on the HTTP auth middleware.
func (s *AuthService) UserIDFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", models.ErrPermissionDenied)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims: %w", models.ErrPermissionDenied)
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("invalid user id in token: %w", models.ErrPermissionDenied)
	}
	return userID, nil
}
