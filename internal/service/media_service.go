package service

import (
	"context"
	"fmt"
	"io"

	"social-graph-service/internal/models"
)

// BlobStore is the transport boundary of the attachment pipeline; minio
// implements it in production.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string, onProgress func(written int64)) (string, error)
	ResolveURL(objectName string) string
}

// MediaUpload is a local resource handed to the pipeline.
type MediaUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Kind        string // "image" | "video"
}

// MediaService uploads media and resolves durable URLs. Message sends call
// Attach before any message document exists, so a failed upload leaves no
// partial state behind.
type MediaService struct {
	blobs BlobStore
}

func NewMediaService(blobs BlobStore) *MediaService {
	return &MediaService{blobs: blobs}
}

// Attach uploads the resource under the message's provisional id and resolves
// it to a durable reference. onProgress may be nil.
func (s *MediaService) Attach(ctx context.Context, provisionalID string, up MediaUpload, onProgress func(written int64)) (models.AttachmentRef, error) {
	objectName := "messages/" + provisionalID
	url, err := s.blobs.Upload(ctx, objectName, up.Reader, up.Size, up.ContentType, onProgress)
	if err != nil {
		return models.AttachmentRef{}, fmt.Errorf("attach %s (%v): %w", objectName, err, models.ErrUploadFailed)
	}
	return models.AttachmentRef{URL: url, Kind: up.Kind}, nil
}

// UploadProfilePicture stores the avatar under the user's fixed object name
// and returns its durable URL.
func (s *MediaService) UploadProfilePicture(ctx context.Context, userID string, up MediaUpload, onProgress func(written int64)) (string, error) {
	objectName := fmt.Sprintf("profilePictures/%s.jpg", userID)
	url, err := s.blobs.Upload(ctx, objectName, up.Reader, up.Size, up.ContentType, onProgress)
	if err != nil {
		return "", fmt.Errorf("profile picture for %s (%v): %w", userID, err, models.ErrUploadFailed)
	}
	return url, nil
}
