package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient is the blob store used for message attachments and profile
// pictures.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(endpoint, accessKey, secretKey, bucket string, secure bool) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Check if bucket exists, create if not
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	slog.Info("Connected to MinIO", "bucket", bucket)
	return &MinIOClient{
		client: client,
		bucket: bucket,
	}, nil
}

// Upload streams the object to the bucket and returns its durable URL. The
// reader is wrapped so byte progress reaches onProgress while the transfer
// runs; a nil onProgress disables reporting.
func (m *MinIOClient) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string, onProgress func(written int64)) (string, error) {
	src := r
	if onProgress != nil {
		src = &progressReader{reader: r, report: onProgress}
	}

	_, err := m.client.PutObject(ctx, m.bucket, objectName, src, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	return m.ResolveURL(objectName), nil
}

// ResolveURL returns the durable URL for an already-uploaded object.
func (m *MinIOClient) ResolveURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL().String(), m.bucket, objectName)
}

type progressReader struct {
	reader  io.Reader
	written int64
	report  func(written int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.report(p.written)
	}
	return n, err
}
