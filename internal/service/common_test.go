package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// requireEventually reads the stream until a value satisfies ok or the
// deadline passes. Deliveries coalesce, so intermediate states may be skipped.
func requireEventually[T any](t *testing.T, ch <-chan T, ok func(T) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, open := <-ch:
			if !open {
				t.Fatal("stream closed before the expected value arrived")
			}
			if ok(v) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the expected value")
		}
	}
}

// fakeBlobStore records uploads and serves deterministic URLs.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]string // objectName -> contentType
	fail    bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]string)}
}

func (f *fakeBlobStore) Upload(_ context.Context, objectName string, r io.Reader, _ int64, contentType string, onProgress func(int64)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", io.ErrUnexpectedEOF
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(n)
	}
	f.objects[objectName] = contentType
	return f.ResolveURL(objectName), nil
}

func (f *fakeBlobStore) ResolveURL(objectName string) string {
	return "https://blobs.test/" + objectName
}

func (f *fakeBlobStore) has(objectName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[objectName]
	return ok
}

func upload(content, contentType, kind string) MediaUpload {
	return MediaUpload{
		Reader:      strings.NewReader(content),
		Size:        int64(len(content)),
		ContentType: contentType,
		Kind:        kind,
	}
}
