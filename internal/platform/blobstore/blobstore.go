// Package blobstore stores attachment bytes under a container/key scheme.
// It defines the Store interface, a MinIO-backed implementation for
// deployments, an in-memory implementation for development and tests, and
// the Echo handlers behind the /files endpoints.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	ErrBlobNotFound     = errors.New("blob not found")
	ErrMissingName      = errors.New("blob name is required")
	ErrMissingContainer = errors.New("container name is required")
)

// Store is the blob persistence contract. Upload returns the key the bytes
// were stored under, which is the sanitized form of the suggested name.
// Failures are returned as-is; there is no retry.
type Store interface {
	Upload(ctx context.Context, container string, content io.Reader, size int64, contentType, name string) (string, error)
	Exists(ctx context.Context, container, key string) (bool, error)
	Download(ctx context.Context, container, key string) (io.ReadCloser, error)
	URL(ctx context.Context, container, key string) (string, error)
	Delete(ctx context.Context, container, key string) (bool, error)
}

var keyReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeKey replaces path-hostile characters with underscores.
func SanitizeKey(name string) string {
	return keyReplacer.Replace(name)
}

func checkNames(container, name string) error {
	if container == "" {
		return ErrMissingContainer
	}
	if name == "" {
		return ErrMissingName
	}
	return nil
}

type memoryBlob struct {
	contentType string
	data        []byte
}

// MemoryStore keeps blobs in process memory. Containers appear on first
// upload.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]map[string]memoryBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{containers: make(map[string]map[string]memoryBlob)}
}

func (s *MemoryStore) Upload(_ context.Context, container string, content io.Reader, _ int64, contentType, name string) (string, error) {
	if err := checkNames(container, name); err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}

	key := SanitizeKey(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	blobs, ok := s.containers[container]
	if !ok {
		blobs = make(map[string]memoryBlob)
		s.containers[container] = blobs
	}
	blobs[key] = memoryBlob{contentType: contentType, data: data}
	return key, nil
}

func (s *MemoryStore) Exists(_ context.Context, container, key string) (bool, error) {
	_, ok := s.get(container, key)
	return ok, nil
}

func (s *MemoryStore) Download(_ context.Context, container, key string) (io.ReadCloser, error) {
	b, ok := s.get(container, key)
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *MemoryStore) URL(_ context.Context, container, key string) (string, error) {
	return "memory://" + container + "/" + key, nil
}

func (s *MemoryStore) Delete(_ context.Context, container, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blobs, ok := s.containers[container]
	if !ok {
		return false, nil
	}
	if _, ok := blobs[key]; !ok {
		return false, nil
	}
	delete(blobs, key)
	return true, nil
}

// Len reports how many blobs a container holds.
func (s *MemoryStore) Len(container string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.containers[container])
}

func (s *MemoryStore) get(container, key string) (memoryBlob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.containers[container][key]
	return b, ok
}
