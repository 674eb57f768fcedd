// Package blob stores ticket attachments and hands back the URL they are served from.
package blob

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/crypto/blake2b"
)

// Store persists attachment bytes.
type Store interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// FileStore writes attachments under a local directory. Keys are derived from the content
// hash, so uploading the same bytes twice yields the same URL.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore builds a store rooted at dir whose objects are reachable under baseURL.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory, used to serve the files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Store writes data atomically and returns its public URL.
func (s *FileStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey(data, contentType)
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// ObjectKey names an attachment by the BLAKE2b-256 digest of its content.
func ObjectKey(data []byte, contentType string) string {
	sum := blake2b.Sum256(data)
	return path.Join("uploads", hex.EncodeToString(sum[:16])+extension(contentType))
}

func extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpeg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}

// MemoryStore keeps attachments in memory.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
	err     error
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

// FailWith makes subsequent Store calls return err.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Store(_ context.Context, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	url := s.baseURL + "/" + ObjectKey(data, contentType)
	s.objects[url] = append([]byte(nil), data...)
	return url, nil
}

// Object returns what was stored under url.
func (s *MemoryStore) Object(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[url]
	return data, ok
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
