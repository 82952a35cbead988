package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrInvalidKey is returned for keys escaping the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStorage persists uploaded files on disk under a base directory.
type LocalStorage struct {
	baseDir  string
	maxBytes int64
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// maxBytes <= 0 disables the size limit.
func NewLocalStorage(baseDir string, maxBytes int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: maxBytes}, nil
}

// NewKey builds a unique storage key for an uploaded file name.
func NewKey(fileName string) string {
	now := time.Now().UTC()
	name := unsafeChars.ReplaceAllString(filepath.Base(fileName), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	return path.Join("documents", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()), uuid.NewString()+"-"+name)
}

// SaveStream copies r into the file behind key and returns the number of bytes written.
// A partially written file is removed when the limit is exceeded.
func (s *LocalStorage) SaveStream(key string, r io.Reader) (int64, error) {
	target, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(target)
		return 0, fmt.Errorf("write upload stream: %w", copyErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		_ = os.Remove(target)
		return 0, ErrTooLarge
	case closeErr != nil:
		return 0, fmt.Errorf("close upload file: %w", closeErr)
	}
	return written, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path exposes the on-disk location of a key.
func (s *LocalStorage) Path(key string) (string, error) {
	return s.resolve(key)
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
