package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const passwordFileName = "admin_password.txt"

// FileStore keeps the admin password in a plain text file inside a data
// directory.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &FileStore{path: filepath.Join(dataDir, passwordFileName)}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Ping checks that the data directory is still reachable.
func (s *FileStore) Ping() error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %q is not a directory", filepath.Dir(s.path))
	}

	return nil
}

func (s *FileStore) ReadPassword() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read password file: %w", err)
		}

		if err := s.writeLocked(DefaultPassword); err != nil {
			return "", err
		}
		return DefaultPassword, nil
	}

	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) WritePassword(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(password)
}

func (s *FileStore) writeLocked(password string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// readers only ever see the old or the new password
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(password), 0o600); err != nil {
		return fmt.Errorf("write password file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace password file: %w", err)
	}

	return nil
}
