package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrylevesque/starseeker/internal/crypto"
)

const storeFileName = "store.json"

// FileStore persists all keys in a single JSON object on disk, optionally
// sealed with AES-GCM.
type FileStore struct {
	filePath string
	key      []byte
	mu       sync.RWMutex
}

// NewFileStore creates a plaintext store backed by filePath. The file is
// created on first write.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// NewEncryptedFileStore creates a store whose file is encrypted with a key
// derived from master and the file name.
func NewEncryptedFileStore(filePath string, master []byte) (*FileStore, error) {
	key, err := crypto.DeriveStoreKey(master, filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	return &FileStore{filePath: filePath, key: key}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.filePath }

func (s *FileStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (s *FileStore) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	items[key] = value
	return s.save(items)
}

func (s *FileStore) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.save(items)
}

// load reads the whole file. Callers hold s.mu.
func (s *FileStore) load() (map[string]string, error) {
	items := make(map[string]string)
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil // File doesn't exist yet, that's fine
		}
		return nil, err
	}
	if len(data) == 0 {
		return items, nil
	}
	if s.key != nil {
		data, err = crypto.DecryptAESGCM(s.key, data)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", s.filePath, err)
		}
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.filePath, err)
	}
	return items, nil
}

// save writes through a temp file and rename so a crash never leaves a torn file.
func (s *FileStore) save(items map[string]string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if s.key != nil {
		data, err = crypto.EncryptAESGCM(s.key, data)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}
