// Package kvstore provides the string-keyed, string-valued stores the local
// favourites and recent-routes helpers are built on.
package kvstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harrylevesque/starseeker/internal/crypto"
)

// Store is an asynchronous string-keyed store. A missing key is reported with
// ok=false and a nil error.
type Store interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	// DataDir holds store.json for the file backend.
	DataDir string
	// MasterKeyPath enables at-rest encryption of the file backend when set.
	MasterKeyPath string
	PostgresDSN   string
}

// Open builds the configured backend. The returned close func releases its resources.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), func() {}, nil
	case "", BackendFile:
		path := filepath.Join(opts.DataDir, storeFileName)
		if opts.MasterKeyPath == "" {
			return NewFileStore(path), func() {}, nil
		}
		master, err := crypto.ReadMasterKey(opts.MasterKeyPath)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewEncryptedFileStore(path, master)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case BackendPostgres:
		s, err := NewPGStore(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
