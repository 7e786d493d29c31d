package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/access"
)

// PersistedConfig configures the on-disk parsed config cache.
type PersistedConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// BlockCacheSize overrides badger's block cache size when positive.
	BlockCacheSize int64
}

// PersistedStore decorates a Store with a badger cache of parsed configs
// keyed by project name and revision. Only the cheap Revision call reaches
// the backend when a cached entry is current, which survives restarts.
type PersistedStore struct {
	Store
	db  *badger.DB
	enc cbor.EncMode
}

// NewPersistedStore opens the badger cache in front of inner.
func NewPersistedStore(inner Store, cfg PersistedConfig) (*PersistedStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if cfg.Path == "" {
		return nil, errors.New("persisted cache path is required")
	}

	if cfg.BlockCacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.BlockCacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open persisted cache: %w", err)
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	return &PersistedStore{Store: inner, db: db, enc: enc}, nil
}

// keyPrefix length-prefixes the name so that no project's prefix covers
// another project's keys, whatever characters the names contain.
func keyPrefix(name string) []byte {
	return []byte("cfg:" + strconv.Itoa(len(name)) + ":" + name + "@")
}

func keyConfig(name, revision string) []byte {
	return append(keyPrefix(name), revision...)
}

// Load serves name from the cache when its revision is current.
func (s *PersistedStore) Load(ctx context.Context, name string) (*access.ProjectConfig, error) {
	rev, err := s.Store.Revision(ctx, name)
	if err != nil {
		return nil, err
	}

	if cfg, ok := s.get(name, rev); ok {
		return cfg, nil
	}

	cfg, err := s.Store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.put(cfg); err != nil {
		// The config is still good; the next load just misses again.
		logger.Warn("Persisted cache write failed", logger.KeyProject, name, logger.KeyError, err)
	}
	return cfg, nil
}

func (s *PersistedStore) get(name, revision string) (*access.ProjectConfig, bool) {
	var cfg access.ProjectConfig
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyConfig(name, revision))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &cfg)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logger.Warn("Persisted cache read failed", logger.KeyProject, name, logger.KeyError, err)
		}
		return nil, false
	}
	cfg.Name = name
	cfg.Revision = revision
	logger.Debug("Persisted cache hit", logger.KeyProject, name, logger.KeyRevision, revision)
	return &cfg, true
}

// put stores cfg under its revision and drops entries for older revisions.
func (s *PersistedStore) put(cfg *access.ProjectConfig) error {
	val, err := s.enc.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, keyPrefix(cfg.Name)); err != nil {
			return err
		}
		return txn.Set(keyConfig(cfg.Name, cfg.Revision), val)
	})
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the project from the backend and the cache.
func (s *PersistedStore) Delete(ctx context.Context, name string) error {
	if err := s.Store.Delete(ctx, name); err != nil {
		return err
	}
	return s.forget(name)
}

// Rename renames the project in the backend and drops its cache entries.
func (s *PersistedStore) Rename(ctx context.Context, oldName, newName string) error {
	if err := s.Store.Rename(ctx, oldName, newName); err != nil {
		return err
	}
	return s.forget(oldName)
}

func (s *PersistedStore) forget(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, keyPrefix(name))
	})
}

// Cached reports whether a parsed config for name at revision is cached.
func (s *PersistedStore) Cached(name, revision string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyConfig(name, revision))
		return err
	})
	return err == nil
}

// Close closes the cache and the wrapped store.
func (s *PersistedStore) Close() error {
	return errors.Join(s.db.Close(), s.Store.Close())
}
