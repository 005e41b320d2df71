// Package watermark persists each user's "last visited requests" time.
//
// Keys are lastVisitedRequests_<userID>; values are RFC 3339 timestamps.
// An absent key means the user has never visited the requests page.
package watermark

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// KeyPrefix prefixes every watermark key.
const KeyPrefix = "lastVisitedRequests_"

// Key returns the storage key for userID.
func Key(userID string) []byte {
	return []byte(KeyPrefix + userID)
}

// Store is a badger-backed watermark store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open watermark db: %w", err)
	}
	logger.Info("watermark store opened", "path", path, "in_memory", path == "")
	return &Store{db: db, logger: logger}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the user's watermark, or nil if none is stored.
func (s *Store) Get(userID string) (*time.Time, error) {
	var out *time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err := time.Parse(time.RFC3339Nano, string(val))
			if err != nil {
				return fmt.Errorf("parse watermark for %s: %w", userID, err)
			}
			out = &t
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores t as the user's watermark.
func (s *Store) Set(userID string, t time.Time) error {
	val := []byte(t.UTC().Format(time.RFC3339Nano))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Key(userID), val)
	})
}

// Clear removes the user's watermark. Clearing an absent key is not an error.
func (s *Store) Clear(userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(Key(userID))
	})
}

// All returns every stored watermark keyed by user ID.
func (s *Store) All() (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(KeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			userID := strings.TrimPrefix(string(item.Key()), KeyPrefix)
			err := item.Value(func(val []byte) error {
				t, err := time.Parse(time.RFC3339Nano, string(val))
				if err != nil {
					return err
				}
				out[userID] = t
				return nil
			})
			if err != nil {
				s.logger.Warn("skipping unreadable watermark", "user_id", userID, "error", err)
			}
		}
		return nil
	})
	return out, err
}
