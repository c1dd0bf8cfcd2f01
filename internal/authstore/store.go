// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authstore keeps ephemeral authentication state in BadgerDB:
// pending registrations awaiting email verification, hashed one-time
// passcodes, and send-rate counters. Everything stored here has a TTL;
// nothing in this store is a system of record.
package authstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
)

// ErrNotFound indicates the key does not exist or has expired.
var ErrNotFound = errors.New("authstore: not found")

// Key prefixes for BadgerDB storage.
const (
	otpKeyPrefix     = "otp:"
	pendingKeyPrefix = "pending:"
	counterKeyPrefix = "counter:"
)

// Store wraps a BadgerDB instance holding ephemeral auth state.
type Store struct {
	db     *badger.DB
	stopGC chan struct{}
}

// Open opens (or creates) the store at cfg.Path. With cfg.InMemory set the
// store lives entirely in memory, which tests use.
func Open(cfg config.AuthStoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithInMemory(cfg.InMemory)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open auth store: %w", err)
	}

	s := &Store{db: db, stopGC: make(chan struct{})}
	if !cfg.InMemory {
		go s.gcLoop()
	}
	return s, nil
}

// Close stops value-log GC and closes the underlying database.
func (s *Store) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

// gcLoop reclaims value-log space periodically. Badger expires keys lazily,
// so without this the store grows unbounded on disk.
func (s *Store) gcLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Debug().Err(err).Msg("auth store value log gc")
					}
					break
				}
			}
		}
	}
}

// setWithTTL stores a value under key with the given lifetime.
func (s *Store) setWithTTL(key string, val []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), val).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// get copies out the value stored under key, or ErrNotFound.
func (s *Store) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// delete removes key; deleting a missing key is not an error.
func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// IncrementCounter bumps a rolling counter and returns the new value. The
// TTL is set when the counter is created, so the window starts at the first
// event and the count resets when it lapses.
func (s *Store) IncrementCounter(name string, window time.Duration) (int64, error) {
	key := []byte(counterKeyPrefix + name)
	var count int64

	err := s.db.Update(func(txn *badger.Txn) error {
		var remaining time.Duration
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			count = 1
			remaining = window
		case err != nil:
			return err
		default:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			count = decodeInt64(val) + 1
			if exp := item.ExpiresAt(); exp > 0 {
				remaining = time.Until(time.Unix(int64(exp), 0))
				if remaining <= 0 {
					count = 1
					remaining = window
				}
			} else {
				remaining = window
			}
		}
		entry := badger.NewEntry(key, encodeInt64(count)).WithTTL(remaining)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * (7 - i)))
	}
	return buf
}

func decodeInt64(buf []byte) int64 {
	if len(buf) != 8 {
		return 0
	}
	var v int64
	for i := 0; i < 8; i++ {
		v = v<<8 | int64(buf[i])
	}
	return v
}
