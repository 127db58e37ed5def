// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package briefstore persists candidate briefs in BadgerDB with
// monotonically increasing versions.
//
// Versions are never overwritten: Put always writes the next version for
// an application inside a single transaction. In-memory mode is available
// for tests.
package briefstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/attest/services/verify/brief"
)

// ErrNotFound indicates no brief exists for the requested key.
var ErrNotFound = errors.New("briefstore: brief not found")

// keyPrefix namespaces brief keys: brief/<application_id>/<version>.
const keyPrefix = "brief/"

// Config holds store configuration.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives store operations. Nil disables Badger's internal
	// logging and uses slog.Default() for store logs.
	Logger *slog.Logger
}

// Store is a versioned, never-overwrite brief store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open creates a Store from config.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("briefstore: path required for persistent store")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("briefstore: open: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory creates an ephemeral store for tests.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func versionKey(applicationID string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", keyPrefix, applicationID, version))
}

func appPrefix(applicationID string) []byte {
	return []byte(keyPrefix + applicationID + "/")
}

// Put stores the brief under the next version for its application and
// returns the assigned version. Existing versions are never touched.
func (s *Store) Put(ctx context.Context, b *brief.CandidateBrief) (int, error) {
	if b == nil || b.ApplicationID == "" {
		return 0, errors.New("briefstore: brief with application id required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var assigned int
	err := s.db.Update(func(txn *badger.Txn) error {
		latest, err := latestVersion(txn, b.ApplicationID)
		if err != nil {
			return err
		}
		assigned = latest + 1

		stored := *b
		stored.Version = assigned
		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshal brief: %w", err)
		}
		return txn.Set(versionKey(b.ApplicationID, assigned), data)
	})
	if err != nil {
		return 0, fmt.Errorf("briefstore: put: %w", err)
	}

	s.logger.Info("brief stored",
		"application_id", b.ApplicationID,
		"brief_id", b.ID,
		"version", assigned,
	)
	return assigned, nil
}

// Get returns a specific brief version.
func (s *Store) Get(ctx context.Context, applicationID string, version int) (*brief.CandidateBrief, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out brief.CandidateBrief
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey(applicationID, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("briefstore: get: %w", err)
	}
	return &out, nil
}

// Latest returns the highest-version brief for an application.
func (s *Store) Latest(ctx context.Context, applicationID string) (*brief.CandidateBrief, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var latest int
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := latestVersion(txn, applicationID)
		if err != nil {
			return err
		}
		latest = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("briefstore: latest: %w", err)
	}
	if latest == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, applicationID, latest)
}

// Versions returns all stored versions for an application, ascending.
func (s *Store) Versions(ctx context.Context, applicationID string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var versions []int
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: appPrefix(applicationID)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			var v int
			if _, err := fmt.Sscanf(string(key[len(appPrefix(applicationID)):]), "%d", &v); err == nil {
				versions = append(versions, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("briefstore: versions: %w", err)
	}
	return versions, nil
}

// latestVersion scans an application's keys for the highest version.
// Keys are zero-padded so lexicographic order is numeric order.
func latestVersion(txn *badger.Txn, applicationID string) (int, error) {
	prefix := appPrefix(applicationID)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	latest := 0
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		var v int
		if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &v); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}
