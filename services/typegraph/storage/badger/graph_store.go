// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
	"github.com/AleutianAI/typegraph/services/typegraph/graphio"
)

// keyPrefix namespaces graph entries inside the database.
const keyPrefix = "typegraph/graph/"

// ErrNilDB is returned by NewGraphStore when db is nil.
var ErrNilDB = errors.New("badger: nil database")

// GraphStore stores string-keyed graphs by content key.
//
// Thread Safety: Safe for concurrent use.
type GraphStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewGraphStore wraps an open database. A zero ttl keeps entries forever.
func NewGraphStore(db *badger.DB, ttl time.Duration, logger *slog.Logger) (*GraphStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphStore{db: db, ttl: ttl, logger: logger}, nil
}

// Key derives a cache key from an archive digest and the parts of the
// builder configuration that change the resulting graph.
func Key(archiveDigest string, options ...string) string {
	h := sha256.New()
	io.WriteString(h, archiveDigest)
	for _, o := range options {
		io.WriteString(h, "\x00")
		io.WriteString(h, o)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DigestFile returns the hex SHA-256 of a file's contents.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Put stores g under key.
func (s *GraphStore) Put(ctx context.Context, key string, g *graph.Graph[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := graphio.WriteYAML(&buf, g, graphio.WriteOptions{}); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), buf.Bytes())
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("storing graph %s: %w", key, err)
	}
	s.logger.Debug("graph cached",
		slog.String("key", key),
		slog.Int("vertices", g.Len()),
		slog.Int("bytes", buf.Len()),
	)
	return nil
}

// Get loads the graph stored under key. The boolean is false on a miss.
func (s *GraphStore) Get(ctx context.Context, key string) (*graph.Graph[string], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading graph %s: %w", key, err)
	}
	g, err := graphio.ReadYAML(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decoding graph %s: %w", key, err)
	}
	return g, true, nil
}

// Delete removes the graph stored under key, if any.
func (s *GraphStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
}

// Keys lists the stored graph keys.
func (s *GraphStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	return keys, err
}
