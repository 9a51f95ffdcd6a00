// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/telemetry"
)

// cacheKeyPrefix namespaces embedding entries inside the store.
const cacheKeyPrefix = "emb:"

// CacheConfig holds configuration for the embedding cache.
type CacheConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// Logger receives degraded-mode events. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives hit/miss counters. Optional.
	Metrics *telemetry.Metrics
}

// CachingEmbedder fronts an Embedder with a BadgerDB cache.
//
// # Description
//
// Task embeddings are deterministic per text, so recomputing them across
// sessions wastes provider calls. CachingEmbedder keys entries by the
// SHA-256 of the text and stores raw little-endian float32 vectors.
//
// Cache faults are degraded modes: a failed read falls through to the
// inner provider, and a failed write is logged and dropped. Only the
// inner provider's errors propagate to the caller.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions handle contention.
type CachingEmbedder struct {
	inner   Embedder
	db      *badger.DB
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewCachingEmbedder opens the cache store and wraps inner with it.
func NewCachingEmbedder(inner Embedder, config CacheConfig) (*CachingEmbedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil inner embedder", ErrInvalidInput)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(config.Path).
		WithInMemory(config.InMemory).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	return &CachingEmbedder{
		inner:   inner,
		db:      db,
		logger:  logger,
		metrics: config.Metrics,
	}, nil
}

// Close releases the underlying store.
func (c *CachingEmbedder) Close() error {
	return c.db.Close()
}

// Embed implements Embedder with read-through caching.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if vec, ok := c.lookup(key); ok {
		if c.metrics != nil {
			c.metrics.EmbeddingCacheHits.Add(ctx, 1)
		}
		return vec, nil
	}
	if c.metrics != nil {
		c.metrics.EmbeddingCacheMisses.Add(ctx, 1)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(key, vec)
	return vec, nil
}

func (c *CachingEmbedder) lookup(key []byte) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			c.logger.Warn("embedding cache read failed, falling through", "error", err)
		}
		return nil, false
	}
	return vec, vec != nil
}

func (c *CachingEmbedder) store(key []byte, vec []float32) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeVector(vec))
	})
	if err != nil {
		c.logger.Warn("embedding cache write failed, dropping entry", "error", err)
	}
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(cacheKeyPrefix + hex.EncodeToString(sum[:]))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 || len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
