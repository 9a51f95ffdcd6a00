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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts provider calls so tests can assert cache hits.
type countingEmbedder struct {
	calls atomic.Int64
	fail  bool
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("provider down")
	}
	return []float32{float32(len(text)), 2.5, -1}, nil
}

func TestCachingEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("second lookup hits the cache", func(t *testing.T) {
		inner := &countingEmbedder{}
		cache, err := NewCachingEmbedder(inner, CacheConfig{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		first, err := cache.Embed(ctx, "task text")
		require.NoError(t, err)
		second, err := cache.Embed(ctx, "task text")
		require.NoError(t, err)

		assert.EqualValues(t, 1, inner.calls.Load(), "second lookup must not reach the provider")
		assert.Equal(t, first, second)
	})

	t.Run("distinct texts get distinct entries", func(t *testing.T) {
		inner := &countingEmbedder{}
		cache, err := NewCachingEmbedder(inner, CacheConfig{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		_, err = cache.Embed(ctx, "alpha")
		require.NoError(t, err)
		_, err = cache.Embed(ctx, "beta")
		require.NoError(t, err)
		assert.EqualValues(t, 2, inner.calls.Load())
	})

	t.Run("provider errors propagate and are not cached", func(t *testing.T) {
		inner := &countingEmbedder{fail: true}
		cache, err := NewCachingEmbedder(inner, CacheConfig{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		_, err = cache.Embed(ctx, "text")
		require.Error(t, err, "provider error must propagate")

		inner.fail = false
		_, err = cache.Embed(ctx, "text")
		require.NoError(t, err, "failure must not be cached")
		assert.EqualValues(t, 2, inner.calls.Load())
	})

	t.Run("rejects nil inner embedder", func(t *testing.T) {
		_, err := NewCachingEmbedder(nil, CacheConfig{InMemory: true})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestVectorCodec(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-9}
	decoded := decodeVector(encodeVector(vec))
	require.Equal(t, vec, decoded)

	assert.Nil(t, decodeVector([]byte{1, 2, 3}), "truncated buffers must decode to nil")
}
