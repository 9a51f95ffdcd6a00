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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/batch_embed", func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			vectors[i] = []float32{float32(len(req.Texts[i])), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Model: "test-model", Vectors: vectors, Dim: 3,
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: "test-model"})
	})
	return httptest.NewServer(mux)
}

func TestHTTPEmbedder(t *testing.T) {
	server := newEmbeddingServer(t)
	defer server.Close()
	ctx := context.Background()
	client := NewHTTPEmbedder(server.URL)

	t.Run("embeds a single text", func(t *testing.T) {
		vec, err := client.Embed(ctx, "hello")
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 3 || vec[0] != 5 {
			t.Errorf("unexpected vector %v", vec)
		}
	})

	t.Run("batches multiple texts", func(t *testing.T) {
		vectors, err := client.BatchEmbed(ctx, []string{"a", "bb"})
		if err != nil {
			t.Fatalf("BatchEmbed failed: %v", err)
		}
		if len(vectors) != 2 || vectors[1][0] != 2 {
			t.Errorf("unexpected vectors %v", vectors)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		if _, err := client.Embed(ctx, ""); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("health check", func(t *testing.T) {
		if err := client.Health(ctx); err != nil {
			t.Errorf("Health failed: %v", err)
		}
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		down := NewHTTPEmbedder("http://127.0.0.1:1")
		if _, err := down.Embed(ctx, "hello"); err == nil {
			t.Error("expected an error from an unreachable service")
		}
	})
}
