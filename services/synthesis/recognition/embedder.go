// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recognition learns a task-conditioned prior over DSL primitives.
//
// # Architecture Overview
//
// A recognition Model maps a task embedding to per-primitive preference
// weights, biasing the synthesizer's search order toward primitives that
// worked on similar tasks. The embedding itself comes from an injected
// Embedder - an external collaborator that may be an in-house embeddings
// service, OpenAI, or any langchaingo provider, optionally fronted by a
// BadgerDB cache.
//
// Embedding failure is always a degraded mode, never a fatal error: a
// search without an embedding simply falls back to uniform preference,
// which changes search order but never correctness.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrInvalidInput is returned for nil contexts and empty texts.
var ErrInvalidInput = errors.New("invalid input")

// Embedder converts text into a dense vector. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultEmbeddingTimeout is the default timeout for embedding requests.
const DefaultEmbeddingTimeout = 30 * time.Second

// HTTPEmbedder wraps calls to the in-house embeddings service.
//
// # Description
//
// HTTPEmbedder speaks the embeddings service's batch protocol: POST
// /batch_embed with a list of texts, receiving one vector per text. The
// service runs transformer models (BGE, Qwen) out of process.
//
// # Thread Safety
//
// HTTPEmbedder is safe for concurrent use.
type HTTPEmbedder struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPEmbedder creates a client for the embeddings service at baseURL,
// e.g. "http://localhost:8000".
func NewHTTPEmbedder(baseURL string) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultEmbeddingTimeout,
		},
		timeout: DefaultEmbeddingTimeout,
	}
}

// WithTimeout sets a custom timeout for embedding requests.
func (c *HTTPEmbedder) WithTimeout(timeout time.Duration) *HTTPEmbedder {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// BaseURL returns the configured base URL.
func (c *HTTPEmbedder) BaseURL() string { return c.baseURL }

// embeddingRequest is the request body for the /batch_embed endpoint.
type embeddingRequest struct {
	Texts []string `json:"texts"`
}

// embeddingResponse is the response from the /batch_embed endpoint.
type embeddingResponse struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Model     string      `json:"model"`
	Vectors   [][]float32 `json:"vectors"`
	Dim       int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Embed computes a vector embedding for the given text.
func (c *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	vectors, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return vectors[0], nil
}

// BatchEmbed computes embeddings for multiple texts in a single request.
//
// # Description
//
// Batches multiple texts into one request; the service processes them
// together, reducing per-call overhead. More efficient than individual
// Embed calls when warming the cache for a task corpus.
func (c *HTTPEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", ErrInvalidInput)
	}

	bodyBytes, err := json.Marshal(embeddingRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/batch_embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return embResp.Vectors, nil
}

// Health checks whether the embeddings service is available and its model
// is loaded. Callers typically log a warning and continue in degraded
// mode when this fails.
func (c *HTTPEmbedder) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrInvalidInput
	}

	url := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embeddings service unhealthy: status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("embeddings service not ready: %s", health.Status)
	}
	return nil
}
