// Package openrouter is a minimal HTTP client for the OpenRouter API. It
// returns the raw response payload on success and a classified canonical error
// otherwise; response shape interpretation belongs to the normalizer.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// OpenRouter attribution headers sent with every call.
	refererHeader = "https://qubiq.ai"
	titleHeader   = "QubiQ Edu AI"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client issues OpenRouter API calls. Credentials are supplied per call
// because every tenant brings its own key.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OpenRouter API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateChatCompletion sends a chat completion request under the given tenant
// credential and returns the raw payload.
func (c *Client) CreateChatCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/chat/completions", req, req.Model)
}

// CreateImageGeneration sends an image generation request under the given
// tenant credential and returns the raw payload.
func (c *Client) CreateImageGeneration(ctx context.Context, apiKey string, req *ImageGenerationRequest) (json.RawMessage, error) {
	return c.post(ctx, apiKey, "/images/generations", req, req.Model)
}

func (c *Client) post(ctx context.Context, apiKey, path string, payload any, model string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", refererHeader)
	httpReq.Header.Set("X-Title", titleHeader)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrUpstreamTimeout(model)
		}
		return nil, domain.ErrUpstreamTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrUpstreamTimeout(model)
		}
		return nil, domain.ErrUpstreamTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.ErrUpstreamStatus(resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ParseErrorMessage extracts the upstream error message from a raw error body,
// for diagnostic logging. Returns the empty string when the body does not
// carry the standard envelope.
func ParseErrorMessage(rawBody string) string {
	var er errorResponse
	if err := json.Unmarshal([]byte(rawBody), &er); err != nil {
		return ""
	}
	return er.Error.Message
}
