// Package dispatch maps capabilities to upstream models and issues the
// upstream calls with bounded timeouts.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qubiq-ai/edu-gateway/internal/api/openrouter"
	"github.com/qubiq-ai/edu-gateway/internal/domain"
	"github.com/qubiq-ai/edu-gateway/internal/tokens"
)

const (
	// systemPrompt is the fixed persona sent as the first turn of every chat
	// completion.
	systemPrompt = "You are a helpful educational tutor."

	// Image generation is materially slower than chat, hence the wider bound.
	defaultChatTimeout  = 60 * time.Second
	defaultImageTimeout = 120 * time.Second

	defaultImageWidth  = 1024
	defaultImageHeight = 1024
	defaultImageSteps  = 20
)

// ModelMap is the immutable capability-to-model table. It is injected at
// construction so tests can substitute alternate tables.
type ModelMap struct {
	// Models maps capability names to upstream model identifiers.
	Models map[domain.Capability]string

	// Default is the capability used when an unrecognized one is requested.
	Default domain.Capability
}

// DefaultModelMap returns the deployed capability catalog.
func DefaultModelMap() ModelMap {
	return ModelMap{
		Models: map[domain.Capability]string{
			domain.CapabilityNeural:  "meta-llama/llama-3.1-8b-instruct",
			domain.CapabilityHelpBot: "google/gemma-2-9b-it",
			domain.CapabilityImage:   "sourceful/riverflow-v2-pro",
		},
		Default: domain.CapabilityNeural,
	}
}

// Resolve returns the model identifier for a capability, falling back to the
// default capability's model for unrecognized names.
func (m ModelMap) Resolve(capability domain.Capability) string {
	if model, ok := m.Models[capability]; ok {
		return model
	}
	return m.Models[m.Default]
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithChatTimeout overrides the chat-class timeout.
func WithChatTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.chatTimeout = d
	}
}

// WithImageTimeout overrides the image-class timeout.
func WithImageTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.imageTimeout = d
	}
}

// WithTokenCounter overrides the prompt token counter.
func WithTokenCounter(c tokens.Counter) Option {
	return func(disp *Dispatcher) {
		disp.counter = c
	}
}

// Dispatcher issues upstream calls for resolved tenant credentials. It does no
// retries: upstream providers are billed per call, and blind retries risk
// double-charging a tenant.
type Dispatcher struct {
	client  *openrouter.Client
	models  ModelMap
	counter tokens.Counter
	logger  *slog.Logger

	chatTimeout  time.Duration
	imageTimeout time.Duration
}

// New creates a dispatcher over the given client and model table.
func New(client *openrouter.Client, models ModelMap, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:       client,
		models:       models,
		counter:      tokens.NewTiktokenCounter(),
		logger:       logger,
		chatTimeout:  defaultChatTimeout,
		imageTimeout: defaultImageTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Model exposes the resolved model identifier for a capability.
func (d *Dispatcher) Model(capability domain.Capability) string {
	return d.models.Resolve(capability)
}

// Chat issues a chat completion: the fixed tutor persona plus the caller's
// prompt as the sole user turn. Returns the raw upstream payload.
func (d *Dispatcher) Chat(ctx context.Context, secret string, capability domain.Capability, prompt string) (json.RawMessage, error) {
	model := d.models.Resolve(capability)

	ctx, cancel := context.WithTimeout(ctx, d.chatTimeout)
	defer cancel()

	req := &openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	d.logger.DebugContext(ctx, "dispatching chat completion",
		slog.String("capability", string(capability)),
		slog.String("model", model),
		slog.Int("prompt_tokens_est", d.counter.Count(prompt)),
	)

	return d.client.CreateChatCompletion(ctx, secret, req)
}

// GenerateImage issues an image generation call with defaulted parameters.
// Returns the raw upstream payload.
func (d *Dispatcher) GenerateImage(ctx context.Context, secret, prompt string, width, height, steps int) (json.RawMessage, error) {
	model := d.models.Resolve(domain.CapabilityImage)

	if width <= 0 {
		width = defaultImageWidth
	}
	if height <= 0 {
		height = defaultImageHeight
	}
	if steps <= 0 {
		steps = defaultImageSteps
	}

	ctx, cancel := context.WithTimeout(ctx, d.imageTimeout)
	defer cancel()

	req := &openrouter.ImageGenerationRequest{
		Model:  model,
		Prompt: prompt,
		Size:   fmt.Sprintf("%dx%d", width, height),
		Steps:  steps,
	}

	d.logger.DebugContext(ctx, "dispatching image generation",
		slog.String("model", model),
		slog.String("size", req.Size),
		slog.Int("steps", steps),
		slog.Int("prompt_tokens_est", d.counter.Count(prompt)),
	)

	return d.client.CreateImageGeneration(ctx, secret, req)
}
