// Package gateway orchestrates a proxied request end to end: tenant
// resolution, enablement gating, credential decryption and selection, upstream
// dispatch, and response normalization. Steps run strictly sequentially and
// nothing is retried.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
	"github.com/qubiq-ai/edu-gateway/internal/keyring"
	"github.com/qubiq-ai/edu-gateway/internal/normalize"
	"github.com/qubiq-ai/edu-gateway/internal/storage"
	"github.com/qubiq-ai/edu-gateway/internal/vault"
)

// Dispatcher issues upstream calls for a resolved credential.
type Dispatcher interface {
	Chat(ctx context.Context, secret string, capability domain.Capability, prompt string) (json.RawMessage, error)
	GenerateImage(ctx context.Context, secret, prompt string, width, height, steps int) (json.RawMessage, error)
}

// Service is the per-request orchestrator. It owns tenant-enablement checks;
// everything else is delegated to its collaborators.
type Service struct {
	store      storage.CredentialStore
	codec      *vault.Codec
	resolver   *keyring.Resolver
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New creates the gateway service.
func New(store storage.CredentialStore, codec *vault.Codec, resolver *keyring.Resolver, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		codec:      codec,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Chat handles a proxied chat request for a verified identity.
func (s *Service) Chat(ctx context.Context, identity *domain.Identity, req *domain.ChatRequest) (*domain.ChatReply, error) {
	tenantID, err := resolveTenant(identity, req.TenantID)
	if err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, domain.ErrInvalidRequest("prompt is required")
	}

	capability := req.Capability
	if capability == "" {
		capability = domain.CapabilityNeural
	}

	bundle, err := s.loadBundle(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	secret, err := s.resolver.Select(bundle, capability)
	if err != nil {
		return nil, err
	}

	raw, err := s.dispatcher.Chat(ctx, secret, capability, req.Prompt)
	if err != nil {
		return nil, err
	}

	reply, err := normalize.ExtractReply(raw)
	if err != nil {
		return nil, err
	}

	return &domain.ChatReply{Reply: reply}, nil
}

// GenerateImage handles a proxied image request for a verified identity.
func (s *Service) GenerateImage(ctx context.Context, identity *domain.Identity, req *domain.ImageRequest) (*domain.ImageResult, error) {
	tenantID, err := resolveTenant(identity, req.TenantID)
	if err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, domain.ErrInvalidRequest("prompt is required")
	}

	bundle, err := s.loadBundle(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	secret, err := s.resolver.Select(bundle, domain.CapabilityImage)
	if err != nil {
		return nil, err
	}

	raw, err := s.dispatcher.GenerateImage(ctx, secret, req.Prompt, req.Width, req.Height, req.Steps)
	if err != nil {
		return nil, err
	}

	image, err := normalize.ExtractImage(raw)
	if err != nil {
		return nil, err
	}

	return &domain.ImageResult{Image: image}, nil
}

// UpsertKeys encrypts and stores a tenant's credential bundle, activating the
// tenant. Re-uploading overwrites the previous record.
func (s *Service) UpsertKeys(ctx context.Context, tenantID string, keys map[string]string) error {
	if tenantID == "" {
		return domain.ErrInvalidRequest("schoolId is required")
	}
	if len(keys) == 0 {
		return domain.ErrInvalidRequest("keys are required")
	}

	plaintext, err := json.Marshal(keys)
	if err != nil {
		return domain.ErrServer("failed to serialize credential bundle").WithCause(err)
	}

	blob, err := s.codec.Seal(plaintext)
	if err != nil {
		return domain.ErrServer("failed to encrypt credential bundle").WithCause(err)
	}

	if err := s.store.Upsert(ctx, tenantID, blob); err != nil {
		return domain.ErrServer("failed to store credential bundle").WithCause(err)
	}

	s.logger.InfoContext(ctx, "stored school keys",
		slog.String("tenant_id", tenantID),
		slog.Int("capabilities", len(keys)),
	)

	return nil
}

// DisableTenant marks a tenant inactive without touching its stored
// credentials.
func (s *Service) DisableTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return domain.ErrInvalidRequest("schoolId is required")
	}

	if err := s.store.Disable(ctx, tenantID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrTenantUnknown(tenantID)
		}
		return domain.ErrServer("failed to disable school").WithCause(err)
	}

	s.logger.InfoContext(ctx, "disabled school", slog.String("tenant_id", tenantID))

	return nil
}

// resolveTenant picks the tenant id: a verified identity claim takes
// precedence over the request body field.
func resolveTenant(identity *domain.Identity, bodyTenantID string) (string, error) {
	if identity != nil && identity.TenantID != "" {
		return identity.TenantID, nil
	}
	if bodyTenantID != "" {
		return bodyTenantID, nil
	}
	return "", domain.ErrInvalidRequest("school id missing")
}

// loadBundle reads, gates, and decrypts a tenant's credential bundle.
func (s *Service) loadBundle(ctx context.Context, tenantID string) (domain.CredentialBundle, error) {
	rec, err := s.store.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrTenantUnknown(tenantID)
		}
		return nil, domain.ErrServer("failed to load school record").WithCause(err)
	}

	if !rec.Active {
		return nil, domain.ErrTenantDisabled(tenantID)
	}

	plaintext, err := s.codec.Open(rec.CipherBlob)
	if err != nil {
		return nil, err
	}

	var bundle domain.CredentialBundle
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return nil, domain.ErrServer("stored credential bundle is unreadable").WithCause(err)
	}

	return bundle, nil
}
