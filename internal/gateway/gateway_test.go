package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
	"github.com/qubiq-ai/edu-gateway/internal/keyring"
	"github.com/qubiq-ai/edu-gateway/internal/storage"
	"github.com/qubiq-ai/edu-gateway/internal/vault"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// memStore is an in-memory CredentialStore for tests.
type memStore struct {
	records map[string]*storage.EncryptedRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*storage.EncryptedRecord)}
}

func (m *memStore) Upsert(_ context.Context, tenantID, cipherBlob string) error {
	m.records[tenantID] = &storage.EncryptedRecord{
		TenantID:   tenantID,
		CipherBlob: cipherBlob,
		Active:     true,
		UpdatedAt:  time.Now(),
	}
	return nil
}

func (m *memStore) Get(_ context.Context, tenantID string) (*storage.EncryptedRecord, error) {
	rec, ok := m.records[tenantID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *memStore) Disable(_ context.Context, tenantID string) error {
	rec, ok := m.records[tenantID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Active = false
	return nil
}

func (m *memStore) Close() error { return nil }

// fakeDispatcher records calls and returns canned payloads.
type fakeDispatcher struct {
	chatPayload  string
	imagePayload string
	err          error

	gotSecret     string
	gotCapability domain.Capability
	gotPrompt     string
	chatCalls     int
	imageCalls    int
}

func (f *fakeDispatcher) Chat(_ context.Context, secret string, capability domain.Capability, prompt string) (json.RawMessage, error) {
	f.chatCalls++
	f.gotSecret = secret
	f.gotCapability = capability
	f.gotPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.chatPayload), nil
}

func (f *fakeDispatcher) GenerateImage(_ context.Context, secret, prompt string, _, _, _ int) (json.RawMessage, error) {
	f.imageCalls++
	f.gotSecret = secret
	f.gotPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.imagePayload), nil
}

func newTestService(t *testing.T, disp Dispatcher) (*Service, *memStore) {
	t.Helper()

	codec, err := vault.New(testKeyHex)
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}

	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, codec, keyring.NewResolver(keyring.DefaultRules()), disp, logger)
	return svc, store
}

func seedTenant(t *testing.T, svc *Service, tenantID string, keys map[string]string) {
	t.Helper()
	if err := svc.UpsertKeys(context.Background(), tenantID, keys); err != nil {
		t.Fatalf("UpsertKeys() error = %v", err)
	}
}

func wantErrType(t *testing.T, err error, errType domain.ErrorType) {
	t.Helper()
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != errType {
		t.Fatalf("error = %v, want type %q", err, errType)
	}
}

func TestService_Chat(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"the answer"}}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "sk-chat"})

	reply, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{
		Capability: domain.CapabilityHelpBot,
		Prompt:     "why is the sky blue?",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if reply.Reply != "the answer" {
		t.Errorf("Reply = %q, want %q", reply.Reply, "the answer")
	}
	if disp.gotSecret != "sk-chat" {
		t.Errorf("dispatched secret = %q, want fallback chat key", disp.gotSecret)
	}
	if disp.gotCapability != domain.CapabilityHelpBot {
		t.Errorf("capability = %q, want helpbot", disp.gotCapability)
	}
}

func TestService_Chat_IdentityClaimWinsOverBody(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"ok"}}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "claimed", map[string]string{"chat": "claimed-key"})
	seedTenant(t, svc, "body", map[string]string{"chat": "body-key"})

	_, err := svc.Chat(context.Background(),
		&domain.Identity{TenantID: "claimed"},
		&domain.ChatRequest{Prompt: "hi", TenantID: "body"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if disp.gotSecret != "claimed-key" {
		t.Errorf("used %q, want the identity claim's tenant key", disp.gotSecret)
	}
}

func TestService_Chat_BodyTenantWhenNoClaim(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"ok"}}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "body", map[string]string{"chat": "body-key"})

	_, err := svc.Chat(context.Background(),
		&domain.Identity{Subject: "app"},
		&domain.ChatRequest{Prompt: "hi", TenantID: "body"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if disp.gotSecret != "body-key" {
		t.Errorf("used %q, want body tenant key", disp.gotSecret)
	}
}

func TestService_Chat_MissingTenant(t *testing.T) {
	svc, _ := newTestService(t, &fakeDispatcher{})

	_, err := svc.Chat(context.Background(), &domain.Identity{}, &domain.ChatRequest{Prompt: "hi"})
	wantErrType(t, err, domain.ErrorTypeInvalidRequest)
}

func TestService_Chat_MissingPrompt(t *testing.T) {
	svc, _ := newTestService(t, &fakeDispatcher{})

	_, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{})
	wantErrType(t, err, domain.ErrorTypeInvalidRequest)
}

func TestService_Chat_UnknownTenant(t *testing.T) {
	svc, _ := newTestService(t, &fakeDispatcher{})

	_, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "ghost"}, &domain.ChatRequest{Prompt: "hi"})
	wantErrType(t, err, domain.ErrorTypeTenant)
}

func TestService_Chat_DisabledTenantGatesEverything(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"ok"}}]}`, imagePayload: `{"data":[{"url":"https://x/y.png"}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A", "image": "I"})

	if err := svc.DisableTenant(context.Background(), "school-1"); err != nil {
		t.Fatalf("DisableTenant() error = %v", err)
	}

	identity := &domain.Identity{TenantID: "school-1"}

	_, err := svc.Chat(context.Background(), identity, &domain.ChatRequest{Prompt: "hi"})
	wantErrType(t, err, domain.ErrorTypeTenant)

	_, err = svc.GenerateImage(context.Background(), identity, &domain.ImageRequest{Prompt: "a cat"})
	wantErrType(t, err, domain.ErrorTypeTenant)

	if disp.chatCalls != 0 || disp.imageCalls != 0 {
		t.Error("disabled tenant still reached the dispatcher")
	}
}

func TestService_Chat_TamperedRecord(t *testing.T) {
	svc, store := newTestService(t, &fakeDispatcher{})
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	rec := store.records["school-1"]
	fields := strings.Split(rec.CipherBlob, ":")
	fields[1] = strings.Repeat("0", len(fields[1]))
	rec.CipherBlob = strings.Join(fields, ":")

	_, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{Prompt: "hi"})
	wantErrType(t, err, domain.ErrorTypeIntegrity)
}

func TestService_Chat_SentinelOnEmptyContent(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	reply, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply.Reply != "No response from model" {
		t.Errorf("Reply = %q, want sentinel", reply.Reply)
	}
}

func TestService_GenerateImage(t *testing.T) {
	disp := &fakeDispatcher{imagePayload: `{"data":[{"url":"https://img.example/out.png"}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A", "image": "sk-img"})

	result, err := svc.GenerateImage(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ImageRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if result.Image != "https://img.example/out.png" {
		t.Errorf("Image = %q", result.Image)
	}
	if disp.gotSecret != "sk-img" {
		t.Errorf("dispatched secret = %q, want the image key", disp.gotSecret)
	}
}

func TestService_GenerateImage_NoImageKey(t *testing.T) {
	disp := &fakeDispatcher{}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	_, err := svc.GenerateImage(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ImageRequest{Prompt: "a cat"})
	wantErrType(t, err, domain.ErrorTypeKey)

	if disp.imageCalls != 0 {
		t.Error("dispatcher called despite missing image credential")
	}
}

func TestService_GenerateImage_NormalizationFailure(t *testing.T) {
	disp := &fakeDispatcher{imagePayload: `{"data":[]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"image": "I"})

	_, err := svc.GenerateImage(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ImageRequest{Prompt: "a cat"})
	wantErrType(t, err, domain.ErrorTypeNormalization)
}

func TestService_UpsertKeys_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakeDispatcher{})

	if err := svc.UpsertKeys(context.Background(), "", map[string]string{"chat": "A"}); err == nil {
		t.Error("UpsertKeys() accepted empty tenant id")
	}
	if err := svc.UpsertKeys(context.Background(), "school-1", nil); err == nil {
		t.Error("UpsertKeys() accepted empty keys")
	}
}

func TestService_UpsertKeys_Overwrites(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"ok"}}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "old"})
	seedTenant(t, svc, "school-1", map[string]string{"chat": "new"})

	_, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if disp.gotSecret != "new" {
		t.Errorf("secret = %q, want overwritten key", disp.gotSecret)
	}
}

func TestService_UpsertKeys_ReactivatesDisabled(t *testing.T) {
	disp := &fakeDispatcher{chatPayload: `{"choices":[{"message":{"content":"ok"}}]}`}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	if err := svc.DisableTenant(context.Background(), "school-1"); err != nil {
		t.Fatalf("DisableTenant() error = %v", err)
	}
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	if _, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{Prompt: "hi"}); err != nil {
		t.Errorf("Chat() after re-upsert error = %v", err)
	}
}

func TestService_DisableTenant_Unknown(t *testing.T) {
	svc, _ := newTestService(t, &fakeDispatcher{})

	err := svc.DisableTenant(context.Background(), "ghost")
	wantErrType(t, err, domain.ErrorTypeTenant)
}

func TestService_Chat_UpstreamErrorPassesThrough(t *testing.T) {
	disp := &fakeDispatcher{err: domain.ErrUpstreamStatus(402, `{"error":{"message":"insufficient credits"}}`)}
	svc, _ := newTestService(t, disp)
	seedTenant(t, svc, "school-1", map[string]string{"chat": "A"})

	_, err := svc.Chat(context.Background(), &domain.Identity{TenantID: "school-1"}, &domain.ChatRequest{Prompt: "hi"})
	wantErrType(t, err, domain.ErrorTypeUpstream)
}
