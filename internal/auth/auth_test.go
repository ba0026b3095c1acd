package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

func TestStaticVerifier_Verify(t *testing.T) {
	v := NewStaticVerifier([]CallerConfig{
		{TokenHash: HashToken("student-token"), TenantID: "school-1", Description: "school-1 app"},
		{TokenHash: HashToken("admin-token"), Admin: true, Description: "dashboard"},
	})

	identity, err := v.Verify("student-token")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.TenantID != "school-1" {
		t.Errorf("TenantID = %q, want school-1", identity.TenantID)
	}
	if identity.Admin {
		t.Error("student identity flagged admin")
	}

	identity, err = v.Verify("admin-token")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !identity.Admin {
		t.Error("admin identity not flagged")
	}
}

func TestStaticVerifier_Verify_Unknown(t *testing.T) {
	v := NewStaticVerifier([]CallerConfig{
		{TokenHash: HashToken("known"), TenantID: "school-1"},
	})

	_, err := v.Verify("unknown")
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeAuth {
		t.Errorf("Verify() error = %v, want auth error", err)
	}
}

func TestAdminGuard_Authorize(t *testing.T) {
	guard := NewAdminGuard("super-secret")

	admin := &domain.Identity{Subject: "dash", Admin: true}
	student := &domain.Identity{Subject: "app", TenantID: "school-1"}

	tests := []struct {
		name     string
		secret   string
		identity *domain.Identity
		wantType domain.ErrorType // empty means authorized
	}{
		{"shared secret alone", "super-secret", nil, ""},
		{"admin identity alone", "", admin, ""},
		{"wrong secret with admin identity", "nope", admin, ""},
		{"wrong secret alone", "nope", nil, domain.ErrorTypePermission},
		{"non-admin identity", "", student, domain.ErrorTypePermission},
		{"nothing presented", "", nil, domain.ErrorTypeAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(tt.secret, tt.identity)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("Authorize() error = %v, want nil", err)
				}
				return
			}
			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) || apiErr.Type != tt.wantType {
				t.Errorf("Authorize() error = %v, want type %q", err, tt.wantType)
			}
		})
	}
}

func TestAdminGuard_NoConfiguredSecret(t *testing.T) {
	guard := NewAdminGuard("")

	if err := guard.Authorize("anything", nil); err == nil {
		t.Error("Authorize() with no configured secret accepted a shared secret")
	}
	if err := guard.Authorize("", &domain.Identity{Admin: true}); err != nil {
		t.Errorf("Authorize() rejected admin identity: %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer tok-123", "tok-123", false},
		{"case-insensitive scheme", "bearer tok-123", "tok-123", false},
		{"missing", "", "", true},
		{"no scheme", "tok-123", "", true},
		{"wrong scheme", "Basic dXNlcg==", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/proxy/chat", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractBearer(r)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractBearer() = %q, expected error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractBearer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractBearer() = %q, want %q", got, tt.want)
			}
		})
	}
}
