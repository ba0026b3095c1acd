package keyring

import (
	"errors"
	"testing"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

func TestResolver_Select(t *testing.T) {
	resolver := NewResolver(DefaultRules())

	tests := []struct {
		name       string
		bundle     domain.CredentialBundle
		capability domain.Capability
		want       string
		wantErr    bool
	}{
		{
			name:       "exact match wins over chat",
			bundle:     domain.CredentialBundle{"helpbot": "H", "chat": "A"},
			capability: domain.CapabilityHelpBot,
			want:       "H",
		},
		{
			name:       "named capability falls back to chat",
			bundle:     domain.CredentialBundle{"chat": "A"},
			capability: domain.CapabilityHelpBot,
			want:       "A",
		},
		{
			name:       "unrecognized capability falls back to chat",
			bundle:     domain.CredentialBundle{"chat": "A"},
			capability: domain.Capability("mystery-bot"),
			want:       "A",
		},
		{
			name:       "chat resolves directly",
			bundle:     domain.CredentialBundle{"chat": "A"},
			capability: domain.CapabilityChat,
			want:       "A",
		},
		{
			name:       "empty bundle fails for chat",
			bundle:     domain.CredentialBundle{},
			capability: domain.CapabilityChat,
			wantErr:    true,
		},
		{
			name:       "image never falls back to chat",
			bundle:     domain.CredentialBundle{"chat": "A"},
			capability: domain.CapabilityImage,
			wantErr:    true,
		},
		{
			name:       "image resolves when explicitly provisioned",
			bundle:     domain.CredentialBundle{"chat": "A", "image": "I"},
			capability: domain.CapabilityImage,
			want:       "I",
		},
		{
			name:       "empty credential value counts as absent",
			bundle:     domain.CredentialBundle{"helpbot": "", "chat": "A"},
			capability: domain.CapabilityHelpBot,
			want:       "A",
		},
		{
			name:       "empty chat value fails the chain",
			bundle:     domain.CredentialBundle{"chat": ""},
			capability: domain.CapabilityTranslate,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Select(tt.bundle, tt.capability)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Select() = %q, expected error", got)
				}
				var apiErr *domain.APIError
				if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeKey {
					t.Errorf("Select() error = %v, want credential error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_CustomRules(t *testing.T) {
	// Alternate table: audio falls back to helpbot instead of chat.
	resolver := NewResolver(Rules{
		Chains: map[domain.Capability]Chain{
			domain.CapabilityAudio: {domain.CapabilityAudio, domain.CapabilityHelpBot},
		},
		DefaultChain: Chain{"", domain.CapabilityChat},
	})

	got, err := resolver.Select(domain.CredentialBundle{"helpbot": "H"}, domain.CapabilityAudio)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got != "H" {
		t.Errorf("Select() = %q, want %q", got, "H")
	}
}

func TestResolver_DoesNotMutateRules(t *testing.T) {
	rules := DefaultRules()
	resolver := NewResolver(rules)

	// Resolving distinct unrecognized capabilities must not leak a substituted
	// slot from one call into the next.
	if _, err := resolver.Select(domain.CredentialBundle{"first": "1"}, "first"); err != nil {
		t.Fatalf("Select(first) error = %v", err)
	}
	got, err := resolver.Select(domain.CredentialBundle{"second": "2"}, "second")
	if err != nil {
		t.Fatalf("Select(second) error = %v", err)
	}
	if got != "2" {
		t.Errorf("Select(second) = %q, want %q", got, "2")
	}

	if rules.DefaultChain[0] != "" {
		t.Errorf("DefaultChain mutated to %v", rules.DefaultChain)
	}
}
