// Package keyring resolves the credential to use for a requested capability
// from a tenant's decrypted bundle.
package keyring

import (
	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

// Chain describes the fallback order tried for one capability. The resolver
// tries each slot in order and fails when none is provisioned.
type Chain []domain.Capability

// Rules maps capabilities to their fallback chains. Capabilities not present
// use DefaultChain.
type Rules struct {
	// Chains holds per-capability overrides of the default behavior.
	Chains map[domain.Capability]Chain

	// DefaultChain applies to any capability without an explicit chain,
	// including unrecognized capability names, with the requested capability
	// substituted for the leading slot.
	DefaultChain Chain
}

// DefaultRules returns the deployed fallback policy: chat-like capabilities
// fall back to the chat credential; image must be explicitly provisioned
// because image calls use a distinct upstream model family and must not
// silently reuse a chat-scoped key.
func DefaultRules() Rules {
	return Rules{
		Chains: map[domain.Capability]Chain{
			domain.CapabilityImage: {domain.CapabilityImage},
			domain.CapabilityChat:  {domain.CapabilityChat},
		},
		DefaultChain: Chain{"", domain.CapabilityChat},
	}
}

// Resolver selects credentials according to an immutable rule table supplied
// at construction, so tests can substitute alternate tables.
type Resolver struct {
	rules Rules
}

// NewResolver creates a resolver over the given rules.
func NewResolver(rules Rules) *Resolver {
	return &Resolver{rules: rules}
}

// Select picks the credential for a capability, applying the fallback chain.
// Empty credential values in the bundle are treated as absent.
func (r *Resolver) Select(bundle domain.CredentialBundle, capability domain.Capability) (string, error) {
	chain, ok := r.rules.Chains[capability]
	if !ok {
		chain = make(Chain, len(r.rules.DefaultChain))
		copy(chain, r.rules.DefaultChain)
		for i, slot := range chain {
			if slot == "" {
				chain[i] = capability
			}
		}
	}

	for _, slot := range chain {
		if secret, ok := bundle.Lookup(slot); ok {
			return secret, nil
		}
	}

	return "", domain.ErrKeyMissing(string(capability))
}
