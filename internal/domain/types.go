package domain

// Capability is a named use-case (chat, image, helpbot, ...) that maps to one
// upstream model and one credential slot in a tenant's bundle.
type Capability string

const (
	// CapabilityNeural is the default chat capability. Unrecognized capability
	// names are treated as neural for model selection.
	CapabilityNeural Capability = "neural"

	// CapabilityChat is the general-purpose credential slot every chat-like
	// capability may fall back to.
	CapabilityChat Capability = "chat"

	// CapabilityImage is image generation. It never falls back to the chat
	// credential: image calls use a distinct upstream model family and must
	// not silently reuse a chat-scoped key.
	CapabilityImage Capability = "image"

	CapabilityHelpBot   Capability = "helpbot"
	CapabilityTranslate Capability = "translate"
	CapabilityEmmiLite  Capability = "emmiLite"
	CapabilityBlockly   Capability = "blockly"
	CapabilityAudio     Capability = "audio"
)

// CredentialBundle maps capability names to secret credential strings for one
// tenant. A missing key means the capability is not provisioned; a present key
// with an empty value is treated the same as absent.
type CredentialBundle map[string]string

// Lookup returns the credential for a capability. Empty values count as absent.
func (b CredentialBundle) Lookup(capability Capability) (string, bool) {
	secret, ok := b[string(capability)]
	if !ok || secret == "" {
		return "", false
	}
	return secret, true
}

// Identity is the verified caller identity supplied by the authentication
// boundary. The gateway trusts TenantID and Admin unconditionally once
// verification has succeeded.
type Identity struct {
	Subject  string
	TenantID string
	Admin    bool
}

// ChatRequest is a normalized inbound chat proxy request.
type ChatRequest struct {
	// Capability selects the bot variant; empty or unrecognized values are
	// treated as CapabilityNeural.
	Capability Capability

	// Prompt is the sole user turn. Multi-turn history, if any, is packed into
	// the prompt by the caller.
	Prompt string

	// TenantID from the request body. A tenant claim on the verified identity
	// takes precedence when present.
	TenantID string
}

// ChatReply is the uniform chat result returned to the caller.
type ChatReply struct {
	Reply string `json:"reply"`
}

// ImageRequest is a normalized inbound image proxy request.
type ImageRequest struct {
	Prompt   string
	TenantID string

	// Generation parameters, defaulted by the dispatcher when zero.
	Width  int
	Height int
	Steps  int
}

// ImageResult is the uniform image result: either a URL or a data-URI-encoded
// inline image.
type ImageResult struct {
	Image string `json:"image"`
}
