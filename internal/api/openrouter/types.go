package openrouter

// ChatCompletionRequest is the request body for /chat/completions.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a single chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageGenerationRequest is the request body for /images/generations.
type ImageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	Steps  int    `json:"steps,omitempty"`
}

// errorResponse is the upstream error envelope, used only to sanity-check
// bodies during classification. The raw body is what gets retained.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}
