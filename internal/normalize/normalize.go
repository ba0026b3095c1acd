// Package normalize extracts a uniform reply or image reference from the
// heterogeneous payloads returned by upstream models. The upstream contract is
// unstable across model families; a single parse step maps a raw payload onto
// a closed set of shapes which the extraction rules then rank.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

// ReplyFallback is the sentinel chat reply when the upstream response carries
// no text content.
const ReplyFallback = "No response from model"

// Variant identifies which historical payload shape an extracted value came
// from.
type Variant string

const (
	// VariantImageArrayEntry means the value came from a structured image
	// list (chat message `images` or image-endpoint `data`).
	VariantImageArrayEntry Variant = "image_array_entry"

	// VariantEmbeddedURLInText means the value was a URI scanned out of
	// free-form text content.
	VariantEmbeddedURLInText Variant = "embedded_url_in_text"

	// VariantTextReply means the value is the free-form text content itself.
	VariantTextReply Variant = "text_reply"
)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// Payload is the parsed view of a raw upstream response.
type Payload struct {
	// Text is the first choice's free-form content, if any.
	Text string

	// Images holds resolved entries from a structured image list, in order.
	Images []string

	raw []byte
}

// rawResponse covers both the chat-completions and image-generations
// envelopes. Unknown fields are ignored.
type rawResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage   `json:"content"`
			Images  []json.RawMessage `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Data []json.RawMessage `json:"data"`
}

// imageObject is the object form of a structured image entry.
type imageObject struct {
	URL      string `json:"url"`
	B64JSON  string `json:"b64_json"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// contentPart is one element of an array-form message content.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parse maps a raw upstream payload onto the closed shape set. It fails with
// a normalization error only when the payload is not a JSON object at all;
// shape decisions are left to Reply and Image.
func Parse(raw []byte) (*Payload, error) {
	var resp rawResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.ErrNormalization(string(raw)).WithCause(err)
	}

	p := &Payload{raw: raw}

	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message
		p.Text = decodeContent(msg.Content)
		for _, entry := range msg.Images {
			if v, ok := decodeImageEntry(entry); ok {
				p.Images = append(p.Images, v)
			}
		}
	}

	for _, entry := range resp.Data {
		if v, ok := decodeImageEntry(entry); ok {
			p.Images = append(p.Images, v)
		}
	}

	return p, nil
}

// decodeContent handles both string content and the array-of-parts form some
// model families return, concatenating the text parts of the latter.
func decodeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, part := range parts {
			if part.Type == "" || part.Type == "text" {
				b.WriteString(part.Text)
			}
		}
		return b.String()
	}

	return ""
}

// decodeImageEntry resolves one structured image entry. Entries are either a
// bare string, an object with a url field, a nested image_url.url, or inline
// base64 which is rewrapped as a data URI.
func decodeImageEntry(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}

	var obj imageObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}

	switch {
	case obj.URL != "":
		return obj.URL, true
	case obj.ImageURL.URL != "":
		return obj.ImageURL.URL, true
	case obj.B64JSON != "":
		return "data:image/png;base64," + obj.B64JSON, true
	default:
		return "", false
	}
}

// Reply returns the normalized chat reply: the text content verbatim, or the
// fixed sentinel when the response carries no text.
func (p *Payload) Reply() string {
	if p.Text == "" {
		return ReplyFallback
	}
	return p.Text
}

// Image returns the normalized image value, applying the precedence: first
// structured list entry, then the first embedded http(s) URL in the text,
// then the whole text (providers that return a bare URL as plain text). When
// nothing is extractable the raw payload is preserved in the error for
// operator diagnostics.
func (p *Payload) Image() (string, Variant, error) {
	if len(p.Images) > 0 {
		return p.Images[0], VariantImageArrayEntry, nil
	}

	if p.Text != "" {
		if uri := urlPattern.FindString(p.Text); uri != "" {
			return uri, VariantEmbeddedURLInText, nil
		}
		return p.Text, VariantTextReply, nil
	}

	return "", "", domain.ErrNormalization(string(p.raw))
}

// ExtractReply parses a raw chat payload and returns the uniform reply.
func ExtractReply(raw []byte) (string, error) {
	p, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return p.Reply(), nil
}

// ExtractImage parses a raw image payload and returns the uniform image value.
func ExtractImage(raw []byte) (string, error) {
	p, err := Parse(raw)
	if err != nil {
		return "", err
	}
	img, _, err := p.Image()
	return img, err
}
