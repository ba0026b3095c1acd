// Package tokens provides prompt-size accounting for dispatch logging.
// Upstream models are billed per token, so the dispatcher records an estimate
// of every outbound prompt.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter estimates the token count of a piece of prompt text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts with a BPE codec. The upstream catalog is mostly
// open-weight models without published tokenizers, so one general encoding is
// used for all of them; counts are estimates, not billing truth.
type TiktokenCounter struct {
	encoding tokenizer.Encoding

	mu    sync.Mutex
	codec tokenizer.Codec
}

// NewTiktokenCounter creates a counter over the o200k_base encoding.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encoding: tokenizer.O200kBase}
}

// Count returns the token count of text. Falls back to a character heuristic
// if the codec cannot be loaded.
func (c *TiktokenCounter) Count(text string) int {
	codec, err := c.getCodec()
	if err != nil {
		return Estimate(text)
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return Estimate(text)
	}
	return len(ids)
}

func (c *TiktokenCounter) getCodec() (tokenizer.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.codec != nil {
		return c.codec, nil
	}

	codec, err := tokenizer.Get(c.encoding)
	if err != nil {
		return nil, err
	}
	c.codec = codec
	return codec, nil
}

// Estimate approximates a token count from character length, at the
// conventional four characters per token.
func Estimate(text string) int {
	return len(text) / 4
}
