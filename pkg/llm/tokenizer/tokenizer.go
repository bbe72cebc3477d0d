// Package tokenizer provides token counting for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE used by current OpenAI-compatible chat models.
const encodingName = "cl100k_base"

// fallbackCharsPerToken approximates English text when the encoding
// cannot be loaded (tiktoken fetches encodings lazily and may be offline).
const fallbackCharsPerToken = 4

// Tokenizer counts tokens using tiktoken, with a character-based
// approximation as fallback.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. The returned error is informational: a
// tokenizer is always usable, but without an encoding counts are
// approximate.
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Tokenizer{}, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.encoding == nil {
		return approximateTokens(text)
	}
	return len(t.encoding.Encode(text, nil, nil))
}

func approximateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
}
