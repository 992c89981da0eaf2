package ingest

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer turns text into tokens and back. Chunk boundaries are defined in
// token space, so the same tokenizer convention must be used everywhere for
// splits to stay deterministic.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TiktokenTokenizer is the production Tokenizer, using the cl100k_base
// encoding shared by gpt-4, gpt-3.5-turbo and text-embedding-ada-002.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a cl100k_base tokenizer.
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Encode tokenizes text.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode reassembles text from tokens.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

var _ Tokenizer = (*TiktokenTokenizer)(nil)
