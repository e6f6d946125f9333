package cost

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rotisserie/eris"
)

// Tokenizer counts the tokens a model would see for a piece of text.
type Tokenizer interface {
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens with the BPE encoding registered for a model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
	err error
}

// NewTiktoken resolves the encoding for model. Resolution failures (unknown
// model, encoding download failure) surface from Count.
func NewTiktoken(model string) *TiktokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return &TiktokenCounter{err: eris.Wrapf(err, "tokenizer: encoding for %s", model)}
	}
	return &TiktokenCounter{enc: enc}
}

func (t *TiktokenCounter) Count(text string) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// approxTokens estimates tokens as one per four bytes, rounded up.
func approxTokens(text string) int {
	return (len(text) + 3) / 4
}
