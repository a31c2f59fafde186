// Package tokenizer splits a byte stream into raw whitespace-delimited tokens.
// No normalization is applied: tokens are the exact bytes between delimiters.
package tokenizer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
)

// Mode selects which bytes end a token
type Mode int

const (
	// Literal ends tokens only at spaces; CR and LF stay inside tokens
	Literal Mode = iota
	// Strict ends tokens at spaces, carriage returns and line feeds
	Strict
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Literal:
		return "literal"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// Tokenizer yields tokens from a reader. It is finite and single-pass.
type Tokenizer struct {
	r    *bufio.Reader
	mode Mode
	buf  bytes.Buffer
}

// New creates a tokenizer reading from r
func New(r io.Reader, mode Mode) *Tokenizer {
	return &Tokenizer{r: bufio.NewReader(r), mode: mode}
}

func (t *Tokenizer) isDelimiter(b byte) bool {
	if b == ' ' {
		return true
	}
	return t.mode == Strict && (b == '\r' || b == '\n')
}

// Next returns the next token, or io.EOF once the stream is consumed.
// Runs of delimiters never produce empty tokens.
func (t *Tokenizer) Next() (string, error) {
	t.buf.Reset()

	for {
		b, err := t.r.ReadByte()
		if errors.Is(err, io.EOF) {
			if t.buf.Len() > 0 {
				return t.buf.String(), nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}

		if t.isDelimiter(b) {
			if t.buf.Len() > 0 {
				return t.buf.String(), nil
			}
			continue
		}
		t.buf.WriteByte(b)
	}
}

// All yields every remaining token. A read error is yielded once with an
// empty token and ends the sequence.
func (t *Tokenizer) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			token, err := t.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(token, nil) {
				return
			}
		}
	}
}
