// Package wire converts between protocol bytes and text lines.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/mcoot/nethang/internal/model"
)

// Supported encodings
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf8"
)

// DefaultMaxLineLength bounds a single input line in bytes
const DefaultMaxLineLength = 512

// Codec encodes outgoing text and decodes incoming lines
type Codec interface {
	Encode(text string) ([]byte, error)
	Decode(line []byte) (string, error)
	Name() string
}

// NewCodec returns the codec for a configured encoding name
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", EncodingLatin1, "iso88591":
		return latin1Codec{}, nil
	case EncodingUTF8:
		return utf8Codec{}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

type latin1Codec struct{}

func (latin1Codec) Name() string { return "latin-1" }

// Encode replaces characters outside Latin-1 so a nickname or chat line
// can never break delivery of a whole message
func (latin1Codec) Encode(text string) ([]byte, error) {
	return encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(text))
}

func (latin1Codec) Decode(line []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(line)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
	}
	return string(out), nil
}

type utf8Codec struct{}

func (utf8Codec) Name() string { return "utf-8" }

func (utf8Codec) Encode(text string) ([]byte, error) {
	return []byte(text), nil
}

func (utf8Codec) Decode(line []byte) (string, error) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, line)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
	}
	return string(out), nil
}

// ReadLine reads one newline-terminated line without the line ending.
// A line longer than max bytes is consumed and reported as a protocol
// violation. io.EOF is returned only when no bytes were pending.
func ReadLine(r *bufio.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxLineLength
	}
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > max+2 {
				tooLong = true
				line = nil
			}
		}
		switch {
		case err == nil:
			if tooLong {
				return nil, fmt.Errorf("%w: line exceeds %d bytes", model.ErrProtocolViolation, max)
			}
			return trimLineEnding(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0 && !tooLong:
			return trimLineEnding(line), nil
		default:
			return nil, err
		}
	}
}

func trimLineEnding(line []byte) []byte {
	line = []byte(strings.TrimSuffix(string(line), "\n"))
	return []byte(strings.TrimSuffix(string(line), "\r"))
}
