package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnreadable is wrapped by every stream-level decoding failure. After
// such an error a Source yields nothing further.
var ErrUnreadable = errors.New("unreadable capture")

// FlowError reports a record that was read from the stream but could not be
// turned into a Flow. The stream itself is intact and decoding continues.
type FlowError struct {
	Index int // position of the record in the stream
	Err   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow %d: %v", e.Index, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Source yields the records of a capture in stream order.
type Source interface {
	// Next returns the next record. It returns io.EOF when the capture is
	// exhausted, a *FlowError for a single bad record, and an error wrapping
	// ErrUnreadable when the stream cannot be read any further.
	Next() (*Flow, error)
	Close() error
}

// Format identifies a capture file format.
type Format string

const (
	FormatMitmproxy Format = "mitmproxy"
	FormatHAR       Format = "har"
	FormatPowHTTP   Format = "powhttp"
)

// Open opens the capture at path and picks a decoder from its first
// non-blank byte: a digit starts a mitmproxy tnetstring dump, '{' a HAR
// archive and '[' a powhttp entry export. A file that cannot be opened is
// an ordinary I/O error; content that cannot be decoded wraps ErrUnreadable.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	br := bufio.NewReader(f)
	format, err := Detect(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}

	src, err := NewSource(format, br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileSource{Source: src, file: f}, nil
}

// NewSource returns a decoder for format reading from r.
func NewSource(format Format, r io.Reader) (Source, error) {
	switch format {
	case FormatMitmproxy:
		return NewMitmSource(r), nil
	case FormatHAR:
		return NewHARSource(r)
	case FormatPowHTTP:
		return NewPowHTTPSource(r)
	}
	return nil, fmt.Errorf("%w: unknown format %q", ErrUnreadable, format)
}

// Detect peeks at br and reports the capture format. An empty stream is a
// mitmproxy dump with no flows.
func Detect(br *bufio.Reader) (Format, error) {
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			return FormatMitmproxy, nil
		}
		if err != nil {
			return "", err
		}
		switch c := b[0]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			if _, err := br.Discard(1); err != nil {
				return "", err
			}
		case c >= '0' && c <= '9':
			return FormatMitmproxy, nil
		case c == '{':
			return FormatHAR, nil
		case c == '[':
			return FormatPowHTTP, nil
		default:
			return "", fmt.Errorf("unrecognized capture format (first byte %q)", c)
		}
	}
}

type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// SliceSource serves flows from memory.
type SliceSource struct {
	flows []*Flow
	pos   int
}

// NewSliceSource returns a Source yielding flows in order.
func NewSliceSource(flows ...*Flow) *SliceSource {
	return &SliceSource{flows: flows}
}

func (s *SliceSource) Next() (*Flow, error) {
	if s.pos >= len(s.flows) {
		return nil, io.EOF
	}
	f := s.flows[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error { return nil }
