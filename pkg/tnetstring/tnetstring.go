// Package tnetstring reads and writes typed netstrings, the serialization
// mitmproxy uses for its flow dump files.
//
// Every value is encoded as LENGTH ":" PAYLOAD TAG where TAG is one byte:
//
//	,  byte string        -> []byte
//	;  unicode string     -> string
//	#  integer            -> int64
//	^  float              -> float64
//	!  boolean            -> bool
//	~  null               -> nil
//	]  list               -> []any
//	}  dictionary         -> map[string]any
package tnetstring

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxLengthDigits bounds the length prefix; longer prefixes are rejected.
const maxLengthDigits = 12

// ErrSyntax is wrapped by every error caused by malformed input.
var ErrSyntax = errors.New("not a tnetstring")

// SyntaxError describes malformed input at a byte offset of the stream.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("not a tnetstring: %s (offset %d)", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Decoder reads consecutive top-level values from a stream.
type Decoder struct {
	r      *bufio.Reader
	offset int64
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 { return d.offset }

// Decode reads the next value. It returns io.EOF only when the stream ends
// cleanly between two values; a value cut short is a *SyntaxError.
func (d *Decoder) Decode() (any, error) {
	start := d.offset
	c, err := d.r.ReadByte()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	d.offset++

	var length int64
	digits := 0
	for c >= '0' && c <= '9' {
		digits++
		if digits > maxLengthDigits {
			return nil, &SyntaxError{Offset: start, Msg: "absurdly large length prefix"}
		}
		length = length*10 + int64(c-'0')
		if c, err = d.r.ReadByte(); err != nil {
			return nil, d.truncated(start, err)
		}
		d.offset++
	}
	if digits == 0 || c != ':' {
		return nil, &SyntaxError{Offset: start, Msg: "missing or invalid length prefix"}
	}

	// The prefix is untrusted; buffer only what actually arrives.
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, d.r, length)
	d.offset += n
	if err != nil {
		return nil, d.truncated(start, err)
	}
	payload := buf.Bytes()

	tag, err := d.r.ReadByte()
	if err != nil {
		return nil, d.truncated(start, err)
	}
	d.offset++

	v, err := parse(tag, payload)
	if err != nil {
		return nil, &SyntaxError{Offset: start, Msg: err.Error()}
	}
	return v, nil
}

func (d *Decoder) truncated(start int64, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &SyntaxError{Offset: start, Msg: "unexpected end of data"}
	}
	return err
}

// Unmarshal decodes exactly one value from data.
func Unmarshal(data []byte) (any, error) {
	d := NewDecoder(bytes.NewReader(data))
	v, err := d.Decode()
	if err == io.EOF {
		return nil, &SyntaxError{Msg: "empty input"}
	}
	if err != nil {
		return nil, err
	}
	if d.offset != int64(len(data)) {
		return nil, &SyntaxError{Offset: d.offset, Msg: "trailing data"}
	}
	return v, nil
}

func parse(tag byte, payload []byte) (any, error) {
	switch tag {
	case ',':
		return payload, nil
	case ';':
		return string(payload), nil
	case '#':
		i, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", payload)
		}
		return i, nil
	case '^':
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", payload)
		}
		return f, nil
	case '!':
		switch string(payload) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", payload)
	case '~':
		if len(payload) != 0 {
			return nil, errors.New("invalid null, payload must be empty")
		}
		return nil, nil
	case ']':
		return parseList(payload)
	case '}':
		return parseDict(payload)
	}
	return nil, fmt.Errorf("unknown type tag %q", tag)
}

func parseList(payload []byte) ([]any, error) {
	list := make([]any, 0)
	d := NewDecoder(bytes.NewReader(payload))
	for {
		v, err := d.Decode()
		if err == io.EOF {
			return list, nil
		}
		if err != nil {
			return nil, nestedErr(err)
		}
		list = append(list, v)
	}
}

func parseDict(payload []byte) (map[string]any, error) {
	dict := make(map[string]any)
	d := NewDecoder(bytes.NewReader(payload))
	for {
		k, err := d.Decode()
		if err == io.EOF {
			return dict, nil
		}
		if err != nil {
			return nil, nestedErr(err)
		}

		var key string
		switch kv := k.(type) {
		case string:
			key = kv
		case []byte:
			key = string(kv)
		default:
			return nil, fmt.Errorf("dictionary key must be a string, got %T", k)
		}

		v, err := d.Decode()
		if err == io.EOF {
			return nil, fmt.Errorf("dictionary key %q has no value", key)
		}
		if err != nil {
			return nil, nestedErr(err)
		}
		dict[key] = v
	}
}

func nestedErr(err error) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		return errors.New(se.Msg)
	}
	return err
}
