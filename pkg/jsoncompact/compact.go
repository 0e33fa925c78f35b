// Package jsoncompact shortens JSON documents by trimming arrays and strings
// to configurable maximums. Object key order and number literals are kept as
// written.
package jsoncompact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Options controls JSON compaction behavior.
type Options struct {
	MaxArrayItems int // Trim arrays to N items (0 = no limit)
	MaxStringLen  int // Truncate strings longer than N runes (0 = no limit)
	MaxDepth      int // Max nesting depth (0 = unlimited)
}

// Default values for compaction options.
const (
	DefaultMaxArrayItems = 3
	DefaultMaxStringLen  = 500
	DefaultMaxDepth      = 0 // unlimited
)

// MaxDepthMarker replaces values nested deeper than Options.MaxDepth.
const MaxDepthMarker = "[max depth]"

// DefaultOptions returns the default compaction settings.
func DefaultOptions() *Options {
	return &Options{
		MaxArrayItems: DefaultMaxArrayItems,
		MaxStringLen:  DefaultMaxStringLen,
		MaxDepth:      DefaultMaxDepth,
	}
}

// Compact returns data with long arrays and strings trimmed. The output is
// compact JSON (no insignificant whitespace). Returns an error if data is
// not a single valid JSON value. If opts is nil, DefaultOptions() is used.
func Compact(data []byte, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var buf bytes.Buffer
	c := compactor{dec: dec, buf: &buf, opts: opts}
	if err := c.value(0); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON: trailing data after value")
	}
	return buf.Bytes(), nil
}

type compactor struct {
	dec  *json.Decoder
	buf  *bytes.Buffer
	opts *Options
}

func (c *compactor) value(depth int) error {
	if c.opts.MaxDepth > 0 && depth >= c.opts.MaxDepth {
		if err := c.skip(); err != nil {
			return err
		}
		return c.writeString(MaxDepthMarker)
	}

	tok, err := c.dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return c.object(depth)
		case '[':
			return c.array(depth)
		}
		return fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return c.writeString(c.trimString(v))
	case json.Number:
		c.buf.WriteString(v.String())
	case bool:
		if v {
			c.buf.WriteString("true")
		} else {
			c.buf.WriteString("false")
		}
	case nil:
		c.buf.WriteString("null")
	}
	return nil
}

func (c *compactor) object(depth int) error {
	c.buf.WriteByte('{')
	for i := 0; c.dec.More(); i++ {
		tok, err := c.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("object key is %T", tok)
		}
		if i > 0 {
			c.buf.WriteByte(',')
		}
		if err := c.writeString(key); err != nil {
			return err
		}
		c.buf.WriteByte(':')
		if err := c.value(depth + 1); err != nil {
			return err
		}
	}
	if _, err := c.dec.Token(); err != nil {
		return err
	}
	c.buf.WriteByte('}')
	return nil
}

func (c *compactor) array(depth int) error {
	c.buf.WriteByte('[')
	n := 0
	for ; c.dec.More(); n++ {
		if c.opts.MaxArrayItems > 0 && n >= c.opts.MaxArrayItems {
			if err := c.skip(); err != nil {
				return err
			}
			continue
		}
		if n > 0 {
			c.buf.WriteByte(',')
		}
		if err := c.value(depth + 1); err != nil {
			return err
		}
	}
	if _, err := c.dec.Token(); err != nil {
		return err
	}
	if c.opts.MaxArrayItems > 0 && n > c.opts.MaxArrayItems {
		c.buf.WriteByte(',')
		if err := c.writeString(fmt.Sprintf("... (%d more items)", n-c.opts.MaxArrayItems)); err != nil {
			return err
		}
	}
	c.buf.WriteByte(']')
	return nil
}

// skip consumes one complete value without writing it.
func (c *compactor) skip() error {
	nesting := 0
	for {
		tok, err := c.dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				nesting++
			case '}', ']':
				nesting--
			}
		}
		if nesting == 0 {
			return nil
		}
	}
}

func (c *compactor) trimString(s string) string {
	if c.opts.MaxStringLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= c.opts.MaxStringLen {
		return s
	}
	remaining := len(runes) - c.opts.MaxStringLen
	return string(runes[:c.opts.MaxStringLen]) + fmt.Sprintf("... (%d more chars)", remaining)
}

// writeString writes s as a JSON string without HTML escaping.
func (c *compactor) writeString(s string) error {
	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	c.buf.Write(bytes.TrimSuffix(sb.Bytes(), []byte("\n")))
	return nil
}
