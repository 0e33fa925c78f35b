package tnetstring

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Marshal encodes v. Supported types are nil, bool, the integer kinds,
// float64, string, []byte, []any and map[string]any. Dictionary keys are
// written in sorted order.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encoder writes consecutive top-level values to a stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one value.
func (e *Encoder) Encode(v any) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		writeItem(buf, nil, '~')
	case bool:
		writeItem(buf, []byte(strconv.FormatBool(val)), '!')
	case int:
		writeItem(buf, []byte(strconv.Itoa(val)), '#')
	case int64:
		writeItem(buf, []byte(strconv.FormatInt(val, 10)), '#')
	case int32:
		writeItem(buf, []byte(strconv.FormatInt(int64(val), 10)), '#')
	case uint16:
		writeItem(buf, []byte(strconv.FormatUint(uint64(val), 10)), '#')
	case float64:
		writeItem(buf, []byte(strconv.FormatFloat(val, 'g', -1, 64)), '^')
	case string:
		writeItem(buf, []byte(val), ';')
	case []byte:
		writeItem(buf, val, ',')
	case []any:
		var inner bytes.Buffer
		for _, item := range val {
			if err := encode(&inner, item); err != nil {
				return err
			}
		}
		writeItem(buf, inner.Bytes(), ']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var inner bytes.Buffer
		for _, k := range keys {
			writeItem(&inner, []byte(k), ';')
			if err := encode(&inner, val[k]); err != nil {
				return err
			}
		}
		writeItem(buf, inner.Bytes(), '}')
	default:
		return fmt.Errorf("tnetstring: unsupported type %T", v)
	}
	return nil
}

func writeItem(buf *bytes.Buffer, payload []byte, tag byte) {
	buf.WriteString(strconv.Itoa(len(payload)))
	buf.WriteByte(':')
	buf.Write(payload)
	buf.WriteByte(tag)
}
