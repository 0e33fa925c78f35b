package capture

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/usestring/flowdoc/pkg/tnetstring"
)

// MitmSource decodes a mitmproxy flow dump: a stream of tnetstring
// dictionaries, one per flow, holding the flow's serialized state.
type MitmSource struct {
	dec   *tnetstring.Decoder
	index int
	err   error
}

// NewMitmSource returns a Source reading a mitmproxy dump from r.
func NewMitmSource(r io.Reader) *MitmSource {
	return &MitmSource{dec: tnetstring.NewDecoder(r)}
}

func (s *MitmSource) Next() (*Flow, error) {
	if s.err != nil {
		return nil, s.err
	}

	offset := s.dec.Offset()
	v, err := s.dec.Decode()
	if err == io.EOF {
		s.err = io.EOF
		return nil, s.err
	}
	if err != nil {
		s.err = fmt.Errorf("%w: %w", ErrUnreadable, err)
		return nil, s.err
	}

	index := s.index
	s.index++

	state, ok := v.(map[string]any)
	if !ok {
		s.err = fmt.Errorf("%w: record %d at offset %d is a %T, not a flow", ErrUnreadable, index, offset, v)
		return nil, s.err
	}

	f, err := flowFromState(state)
	if err != nil {
		return nil, &FlowError{Index: index, Err: err}
	}
	return f, nil
}

func (s *MitmSource) Close() error { return nil }

func flowFromState(state map[string]any) (*Flow, error) {
	st := stateReader{m: state}
	f := &Flow{
		ID:   st.str("id"),
		Kind: st.str("type"),
	}
	if f.Kind == "" {
		// Dumps written before flow types existed only held HTTP flows.
		f.Kind = KindHTTP
	}
	if errState, ok := state["error"].(map[string]any); ok {
		f.Error = (&stateReader{m: errState}).str("msg")
	}
	if st.err != nil {
		return nil, st.err
	}
	if f.Kind != KindHTTP {
		return f, nil
	}

	reqState, ok := state["request"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("http flow %q has no request", f.ID)
	}
	req, err := requestFromState(reqState)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	f.Request = req

	if respState, ok := state["response"].(map[string]any); ok {
		resp, err := responseFromState(respState)
		if err != nil {
			return nil, fmt.Errorf("response: %w", err)
		}
		f.Response = resp
	}
	return f, nil
}

func requestFromState(m map[string]any) (*Request, error) {
	st := stateReader{m: m}
	req := &Request{
		Method:      st.str("method"),
		Scheme:      st.str("scheme"),
		Host:        st.str("host"),
		Port:        st.int("port"),
		Authority:   st.str("authority"),
		Path:        st.str("path"),
		HTTPVersion: st.str("http_version"),
		Headers:     st.headers("headers"),
	}
	raw := st.bytes("content")
	if st.err != nil {
		return nil, st.err
	}
	req.Content = decodeRecorded(raw, req.Headers)
	return req, nil
}

func responseFromState(m map[string]any) (*Response, error) {
	st := stateReader{m: m}
	resp := &Response{
		StatusCode:  st.int("status_code"),
		Reason:      st.str("reason"),
		HTTPVersion: st.str("http_version"),
		Headers:     st.headers("headers"),
	}
	raw := st.bytes("content")
	if st.err != nil {
		return nil, st.err
	}
	resp.Content = decodeRecorded(raw, resp.Headers)
	return resp, nil
}

// decodeRecorded undoes the Content-Encoding of a recorded payload, keeping
// the raw bytes when that fails.
func decodeRecorded(raw []byte, headers Headers) []byte {
	encoding := headers.Get("content-encoding")
	decoded, err := DecodeContent(raw, encoding)
	if err != nil {
		slog.Debug("keeping raw content",
			slog.String("content_encoding", encoding),
			slog.String("error", err.Error()),
		)
		return raw
	}
	return decoded
}

// stateReader reads typed fields from a decoded state dictionary. Missing
// keys yield zero values; the first field of the wrong type is kept in err.
type stateReader struct {
	m   map[string]any
	err error
}

func (r *stateReader) fail(key string, v any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s, got %T", key, want, v)
	}
}

func (r *stateReader) str(key string) string {
	switch v := r.m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		r.fail(key, v, "string")
		return ""
	}
}

func (r *stateReader) bytes(key string) []byte {
	switch v := r.m[key].(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		r.fail(key, v, "bytes")
		return nil
	}
}

func (r *stateReader) int(key string) int {
	switch v := r.m[key].(type) {
	case nil:
		return 0
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		r.fail(key, v, "integer")
		return 0
	}
}

func (r *stateReader) headers(key string) Headers {
	v, ok := r.m[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		r.fail(key, v, "list of header pairs")
		return nil
	}

	headers := make(Headers, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			r.fail(key, item, "header pair")
			return nil
		}
		name, okName := text(pair[0])
		value, okValue := text(pair[1])
		if !okName || !okValue {
			r.fail(key, item, "header pair of strings")
			return nil
		}
		headers.Add(name, value)
	}
	return headers
}

func text(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}
