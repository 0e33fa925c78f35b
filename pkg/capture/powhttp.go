package capture

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// powEntry is a powhttp session entry as returned by the powhttp Data API
// (GET /sessions/{id}/entries) and saved by its export.
type powEntry struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Request     powRequest   `json:"request"`
	Response    *powResponse `json:"response"`
}

type powRequest struct {
	Method      *string `json:"method"`
	Path        *string `json:"path"`
	HTTPVersion *string `json:"httpVersion"`
	Headers     Headers `json:"headers"`
	Body        *string `json:"body"` // Base64-encoded
}

type powResponse struct {
	HTTPVersion *string `json:"httpVersion"`
	StatusCode  *int    `json:"statusCode"`
	StatusText  *string `json:"statusText"`
	Headers     Headers `json:"headers"`
	Body        *string `json:"body"` // Base64-encoded
}

// PowHTTPSource streams entries from a JSON array of powhttp session
// entries without loading the whole array.
type PowHTTPSource struct {
	dec   *json.Decoder
	index int
	err   error
}

// NewPowHTTPSource reads the opening bracket of the entry array from r.
func NewPowHTTPSource(r io.Reader) (*PowHTTPSource, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: reading powhttp entries: %w", ErrUnreadable, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: powhttp export must be a JSON array", ErrUnreadable)
	}
	return &PowHTTPSource{dec: dec}, nil
}

func (s *PowHTTPSource) Next() (*Flow, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.dec.More() {
		if _, err := s.dec.Token(); err != nil {
			s.err = fmt.Errorf("%w: reading powhttp entries: %w", ErrUnreadable, err)
			return nil, s.err
		}
		s.err = io.EOF
		return nil, s.err
	}

	var entry powEntry
	if err := s.dec.Decode(&entry); err != nil {
		s.err = fmt.Errorf("%w: decoding powhttp entry %d: %w", ErrUnreadable, s.index, err)
		return nil, s.err
	}
	index := s.index
	s.index++

	f, err := flowFromPowHTTP(entry)
	if err != nil {
		return nil, &FlowError{Index: index, Err: err}
	}
	return f, nil
}

func (s *PowHTTPSource) Close() error { return nil }

func flowFromPowHTTP(e powEntry) (*Flow, error) {
	req, err := requestFromURL(deref(e.Request.Method), e.URL)
	if err != nil {
		return nil, err
	}
	if p := deref(e.Request.Path); p != "" {
		req.Path = p
	}
	req.HTTPVersion = deref(e.Request.HTTPVersion)
	if req.HTTPVersion == "" {
		req.HTTPVersion = e.HTTPVersion
	}
	req.Headers = e.Request.Headers

	body, err := decodeBase64Body(e.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("request body: %w", err)
	}
	req.Content = decodeRecorded(body, req.Headers)

	f := &Flow{ID: e.ID, Kind: KindHTTP, Request: req}
	if r := e.Response; r != nil && r.StatusCode != nil {
		resp := &Response{
			StatusCode:  *r.StatusCode,
			Reason:      deref(r.StatusText),
			HTTPVersion: deref(r.HTTPVersion),
			Headers:     r.Headers,
		}
		body, err := decodeBase64Body(r.Body)
		if err != nil {
			return nil, fmt.Errorf("response body: %w", err)
		}
		resp.Content = decodeRecorded(body, resp.Headers)
		f.Response = resp
	}
	return f, nil
}

// decodeBase64Body decodes a base64-encoded body.
// Returns nil if the input is nil.
func decodeBase64Body(encoded *string) ([]byte, error) {
	if encoded == nil || *encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*encoded)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
