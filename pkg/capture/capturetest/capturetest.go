// Package capturetest writes capture files for tests.
package capturetest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/usestring/flowdoc/pkg/capture"
	"github.com/usestring/flowdoc/pkg/tnetstring"
)

// MitmState returns the mitmproxy state dict for f. Content is stored as
// given, so it should already carry any Content-Encoding named in the
// headers.
func MitmState(f *capture.Flow) map[string]any {
	state := map[string]any{
		"version": int64(19),
		"type":    f.Kind,
		"id":      f.ID,
	}
	if f.Error != "" {
		state["error"] = map[string]any{"msg": f.Error}
	}
	if f.Kind != capture.KindHTTP {
		return state
	}

	req := f.Request
	state["request"] = map[string]any{
		"method":       []byte(req.Method),
		"scheme":       []byte(req.Scheme),
		"host":         req.Host,
		"port":         int64(req.Port),
		"authority":    []byte(req.Authority),
		"path":         []byte(req.Path),
		"http_version": []byte(req.HTTPVersion),
		"headers":      headerState(req.Headers),
		"content":      req.Content,
		"trailers":     nil,
	}

	state["response"] = nil
	if resp := f.Response; resp != nil {
		state["response"] = map[string]any{
			"status_code":  int64(resp.StatusCode),
			"reason":       []byte(resp.Reason),
			"http_version": []byte(resp.HTTPVersion),
			"headers":      headerState(resp.Headers),
			"content":      resp.Content,
			"trailers":     nil,
		}
	}
	return state
}

func headerState(h capture.Headers) []any {
	list := make([]any, 0, len(h))
	for _, pair := range h {
		if len(pair) < 2 {
			continue
		}
		list = append(list, []any{[]byte(pair[0]), []byte(pair[1])})
	}
	return list
}

// WriteMitm writes flows to w as a mitmproxy flow dump.
func WriteMitm(w io.Writer, flows ...*capture.Flow) error {
	enc := tnetstring.NewEncoder(w)
	for _, f := range flows {
		if err := enc.Encode(MitmState(f)); err != nil {
			return err
		}
	}
	return nil
}

// MitmFile writes flows as a mitmproxy dump named name in a temporary
// directory and returns its path.
func MitmFile(t testing.TB, name string, flows ...*capture.Flow) string {
	t.Helper()

	var buf bytes.Buffer
	if err := WriteMitm(&buf, flows...); err != nil {
		t.Fatalf("encoding flows: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// GetFlow returns a bodiless GET exchange without a response.
func GetFlow(id, path string) *capture.Flow {
	return &capture.Flow{
		ID:   id,
		Kind: capture.KindHTTP,
		Request: &capture.Request{
			Method:      "GET",
			Scheme:      "https",
			Host:        "api.example.com",
			Port:        443,
			Path:        path,
			HTTPVersion: "HTTP/1.1",
			Headers:     capture.Headers{{"Host", "api.example.com"}},
		},
	}
}

// PostJSONFlow returns a POST exchange with a JSON body and a 200 JSON
// response.
func PostJSONFlow(id, path, body, respBody string) *capture.Flow {
	return &capture.Flow{
		ID:   id,
		Kind: capture.KindHTTP,
		Request: &capture.Request{
			Method:      "POST",
			Scheme:      "https",
			Host:        "api.example.com",
			Port:        443,
			Path:        path,
			HTTPVersion: "HTTP/1.1",
			Headers: capture.Headers{
				{"Host", "api.example.com"},
				{"Content-Type", "application/json"},
			},
			Content: []byte(body),
		},
		Response: &capture.Response{
			StatusCode:  200,
			Reason:      "OK",
			HTTPVersion: "HTTP/1.1",
			Headers:     capture.Headers{{"Content-Type", "application/json"}},
			Content:     []byte(respBody),
		},
	}
}
