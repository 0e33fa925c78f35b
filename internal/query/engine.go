// Package query selects flows with jq expressions.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/flowdoc/pkg/capture"
	"github.com/usestring/flowdoc/pkg/contenttype"
)

// ErrInvalidExpression is wrapped by Compile errors.
var ErrInvalidExpression = errors.New("invalid jq expression")

// Selector decides whether a flow is kept by evaluating a compiled jq
// expression against FlowView. A Selector is safe for concurrent use.
type Selector struct {
	expr string
	code *gojq.Code
}

// Compile parses and compiles expression.
func Compile(expression string) (*Selector, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w at position %d: %w", ErrInvalidExpression, parseErr.Offset, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling: %w", ErrInvalidExpression, err)
	}

	return &Selector{expr: expression, code: code}, nil
}

// String returns the source expression.
func (s *Selector) String() string {
	return s.expr
}

// Match reports whether the expression yields at least one value other than
// false or null for f. Runtime errors are logged and count as no match.
func (s *Selector) Match(ctx context.Context, f *capture.Flow) bool {
	iter := s.code.RunWithContext(ctx, FlowView(f))
	for {
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if err, isErr := v.(error); isErr {
			slog.Debug("jq selection failed",
				slog.String("flow", f.ID),
				slog.String("error", formatJQError(s.expr, err)),
			)
			return false
		}
		if truthy(v) {
			return true
		}
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	}
	return true
}

// FlowView returns the JSON-like value a selection expression sees:
//
//	{"id", "method", "url", "scheme", "host", "port", "path", "query",
//	 "status", "reason", "error",
//	 "request":  {"headers", "content_type", "body"},
//	 "response": {"headers", "content_type", "body"} | null}
//
// Header names are lower-cased with repeated values joined by ", ". "body"
// is the parsed JSON body, the body text for other content, or null when
// empty. "status" and "reason" are null without a response.
func FlowView(f *capture.Flow) map[string]any {
	req := f.Request
	view := map[string]any{
		"id":       f.ID,
		"error":    nilIfEmpty(f.Error),
		"method":   req.Method,
		"url":      req.PrettyURL(),
		"scheme":   req.Scheme,
		"host":     req.Host,
		"port":     req.Port,
		"path":     req.Path,
		"query":    queryView(req.QueryItems()),
		"status":   nil,
		"reason":   nil,
		"request":  messageView(req.Headers, req.Content),
		"response": nil,
	}
	if resp := f.Response; resp != nil {
		view["status"] = resp.StatusCode
		view["reason"] = resp.Reason
		view["response"] = messageView(resp.Headers, resp.Content)
	}
	return view
}

func messageView(h capture.Headers, content []byte) map[string]any {
	ct := h.Get("content-type")
	return map[string]any{
		"headers":      headersView(h),
		"content_type": string(contenttype.Classify(ct)),
		"body":         bodyView(content, ct),
	}
}

func headersView(h capture.Headers) map[string]any {
	out := make(map[string]any)
	for _, kv := range h.Items() {
		out[strings.ToLower(kv[0])] = kv[1]
	}
	return out
}

func queryView(items [][2]string) map[string]any {
	out := make(map[string]any, len(items))
	for _, kv := range items {
		out[kv[0]] = kv[1]
	}
	return out
}

func bodyView(content []byte, contentType string) any {
	if len(content) == 0 {
		return nil
	}
	text := capture.Text(content, contentType)
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}
	return text
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime jq errors (like "cannot iterate over: null") are plain errors
// without typed wrappers in gojq, so hints are picked by string matching.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this flow)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}
