// Package contenttype classifies Content-Type header values.
package contenttype

import (
	"mime"
	"strings"
)

// Category represents a broad content-type classification.
type Category string

const (
	JSON   Category = "json"
	XML    Category = "xml"
	HTML   Category = "html"
	YAML   Category = "yaml"
	CSV    Category = "csv"
	Form   Category = "form"
	Text   Category = "text"
	Binary Category = "binary"
)

// Code fence languages returned by Fence.
const (
	FenceJSON       = "json"
	FenceXML        = "xml"
	FenceJavaScript = "javascript"
	FenceNone       = ""
)

// Fence returns the Markdown code fence language for a body declared with
// contentType. Matching is a case-insensitive substring test: "json" wins,
// then "xml" or "html" (both highlighted as XML), then "javascript".
// Anything else gets an untagged fence.
func Fence(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FenceJSON
	case strings.Contains(ct, "xml"), strings.Contains(ct, "html"):
		return FenceXML
	case strings.Contains(ct, "javascript"):
		return FenceJavaScript
	}
	return FenceNone
}

// IsJSON returns true if the content type indicates JSON (case-insensitive).
func IsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// MediaType returns the lower-cased media type without parameters. Values
// mime cannot parse are lower-cased and trimmed as they are.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		base, _, _ := strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return mediaType
}

// exactTypes maps media types that need an exact match.
var exactTypes = map[string]Category{
	"text/html":                         HTML,
	"application/xhtml+xml":             HTML,
	"text/csv":                          CSV,
	"text/tab-separated-values":         CSV,
	"application/x-www-form-urlencoded": Form,
}

// Classify returns the broad content category for a content-type header
// value. Returns Binary for empty or unrecognized values.
func Classify(contentType string) Category {
	if contentType == "" {
		return Binary
	}

	mediaType := MediaType(contentType)
	if strings.Contains(mediaType, "json") {
		return JSON
	}
	if c, ok := exactTypes[mediaType]; ok {
		return c
	}
	switch {
	case strings.Contains(mediaType, "xml"):
		return XML
	case strings.Contains(mediaType, "yaml"):
		return YAML
	case strings.HasPrefix(mediaType, "text/"), strings.Contains(mediaType, "javascript"):
		return Text
	}
	return Binary
}
