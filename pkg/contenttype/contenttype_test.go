package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFence(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"json", "application/json", FenceJSON},
		{"vendor json", "application/vnd.api+json; charset=utf-8", FenceJSON},
		{"uppercase json", "Application/JSON", FenceJSON},
		{"xml", "application/xml", FenceXML},
		{"html is xml", "text/html; charset=utf-8", FenceXML},
		{"xhtml", "application/xhtml+xml", FenceXML},
		{"javascript", "application/javascript", FenceJavaScript},
		{"text javascript", "text/javascript", FenceJavaScript},
		{"plain", "text/plain", FenceNone},
		{"empty", "", FenceNone},
		{"json beats xml", "application/json+xml", FenceJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fence(tt.contentType))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        Category
	}{
		// JSON
		{"application/json", "application/json", JSON},
		{"vendor json", "application/vnd.api+json", JSON},
		{"json with charset", "application/json; charset=utf-8", JSON},

		// HTML
		{"text/html", "text/html", HTML},
		{"html with charset", "text/html; charset=utf-8", HTML},
		{"xhtml", "application/xhtml+xml", HTML},

		// XML
		{"application/xml", "application/xml", XML},
		{"vendor xml", "application/vnd.foo+xml", XML},

		// Others
		{"yaml", "application/x-yaml", YAML},
		{"csv", "text/csv", CSV},
		{"form", "application/x-www-form-urlencoded", Form},
		{"text/plain", "text/plain", Text},
		{"javascript", "application/javascript", Text},

		// Binary
		{"image/png", "image/png", Binary},
		{"octet-stream", "application/octet-stream", Binary},
		{"empty", "", Binary},
		{"uppercase", "Application/JSON", JSON},
		{"malformed params", "text/html; charset", HTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType))
		})
	}
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON("application/json"))
	assert.True(t, IsJSON("Application/Problem+JSON"))
	assert.False(t, IsJSON("text/html"))
	assert.False(t, IsJSON(""))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "application/json", MediaType("Application/JSON; charset=utf-8"))
	assert.Equal(t, "text/html", MediaType(" TEXT/HTML ; charset"))
}
