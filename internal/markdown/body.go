package markdown

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/usestring/flowdoc/pkg/capture"
	"github.com/usestring/flowdoc/pkg/contenttype"
	"github.com/usestring/flowdoc/pkg/jsoncompact"
	"github.com/usestring/flowdoc/pkg/jsonschema"
)

// NoBody is rendered in place of an empty body.
const NoBody = "*No body*"

// jsonSpace is the whitespace JSON allows around a value.
const jsonSpace = " \t\r\n"

// BodyOptions controls optional body transformations. The zero value
// renders bodies unchanged.
type BodyOptions struct {
	// Compact trims long arrays and strings of JSON bodies. Nil disables it.
	Compact *jsoncompact.Options
	// Schema appends an inferred JSON Schema after JSON bodies.
	Schema bool
}

// FormatBody renders content as a fenced code block. JSON is pretty printed
// with two-space indentation and key order kept; other bodies are fenced
// with a language picked from contentType.
func FormatBody(content []byte, contentType string, opts BodyOptions) string {
	text := capture.Text(content, contentType)
	if text == "" {
		return NoBody
	}

	if data := []byte(strings.Trim(text, jsonSpace)); json.Valid(data) {
		return formatJSON(data, opts)
	}

	return fence(contenttype.Fence(contentType), text)
}

func formatJSON(data []byte, opts BodyOptions) string {
	shown := data
	if opts.Compact != nil {
		compacted, err := jsoncompact.Compact(data, opts.Compact)
		if err != nil {
			slog.Debug("compacting body", slog.String("error", err.Error()))
		} else {
			shown = compacted
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, shown, "", "  "); err != nil {
		// data was validated above
		buf.Reset()
		buf.Write(shown)
	}
	out := fence(contenttype.FenceJSON, buf.String())

	if opts.Schema {
		if s := schemaBlock(data); s != "" {
			out += "\n\n" + s
		}
	}
	return out
}

func schemaBlock(data []byte) string {
	schema, err := jsonschema.Infer(data)
	if err != nil {
		slog.Debug("inferring body schema", slog.String("error", err.Error()))
		return ""
	}
	out, err := jsonschema.Marshal(schema)
	if err != nil {
		slog.Debug("encoding body schema", slog.String("error", err.Error()))
		return ""
	}
	return "**Schema:**\n" + fence(contenttype.FenceJSON, string(out))
}

func fence(lang, text string) string {
	return "```" + lang + "\n" + text + "\n```"
}
