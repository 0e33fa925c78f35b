// Package markdown renders captured HTTP flows as Markdown sections.
package markdown

import (
	"fmt"
	"strings"

	"github.com/usestring/flowdoc/pkg/capture"
)

// DocumentTitle heads every generated document.
const DocumentTitle = "# HTTP Request Examples"

// Renderer turns flows into Markdown sections. It holds no mutable state and
// is safe for concurrent use.
type Renderer struct {
	Body BodyOptions
}

// NewRenderer creates a Renderer with the given body options.
func NewRenderer(body BodyOptions) *Renderer {
	return &Renderer{Body: body}
}

// Render returns the section for one HTTP flow. The section ends with a
// horizontal rule followed by an empty line.
func (r *Renderer) Render(f *capture.Flow) string {
	req := f.Request
	var md []string

	md = append(md,
		fmt.Sprintf("## %s %s", req.Method, req.PrettyURL()),
		"",
		"### Request",
		"",
		fmt.Sprintf("**%s** `%s`", req.Method, req.Path),
		"",
		fmt.Sprintf("**Host:** `%s:%d`", req.Host, req.Port),
		"",
	)
	md = append(md, headerBlock(req.Headers)...)

	if items := req.QueryItems(); len(items) > 0 {
		md = append(md, "**Query Parameters:**")
		for _, kv := range items {
			md = append(md, fmt.Sprintf("- `%s`: `%s`", kv[0], kv[1]))
		}
		md = append(md, "")
	}

	if len(req.Content) > 0 {
		md = append(md,
			"**Body:**",
			FormatBody(req.Content, req.Headers.Get("content-type"), r.Body),
			"",
		)
	}

	if resp := f.Response; resp != nil {
		md = append(md,
			"### Response",
			"",
			fmt.Sprintf("**Status:** `%d %s`", resp.StatusCode, resp.Reason),
			"",
		)
		md = append(md, headerBlock(resp.Headers)...)

		if len(resp.Content) > 0 {
			md = append(md,
				"**Body:**",
				FormatBody(resp.Content, resp.Headers.Get("content-type"), r.Body),
				"",
			)
		}
	}

	md = append(md,
		"### cURL Example",
		"",
		"```bash",
		Curl(req),
		"```",
		"",
		"---",
		"",
	)

	return strings.Join(md, "\n")
}

// FormatHeaders renders headers one "Name: value" per line, repeated names
// collapsed.
func FormatHeaders(h capture.Headers) string {
	items := h.Items()
	lines := make([]string, 0, len(items))
	for _, kv := range items {
		lines = append(lines, kv[0]+": "+kv[1])
	}
	return strings.Join(lines, "\n")
}

func headerBlock(h capture.Headers) []string {
	return []string{"**Headers:**", "```", FormatHeaders(h), "```", ""}
}

// Title returns the lines that open a document generated from input.
// Pattern lines appear only for non-empty pattern sets.
func Title(input string, include, exclude []string) []string {
	lines := []string{
		DocumentTitle,
		"",
		fmt.Sprintf("*Generated from: %s*", input),
	}
	if len(include) > 0 {
		lines = append(lines, fmt.Sprintf("*Include patterns: %s*", quotePatterns(include)))
	}
	if len(exclude) > 0 {
		lines = append(lines, fmt.Sprintf("*Exclude patterns: %s*", quotePatterns(exclude)))
	}
	return append(lines, "", "---", "")
}

// Document joins the title lines and rendered sections into the final text.
func Document(title, sections []string) string {
	parts := make([]string, 0, len(title)+len(sections))
	parts = append(parts, title...)
	parts = append(parts, sections...)
	return strings.Join(parts, "\n")
}

func quotePatterns(patterns []string) string {
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = "`" + p + "`"
	}
	return strings.Join(quoted, ", ")
}
