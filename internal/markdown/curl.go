package markdown

import (
	"strings"

	"github.com/usestring/flowdoc/pkg/capture"
)

// curlSkipHeaders are left out of reconstructed commands; curl sets them
// itself.
var curlSkipHeaders = map[string]bool{
	"host":           true,
	"content-length": true,
	"connection":     true,
}

// Curl reconstructs a curl command line equivalent to req. Arguments are
// single-quoted and continued onto indented lines.
func Curl(req *capture.Request) string {
	var b strings.Builder

	b.WriteString("curl -X ")
	b.WriteString(req.Method)
	b.WriteString(" '")
	b.WriteString(shellQuote(req.PrettyURL()))
	b.WriteByte('\'')

	for _, h := range req.Headers.Items() {
		if curlSkipHeaders[strings.ToLower(h[0])] {
			continue
		}
		b.WriteString(" \\\n  -H '")
		b.WriteString(shellQuote(h[0]))
		b.WriteString(": ")
		b.WriteString(shellQuote(h[1]))
		b.WriteByte('\'')
	}

	if len(req.Content) > 0 {
		body := capture.Text(req.Content, req.Headers.Get("content-type"))
		b.WriteString(" \\\n  -d '")
		b.WriteString(shellQuote(body))
		b.WriteByte('\'')
	}

	return b.String()
}

// shellQuote escapes s for use inside a single-quoted shell word.
func shellQuote(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
