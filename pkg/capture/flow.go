// Package capture models recorded HTTP exchanges and decodes them from
// capture files (mitmproxy flow dumps, HAR archives and powhttp session
// exports).
package capture

// Record kinds. Only KindHTTP records carry a Request.
const (
	KindHTTP = "http"
	KindTCP  = "tcp"
	KindUDP  = "udp"
	KindDNS  = "dns"
)

// Flow is one recorded record of a capture. For KindHTTP it is a request and
// the response it received, if any.
type Flow struct {
	ID       string
	Kind     string
	Request  *Request
	Response *Response // nil when the exchange never completed
	Error    string    // error recorded by the capturing proxy
}

// IsHTTP reports whether the flow is an HTTP exchange with a request.
func (f *Flow) IsHTTP() bool {
	return f != nil && f.Kind == KindHTTP && f.Request != nil
}

// Request is a recorded HTTP request. Content holds the payload with any
// content coding already removed.
type Request struct {
	Method      string
	Scheme      string
	Host        string
	Port        int
	Authority   string
	Path        string // path and raw query as sent on the wire
	HTTPVersion string
	Headers     Headers
	Content     []byte
}

// Response is a recorded HTTP response.
type Response struct {
	StatusCode  int
	Reason      string
	HTTPVersion string
	Headers     Headers
	Content     []byte
}
