package capture

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort returns the well-known port for scheme, or 0 if unknown.
func DefaultPort(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	}
	return 0
}

// PrettyHostPort returns the host the client addressed: the Host header,
// then the authority, then the connection host. The port defaults to the
// request port.
func (r *Request) PrettyHostPort() (string, int) {
	hostport := r.Headers.Get("host")
	if hostport == "" {
		hostport = r.Authority
	}
	if hostport == "" {
		return r.Host, r.Port
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port in the value.
		return strings.Trim(hostport, "[]"), r.Port
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, r.Port
	}
	return host, port
}

// PrettyURL returns scheme://host[:port]path for the request using the
// pretty host. Default ports are omitted. CONNECT requests render as
// host:port.
func (r *Request) PrettyURL() string {
	host, port := r.PrettyHostPort()
	if strings.EqualFold(r.Method, "CONNECT") {
		return net.JoinHostPort(host, strconv.Itoa(port))
	}

	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + hostPort(scheme, host, port) + r.Path
}

// URL returns scheme://host[:port]path using the connection host.
func (r *Request) URL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + hostPort(scheme, r.Host, r.Port) + r.Path
}

func hostPort(scheme, host string, port int) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == 0 || port == DefaultPort(scheme) {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// RawQuery returns the part of Path after the first '?'.
func (r *Request) RawQuery() string {
	_, query, _ := strings.Cut(r.Path, "?")
	return query
}

// Query parses the query string into ordered key/value pairs. Blank values
// are kept; undecodable escapes are left as written.
func (r *Request) Query() [][2]string {
	raw := r.RawQuery()
	if raw == "" {
		return nil
	}

	var pairs [][2]string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, [2]string{unescapeQuery(key), unescapeQuery(value)})
	}
	return pairs
}

// QueryItems returns one pair per distinct key in order of first
// appearance. When a key repeats, the first value wins.
func (r *Request) QueryItems() [][2]string {
	var items [][2]string
	seen := make(map[string]bool)
	for _, pair := range r.Query() {
		if seen[pair[0]] {
			continue
		}
		seen[pair[0]] = true
		items = append(items, pair)
	}
	return items
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
