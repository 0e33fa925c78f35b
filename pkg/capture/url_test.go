package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequest_PrettyURL(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "https default port omitted",
			req:  Request{Method: "GET", Scheme: "https", Host: "api.example.com", Port: 443, Path: "/v1/users?id=1"},
			want: "https://api.example.com/v1/users?id=1",
		},
		{
			name: "non-default port kept",
			req:  Request{Method: "GET", Scheme: "http", Host: "localhost", Port: 8080, Path: "/health"},
			want: "http://localhost:8080/health",
		},
		{
			name: "host header preferred",
			req: Request{
				Method: "GET", Scheme: "http", Host: "10.0.0.1", Port: 80, Path: "/",
				Headers: Headers{{"Host", "example.com"}},
			},
			want: "http://example.com/",
		},
		{
			name: "host header with port",
			req: Request{
				Method: "GET", Scheme: "http", Host: "10.0.0.1", Port: 80, Path: "/",
				Headers: Headers{{"Host", "example.com:8080"}},
			},
			want: "http://example.com:8080/",
		},
		{
			name: "authority used without host header",
			req:  Request{Method: "GET", Scheme: "https", Host: "1.2.3.4", Port: 443, Authority: "h2.example.com", Path: "/x"},
			want: "https://h2.example.com/x",
		},
		{
			name: "ipv6 host bracketed",
			req:  Request{Method: "GET", Scheme: "http", Host: "::1", Port: 8000, Path: "/"},
			want: "http://[::1]:8000/",
		},
		{
			name: "connect is host:port",
			req:  Request{Method: "CONNECT", Host: "example.com", Port: 443},
			want: "example.com:443",
		},
		{
			name: "missing scheme defaults to http",
			req:  Request{Method: "GET", Host: "example.com", Port: 80, Path: "/"},
			want: "http://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.PrettyURL())
		})
	}
}

func TestRequest_URLUsesConnectionHost(t *testing.T) {
	req := Request{Scheme: "http", Host: "10.0.0.1", Port: 80, Path: "/a", Headers: Headers{{"Host", "example.com"}}}
	assert.Equal(t, "http://10.0.0.1/a", req.URL())
}

func TestRequest_Query(t *testing.T) {
	req := Request{Path: "/search?q=go+lang&empty=&flag&q=second&name=%C3%A9&bad=%zz"}

	assert.Equal(t, [][2]string{
		{"q", "go lang"},
		{"empty", ""},
		{"flag", ""},
		{"q", "second"},
		{"name", "é"},
		{"bad", "%zz"},
	}, req.Query())

	assert.Equal(t, [][2]string{
		{"q", "go lang"},
		{"empty", ""},
		{"flag", ""},
		{"name", "é"},
		{"bad", "%zz"},
	}, req.QueryItems())
}

func TestRequest_QueryEmpty(t *testing.T) {
	assert.Nil(t, (&Request{Path: "/plain"}).Query())
	assert.Nil(t, (&Request{Path: "/plain?"}).Query())
	assert.Empty(t, (&Request{Path: "/plain?&&"}).QueryItems())
}
