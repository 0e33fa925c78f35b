package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldInclude(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/anything", nil, nil, true},
		{"empty slices", "/anything", []string{}, []string{}, true},
		{"include matches", "/api/users", []string{"/api/*"}, nil, true},
		{"include misses", "/health", []string{"/api/*"}, nil, false},
		{"any include suffices", "/v1/posts", []string{"/api/*", "/v1/posts"}, nil, true},
		{"exclude matches", "/metrics", nil, []string{"/health", "/metrics"}, false},
		{"exclude misses", "/api/users", nil, []string{"/health"}, true},
		{"exclude wins over include", "/api/internal/x", []string{"/api/*"}, []string{"*/internal/*"}, false},
		{"include miss regardless of exclude", "/health", []string{"/api/*"}, []string{"/nothing"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldInclude(tt.path, tt.include, tt.exclude))
		})
	}
}

func TestFilter_SharesMatcher(t *testing.T) {
	m := NewMatcher(8)
	f := NewFilter([]string{"/api/*"}, []string{"*/internal/*"}, m)

	assert.True(t, f.Accept("/api/users"))
	assert.False(t, f.Accept("/api/internal/debug"))
	assert.False(t, f.Accept("/static/app.js"))
	assert.Equal(t, 2, m.cache.Len())
}
