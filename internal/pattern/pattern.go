// Package pattern matches request paths against user supplied wildcard and
// regular expression patterns.
package pattern

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled patterns a Matcher keeps.
const DefaultCacheSize = 256

// compiled is a pattern ready to test. re is nil when the pattern is not a
// valid expression, in which case literal is searched for as a substring.
type compiled struct {
	re      *regexp.Regexp
	literal string
}

func (c compiled) match(path string) bool {
	if c.re != nil {
		return c.re.MatchString(path)
	}
	return strings.Contains(path, c.literal)
}

// IsWildcard reports whether p is a wildcard pattern (contains * or ?).
func IsWildcard(p string) bool {
	return strings.ContainsAny(p, "*?")
}

// WildcardToRegexp translates a wildcard pattern to a regular expression:
// '.' is escaped, '*' becomes ".*" and '?' becomes ".". No other character
// is escaped and the result is not anchored.
func WildcardToRegexp(p string) string {
	p = strings.ReplaceAll(p, ".", `\.`)
	p = strings.ReplaceAll(p, "*", ".*")
	return strings.ReplaceAll(p, "?", ".")
}

func compile(p string) compiled {
	expr := p
	if IsWildcard(p) {
		expr = WildcardToRegexp(p)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return compiled{literal: p}
	}
	return compiled{re: re}
}

// Match reports whether path matches pattern. Wildcard patterns are
// translated with WildcardToRegexp, anything else is used as a regular
// expression. Both search for a match anywhere in path. A pattern that does
// not compile falls back to substring containment.
func Match(path, pattern string) bool {
	return compile(pattern).match(path)
}

// Matcher matches like Match but keeps compiled patterns in an LRU cache.
// It is safe for concurrent use.
type Matcher struct {
	cache *lru.Cache[string, compiled]
}

// NewMatcher creates a Matcher caching up to size compiled patterns.
// A non-positive size selects DefaultCacheSize.
func NewMatcher(size int) *Matcher {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, compiled](size)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &Matcher{cache: c}
}

func (m *Matcher) lookup(p string) compiled {
	if c, ok := m.cache.Get(p); ok {
		return c
	}
	c := compile(p)
	m.cache.Add(p, c)
	return c
}

// Match reports whether path matches pattern.
func (m *Matcher) Match(path, pattern string) bool {
	return m.lookup(pattern).match(path)
}

// MatchAny reports whether path matches at least one of patterns. An empty
// set matches nothing.
func (m *Matcher) MatchAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if m.Match(path, p) {
			return true
		}
	}
	return false
}
