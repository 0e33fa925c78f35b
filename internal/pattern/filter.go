package pattern

// Filter decides which request paths are accepted given include and
// exclude pattern sets. Nil and empty sets both mean "no constraint".
type Filter struct {
	Include []string
	Exclude []string

	matcher *Matcher
}

// NewFilter returns a Filter using matcher, or a fresh Matcher when nil.
func NewFilter(include, exclude []string, matcher *Matcher) *Filter {
	if matcher == nil {
		matcher = NewMatcher(DefaultCacheSize)
	}
	return &Filter{Include: include, Exclude: exclude, matcher: matcher}
}

// Accept reports whether path passes the filter. With includes present the
// path must match one of them; with excludes present it must match none.
// A path matching both an include and an exclude is rejected.
func (f *Filter) Accept(path string) bool {
	if len(f.Include) > 0 && !f.matcher.MatchAny(path, f.Include) {
		return false
	}
	if len(f.Exclude) > 0 && f.matcher.MatchAny(path, f.Exclude) {
		return false
	}
	return true
}

// ShouldInclude is Accept with a throwaway matcher.
func ShouldInclude(path string, include, exclude []string) bool {
	return NewFilter(include, exclude, nil).Accept(path)
}
