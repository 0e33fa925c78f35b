package capture

import "strings"

// Headers is a slice of header name/value pairs in recorded order.
type Headers [][]string

// Get returns the value for the given header name (case-insensitive).
// Repeated headers are joined with ", ". Returns an empty string if the
// header is not found.
func (h Headers) Get(name string) string {
	return strings.Join(h.Values(name), ", ")
}

// Values returns all values for the given header name (case-insensitive).
func (h Headers) Values(name string) []string {
	var values []string
	for _, pair := range h {
		if len(pair) >= 2 && strings.EqualFold(pair[0], name) {
			values = append(values, pair[1])
		}
	}
	return values
}

// Items returns one pair per distinct header name, in order of first
// appearance and with the spelling of the first appearance. Values of
// repeated headers are joined with ", ".
func (h Headers) Items() [][2]string {
	var items [][2]string
	index := make(map[string]int)
	for _, pair := range h {
		if len(pair) < 2 {
			continue
		}
		key := strings.ToLower(pair[0])
		if i, ok := index[key]; ok {
			items[i][1] += ", " + pair[1]
			continue
		}
		index[key] = len(items)
		items = append(items, [2]string{pair[0], pair[1]})
	}
	return items
}

// Add appends a header pair.
func (h *Headers) Add(name, value string) {
	*h = append(*h, []string{name, value})
}
