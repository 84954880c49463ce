// Package events provides late-subscription support: an attribute filter
// over event properties and a synthesizer that reconstructs historical
// events on demand for subscribers that joined after the fact.
package events

import "slices"

// Filter is a predicate over event attributes. A nil field map matches
// everything; otherwise an attribute matches when every probed value is in
// the filter's value set for that attribute.
type Filter struct {
	fields map[string][]string
}

// NewFilter builds a filter over the given attribute value sets.
func NewFilter(fields map[string][]string) Filter {
	return Filter{fields: fields}
}

// MatchAll returns the filter that admits every event.
func MatchAll() Filter {
	return Filter{}
}

// Matches reports whether all of values are admitted for the named
// attribute.
func (f Filter) Matches(field string, values []string) bool {
	if f.fields == nil {
		return true
	}
	allowed, ok := f.fields[field]
	if !ok {
		return false
	}
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return false
		}
	}
	return true
}
