package models

// Selector is the parsed modifier attached to one placeholder occurrence.
// At most one of Limit, Indexes and Keys is set; Weight is always
// meaningful and defaults to 1.
type Selector struct {
	Limit   *int
	Indexes []int
	Keys    []string
	Weight  int
}

// DefaultSelector is the selector of a bare placeholder occurrence.
func DefaultSelector() Selector {
	return Selector{Weight: 1}
}

// HasSelection reports whether the selector narrows the candidate set at
// all, as opposed to only carrying a weight.
func (s Selector) HasSelection() bool {
	return s.Limit != nil || len(s.Indexes) > 0 || len(s.Keys) > 0
}

// Equal reports whether two selectors pick the same candidates with the
// same weight. Used to detect conflicting selectors on repeated
// occurrences of one placeholder.
func (s Selector) Equal(o Selector) bool {
	if s.Weight != o.Weight {
		return false
	}
	if (s.Limit == nil) != (o.Limit == nil) {
		return false
	}
	if s.Limit != nil && *s.Limit != *o.Limit {
		return false
	}
	if len(s.Indexes) != len(o.Indexes) || len(s.Keys) != len(o.Keys) {
		return false
	}
	for i := range s.Indexes {
		if s.Indexes[i] != o.Indexes[i] {
			return false
		}
	}
	for i := range s.Keys {
		if s.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}
