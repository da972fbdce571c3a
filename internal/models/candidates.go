package models

// Candidate is one possible substitution value for a placeholder,
// identified by its key.
type Candidate struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// CandidateSet is an insertion-ordered key -> text collection. Candidate
// order is significant: it drives both index selectors and the natural
// order of the combinatorial product.
type CandidateSet struct {
	keys  []string
	texts map[string]string
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{texts: make(map[string]string)}
}

// Add appends a candidate. It reports false, without modifying the set,
// when the key is already present.
func (s *CandidateSet) Add(key, text string) bool {
	if _, dup := s.texts[key]; dup {
		return false
	}
	s.keys = append(s.keys, key)
	s.texts[key] = text
	return true
}

// Get returns the text for a key.
func (s *CandidateSet) Get(key string) (string, bool) {
	text, ok := s.texts[key]
	return text, ok
}

// At returns the candidate at a 0-based position.
func (s *CandidateSet) At(i int) Candidate {
	key := s.keys[i]
	return Candidate{Key: key, Text: s.texts[key]}
}

// Keys returns the keys in insertion order. The slice is a copy.
func (s *CandidateSet) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of candidates.
func (s *CandidateSet) Len() int {
	return len(s.keys)
}

// Slice returns all candidates in insertion order.
func (s *CandidateSet) Slice() []Candidate {
	out := make([]Candidate, len(s.keys))
	for i, key := range s.keys {
		out[i] = Candidate{Key: key, Text: s.texts[key]}
	}
	return out
}

// ImportValue is one resolved imports entry: either a flat candidate set
// or a named group of further values, preserving the nested shape of the
// source section.
type ImportValue struct {
	Set   *CandidateSet
	Group []ResolvedEntry
}

// ResolvedEntry is a named resolved import inside a group.
type ResolvedEntry struct {
	Name  string
	Value *ImportValue
}

// Lookup walks a dotted path ("group.sub") through nested groups and
// returns the candidate set it lands on.
func (v *ImportValue) Lookup(path []string) (*CandidateSet, bool) {
	if len(path) == 0 {
		if v.Set == nil {
			return nil, false
		}
		return v.Set, true
	}
	for _, e := range v.Group {
		if e.Name == path[0] {
			return e.Value.Lookup(path[1:])
		}
	}
	return nil, false
}
