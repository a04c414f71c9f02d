package model

import "sort"

// CandidatePool maps a word to an optional prior score from its source list
type CandidatePool map[string]*int

// Add inserts word with an optional prior score, keeping the first score seen
func (p CandidatePool) Add(word string, prior *int) {
	if cur, ok := p[word]; ok && cur != nil {
		return
	}
	p[word] = prior
}

// Words returns the pool's words sorted
func (p CandidatePool) Words() []string {
	out := make([]string, 0, len(p))
	for w := range p {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }
