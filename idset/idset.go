// Package idset provides an insertion-ordered set of ids used for membership
// lists such as liked videos or a comment's replies.
package idset

import "slices"

// Set is an ordered set of ids. The zero value is an empty set ready to use.
type Set struct {
	items []string
	index map[string]struct{}
}

// New returns a set holding ids in order, skipping duplicates.
func New(ids ...string) Set {
	var s Set

	for _, id := range ids {
		s.Add(id)
	}

	return s
}

// Add appends id and reports whether it was absent.
func (s *Set) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}

	if _, ok := s.index[id]; ok {
		return false
	}

	s.index[id] = struct{}{}
	s.items = append(s.items, id)

	return true
}

// Remove deletes id and reports whether it was present.
func (s *Set) Remove(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}

	delete(s.index, id)
	s.items = slices.DeleteFunc(s.items, func(item string) bool { return item == id })

	return true
}

// Has reports whether id is a member.
func (s Set) Has(id string) bool {
	_, ok := s.index[id]

	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.items)
}

// IDs returns the members in insertion order. The result is a copy.
func (s Set) IDs() []string {
	return slices.Clone(s.items)
}
