package rbac

import "sort"

// Set is a set of permission identifiers.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) {
	s[id] = struct{}{}
}

func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// List returns the members in catalog order; identifiers unknown to the catalog
// follow in lexical order.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	var extra []string
	for _, p := range catalog {
		if s.Has(p.ID) {
			out = append(out, p.ID)
		}
	}
	for id := range s {
		if _, known := catalogIndex[id]; !known {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
