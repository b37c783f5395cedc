// Package output stores quarry yields in a fixed run of slots.
package output

import "voxelquarry.ai/internal/sim/item"

// Limits supplies the per-kind stack limit.
type Limits interface {
	MaxStack(id string) int
}

// Store is a view over a slice of slots owned by someone else.
type Store struct {
	slots  []item.Stack
	global int
	limits Limits
}

// New wraps slots. global caps every slot regardless of kind; <= 0 means item.DefaultMaxStack.
func New(slots []item.Stack, global int, limits Limits) Store {
	if global <= 0 {
		global = item.DefaultMaxStack
	}
	return Store{slots: slots, global: global, limits: limits}
}

func (s Store) Len() int { return len(s.slots) }

func (s Store) limitFor(id string) int {
	lim := s.global
	if s.limits != nil {
		if per := s.limits.MaxStack(id); per > 0 && per < lim {
			lim = per
		}
	}
	return lim
}

// Insert merges st into slots holding the same item first, then into the
// first empty slot. Whatever does not fit is returned.
func (s Store) Insert(st item.Stack) item.Stack {
	if st.IsEmpty() {
		return item.Stack{}
	}
	rest := st.Clone()
	limit := s.limitFor(rest.ID)

	for i := range s.slots {
		existing := &s.slots[i]
		if existing.IsEmpty() || !existing.CanMerge(rest) {
			continue
		}
		n := limit - existing.Count
		if n > rest.Count {
			n = rest.Count
		}
		if n <= 0 {
			continue
		}
		existing.Count += n
		rest.Count -= n
		if rest.Count == 0 {
			return item.Stack{}
		}
	}

	for i := range s.slots {
		if !s.slots[i].IsEmpty() {
			continue
		}
		n := rest.Count
		if n > limit {
			n = limit
		}
		s.slots[i] = rest.WithCount(n)
		rest.Count -= n
		break
	}

	if rest.Count <= 0 {
		return item.Stack{}
	}
	return rest
}

// Full reports whether no slot is empty and every slot is at its limit.
func (s Store) Full() bool {
	for _, st := range s.slots {
		if st.IsEmpty() || st.Count < s.limitFor(st.ID) {
			return false
		}
	}
	return true
}

// Total counts items of the given id across all slots.
func (s Store) Total(id string) int {
	n := 0
	for _, st := range s.slots {
		if !st.IsEmpty() && st.ID == id {
			n += st.Count
		}
	}
	return n
}
