// Package collection provides the counted-set container used by the
// claim-topic, trusted-issuer, compliance-rule, and identity-address
// registries.
package collection

// IndexedSet is a counted set backed by a dense array and a reverse index.
// Items holds the members in slots 0..Len()-1; Index maps a member to its
// slot plus one, with zero meaning "not present". Removal swaps the last
// member into the freed slot, so all operations are O(1) but iteration
// order is not stable across removals.
//
// The fields are exported so the set serializes in its persisted layout
// (count, dense array, reverse-index map).
type IndexedSet[T comparable] struct {
	Items []T
	Index map[T]uint32
}

// NewIndexedSet creates an empty counted set.
func NewIndexedSet[T comparable]() *IndexedSet[T] {
	return &IndexedSet[T]{
		Index: make(map[T]uint32),
	}
}

// Add inserts v and returns true, or returns false if v is already present.
func (s *IndexedSet[T]) Add(v T) bool {
	if s.Index == nil {
		s.Index = make(map[T]uint32)
	}
	if s.Index[v] != 0 {
		return false
	}
	s.Items = append(s.Items, v)
	s.Index[v] = uint32(len(s.Items))
	return true
}

// Remove deletes v and returns true, or returns false if v is absent.
// The last member is swapped into the freed slot.
func (s *IndexedSet[T]) Remove(v T) bool {
	slot := s.Index[v]
	if slot == 0 {
		return false
	}
	i := int(slot - 1)
	last := len(s.Items) - 1
	if i != last {
		moved := s.Items[last]
		s.Items[i] = moved
		s.Index[moved] = slot
	}
	s.Items = s.Items[:last]
	delete(s.Index, v)
	return true
}

// Contains reports whether v is a member.
func (s *IndexedSet[T]) Contains(v T) bool {
	return s.Index[v] != 0
}

// Len returns the member count.
func (s *IndexedSet[T]) Len() int {
	return len(s.Items)
}

// At returns the member in slot i. The caller must ensure 0 <= i < Len().
func (s *IndexedSet[T]) At(i int) T {
	return s.Items[i]
}

// Values returns a copy of the dense array.
func (s *IndexedSet[T]) Values() []T {
	if len(s.Items) == 0 {
		return nil
	}
	out := make([]T, len(s.Items))
	copy(out, s.Items)
	return out
}

// Clone returns a deep copy of the set.
func (s *IndexedSet[T]) Clone() *IndexedSet[T] {
	c := &IndexedSet[T]{
		Items: make([]T, len(s.Items)),
		Index: make(map[T]uint32, len(s.Index)),
	}
	copy(c.Items, s.Items)
	for k, v := range s.Index {
		c.Index[k] = v
	}
	return c
}

// Reindex rebuilds the reverse index from the dense array. Used after
// decoding a persisted set whose index map was not stored.
func (s *IndexedSet[T]) Reindex() {
	s.Index = make(map[T]uint32, len(s.Items))
	for i, v := range s.Items {
		s.Index[v] = uint32(i + 1)
	}
}
