package binding

import "math/bits"

// MaxSlots is the largest capacity a Slots array supports.
const MaxSlots = 64

// Slots is a fixed-capacity array of bindings that tracks which entries
// changed since it was last marked clean.
//
// Assigning a value equal to the one stored leaves the slot clean, so a
// caller re-binding the same resources every frame produces no dirty range.
// Slots is not safe for concurrent use.
type Slots[T comparable] struct {
	items []T
	dirty uint64
}

// SlotReader is read access to a slot array. Both *Slots and the
// copy-on-write binding collections implement it.
type SlotReader[T comparable] interface {
	Len() int
	At(i int) T
	Dirty() (start, count int)
}

// NewSlots creates a slot array with the given capacity, clamped to
// [1, MaxSlots].
func NewSlots[T comparable](capacity int) *Slots[T] {
	capacity = min(max(capacity, 1), MaxSlots)
	return &Slots[T]{items: make([]T, capacity)}
}

// Len returns the capacity.
func (s *Slots[T]) Len() int { return len(s.items) }

// At returns slot i. Out-of-range indices return the zero value.
func (s *Slots[T]) At(i int) T {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero
	}
	return s.items[i]
}

// Set assigns slot i and reports whether the stored value changed.
// Out-of-range indices are ignored.
func (s *Slots[T]) Set(i int, v T) bool {
	if i < 0 || i >= len(s.items) || s.items[i] == v {
		return false
	}
	s.items[i] = v
	s.dirty |= 1 << uint(i)
	return true
}

// IsDirty reports whether any slot changed since the last MarkClean.
func (s *Slots[T]) IsDirty() bool { return s.dirty != 0 }

// Dirty returns the smallest contiguous range covering every changed slot.
//
// Clean slots inside the range are included: a native binding call takes a
// contiguous range, and skipping them would leave the native array out of
// sync.
func (s *Slots[T]) Dirty() (start, count int) {
	if s.dirty == 0 {
		return 0, 0
	}
	start = bits.TrailingZeros64(s.dirty)
	end := 64 - bits.LeadingZeros64(s.dirty)
	return start, end - start
}

// MarkDirty flags [start, start+count) as changed.
func (s *Slots[T]) MarkDirty(start, count int) {
	start = max(start, 0)
	end := min(start+count, len(s.items))
	for i := start; i < end; i++ {
		s.dirty |= 1 << uint(i)
	}
}

// MarkClean forgets every change.
func (s *Slots[T]) MarkClean() { s.dirty = 0 }

// Reset zeroes every slot and marks the array clean.
func (s *Slots[T]) Reset() {
	clear(s.items)
	s.dirty = 0
}

// Clone returns an independent copy, dirty state included.
func (s *Slots[T]) Clone() *Slots[T] {
	c := &Slots[T]{items: make([]T, len(s.items)), dirty: s.dirty}
	copy(c.items, s.items)
	return c
}

// Equal reports whether both arrays have the same capacity and values.
// Dirty state is ignored.
func (s *Slots[T]) Equal(other *Slots[T]) bool {
	if s == other {
		return true
	}
	if other == nil || len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// Splice copies src into dst starting at slot start, clipped to the
// capacity of dst, and returns the number of values copied. A negative
// start is treated as 0.
func Splice[T comparable](dst *Slots[T], src []T, start int) int {
	start = max(start, 0)
	if dst == nil || start >= len(dst.items) {
		return 0
	}
	n := min(len(src), len(dst.items)-start)
	for i := range n {
		dst.Set(start+i, src[i])
	}
	return n
}

// MergeDirty brings prev up to date with next.
//
// The union of both dirty ranges is copied from next into prev; changed
// reports whether any value in prev differed. The returned range is the
// span a native binding call must cover. prev is marked clean afterwards.
func MergeDirty[T comparable](prev *Slots[T], next SlotReader[T]) (start, count int, changed bool) {
	ps, pc := prev.Dirty()
	ns, nc := next.Dirty()

	switch {
	case pc == 0 && nc == 0:
		return 0, 0, false
	case pc == 0:
		start, count = ns, nc
	case nc == 0:
		start, count = ps, pc
	default:
		start = min(ps, ns)
		count = max(ps+pc, ns+nc) - start
	}

	end := min(start+count, prev.Len(), next.Len())
	for i := start; i < end; i++ {
		prev.Set(i, next.At(i))
	}

	changed = prev.IsDirty()
	prev.MarkClean()
	if !changed {
		return 0, 0, false
	}
	return start, end - start, true
}
