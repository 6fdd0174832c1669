// Package historyring implements the fixed-capacity delay-sample ring
// shared by the noise filter and the base-delay tracker: an owned array
// plus four small indices, no pointers between slots.
package historyring

import "errors"

// Infinity is returned by Min when the ring holds no samples.
const Infinity uint32 = 0xffffffff

// ErrAllocFailed is returned by New when the backing array cannot be sized.
var ErrAllocFailed = errors.New("historyring: alloc failed")

// Ring is a fixed-capacity circular buffer of u32 delay samples that
// tracks its own minimum in O(1) amortized time. The zero value is not
// usable; construct with New.
type Ring struct {
	buf   []uint32
	first uint8
	next  uint8
	min   uint8
}

// New allocates a ring of the given capacity. Capacity must be at least 2
// so that "next == first" unambiguously means empty rather than full.
func New(capacity int) (*Ring, error) {
	if capacity < 2 {
		return nil, ErrAllocFailed
	}
	if capacity > 255 {
		// first/next/min are u8 indices, matching the kernel source's
		// owd_circ_buf; capacities beyond this were never part of the
		// algorithm's intended range (base_histo_len/noise_filter_len
		// are single-digit configuration values).
		return nil, ErrAllocFailed
	}
	return &Ring{buf: make([]uint32, capacity)}, nil
}

// Len returns the ring's capacity.
func (r *Ring) Len() int { return len(r.buf) }

// Empty reports whether the ring currently holds no samples.
func (r *Ring) Empty() bool { return r.first == r.next }

// Full reports whether the ring holds the maximum number of samples it
// can before the next Push evicts the oldest one.
func (r *Ring) Full() bool {
	return (r.next+1)%uint8(len(r.buf)) == r.first
}

// Min returns the smallest resident sample, or Infinity if the ring is
// empty.
func (r *Ring) Min() uint32 {
	if r.Empty() {
		return Infinity
	}
	return r.buf[r.min]
}

// Last returns the most recently pushed sample and true, or (0, false) if
// the ring is empty.
func (r *Ring) Last() (uint32, bool) {
	if r.Empty() {
		return 0, false
	}
	last := (int(r.next) + len(r.buf) - 1) % len(r.buf)
	return r.buf[last], true
}

// ReplaceLast overwrites the most recently pushed sample in place (used by
// the base-delay tracker to fold new observations into the open bucket
// without opening a new slot). It is a no-op on an empty ring.
func (r *Ring) ReplaceLast(sample uint32) {
	if r.Empty() {
		return
	}
	last := (int(r.next) + len(r.buf) - 1) % len(r.buf)
	r.buf[last] = sample
	if sample < r.buf[r.min] {
		r.min = uint8(last)
	}
}

// Push appends sample, evicting the oldest resident sample if the ring is
// full. Ties on the minimum are broken toward the lowest surviving index:
// on insert, an equal-valued newer sample never displaces an existing min;
// on eviction of the min, the rescan walks the survivors from the oldest
// onward and keeps the first minimal slot it finds.
func (r *Ring) Push(sample uint32) {
	n := uint8(len(r.buf))

	if r.Empty() {
		r.buf[r.next] = sample
		r.min = r.next
		r.next = (r.next + 1) % n
		return
	}

	r.buf[r.next] = sample
	if sample < r.buf[r.min] {
		r.min = r.next
	}
	r.next = (r.next + 1) % n

	if r.next == r.first {
		if r.min == r.first {
			r.min = (r.first + 1) % n
			for i := (r.first + 1) % n; i != r.next; i = (i + 1) % n {
				if r.buf[i] < r.buf[r.min] {
					r.min = i
				}
			}
		}
		r.first = (r.first + 1) % n
	}
}
