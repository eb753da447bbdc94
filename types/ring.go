package types

// Ring is a fixed capacity buffer that overwrites the oldest value
type Ring[T any] struct {
	values []T
	next   int
	size   int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		values: make([]T, capacity),
	}
}

// Push adds v and returns the evicted value, if any
func (r *Ring[T]) Push(v T) (old T, evicted bool) {
	if r.size == len(r.values) {
		old = r.values[r.next]
		evicted = true
	} else {
		r.size++
	}
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	return
}

func (r *Ring[T]) Len() int {
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.values)
}

// Values in insertion order, oldest first
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.size)
	start := 0
	if r.size == len(r.values) {
		start = r.next
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.values[(start+i)%len(r.values)])
	}
	return out
}

// RollingSum keeps the sum of the last n values
type RollingSum struct {
	ring *Ring[float64]
	sum  float64
}

func NewRollingSum(n int) *RollingSum {
	return &RollingSum{
		ring: NewRing[float64](n),
	}
}

func (r *RollingSum) Add(v float64) {
	old, evicted := r.ring.Push(v)
	if evicted {
		r.sum += v - old
	} else {
		r.sum += v
	}
}

func (r *RollingSum) Sum() float64 {
	return r.sum
}

func (r *RollingSum) Len() int {
	return r.ring.Len()
}

// Mean is 0 for an empty window
func (r *RollingSum) Mean() float64 {
	if r.ring.Len() == 0 {
		return 0
	}
	return r.sum / float64(r.ring.Len())
}
