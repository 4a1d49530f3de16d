package tempo

// ring is a growable circular deque. Pushes go to the back, evictions come
// off the front, both amortized O(1).
type ring[T any] struct {
	buf  []T
	head int
	n    int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) Len() int { return r.n }

// At returns the i-th element counting from the front.
func (r *ring[T]) At(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

func (r *ring[T]) set(i int, v T) {
	r.buf[(r.head+i)%len(r.buf)] = v
}

func (r *ring[T]) PushBack(v T) {
	if r.n == len(r.buf) {
		r.grow()
	}
	r.set(r.n, v)
	r.n++
}

func (r *ring[T]) PopFront() T {
	var zero T
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v
}

func (r *ring[T]) PopBack() T {
	var zero T
	i := (r.head + r.n - 1) % len(r.buf)
	v := r.buf[i]
	r.buf[i] = zero
	r.n--
	return v
}

func (r *ring[T]) Front() T { return r.At(0) }
func (r *ring[T]) Back() T  { return r.At(r.n - 1) }

func (r *ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.n = 0, 0
}

func (r *ring[T]) grow() {
	next := make([]T, len(r.buf)*2)
	for i := 0; i < r.n; i++ {
		next[i] = r.At(i)
	}
	r.buf = next
	r.head = 0
}
