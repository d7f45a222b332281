package value

// Thunk is a deferred computation forced by its consumer. The first Force
// runs the computation; later calls return the memoized result.
type Thunk[T any] struct {
	fn     func() T
	forced bool
	result T
}

// NewThunk wraps fn without running it.
func NewThunk[T any](fn func() T) *Thunk[T] {
	return &Thunk[T]{fn: fn}
}

// Force runs the computation once and returns its result.
func (t *Thunk[T]) Force() T {
	if !t.forced {
		t.result = t.fn()
		t.forced = true
		t.fn = nil
	}
	return t.result
}

// Forced reports whether Force has been called.
func (t *Thunk[T]) Forced() bool {
	return t.forced
}
