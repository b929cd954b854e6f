package grove

// shared is a heap record owned jointly by every copy of a handle. The last
// owner to drop it runs the release hook exactly once.
//
// The count is a plain int, not an atomic: grove is single-threaded and every
// copy of a record must be touched from the goroutine that runs the
// Ebitengine loop. Sharing handles across goroutines needs external locking.
type shared[T any] struct {
	value   T
	refs    int
	freed   bool
	release func(T)
}

// newShared creates a record with a single owner.
func newShared[T any](v T, release func(T)) *shared[T] {
	return &shared[T]{value: v, refs: 1, release: release}
}

// acquire registers one more owner and returns the same record.
func (s *shared[T]) acquire() *shared[T] {
	if s.freed {
		panic("grove: acquire on a freed shared record")
	}
	s.refs++
	return s
}

// drop removes one owner. It reports true when that was the last owner, in
// which case the release hook has run and the value is gone.
func (s *shared[T]) drop() bool {
	if s.freed {
		panic("grove: shared record released more than once")
	}
	s.refs--
	if s.refs > 0 {
		return false
	}
	s.freed = true
	if s.release != nil {
		s.release(s.value)
	}
	var zero T
	s.value = zero
	return true
}
