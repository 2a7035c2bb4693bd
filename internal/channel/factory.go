package channel

// New creates a new channel with the given buffer size.
// Size 0 yields an unbuffered channel.
func New[T any](size int) Channel[T] {
	if size == 0 {
		return NewUnbuffered[T]()
	}
	return NewBuffered[T](size)
}
