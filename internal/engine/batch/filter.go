package batch

// ResultFilter reports whether a task output should be kept in the result
// collection. It is applied to each output exactly once, in submission order.
type ResultFilter[T any] func(output T) bool

// KeepAll keeps every output, zero values included.
func KeepAll[T any]() ResultFilter[T] {
	return func(T) bool { return true }
}

// DropZero drops outputs equal to T's zero value ("", 0, false, nil pointers).
// This matches the behaviour of filtering results by truthiness.
func DropZero[T comparable]() ResultFilter[T] {
	return func(output T) bool {
		var zero T
		return output != zero
	}
}

// Present keeps optional outputs that carry a value.
func Present[T any]() ResultFilter[Optional[T]] {
	return func(output Optional[T]) bool {
		return output.IsPresent()
	}
}

// PresentNonZero keeps optional outputs that carry a non-zero value.
func PresentNonZero[T comparable]() ResultFilter[Optional[T]] {
	return func(output Optional[T]) bool {
		var zero T
		v, ok := output.Get()
		return ok && v != zero
	}
}
