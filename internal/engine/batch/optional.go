package batch

// Optional is a task output that explicitly says whether a result was produced.
// The zero Optional is absent.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v, even when v is a zero value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether o holds a value.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the held value, or fallback when o is absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// Values unwraps the present values in order, skipping absent ones.
func Values[T any](outputs []Optional[T]) []T {
	values := make([]T, 0, len(outputs))
	for _, output := range outputs {
		if v, ok := output.Get(); ok {
			values = append(values, v)
		}
	}
	return values
}
