package vulkan

// Optional is a builder setting that distinguishes "never set" from a zero
// value, so defaults only apply when the caller stayed silent.
type Optional[T any] struct {
	value T
	isSet bool
}

func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{value: value, isSet: true}
}

func (o Optional[T]) IsSet() bool {
	return o.isSet
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.isSet
}

// GetOr returns the stored value, or fallback when nothing was set.
func (o Optional[T]) GetOr(fallback T) T {
	if o.isSet {
		return o.value
	}
	return fallback
}
