package reactive

// Var is a value cell: it holds the latest value of a comparable type and
// notifies subscribers when the value actually changes. Writes that store
// an equal value are dropped silently.
type Var[T comparable] struct {
	value   T
	changes Event[T]
}

// NewVar returns a cell seeded with initial.
func NewVar[T comparable](initial T) *Var[T] {
	return &Var[T]{value: initial}
}

// Get returns the current value.
func (v *Var[T]) Get() T {
	return v.value
}

// Set stores value and notifies subscribers if it differs from the
// current one.
func (v *Var[T]) Set(value T) {
	if value == v.value {
		return
	}
	v.value = value
	v.changes.Fire(value)
}

// Value emits the current value immediately on subscription and every
// subsequent change.
func (v *Var[T]) Value() Stream[T] {
	return v.changes.EventsStartingWith(v.Get)
}

// Changes emits only the changes made after subscription; the current
// value is not replayed.
func (v *Var[T]) Changes() Stream[T] {
	return v.changes.Events()
}
