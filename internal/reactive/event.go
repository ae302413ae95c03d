package reactive

import "slices"

// Event multicasts fired values to every active subscriber. The zero
// value is ready to use, so it can be embedded directly into model types.
type Event[T any] struct {
	handlers map[int]func(T)
	nextID   int
}

// Fire delivers v to all current subscribers in subscription order.
// Handlers may subscribe or unsubscribe while the event is firing: the
// delivery list is snapshotted first, handlers removed mid-fire are
// skipped, and handlers added mid-fire only see later fires.
func (e *Event[T]) Fire(v T) {
	if len(e.handlers) == 0 {
		return
	}
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if handler, ok := e.handlers[id]; ok {
			handler(v)
		}
	}
}

// Events returns the stream of values fired after subscription. Nothing
// is replayed; subscribers only see future fires.
func (e *Event[T]) Events() Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		if e.handlers == nil {
			e.handlers = make(map[int]func(T))
		}
		id := e.nextID
		e.nextID++
		e.handlers[id] = next
		lt.OnDestroy(func() {
			delete(e.handlers, id)
		})
	})
}

// EventsStartingWith behaves like Events but emits first() synchronously
// at subscription time before any fired values.
func (e *Event[T]) EventsStartingWith(first func() T) Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		next(first())
		e.Events().Start(lt, next)
	})
}

// HasSubscribers reports whether anyone is currently listening.
func (e *Event[T]) HasSubscribers() bool {
	return len(e.handlers) > 0
}
