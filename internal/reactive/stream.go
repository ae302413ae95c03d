package reactive

// Stream produces values of type T into a consumer callback until the
// subscription's lifetime is destroyed. Streams are cheap descriptions;
// no work happens until Start is called.
type Stream[T any] struct {
	start func(next func(T), lt *Lifetime)
}

// New builds a stream from a start function. The start function receives
// the consumer callback and the subscription lifetime; it must arrange for
// any resources it takes to be released through lt.OnDestroy.
func New[T any](start func(next func(T), lt *Lifetime)) Stream[T] {
	return Stream[T]{start: start}
}

// Start subscribes next to the stream for as long as lt stays alive.
// Emissions are dropped once lt is destroyed, so producers holding stale
// callbacks cannot resurrect a finished subscriber.
func (s Stream[T]) Start(lt *Lifetime, next func(T)) {
	if s.start == nil || !lt.Alive() {
		return
	}
	s.start(func(v T) {
		if lt.Alive() {
			next(v)
		}
	}, lt)
}

// Single returns a stream that emits v once, immediately on Start.
func Single[T any](v T) Stream[T] {
	return New(func(next func(T), _ *Lifetime) {
		next(v)
	})
}

// Never returns a stream that emits nothing.
func Never[T any]() Stream[T] {
	return New(func(func(T), *Lifetime) {})
}

// Map transforms every value of s through f.
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return New(func(next func(U), lt *Lifetime) {
		s.Start(lt, func(v T) {
			next(f(v))
		})
	})
}

// Filter forwards only the values of s for which keep returns true.
func Filter[T any](s Stream[T], keep func(T) bool) Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		s.Start(lt, func(v T) {
			if keep(v) {
				next(v)
			}
		})
	})
}

// DistinctUntilChanged drops values equal to the previously emitted one.
// The first value always passes through.
func DistinctUntilChanged[T comparable](s Stream[T]) Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		var last T
		seen := false
		s.Start(lt, func(v T) {
			if seen && v == last {
				return
			}
			last, seen = v, true
			next(v)
		})
	})
}

// StartWith prepends v before the values of s.
func StartWith[T any](s Stream[T], v T) Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		next(v)
		s.Start(lt, next)
	})
}

// Take passes through at most n values, then detaches from the source.
func Take[T any](s Stream[T], n int) Stream[T] {
	return New(func(next func(T), lt *Lifetime) {
		if n <= 0 {
			return
		}
		sub := lt.Child()
		left := n
		s.Start(sub, func(v T) {
			left--
			next(v)
			if left == 0 {
				sub.Destroy()
			}
		})
	})
}
