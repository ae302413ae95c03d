package reactive

// The combiners below merge the latest values of several streams. A
// combined stream emits for the first time once every input has produced
// at least one value, and then exactly once per upstream emission, always
// applying the combine function to the latest value of every input. One
// upstream change therefore never produces more than one downstream
// recomputation.

// Combine2 merges the latest values of two streams through f.
func Combine2[A, B, R any](sa Stream[A], sb Stream[B], f func(A, B) R) Stream[R] {
	return New(func(next func(R), lt *Lifetime) {
		var (
			a   A
			b   B
			got [2]bool
		)
		emit := func() {
			if got[0] && got[1] {
				next(f(a, b))
			}
		}
		sa.Start(lt, func(v A) { a, got[0] = v, true; emit() })
		sb.Start(lt, func(v B) { b, got[1] = v, true; emit() })
	})
}

// Combine3 merges the latest values of three streams through f.
func Combine3[A, B, C, R any](sa Stream[A], sb Stream[B], sc Stream[C], f func(A, B, C) R) Stream[R] {
	return New(func(next func(R), lt *Lifetime) {
		var (
			a   A
			b   B
			c   C
			got [3]bool
		)
		emit := func() {
			if got[0] && got[1] && got[2] {
				next(f(a, b, c))
			}
		}
		sa.Start(lt, func(v A) { a, got[0] = v, true; emit() })
		sb.Start(lt, func(v B) { b, got[1] = v, true; emit() })
		sc.Start(lt, func(v C) { c, got[2] = v, true; emit() })
	})
}

// Combine4 merges the latest values of four streams through f.
func Combine4[A, B, C, D, R any](sa Stream[A], sb Stream[B], sc Stream[C], sd Stream[D], f func(A, B, C, D) R) Stream[R] {
	return New(func(next func(R), lt *Lifetime) {
		var (
			a   A
			b   B
			c   C
			d   D
			got [4]bool
		)
		emit := func() {
			if got[0] && got[1] && got[2] && got[3] {
				next(f(a, b, c, d))
			}
		}
		sa.Start(lt, func(v A) { a, got[0] = v, true; emit() })
		sb.Start(lt, func(v B) { b, got[1] = v, true; emit() })
		sc.Start(lt, func(v C) { c, got[2] = v, true; emit() })
		sd.Start(lt, func(v D) { d, got[3] = v, true; emit() })
	})
}

// Combine5 merges the latest values of five streams through f.
func Combine5[A, B, C, D, E, R any](sa Stream[A], sb Stream[B], sc Stream[C], sd Stream[D], se Stream[E], f func(A, B, C, D, E) R) Stream[R] {
	return New(func(next func(R), lt *Lifetime) {
		var (
			a   A
			b   B
			c   C
			d   D
			e   E
			got [5]bool
		)
		emit := func() {
			if got[0] && got[1] && got[2] && got[3] && got[4] {
				next(f(a, b, c, d, e))
			}
		}
		sa.Start(lt, func(v A) { a, got[0] = v, true; emit() })
		sb.Start(lt, func(v B) { b, got[1] = v, true; emit() })
		sc.Start(lt, func(v C) { c, got[2] = v, true; emit() })
		sd.Start(lt, func(v D) { d, got[3] = v, true; emit() })
		se.Start(lt, func(v E) { e, got[4] = v, true; emit() })
	})
}
