package peer

import "github.com/edgard/peerwatch/internal/reactive"

// FlagMask constrains the fixed-width unsigned types used as flag sets.
type FlagMask interface {
	~uint32 | ~uint64
}

// FlagsChange describes one mutation of a flag cell: the full mask after
// the change plus the bits that flipped. The synthetic change emitted to
// a new subscriber marks every bit as flipped so that any masked view of
// the cell produces its initial value.
type FlagsChange[M FlagMask] struct {
	Value M
	Diff  M
}

// Flags is a reactive bitmask cell. The zero value is an empty, usable
// cell. Like everything reactive it is confined to the registry loop.
type Flags[M FlagMask] struct {
	value   M
	changes reactive.Event[FlagsChange[M]]
}

// Current returns the present mask.
func (f *Flags[M]) Current() M {
	return f.value
}

// Has reports whether any bit of mask is set.
func (f *Flags[M]) Has(mask M) bool {
	return f.value&mask != 0
}

// Set replaces the whole mask and notifies subscribers with the bits that
// flipped. Storing an identical mask emits nothing.
func (f *Flags[M]) Set(value M) {
	diff := f.value ^ value
	if diff == 0 {
		return
	}
	f.value = value
	f.changes.Fire(FlagsChange[M]{Value: value, Diff: diff})
}

// Add sets the given bits.
func (f *Flags[M]) Add(mask M) {
	f.Set(f.value | mask)
}

// Remove clears the given bits.
func (f *Flags[M]) Remove(mask M) {
	f.Set(f.value &^ mask)
}

// Value emits the current mask immediately (with all bits marked as
// flipped) and then every subsequent change.
func (f *Flags[M]) Value() reactive.Stream[FlagsChange[M]] {
	return f.changes.EventsStartingWith(func() FlagsChange[M] {
		return FlagsChange[M]{Value: f.value, Diff: ^M(0)}
	})
}

// MaskedValue narrows a flag cell to the given bits: the stream emits the
// masked value once on subscription and afterwards only when one of the
// masked bits actually flips. Changes outside the mask never wake the
// subscriber.
func MaskedValue[M FlagMask](f *Flags[M], mask M) reactive.Stream[M] {
	interesting := reactive.Filter(f.Value(), func(change FlagsChange[M]) bool {
		return change.Diff&mask != 0
	})
	return reactive.Map(interesting, func(change FlagsChange[M]) M {
		return change.Value & mask
	})
}

// SingleFlagValue narrows a flag cell to one bit, as a boolean stream.
func SingleFlagValue[M FlagMask](f *Flags[M], flag M) reactive.Stream[bool] {
	return reactive.Map(MaskedValue(f, flag), func(value M) bool {
		return value != 0
	})
}
