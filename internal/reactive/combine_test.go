package reactive_test

import (
	"testing"

	"github.com/edgard/peerwatch/internal/reactive"
)

func TestCombine2WaitsForAllInputs(t *testing.T) {
	t.Parallel()

	var left, right reactive.Event[int]
	lt := reactive.NewLifetime()
	defer lt.Destroy()

	var seen []int
	reactive.Combine2(left.Events(), right.Events(), func(a, b int) int {
		return a + b
	}).Start(lt, func(value int) {
		seen = append(seen, value)
	})

	left.Fire(1)
	if len(seen) != 0 {
		t.Fatalf("combined stream emitted before all inputs produced a value: %v", seen)
	}
	right.Fire(10)
	if len(seen) != 1 || seen[0] != 11 {
		t.Fatalf("expected [11], actual %v", seen)
	}
}

func TestCombineEmitsOncePerUpstreamChange(t *testing.T) {
	t.Parallel()

	a := reactive.NewVar(1)
	b := reactive.NewVar(2)
	c := reactive.NewVar(3)
	lt := reactive.NewLifetime()
	defer lt.Destroy()

	var seen []int
	reactive.Combine3(a.Value(), b.Value(), c.Value(), func(x, y, z int) int {
		return x + y + z
	}).Start(lt, func(value int) {
		seen = append(seen, value)
	})

	// All three inputs replay immediately, so exactly one initial emission.
	if len(seen) != 1 || seen[0] != 6 {
		t.Fatalf("expected single initial emission [6], actual %v", seen)
	}

	// Each upstream change recomputes exactly once with the latest values.
	a.Set(10)
	c.Set(30)

	expected := []int{6, 15, 42}
	if len(seen) != len(expected) {
		t.Fatalf("expected %v, actual %v", expected, seen)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("emission[%d]: expected %d, actual %d", i, expected[i], seen[i])
		}
	}
}

func TestCombine5UsesLatestOfEveryInput(t *testing.T) {
	t.Parallel()

	a := reactive.NewVar("a")
	b := reactive.NewVar("b")
	c := reactive.NewVar("c")
	d := reactive.NewVar("d")
	e := reactive.NewVar("e")
	lt := reactive.NewLifetime()
	defer lt.Destroy()

	var last string
	count := 0
	reactive.Combine5(a.Value(), b.Value(), c.Value(), d.Value(), e.Value(),
		func(va, vb, vc, vd, ve string) string {
			return va + vb + vc + vd + ve
		}).Start(lt, func(value string) {
		last = value
		count++
	})

	if count != 1 || last != "abcde" {
		t.Fatalf("expected initial abcde, actual %q (count %d)", last, count)
	}

	d.Set("D")
	if count != 2 || last != "abcDe" {
		t.Errorf("after one change: expected abcDe with 2 emissions, actual %q (count %d)", last, count)
	}
}

func TestCombineStopsWithLifetime(t *testing.T) {
	t.Parallel()

	a := reactive.NewVar(1)
	b := reactive.NewVar(2)
	lt := reactive.NewLifetime()

	count := 0
	reactive.Combine2(a.Value(), b.Value(), func(x, y int) int {
		return x * y
	}).Start(lt, func(int) {
		count++
	})

	lt.Destroy()
	a.Set(5)
	b.Set(6)

	if count != 1 {
		t.Errorf("expected only the initial emission, actual %d", count)
	}
}
