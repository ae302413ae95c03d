package peer

import (
	"strings"
	"testing"
)

type unknownAddressee struct{}

func (unknownAddressee) addressee() {}

func expectEvaluatorPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected a panic for an unhandled addressee kind", name)
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, name) {
			t.Errorf("%s: panic should name the evaluator, actual %v", name, r)
		}
	}()
	fn()
}

func TestEvaluatorsPanicOnUnknownAddressee(t *testing.T) {
	t.Parallel()

	expectEvaluatorPanic(t, "CanSendAnyOfValue", func() {
		CanSendAnyOfValue(unknownAddressee{}, RestrictSendText, false)
	})
	expectEvaluatorPanic(t, "CanSendAnyOf", func() {
		CanSendAnyOf(unknownAddressee{}, RestrictSendText, false)
	})
	expectEvaluatorPanic(t, "CanPinMessagesValue", func() {
		CanPinMessagesValue(unknownAddressee{})
	})
	expectEvaluatorPanic(t, "CanPinMessages", func() {
		CanPinMessages(unknownAddressee{})
	})
}
