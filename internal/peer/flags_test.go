package peer_test

import (
	"testing"

	"github.com/edgard/peerwatch/internal/peer"
	"github.com/edgard/peerwatch/internal/reactive"
)

func TestFlagsValueReportsDiffs(t *testing.T) {
	t.Parallel()

	var flags peer.Flags[peer.UserFlags]
	flags.Add(peer.UserBot)

	lt := newLifetime(t)
	var seen []peer.FlagsChange[peer.UserFlags]
	flags.Value().Start(lt, func(c peer.FlagsChange[peer.UserFlags]) {
		seen = append(seen, c)
	})

	if len(seen) != 1 {
		t.Fatalf("expected the current value on subscription, actual %d emissions", len(seen))
	}
	if seen[0].Value != peer.UserBot {
		t.Errorf("initial value: expected %b, actual %b", peer.UserBot, seen[0].Value)
	}
	if seen[0].Diff != ^peer.UserFlags(0) {
		t.Errorf("initial diff should mark every bit, actual %b", seen[0].Diff)
	}

	flags.Add(peer.UserPremium)
	if len(seen) != 2 {
		t.Fatalf("expected an emission for the added bit, actual %d emissions", len(seen))
	}
	if seen[1].Value != peer.UserBot|peer.UserPremium {
		t.Errorf("value after add: expected %b, actual %b", peer.UserBot|peer.UserPremium, seen[1].Value)
	}
	if seen[1].Diff != peer.UserPremium {
		t.Errorf("diff after add: expected %b, actual %b", peer.UserPremium, seen[1].Diff)
	}

	// Writing the same mask again must stay silent.
	flags.Add(peer.UserPremium)
	flags.Set(peer.UserBot | peer.UserPremium)
	if len(seen) != 2 {
		t.Errorf("no-op writes produced %d extra emissions", len(seen)-2)
	}

	flags.Remove(peer.UserBot)
	if len(seen) != 3 || seen[2].Value != peer.UserPremium || seen[2].Diff != peer.UserBot {
		t.Errorf("remove emission wrong: %+v", seen[len(seen)-1])
	}
}

func TestMaskedValueIgnoresOtherBits(t *testing.T) {
	t.Parallel()

	var flags peer.Flags[peer.ChannelFlags]

	lt := newLifetime(t)
	var seen []peer.ChannelFlags
	peer.MaskedValue(&flags, peer.ChannelLeft|peer.ChannelForbidden).Start(lt, func(v peer.ChannelFlags) {
		seen = append(seen, v)
	})

	if len(seen) != 1 || seen[0] != 0 {
		t.Fatalf("expected one zero emission on subscription, actual %v", seen)
	}

	// Bits outside the mask never wake the subscriber.
	flags.Add(peer.ChannelVerified)
	flags.Add(peer.ChannelMegagroup)
	if len(seen) != 1 {
		t.Fatalf("unmasked changes produced %d extra emissions", len(seen)-1)
	}

	flags.Add(peer.ChannelLeft)
	if len(seen) != 2 || seen[1] != peer.ChannelLeft {
		t.Fatalf("masked change missing or wrong: %v", seen)
	}

	// The emitted value is masked, even though other bits are set too.
	flags.Add(peer.ChannelForbidden)
	if seen[len(seen)-1] != peer.ChannelLeft|peer.ChannelForbidden {
		t.Errorf("masked value: expected %b, actual %b",
			peer.ChannelLeft|peer.ChannelForbidden, seen[len(seen)-1])
	}
}

func TestSingleFlagValue(t *testing.T) {
	t.Parallel()

	var flags peer.Flags[peer.AdminRights]

	lt := newLifetime(t)
	var seen []bool
	peer.SingleFlagValue(&flags, peer.AdminPinMessages).Start(lt, func(v bool) {
		seen = append(seen, v)
	})

	flags.Add(peer.AdminBanUsers) // different bit, no emission
	flags.Add(peer.AdminPinMessages)
	flags.Remove(peer.AdminPinMessages)

	expected := []bool{false, true, false}
	if len(seen) != len(expected) {
		t.Fatalf("expected emissions %v, actual %v", expected, seen)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("emission[%d]: expected %v, actual %v", i, expected[i], seen[i])
		}
	}
}

func TestSubscriptionStopsWithLifetime(t *testing.T) {
	t.Parallel()

	var flags peer.Flags[peer.UserFlags]

	lt := reactive.NewLifetime()
	count := 0
	flags.Value().Start(lt, func(peer.FlagsChange[peer.UserFlags]) { count++ })

	flags.Add(peer.UserBot)
	lt.Destroy()
	flags.Add(peer.UserPremium)

	if count != 2 {
		t.Errorf("expected 2 emissions before destroy, actual %d", count)
	}
}
