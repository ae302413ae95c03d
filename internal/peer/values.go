package peer

import (
	"fmt"

	"github.com/edgard/peerwatch/internal/reactive"
)

// CanSendAnyOfValue answers "may we send any of the given message kinds
// to this addressee" as a live boolean stream. It recomputes whenever a
// flag, admin right or restriction it depends on changes, and emits its
// first value synchronously on subscription.
//
// forbidInForums makes forum supergroups answer false at the channel
// level, where a concrete topic must be asked instead.
//
// The addressee set is closed; an unhandled kind is a programming error
// and panics. Mirrored by CanSendAnyOf for snapshot callers.
func CanSendAnyOfValue(target Addressee, rights Restrictions, forbidInForums bool) reactive.Stream[bool] {
	switch p := target.(type) {
	case *User:
		if p.IsRepliesUser() {
			return reactive.Single(false)
		}
		if other := rights &^ (RestrictSendVoiceMessages | RestrictSendVideoMessages); other != 0 {
			return reactive.Map(
				SingleFlagValue(&p.flags, UserDeleted),
				func(deleted bool) bool { return !deleted },
			)
		}
		mask := UserDeleted | UserVoiceMessagesForbidden
		return reactive.Map(
			MaskedValue(&p.flags, mask),
			func(value UserFlags) bool { return value == 0 },
		)

	case *Chat:
		mask := ChatDeactivated | ChatForbidden | ChatLeft | ChatCreator
		return reactive.Combine3(
			MaskedValue(&p.flags, mask),
			p.adminRights.Value(),
			MaskedValue(&p.defaultRestrictions, rights),
			func(flags ChatFlags, admin FlagsChange[AdminRights], defaultBanned Restrictions) bool {
				amOut := ChatDeactivated | ChatForbidden | ChatLeft
				return flags&amOut == 0 &&
					(flags&ChatCreator != 0 ||
						admin.Value != 0 ||
						rights&^defaultBanned != 0)
			},
		)

	case *Channel:
		mask := ChannelLeft |
			ChannelForum |
			ChannelJoinToWrite |
			ChannelHasLink |
			ChannelForbidden |
			ChannelCreator |
			ChannelBroadcast
		return reactive.Combine4(
			MaskedValue(&p.flags, mask),
			SingleFlagValue(&p.adminRights, AdminPostMessages),
			MaskedValue(&p.restrictions, rights),
			MaskedValue(&p.defaultRestrictions, rights),
			func(flags ChannelFlags, postRight bool, banned, defaultBanned Restrictions) bool {
				notAmIn := ChannelLeft | ChannelForbidden
				forumRestriction := forbidInForums && flags&ChannelForum != 0
				allowed := flags&notAmIn == 0 ||
					(flags&ChannelHasLink != 0 && flags&ChannelJoinToWrite == 0)
				restricted := banned | defaultBanned
				return allowed &&
					!forumRestriction &&
					(postRight ||
						flags&ChannelCreator != 0 ||
						(flags&ChannelBroadcast == 0 && rights&^restricted != 0))
			},
		)

	case *ForumTopic:
		channel := p.channel
		mask := ChannelLeft |
			ChannelJoinToWrite |
			ChannelHasLink |
			ChannelForbidden |
			ChannelCreator
		// The topic's closed flag and our topic-management right enter
		// the combine only as recompute triggers; their current values
		// are read directly below.
		return reactive.Combine5(
			MaskedValue(&channel.flags, mask),
			MaskedValue(&channel.restrictions, rights),
			MaskedValue(&channel.defaultRestrictions, rights),
			SingleFlagValue(&channel.adminRights, AdminManageTopics),
			SingleFlagValue(&p.flags, TopicClosed),
			func(flags ChannelFlags, banned, defaultBanned Restrictions, _, _ bool) bool {
				notAmIn := ChannelLeft | ChannelForbidden
				allowed := flags&notAmIn == 0 ||
					(flags&ChannelHasLink != 0 && flags&ChannelJoinToWrite == 0)
				return allowed &&
					(flags&ChannelCreator != 0 ||
						(banned == 0 && defaultBanned == 0)) &&
					(!p.Closed() || p.CanToggleClosed())
			},
		)
	}
	panic(fmt.Sprintf("peer: unhandled addressee %T in CanSendAnyOfValue", target))
}

// CanSendAnyOf is the snapshot twin of CanSendAnyOfValue, evaluated
// against the current state. The two must stay in sync.
func CanSendAnyOf(target Addressee, rights Restrictions, forbidInForums bool) bool {
	switch p := target.(type) {
	case *User:
		if p.IsRepliesUser() {
			return false
		}
		if other := rights &^ (RestrictSendVoiceMessages | RestrictSendVideoMessages); other != 0 {
			return !p.IsDeleted()
		}
		return !p.flags.Has(UserDeleted | UserVoiceMessagesForbidden)

	case *Chat:
		return !p.flags.Has(ChatDeactivated|ChatForbidden|ChatLeft) &&
			(p.AmCreator() ||
				p.adminRights.Current() != 0 ||
				rights&^p.defaultRestrictions.Current() != 0)

	case *Channel:
		flags := p.flags.Current()
		forumRestriction := forbidInForums && flags&ChannelForum != 0
		allowed := flags&(ChannelLeft|ChannelForbidden) == 0 ||
			(flags&ChannelHasLink != 0 && flags&ChannelJoinToWrite == 0)
		restricted := p.restrictions.Current() | p.defaultRestrictions.Current()
		return allowed &&
			!forumRestriction &&
			(p.adminRights.Has(AdminPostMessages) ||
				flags&ChannelCreator != 0 ||
				(flags&ChannelBroadcast == 0 && rights&^restricted != 0))

	case *ForumTopic:
		channel := p.channel
		flags := channel.flags.Current()
		allowed := flags&(ChannelLeft|ChannelForbidden) == 0 ||
			(flags&ChannelHasLink != 0 && flags&ChannelJoinToWrite == 0)
		banned := channel.restrictions.Current() & rights
		defaultBanned := channel.defaultRestrictions.Current() & rights
		return allowed &&
			(flags&ChannelCreator != 0 || (banned == 0 && defaultBanned == 0)) &&
			(!p.Closed() || p.CanToggleClosed())
	}
	panic(fmt.Sprintf("peer: unhandled addressee %T in CanSendAnyOf", target))
}

// CanPinMessagesValue answers "may we pin messages here" as a live
// boolean stream. For creators of channels and supergroups the stream is
// a constant true, matching the snapshot the question was asked with.
// The addressee set is closed; an unhandled kind panics.
func CanPinMessagesValue(target Addressee) reactive.Stream[bool] {
	switch p := target.(type) {
	case *User:
		return reactive.Map(
			MaskedValue(&p.flags, UserCanPinMessages),
			func(value UserFlags) bool { return value != 0 },
		)

	case *Chat:
		mask := ChatDeactivated | ChatForbidden | ChatLeft | ChatCreator
		return reactive.Combine3(
			MaskedValue(&p.flags, mask),
			SingleFlagValue(&p.adminRights, AdminPinMessages),
			SingleFlagValue(&p.defaultRestrictions, RestrictPinMessages),
			func(flags ChatFlags, adminAllows, defaultBanned bool) bool {
				amOut := ChatDeactivated | ChatForbidden | ChatLeft
				return flags&amOut == 0 &&
					(flags&ChatCreator != 0 || adminAllows || !defaultBanned)
			},
		)

	case *Channel:
		if p.IsMegagroup() {
			if p.AmCreator() {
				return reactive.Single(true)
			}
			return reactive.Combine4(
				SingleFlagValue(&p.adminRights, AdminPinMessages),
				SingleFlagValue(&p.defaultRestrictions, RestrictPinMessages),
				MaskedValue(&p.flags, ChannelUsername|ChannelLocation),
				p.restrictions.Value(),
				func(adminAllows, defaultBanned bool, public ChannelFlags, banned FlagsChange[Restrictions]) bool {
					return adminAllows ||
						(public == 0 &&
							!defaultBanned &&
							banned.Value&RestrictPinMessages == 0)
				},
			)
		}
		if p.AmCreator() {
			return reactive.Single(true)
		}
		return SingleFlagValue(&p.adminRights, AdminEditMessages)

	case *ForumTopic:
		return CanPinMessagesValue(p.channel)
	}
	panic(fmt.Sprintf("peer: unhandled addressee %T in CanPinMessagesValue", target))
}

// CanPinMessages is the snapshot twin of CanPinMessagesValue.
func CanPinMessages(target Addressee) bool {
	switch p := target.(type) {
	case *User:
		return p.flags.Has(UserCanPinMessages)

	case *Chat:
		return !p.flags.Has(ChatDeactivated|ChatForbidden|ChatLeft) &&
			(p.AmCreator() ||
				p.adminRights.Has(AdminPinMessages) ||
				!p.defaultRestrictions.Has(RestrictPinMessages))

	case *Channel:
		if p.IsMegagroup() {
			return p.AmCreator() ||
				p.adminRights.Has(AdminPinMessages) ||
				(!p.flags.Has(ChannelUsername|ChannelLocation) &&
					!p.defaultRestrictions.Has(RestrictPinMessages) &&
					!p.restrictions.Has(RestrictPinMessages))
		}
		return p.AmCreator() || p.adminRights.Has(AdminEditMessages)

	case *ForumTopic:
		return CanPinMessages(p.channel)
	}
	panic(fmt.Sprintf("peer: unhandled addressee %T in CanPinMessages", target))
}

// CanManageGroupCallValue answers "may we manage the group call here".
// Only basic groups and channels host calls; every other addressee kind
// yields a constant false rather than a panic, because the question is
// routinely asked about arbitrary peers.
func CanManageGroupCallValue(target Addressee) reactive.Stream[bool] {
	switch p := target.(type) {
	case *Chat:
		if p.AmCreator() {
			return reactive.Single(true)
		}
		return SingleFlagValue(&p.adminRights, AdminManageCall)
	case *Channel:
		if p.AmCreator() {
			return reactive.Single(true)
		}
		return SingleFlagValue(&p.adminRights, AdminManageCall)
	}
	return reactive.Single(false)
}

// CanManageGroupCall is the snapshot twin of CanManageGroupCallValue.
func CanManageGroupCall(target Addressee) bool {
	switch p := target.(type) {
	case *Chat:
		return p.AmCreator() || p.adminRights.Has(AdminManageCall)
	case *Channel:
		return p.AmCreator() || p.adminRights.Has(AdminManageCall)
	}
	return false
}

// PeerPremiumValue streams whether the peer is a premium user. It emits
// on subscription and then only when the premium flag itself flips.
// Non-user peers are a constant false.
func PeerPremiumValue(p Peer) reactive.Stream[bool] {
	user, ok := p.(*User)
	if !ok {
		return reactive.Single(false)
	}
	return SingleFlagValue(&user.flags, UserPremium)
}

// AmPremiumValue streams whether the session's own account has premium.
// The registry's force-premium override turns it into a constant true.
func AmPremiumValue(r *Registry) reactive.Stream[bool] {
	if r.ForcePremium() {
		return reactive.Single(true)
	}
	return PeerPremiumValue(r.Self())
}

// ChannelHasActiveCallValue streams whether a group call with listeners
// is running in the channel.
func ChannelHasActiveCallValue(c *Channel) reactive.Stream[bool] {
	return SingleFlagValue(&c.flags, ChannelCallNotEmpty)
}
