// Package peer models Telegram peers (users, basic groups, channels and
// forum topics) as reactive state: bitmask cells for flags, rights and
// restrictions, plus derived streams answering questions like "can we
// still write here" or "what does this user's presence line say".
//
// All state in this package is confined to the owning Registry's loop
// goroutine. Other goroutines interact with it through Registry.Post and
// Registry.Sync.
package peer

import "github.com/edgard/peerwatch/internal/reactive"

// PeerID identifies a peer. IDs use the Bot API convention: positive for
// users, negative for groups and channels.
type PeerID int64

// MsgID identifies a message inside one peer, and doubles as the root
// message ID of a forum topic.
type MsgID int64

// Well-known service accounts, recognized by ID.
const (
	// NotificationsUserID is the official "Telegram" service
	// notifications account.
	NotificationsUserID PeerID = 777000
	// RepliesUserID is the pseudo-user that hosts comment replies. It
	// never accepts direct messages.
	RepliesUserID PeerID = 1271266957
	// VerifyCodesUserID delivers login codes.
	VerifyCodesUserID PeerID = 489000
)

// UserFlags describe a user account.
type UserFlags uint32

const (
	UserDeleted UserFlags = 1 << iota
	UserBot
	UserPremium
	UserSupport
	UserVerified
	UserScam
	UserFake
	UserContact
	UserMutualContact
	UserVoiceMessagesForbidden
	UserCanPinMessages
	UserSelf
)

// ChatFlags describe a basic (legacy) group.
type ChatFlags uint32

const (
	ChatCreator ChatFlags = 1 << iota
	ChatLeft
	ChatDeactivated
	ChatForbidden
	ChatCallActive
	ChatCallNotEmpty
	ChatNoForwards
)

// ChannelFlags describe a channel or supergroup.
type ChannelFlags uint32

const (
	ChannelCreator ChannelFlags = 1 << iota
	ChannelLeft
	ChannelForbidden
	ChannelBroadcast
	ChannelMegagroup
	ChannelForum
	ChannelVerified
	ChannelScam
	ChannelFake
	ChannelHasLink
	ChannelJoinToWrite
	ChannelUsername
	ChannelLocation
	ChannelSignatures
	ChannelCallActive
	ChannelCallNotEmpty
	ChannelNoForwards
)

// TopicFlags describe a forum topic.
type TopicFlags uint32

const (
	TopicClosed TopicFlags = 1 << iota
	TopicMy
	TopicCreating
	TopicGeneral
	TopicHidden
)

// Addressee is anything a permission question can be asked about: one of
// *User, *Chat, *Channel or *ForumTopic. The set is closed; evaluators
// dispatch exhaustively over it and panic on anything else.
type Addressee interface {
	addressee()
}

// Peer is an addressee that exists as a standalone conversation: a user,
// a basic group or a channel. Forum topics are not peers; they belong to
// their channel.
type Peer interface {
	Addressee
	ID() PeerID
	Name() string
	SetName(name string)
	Username() string
	SetUsername(username string)
	Registry() *Registry
	PhotoID() uint64
	SetUserpic(photoID uint64, fileID string)

	updatesEvent() *reactive.Event[UpdateFlag]
	userpicFile() string
}

// peerCommon carries the state every peer kind shares.
type peerCommon struct {
	id       PeerID
	registry *Registry
	name     string
	username string

	photoID     uint64
	photoFileID string

	updates reactive.Event[UpdateFlag]
}

func (p *peerCommon) addressee() {}

// ID returns the peer's identifier.
func (p *peerCommon) ID() PeerID { return p.id }

// Registry returns the owning registry.
func (p *peerCommon) Registry() *Registry { return p.registry }

// Name returns the display name.
func (p *peerCommon) Name() string { return p.name }

// Username returns the public username, or "" when there is none.
func (p *peerCommon) Username() string { return p.username }

// SetName updates the display name and notifies name subscribers.
func (p *peerCommon) SetName(name string) {
	if p.name == name {
		return
	}
	p.name = name
	p.updates.Fire(UpdateName)
}

// SetUsername updates the public username and notifies name subscribers.
func (p *peerCommon) SetUsername(username string) {
	if p.username == username {
		return
	}
	p.username = username
	p.updates.Fire(UpdateName)
}

// PhotoID returns the current avatar photo revision, zero when the peer
// has no photo.
func (p *peerCommon) PhotoID() uint64 { return p.photoID }

// SetUserpic records a new avatar photo revision together with the file
// reference the downloader needs, and notifies photo subscribers.
func (p *peerCommon) SetUserpic(photoID uint64, fileID string) {
	if p.photoID == photoID && p.photoFileID == fileID {
		return
	}
	p.photoID = photoID
	p.photoFileID = fileID
	p.updates.Fire(UpdatePhoto)
}

func (p *peerCommon) updatesEvent() *reactive.Event[UpdateFlag] { return &p.updates }

func (p *peerCommon) userpicFile() string { return p.photoFileID }

// User is a personal account or a bot.
type User struct {
	peerCommon
	flags      Flags[UserFlags]
	onlineTill reactive.Var[int64]
}

// Flags exposes the user's flag cell.
func (u *User) Flags() *Flags[UserFlags] { return &u.flags }

// IsBot reports whether the account is a bot.
func (u *User) IsBot() bool { return u.flags.Has(UserBot) }

// IsPremium reports whether the account has a premium subscription.
func (u *User) IsPremium() bool { return u.flags.Has(UserPremium) }

// IsSupport reports whether the account is a support agent.
func (u *User) IsSupport() bool { return u.flags.Has(UserSupport) }

// IsDeleted reports whether the account was deleted.
func (u *User) IsDeleted() bool { return u.flags.Has(UserDeleted) }

// IsSelf reports whether this is the session's own account.
func (u *User) IsSelf() bool { return u.flags.Has(UserSelf) }

// IsNotificationsUser reports whether this is the official service
// notifications account.
func (u *User) IsNotificationsUser() bool { return u.id == NotificationsUserID }

// IsRepliesUser reports whether this is the replies pseudo-user.
func (u *User) IsRepliesUser() bool { return u.id == RepliesUserID }

// IsServiceUser reports whether the account belongs to Telegram itself.
func (u *User) IsServiceUser() bool {
	return u.id == NotificationsUserID || u.id == VerifyCodesUserID
}

// OnlineTill returns the raw presence value: a positive unix timestamp
// ("online until"), a negative one ("was online at"), or one of the
// coarse sentinels 0/-1 (long ago), -2 (recently), -3 (within a week),
// -4 (within a month).
func (u *User) OnlineTill() int64 { return u.onlineTill.Get() }

// SetOnlineTill stores a new raw presence value and notifies status
// subscribers when it changed.
func (u *User) SetOnlineTill(till int64) {
	if u.onlineTill.Get() == till {
		return
	}
	u.onlineTill.Set(till)
	u.updates.Fire(UpdateOnlineStatus)
}

// OnlineTillValue streams the raw presence value, current one first.
func (u *User) OnlineTillValue() reactive.Stream[int64] {
	return u.onlineTill.Value()
}

// Chat is a basic (legacy) group.
type Chat struct {
	peerCommon
	flags               Flags[ChatFlags]
	adminRights         Flags[AdminRights]
	defaultRestrictions Flags[Restrictions]
	reactions           *AllowedReactions
}

// Flags exposes the group's flag cell.
func (c *Chat) Flags() *Flags[ChatFlags] { return &c.flags }

// AdminRights exposes our admin rights cell for this group.
func (c *Chat) AdminRights() *Flags[AdminRights] { return &c.adminRights }

// DefaultRestrictions exposes the cell with restrictions applied to every
// ordinary member of the group.
func (c *Chat) DefaultRestrictions() *Flags[Restrictions] { return &c.defaultRestrictions }

// AmCreator reports whether we created this group.
func (c *Chat) AmCreator() bool { return c.flags.Has(ChatCreator) }

// AmIn reports whether we are still a usable member of the group.
func (c *Chat) AmIn() bool {
	return !c.flags.Has(ChatDeactivated | ChatForbidden | ChatLeft)
}

// Channel is a broadcast channel or a supergroup.
type Channel struct {
	peerCommon
	flags               Flags[ChannelFlags]
	adminRights         Flags[AdminRights]
	restrictions        Flags[Restrictions]
	defaultRestrictions Flags[Restrictions]
	reactions           *AllowedReactions

	topics map[MsgID]*ForumTopic
}

// Flags exposes the channel's flag cell.
func (c *Channel) Flags() *Flags[ChannelFlags] { return &c.flags }

// AdminRights exposes our admin rights cell for this channel.
func (c *Channel) AdminRights() *Flags[AdminRights] { return &c.adminRights }

// Restrictions exposes the cell with restrictions applied to us
// personally in this channel.
func (c *Channel) Restrictions() *Flags[Restrictions] { return &c.restrictions }

// DefaultRestrictions exposes the cell with restrictions applied to every
// ordinary member of the channel.
func (c *Channel) DefaultRestrictions() *Flags[Restrictions] { return &c.defaultRestrictions }

// IsBroadcast reports whether this is a broadcast channel rather than a
// supergroup.
func (c *Channel) IsBroadcast() bool { return c.flags.Has(ChannelBroadcast) }

// IsMegagroup reports whether this is a supergroup.
func (c *Channel) IsMegagroup() bool { return c.flags.Has(ChannelMegagroup) }

// IsForum reports whether the supergroup has topics enabled.
func (c *Channel) IsForum() bool { return c.flags.Has(ChannelForum) }

// AmCreator reports whether we created this channel.
func (c *Channel) AmCreator() bool { return c.flags.Has(ChannelCreator) }

// AmIn reports whether we are a usable member of the channel.
func (c *Channel) AmIn() bool {
	return !c.flags.Has(ChannelLeft | ChannelForbidden)
}

// HasActiveCall reports whether a group call is running with somebody in
// it.
func (c *Channel) HasActiveCall() bool { return c.flags.Has(ChannelCallNotEmpty) }

// CanManageTopics reports whether we may create, close or reorder topics.
func (c *Channel) CanManageTopics() bool {
	return c.AmCreator() || c.adminRights.Has(AdminManageTopics)
}

// ForumTopic is one topic thread inside a forum supergroup. Topics are
// addressees (permission questions apply to them) but not peers.
type ForumTopic struct {
	channel *Channel
	rootID  MsgID
	title   string
	flags   Flags[TopicFlags]
}

func (t *ForumTopic) addressee() {}

// Channel returns the forum the topic belongs to.
func (t *ForumTopic) Channel() *Channel { return t.channel }

// RootID returns the topic's root message ID.
func (t *ForumTopic) RootID() MsgID { return t.rootID }

// Title returns the topic title.
func (t *ForumTopic) Title() string { return t.title }

// SetTitle updates the topic title.
func (t *ForumTopic) SetTitle(title string) { t.title = title }

// Flags exposes the topic's flag cell.
func (t *ForumTopic) Flags() *Flags[TopicFlags] { return &t.flags }

// Closed reports whether the topic is closed for new messages.
func (t *ForumTopic) Closed() bool { return t.flags.Has(TopicClosed) }

// SetClosed opens or closes the topic.
func (t *ForumTopic) SetClosed(closed bool) {
	if closed {
		t.flags.Add(TopicClosed)
	} else {
		t.flags.Remove(TopicClosed)
	}
}

// My reports whether we created the topic.
func (t *ForumTopic) My() bool { return t.flags.Has(TopicMy) }

// Creating reports whether the topic is still being created and has no
// server-side identity yet.
func (t *ForumTopic) Creating() bool { return t.flags.Has(TopicCreating) }

// CanToggleClosed reports whether we may close or reopen the topic.
func (t *ForumTopic) CanToggleClosed() bool {
	return !t.Creating() && (t.My() || t.channel.CanManageTopics())
}
