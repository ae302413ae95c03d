package peer

// AdminRights is the set of administrator permissions we hold in a group
// or channel. The zero value means no rights at all.
type AdminRights uint32

const (
	AdminChangeInfo AdminRights = 1 << iota
	AdminPostMessages
	AdminEditMessages
	AdminDeleteMessages
	AdminBanUsers
	AdminInviteUsers
	AdminPinMessages
	AdminAddAdmins
	AdminAnonymous
	AdminManageCall
	AdminManageTopics
	AdminPostStories
	AdminEditStories
	AdminDeleteStories
)

// Restrictions is the set of actions banned for us in a group or channel,
// or banned by default for every ordinary member. A set bit means the
// action is forbidden.
type Restrictions uint32

const (
	RestrictSendText Restrictions = 1 << iota
	RestrictSendPhotos
	RestrictSendVideos
	RestrictSendVideoMessages
	RestrictSendMusic
	RestrictSendVoiceMessages
	RestrictSendFiles
	RestrictSendStickers
	RestrictSendGifs
	RestrictSendPolls
	RestrictSendInline
	RestrictEmbedLinks
	RestrictChangeInfo
	RestrictInviteUsers
	RestrictPinMessages
	RestrictCreateTopics
)

// RestrictAnySend covers every kind of outgoing message. Asking whether
// any of these is allowed answers "can we write here at all".
const RestrictAnySend = RestrictSendText |
	RestrictSendPhotos |
	RestrictSendVideos |
	RestrictSendVideoMessages |
	RestrictSendMusic |
	RestrictSendVoiceMessages |
	RestrictSendFiles |
	RestrictSendStickers |
	RestrictSendGifs |
	RestrictSendPolls |
	RestrictSendInline |
	RestrictEmbedLinks

// RestrictSendMedia covers the media subset of the send restrictions.
const RestrictSendMedia = RestrictSendPhotos |
	RestrictSendVideos |
	RestrictSendVideoMessages |
	RestrictSendMusic |
	RestrictSendVoiceMessages |
	RestrictSendFiles |
	RestrictSendStickers |
	RestrictSendGifs
