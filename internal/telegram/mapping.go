package telegram

import (
	"hash/fnv"
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/peerwatch/internal/peer"
)

// The functions in this file run on the registry loop; callers wrap them
// in Registry.Post.

func setFlag[M peer.FlagMask](flags *peer.Flags[M], flag M, on bool) {
	if on {
		flags.Add(flag)
	} else {
		flags.Remove(flag)
	}
}

func displayName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}

// applyChat resolves the registry peer a chat payload refers to and
// refreshes the identity fields every update carries.
func applyChat(reg *peer.Registry, chat *models.Chat) peer.Peer {
	switch chat.Type {
	case models.ChatTypePrivate:
		user := reg.User(peer.PeerID(chat.ID))
		user.SetName(displayName(chat.FirstName, chat.LastName))
		user.SetUsername(chat.Username)
		return user
	case models.ChatTypeGroup:
		group := reg.Chat(peer.PeerID(chat.ID))
		group.SetName(chat.Title)
		return group
	default:
		channel := reg.Channel(peer.PeerID(chat.ID))
		channel.SetName(chat.Title)
		channel.SetUsername(chat.Username)
		setFlag(channel.Flags(), peer.ChannelUsername, chat.Username != "")
		setFlag(channel.Flags(), peer.ChannelForum, chat.IsForum)
		if chat.Type == models.ChatTypeChannel {
			channel.Flags().Add(peer.ChannelBroadcast)
			channel.Flags().Remove(peer.ChannelMegagroup)
		} else {
			channel.Flags().Add(peer.ChannelMegagroup)
			channel.Flags().Remove(peer.ChannelBroadcast)
		}
		return channel
	}
}

// applyUser refreshes a user's identity from a fresh API payload.
func applyUser(reg *peer.Registry, from *models.User) *peer.User {
	user := reg.User(peer.PeerID(from.ID))
	user.SetName(displayName(from.FirstName, from.LastName))
	user.SetUsername(from.Username)
	setFlag(user.Flags(), peer.UserBot, from.IsBot)
	setFlag(user.Flags(), peer.UserPremium, from.IsPremium)
	return user
}

// applyTopicSignals folds forum topic service messages into topic state.
func applyTopicSignals(reg *peer.Registry, channel *peer.Channel, msg *models.Message) {
	if !msg.IsTopicMessage && msg.ForumTopicCreated == nil {
		return
	}
	rootID := peer.MsgID(msg.MessageThreadID)
	if rootID == 0 {
		return
	}

	switch {
	case msg.ForumTopicCreated != nil:
		topic := reg.Topic(channel.ID(), rootID)
		topic.SetTitle(msg.ForumTopicCreated.Name)
		if msg.From != nil && peer.PeerID(msg.From.ID) == reg.Self().ID() {
			topic.Flags().Add(peer.TopicMy)
		}
	case msg.ForumTopicClosed != nil:
		reg.Topic(channel.ID(), rootID).SetClosed(true)
	case msg.ForumTopicReopened != nil:
		reg.Topic(channel.ID(), rootID).SetClosed(false)
	case msg.ForumTopicEdited != nil:
		if msg.ForumTopicEdited.Name != "" {
			reg.Topic(channel.ID(), rootID).SetTitle(msg.ForumTopicEdited.Name)
		}
	}
}

// applyPhotoSignals folds chat photo service messages into the peer's
// userpic cell.
func applyPhotoSignals(target peer.Peer, msg *models.Message) {
	if msg.DeleteChatPhoto {
		target.SetUserpic(0, "")
		return
	}
	if len(msg.NewChatPhoto) == 0 {
		return
	}
	best := msg.NewChatPhoto[0]
	for _, size := range msg.NewChatPhoto[1:] {
		if size.Width*size.Height > best.Width*best.Height {
			best = size
		}
	}
	target.SetUserpic(photoRevision(best.FileUniqueID), best.FileID)
}

// memberUser returns the user a membership entry describes, or nil when
// the entry carries none.
func memberUser(m models.ChatMember) *models.User {
	switch m.Type {
	case models.ChatMemberTypeOwner:
		if m.Owner != nil {
			return m.Owner.User
		}
	case models.ChatMemberTypeAdministrator:
		if m.Administrator != nil {
			return &m.Administrator.User
		}
	case models.ChatMemberTypeMember:
		if m.Member != nil {
			return m.Member.User
		}
	case models.ChatMemberTypeRestricted:
		if m.Restricted != nil {
			return m.Restricted.User
		}
	}
	return nil
}

// isParticipating reports whether a membership entry still grants access
// to the chat's contents.
func isParticipating(m models.ChatMember) bool {
	switch m.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return true
	case models.ChatMemberTypeRestricted:
		return m.Restricted != nil && m.Restricted.IsMember
	default:
		return false
	}
}

// applyChatMembership folds our own membership entry into a basic
// group's flags and admin rights.
func applyChatMembership(group *peer.Chat, m models.ChatMember) {
	flags := group.Flags()
	switch m.Type {
	case models.ChatMemberTypeOwner:
		flags.Add(peer.ChatCreator)
		flags.Remove(peer.ChatLeft | peer.ChatForbidden)
	case models.ChatMemberTypeAdministrator:
		flags.Remove(peer.ChatCreator | peer.ChatLeft | peer.ChatForbidden)
		if m.Administrator != nil {
			group.AdminRights().Set(adminRightsOf(m.Administrator))
		}
	case models.ChatMemberTypeMember:
		flags.Remove(peer.ChatCreator | peer.ChatLeft | peer.ChatForbidden)
		group.AdminRights().Set(0)
	case models.ChatMemberTypeRestricted:
		flags.Remove(peer.ChatCreator | peer.ChatForbidden)
		group.AdminRights().Set(0)
		if m.Restricted != nil && m.Restricted.IsMember {
			flags.Remove(peer.ChatLeft)
		} else {
			flags.Add(peer.ChatLeft)
		}
	case models.ChatMemberTypeLeft:
		flags.Add(peer.ChatLeft)
		flags.Remove(peer.ChatCreator | peer.ChatForbidden)
		group.AdminRights().Set(0)
	case models.ChatMemberTypeBanned:
		flags.Add(peer.ChatForbidden)
		flags.Remove(peer.ChatCreator | peer.ChatLeft)
		group.AdminRights().Set(0)
	}
}

// applyChannelMembership folds our own membership entry into a channel
// or supergroup's flags, admin rights and restrictions.
func applyChannelMembership(channel *peer.Channel, m models.ChatMember) {
	flags := channel.Flags()
	switch m.Type {
	case models.ChatMemberTypeOwner:
		flags.Add(peer.ChannelCreator)
		flags.Remove(peer.ChannelLeft | peer.ChannelForbidden)
		channel.Restrictions().Set(0)
	case models.ChatMemberTypeAdministrator:
		flags.Remove(peer.ChannelCreator | peer.ChannelLeft | peer.ChannelForbidden)
		channel.Restrictions().Set(0)
		if m.Administrator != nil {
			channel.AdminRights().Set(adminRightsOf(m.Administrator))
		}
	case models.ChatMemberTypeMember:
		flags.Remove(peer.ChannelCreator | peer.ChannelLeft | peer.ChannelForbidden)
		channel.AdminRights().Set(0)
		channel.Restrictions().Set(0)
	case models.ChatMemberTypeRestricted:
		flags.Remove(peer.ChannelCreator | peer.ChannelForbidden)
		channel.AdminRights().Set(0)
		if m.Restricted != nil {
			channel.Restrictions().Set(restrictionsOf(m.Restricted))
			if m.Restricted.IsMember {
				flags.Remove(peer.ChannelLeft)
			} else {
				flags.Add(peer.ChannelLeft)
			}
		}
	case models.ChatMemberTypeLeft:
		flags.Add(peer.ChannelLeft)
		flags.Remove(peer.ChannelCreator | peer.ChannelForbidden)
		channel.AdminRights().Set(0)
		channel.Restrictions().Set(0)
	case models.ChatMemberTypeBanned:
		flags.Add(peer.ChannelForbidden)
		flags.Remove(peer.ChannelCreator | peer.ChannelLeft)
		channel.AdminRights().Set(0)
		channel.Restrictions().Set(0)
	}
}

// adminRightsOf translates an administrator entry's capability booleans
// into the rights mask.
func adminRightsOf(a *models.ChatMemberAdministrator) peer.AdminRights {
	var rights peer.AdminRights
	grant := func(on bool, right peer.AdminRights) {
		if on {
			rights |= right
		}
	}
	grant(a.CanChangeInfo, peer.AdminChangeInfo)
	grant(a.CanPostMessages, peer.AdminPostMessages)
	grant(a.CanEditMessages, peer.AdminEditMessages)
	grant(a.CanDeleteMessages, peer.AdminDeleteMessages)
	grant(a.CanRestrictMembers, peer.AdminBanUsers)
	grant(a.CanInviteUsers, peer.AdminInviteUsers)
	grant(a.CanPinMessages, peer.AdminPinMessages)
	grant(a.CanPromoteMembers, peer.AdminAddAdmins)
	grant(a.IsAnonymous, peer.AdminAnonymous)
	grant(a.CanManageVideoChats, peer.AdminManageCall)
	grant(a.CanManageTopics, peer.AdminManageTopics)
	grant(a.CanPostStories, peer.AdminPostStories)
	grant(a.CanEditStories, peer.AdminEditStories)
	grant(a.CanDeleteStories, peer.AdminDeleteStories)
	return rights
}

// restrictionsOf translates a restricted entry's permission booleans into
// the restriction mask. The API states what the member may do; the mask
// states what they may not.
func restrictionsOf(r *models.ChatMemberRestricted) peer.Restrictions {
	var restricted peer.Restrictions
	forbid := func(allowed bool, restriction peer.Restrictions) {
		if !allowed {
			restricted |= restriction
		}
	}
	forbid(r.CanSendMessages, peer.RestrictSendText)
	forbid(r.CanSendAudios, peer.RestrictSendMusic)
	forbid(r.CanSendDocuments, peer.RestrictSendFiles)
	forbid(r.CanSendPhotos, peer.RestrictSendPhotos)
	forbid(r.CanSendVideos, peer.RestrictSendVideos)
	forbid(r.CanSendVideoNotes, peer.RestrictSendVideoMessages)
	forbid(r.CanSendVoiceNotes, peer.RestrictSendVoiceMessages)
	forbid(r.CanSendPolls, peer.RestrictSendPolls)
	forbid(r.CanSendOtherMessages, peer.RestrictSendStickers|peer.RestrictSendGifs|peer.RestrictSendInline)
	forbid(r.CanAddWebPagePreviews, peer.RestrictEmbedLinks)
	forbid(r.CanChangeInfo, peer.RestrictChangeInfo)
	forbid(r.CanInviteUsers, peer.RestrictInviteUsers)
	forbid(r.CanPinMessages, peer.RestrictPinMessages)
	forbid(r.CanManageTopics, peer.RestrictCreateTopics)
	return restricted
}

// defaultRestrictionsOf translates a chat's default permissions into the
// restriction mask applied to plain members.
func defaultRestrictionsOf(p *models.ChatPermissions) peer.Restrictions {
	var restricted peer.Restrictions
	forbid := func(allowed bool, restriction peer.Restrictions) {
		if !allowed {
			restricted |= restriction
		}
	}
	forbid(p.CanSendMessages, peer.RestrictSendText)
	forbid(p.CanSendAudios, peer.RestrictSendMusic)
	forbid(p.CanSendDocuments, peer.RestrictSendFiles)
	forbid(p.CanSendPhotos, peer.RestrictSendPhotos)
	forbid(p.CanSendVideos, peer.RestrictSendVideos)
	forbid(p.CanSendVideoNotes, peer.RestrictSendVideoMessages)
	forbid(p.CanSendVoiceNotes, peer.RestrictSendVoiceMessages)
	forbid(p.CanSendPolls, peer.RestrictSendPolls)
	forbid(p.CanSendOtherMessages, peer.RestrictSendStickers|peer.RestrictSendGifs|peer.RestrictSendInline)
	forbid(p.CanAddWebPagePreviews, peer.RestrictEmbedLinks)
	forbid(p.CanChangeInfo, peer.RestrictChangeInfo)
	forbid(p.CanInviteUsers, peer.RestrictInviteUsers)
	forbid(p.CanPinMessages, peer.RestrictPinMessages)
	forbid(p.CanManageTopics, peer.RestrictCreateTopics)
	return restricted
}

// reactionsOf translates the available_reactions field into a policy.
// The API omits the field entirely when all reactions are allowed; an
// empty list means reactions are disabled.
func reactionsOf(available []models.ReactionType) peer.AllowedReactions {
	if available == nil {
		return peer.AllowedReactions{Type: peer.ReactionsAll}
	}
	allowed := peer.AllowedReactions{Type: peer.ReactionsSome}
	for _, r := range available {
		switch {
		case r.ReactionTypeEmoji != nil:
			allowed.Some = append(allowed.Some, peer.ReactionID{Emoji: r.ReactionTypeEmoji.Emoji})
		case r.ReactionTypeCustomEmoji != nil:
			id, err := strconv.ParseInt(r.ReactionTypeCustomEmoji.CustomEmojiID, 10, 64)
			if err != nil {
				continue
			}
			allowed.Some = append(allowed.Some, peer.ReactionID{DocumentID: id})
		}
	}
	return allowed
}

// photoRevision derives a stable non-zero revision number from a file's
// unique ID, so the userpic cell can tell photo changes apart without
// the original photo ID the Bot API never exposes.
func photoRevision(fileUniqueID string) uint64 {
	if fileUniqueID == "" {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(fileUniqueID))
	rev := h.Sum64()
	if rev == 0 {
		rev = 1
	}
	return rev
}

// applyChatInfo folds a full chat snapshot from GetChat into the peer's
// cells. This is the only path that carries default permissions and the
// allowed reaction set.
func applyChatInfo(reg *peer.Registry, info *models.ChatFullInfo) {
	switch info.Type {
	case models.ChatTypePrivate:
		user := reg.User(peer.PeerID(info.ID))
		user.SetName(displayName(info.FirstName, info.LastName))
		user.SetUsername(info.Username)
		setFlag(user.Flags(), peer.UserVoiceMessagesForbidden, info.HasRestrictedVoiceAndVideoMessages)
		applyInfoPhoto(user, info.Photo)
	case models.ChatTypeGroup:
		group := reg.Chat(peer.PeerID(info.ID))
		group.SetName(info.Title)
		if info.Permissions != nil {
			group.DefaultRestrictions().Set(defaultRestrictionsOf(info.Permissions))
		}
		group.SetAllowedReactions(reactionsOf(info.AvailableReactions))
		applyInfoPhoto(group, info.Photo)
	default:
		channel := reg.Channel(peer.PeerID(info.ID))
		channel.SetName(info.Title)
		channel.SetUsername(info.Username)
		setFlag(channel.Flags(), peer.ChannelUsername, info.Username != "")
		setFlag(channel.Flags(), peer.ChannelForum, info.IsForum)
		setFlag(channel.Flags(), peer.ChannelJoinToWrite, info.JoinToSendMessages)
		setFlag(channel.Flags(), peer.ChannelHasLink, info.LinkedChatID != 0)
		setFlag(channel.Flags(), peer.ChannelLocation, info.Location != nil)
		setFlag(channel.Flags(), peer.ChannelNoForwards, info.HasProtectedContent)
		if info.Type == models.ChatTypeChannel {
			channel.Flags().Add(peer.ChannelBroadcast)
			channel.Flags().Remove(peer.ChannelMegagroup)
		} else {
			channel.Flags().Add(peer.ChannelMegagroup)
			channel.Flags().Remove(peer.ChannelBroadcast)
		}
		if info.Permissions != nil {
			channel.DefaultRestrictions().Set(defaultRestrictionsOf(info.Permissions))
		}
		channel.SetAllowedReactions(reactionsOf(info.AvailableReactions))
		applyInfoPhoto(channel, info.Photo)
	}

	if info.MaxReactionCount > 0 {
		reg.Config().Set("reactions_uniq_max", info.MaxReactionCount)
	}
}

func applyInfoPhoto(target peer.Peer, photo *models.ChatPhoto) {
	if photo == nil {
		target.SetUserpic(0, "")
		return
	}
	target.SetUserpic(photoRevision(photo.BigFileUniqueID), photo.BigFileID)
}
