package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/peerwatch/internal/peer"
)

func newTestRegistry() *peer.Registry {
	return peer.NewRegistry(peer.Options{SelfID: 1})
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		first    string
		last     string
		expected string
	}{
		{name: "first only", first: "Alice", last: "", expected: "Alice"},
		{name: "first and last", first: "Alice", last: "Liddell", expected: "Alice Liddell"},
		{name: "empty", first: "", last: "", expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			actual := displayName(tc.first, tc.last)
			if actual != tc.expected {
				t.Errorf("expected: %q, actual: %q", tc.expected, actual)
			}
		})
	}
}

func TestAdminRightsOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		entry    models.ChatMemberAdministrator
		expected peer.AdminRights
	}{
		{name: "no rights", entry: models.ChatMemberAdministrator{}, expected: 0},
		{name: "change info", entry: models.ChatMemberAdministrator{CanChangeInfo: true}, expected: peer.AdminChangeInfo},
		{name: "post messages", entry: models.ChatMemberAdministrator{CanPostMessages: true}, expected: peer.AdminPostMessages},
		{name: "edit messages", entry: models.ChatMemberAdministrator{CanEditMessages: true}, expected: peer.AdminEditMessages},
		{name: "delete messages", entry: models.ChatMemberAdministrator{CanDeleteMessages: true}, expected: peer.AdminDeleteMessages},
		{name: "restrict members", entry: models.ChatMemberAdministrator{CanRestrictMembers: true}, expected: peer.AdminBanUsers},
		{name: "invite users", entry: models.ChatMemberAdministrator{CanInviteUsers: true}, expected: peer.AdminInviteUsers},
		{name: "pin messages", entry: models.ChatMemberAdministrator{CanPinMessages: true}, expected: peer.AdminPinMessages},
		{name: "promote members", entry: models.ChatMemberAdministrator{CanPromoteMembers: true}, expected: peer.AdminAddAdmins},
		{name: "anonymous", entry: models.ChatMemberAdministrator{IsAnonymous: true}, expected: peer.AdminAnonymous},
		{name: "manage video chats", entry: models.ChatMemberAdministrator{CanManageVideoChats: true}, expected: peer.AdminManageCall},
		{name: "manage topics", entry: models.ChatMemberAdministrator{CanManageTopics: true}, expected: peer.AdminManageTopics},
		{name: "post stories", entry: models.ChatMemberAdministrator{CanPostStories: true}, expected: peer.AdminPostStories},
		{name: "edit stories", entry: models.ChatMemberAdministrator{CanEditStories: true}, expected: peer.AdminEditStories},
		{name: "delete stories", entry: models.ChatMemberAdministrator{CanDeleteStories: true}, expected: peer.AdminDeleteStories},
		{
			name: "combined",
			entry: models.ChatMemberAdministrator{
				CanDeleteMessages:  true,
				CanRestrictMembers: true,
				CanPinMessages:     true,
			},
			expected: peer.AdminDeleteMessages | peer.AdminBanUsers | peer.AdminPinMessages,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			actual := adminRightsOf(&tc.entry)
			if actual != tc.expected {
				t.Errorf("expected: %v, actual: %v", tc.expected, actual)
			}
		})
	}
}

func allAllowedRestricted() models.ChatMemberRestricted {
	return models.ChatMemberRestricted{
		IsMember:              true,
		CanSendMessages:       true,
		CanSendAudios:         true,
		CanSendDocuments:      true,
		CanSendPhotos:         true,
		CanSendVideos:         true,
		CanSendVideoNotes:     true,
		CanSendVoiceNotes:     true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanChangeInfo:         true,
		CanInviteUsers:        true,
		CanPinMessages:        true,
		CanManageTopics:       true,
	}
}

func TestRestrictionsOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*models.ChatMemberRestricted)
		expected peer.Restrictions
	}{
		{name: "everything allowed", mutate: func(r *models.ChatMemberRestricted) {}, expected: 0},
		{
			name:     "text forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendMessages = false },
			expected: peer.RestrictSendText,
		},
		{
			name:     "audio forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendAudios = false },
			expected: peer.RestrictSendMusic,
		},
		{
			name:     "documents forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendDocuments = false },
			expected: peer.RestrictSendFiles,
		},
		{
			name:     "photos forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendPhotos = false },
			expected: peer.RestrictSendPhotos,
		},
		{
			name:     "videos forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendVideos = false },
			expected: peer.RestrictSendVideos,
		},
		{
			name:     "video notes forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendVideoNotes = false },
			expected: peer.RestrictSendVideoMessages,
		},
		{
			name:     "voice notes forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendVoiceNotes = false },
			expected: peer.RestrictSendVoiceMessages,
		},
		{
			name:     "polls forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendPolls = false },
			expected: peer.RestrictSendPolls,
		},
		{
			name:     "other messages forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanSendOtherMessages = false },
			expected: peer.RestrictSendStickers | peer.RestrictSendGifs | peer.RestrictSendInline,
		},
		{
			name:     "web previews forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanAddWebPagePreviews = false },
			expected: peer.RestrictEmbedLinks,
		},
		{
			name:     "change info forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanChangeInfo = false },
			expected: peer.RestrictChangeInfo,
		},
		{
			name:     "invites forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanInviteUsers = false },
			expected: peer.RestrictInviteUsers,
		},
		{
			name:     "pins forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanPinMessages = false },
			expected: peer.RestrictPinMessages,
		},
		{
			name:     "topics forbidden",
			mutate:   func(r *models.ChatMemberRestricted) { r.CanManageTopics = false },
			expected: peer.RestrictCreateTopics,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entry := allAllowedRestricted()
			tc.mutate(&entry)

			actual := restrictionsOf(&entry)
			if actual != tc.expected {
				t.Errorf("expected: %v, actual: %v", tc.expected, actual)
			}
		})
	}
}

func TestDefaultRestrictionsOf(t *testing.T) {
	t.Parallel()

	open := models.ChatPermissions{
		CanSendMessages:       true,
		CanSendAudios:         true,
		CanSendDocuments:      true,
		CanSendPhotos:         true,
		CanSendVideos:         true,
		CanSendVideoNotes:     true,
		CanSendVoiceNotes:     true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanChangeInfo:         true,
		CanInviteUsers:        true,
		CanPinMessages:        true,
		CanManageTopics:       true,
	}
	if actual := defaultRestrictionsOf(&open); actual != 0 {
		t.Errorf("expected no restrictions for open permissions, actual: %v", actual)
	}

	locked := models.ChatPermissions{}
	actual := defaultRestrictionsOf(&locked)
	for _, restriction := range []peer.Restrictions{
		peer.RestrictSendText,
		peer.RestrictSendMusic,
		peer.RestrictSendFiles,
		peer.RestrictSendPhotos,
		peer.RestrictSendVideos,
		peer.RestrictSendVideoMessages,
		peer.RestrictSendVoiceMessages,
		peer.RestrictSendPolls,
		peer.RestrictSendStickers,
		peer.RestrictSendGifs,
		peer.RestrictSendInline,
		peer.RestrictEmbedLinks,
		peer.RestrictChangeInfo,
		peer.RestrictInviteUsers,
		peer.RestrictPinMessages,
		peer.RestrictCreateTopics,
	} {
		if actual&restriction == 0 {
			t.Errorf("expected restriction %v for locked permissions", restriction)
		}
	}

	readOnly := open
	readOnly.CanSendMessages = false
	if actual := defaultRestrictionsOf(&readOnly); actual != peer.RestrictSendText {
		t.Errorf("expected: %v, actual: %v", peer.RestrictSendText, actual)
	}
}

func TestReactionsOf(t *testing.T) {
	t.Parallel()

	t.Run("absent field allows everything", func(t *testing.T) {
		t.Parallel()

		allowed := reactionsOf(nil)
		if allowed.Type != peer.ReactionsAll {
			t.Errorf("expected ReactionsAll, actual: %v", allowed.Type)
		}
	})

	t.Run("empty list disables reactions", func(t *testing.T) {
		t.Parallel()

		allowed := reactionsOf([]models.ReactionType{})
		if allowed.Type != peer.ReactionsSome {
			t.Errorf("expected ReactionsSome, actual: %v", allowed.Type)
		}
		if len(allowed.Some) != 0 {
			t.Errorf("expected empty reaction list, actual: %v", allowed.Some)
		}
	})

	t.Run("emoji and custom entries", func(t *testing.T) {
		t.Parallel()

		allowed := reactionsOf([]models.ReactionType{
			{ReactionTypeEmoji: &models.ReactionTypeEmoji{Emoji: "👍"}},
			{ReactionTypeCustomEmoji: &models.ReactionTypeCustomEmoji{CustomEmojiID: "5368324170671202286"}},
		})
		if allowed.Type != peer.ReactionsSome {
			t.Fatalf("expected ReactionsSome, actual: %v", allowed.Type)
		}
		if len(allowed.Some) != 2 {
			t.Fatalf("expected 2 reactions, actual: %d", len(allowed.Some))
		}
		if allowed.Some[0].Emoji != "👍" || allowed.Some[0].DocumentID != 0 {
			t.Errorf("unexpected emoji entry: %+v", allowed.Some[0])
		}
		if allowed.Some[1].DocumentID != 5368324170671202286 {
			t.Errorf("expected document ID 5368324170671202286, actual: %d", allowed.Some[1].DocumentID)
		}
	})

	t.Run("malformed custom ID is skipped", func(t *testing.T) {
		t.Parallel()

		allowed := reactionsOf([]models.ReactionType{
			{ReactionTypeCustomEmoji: &models.ReactionTypeCustomEmoji{CustomEmojiID: "not-a-number"}},
			{ReactionTypeEmoji: &models.ReactionTypeEmoji{Emoji: "🔥"}},
		})
		if len(allowed.Some) != 1 {
			t.Fatalf("expected 1 reaction, actual: %d", len(allowed.Some))
		}
		if allowed.Some[0].Emoji != "🔥" {
			t.Errorf("expected: %q, actual: %q", "🔥", allowed.Some[0].Emoji)
		}
	})
}

func TestPhotoRevision(t *testing.T) {
	t.Parallel()

	if actual := photoRevision(""); actual != 0 {
		t.Errorf("expected 0 for empty unique ID, actual: %d", actual)
	}
	if photoRevision("AQADAgAT0") == 0 {
		t.Error("expected non-zero revision for non-empty unique ID")
	}
	if photoRevision("AQADAgAT0") != photoRevision("AQADAgAT0") {
		t.Error("expected identical revisions for identical unique IDs")
	}
	if photoRevision("AQADAgAT0") == photoRevision("AQADAgAT1") {
		t.Error("expected different revisions for different unique IDs")
	}
}

func TestMemberUser(t *testing.T) {
	t.Parallel()

	alice := &models.User{ID: 100, FirstName: "Alice"}

	tests := []struct {
		name     string
		member   models.ChatMember
		expected *models.User
	}{
		{
			name:     "owner",
			member:   models.ChatMember{Type: models.ChatMemberTypeOwner, Owner: &models.ChatMemberOwner{User: alice}},
			expected: alice,
		},
		{
			name:     "administrator",
			member:   models.ChatMember{Type: models.ChatMemberTypeAdministrator, Administrator: &models.ChatMemberAdministrator{User: *alice}},
			expected: alice,
		},
		{
			name:     "member",
			member:   models.ChatMember{Type: models.ChatMemberTypeMember, Member: &models.ChatMemberMember{User: alice}},
			expected: alice,
		},
		{
			name:     "restricted",
			member:   models.ChatMember{Type: models.ChatMemberTypeRestricted, Restricted: &models.ChatMemberRestricted{User: alice}},
			expected: alice,
		},
		{
			name:     "left",
			member:   models.ChatMember{Type: models.ChatMemberTypeLeft},
			expected: nil,
		},
		{
			name:     "banned",
			member:   models.ChatMember{Type: models.ChatMemberTypeBanned},
			expected: nil,
		},
		{
			name:     "missing payload",
			member:   models.ChatMember{Type: models.ChatMemberTypeMember},
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			actual := memberUser(tc.member)
			if actual != tc.expected {
				t.Errorf("expected: %v, actual: %v", tc.expected, actual)
			}
		})
	}
}

func TestIsParticipating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		member   models.ChatMember
		expected bool
	}{
		{name: "owner", member: models.ChatMember{Type: models.ChatMemberTypeOwner}, expected: true},
		{name: "administrator", member: models.ChatMember{Type: models.ChatMemberTypeAdministrator}, expected: true},
		{name: "member", member: models.ChatMember{Type: models.ChatMemberTypeMember}, expected: true},
		{
			name:     "restricted member",
			member:   models.ChatMember{Type: models.ChatMemberTypeRestricted, Restricted: &models.ChatMemberRestricted{IsMember: true}},
			expected: true,
		},
		{
			name:     "restricted non-member",
			member:   models.ChatMember{Type: models.ChatMemberTypeRestricted, Restricted: &models.ChatMemberRestricted{IsMember: false}},
			expected: false,
		},
		{name: "left", member: models.ChatMember{Type: models.ChatMemberTypeLeft}, expected: false},
		{name: "banned", member: models.ChatMember{Type: models.ChatMemberTypeBanned}, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			actual := isParticipating(tc.member)
			if actual != tc.expected {
				t.Errorf("expected: %v, actual: %v", tc.expected, actual)
			}
		})
	}
}

func TestApplyChatPrivate(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	target := applyChat(reg, &models.Chat{
		ID:        100,
		Type:      models.ChatTypePrivate,
		FirstName: "Alice",
		LastName:  "Liddell",
		Username:  "alice",
	})

	user, ok := target.(*peer.User)
	if !ok {
		t.Fatalf("expected *peer.User, actual: %T", target)
	}
	if user.ID() != 100 {
		t.Errorf("expected ID 100, actual: %d", user.ID())
	}
	if user.Name() != "Alice Liddell" {
		t.Errorf("expected: %q, actual: %q", "Alice Liddell", user.Name())
	}
	if user.Username() != "alice" {
		t.Errorf("expected: %q, actual: %q", "alice", user.Username())
	}
}

func TestApplyChatGroup(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	target := applyChat(reg, &models.Chat{ID: -200, Type: models.ChatTypeGroup, Title: "Tea Party"})

	group, ok := target.(*peer.Chat)
	if !ok {
		t.Fatalf("expected *peer.Chat, actual: %T", target)
	}
	if group.Name() != "Tea Party" {
		t.Errorf("expected: %q, actual: %q", "Tea Party", group.Name())
	}
}

func TestApplyChatSupergroup(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	target := applyChat(reg, &models.Chat{
		ID:       -1001,
		Type:     models.ChatTypeSupergroup,
		Title:    "Wonderland",
		Username: "wonderland",
		IsForum:  true,
	})

	channel, ok := target.(*peer.Channel)
	if !ok {
		t.Fatalf("expected *peer.Channel, actual: %T", target)
	}
	if !channel.IsMegagroup() || channel.IsBroadcast() {
		t.Errorf("expected megagroup flags, actual: %v", channel.Flags().Current())
	}
	if !channel.IsForum() {
		t.Error("expected forum flag")
	}
	if !channel.Flags().Has(peer.ChannelUsername) {
		t.Error("expected username flag")
	}

	// The username was dropped; the flag must follow.
	applyChat(reg, &models.Chat{ID: -1001, Type: models.ChatTypeSupergroup, Title: "Wonderland"})
	if channel.Flags().Has(peer.ChannelUsername) {
		t.Error("expected username flag to clear")
	}
}

func TestApplyChatBroadcast(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	target := applyChat(reg, &models.Chat{ID: -1002, Type: models.ChatTypeChannel, Title: "Announcements"})

	channel, ok := target.(*peer.Channel)
	if !ok {
		t.Fatalf("expected *peer.Channel, actual: %T", target)
	}
	if !channel.IsBroadcast() || channel.IsMegagroup() {
		t.Errorf("expected broadcast flags, actual: %v", channel.Flags().Current())
	}
}

func TestApplyUser(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	user := applyUser(reg, &models.User{
		ID:        100,
		FirstName: "March",
		LastName:  "Hare",
		Username:  "marchhare",
		IsBot:     true,
		IsPremium: true,
	})

	if user.Name() != "March Hare" {
		t.Errorf("expected: %q, actual: %q", "March Hare", user.Name())
	}
	if user.Username() != "marchhare" {
		t.Errorf("expected: %q, actual: %q", "marchhare", user.Username())
	}
	if !user.IsBot() || !user.IsPremium() {
		t.Errorf("expected bot and premium flags, actual: %v", user.Flags().Current())
	}

	applyUser(reg, &models.User{ID: 100, FirstName: "March", Username: "marchhare"})
	if user.IsBot() || user.IsPremium() {
		t.Errorf("expected flags to clear, actual: %v", user.Flags().Current())
	}
}

func TestApplyChatMembershipTransitions(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	group := reg.Chat(200)

	applyChatMembership(group, models.ChatMember{
		Type:          models.ChatMemberTypeAdministrator,
		Administrator: &models.ChatMemberAdministrator{CanDeleteMessages: true, CanPinMessages: true},
	})
	if !group.AmIn() {
		t.Error("expected membership after promotion")
	}
	expected := peer.AdminDeleteMessages | peer.AdminPinMessages
	if actual := group.AdminRights().Current(); actual != expected {
		t.Errorf("expected: %v, actual: %v", expected, actual)
	}

	applyChatMembership(group, models.ChatMember{Type: models.ChatMemberTypeMember, Member: &models.ChatMemberMember{}})
	if actual := group.AdminRights().Current(); actual != 0 {
		t.Errorf("expected demotion to clear rights, actual: %v", actual)
	}
	if !group.AmIn() {
		t.Error("expected membership after demotion")
	}

	applyChatMembership(group, models.ChatMember{Type: models.ChatMemberTypeLeft})
	if group.AmIn() {
		t.Error("expected left flag to end membership")
	}

	applyChatMembership(group, models.ChatMember{Type: models.ChatMemberTypeBanned, Banned: &models.ChatMemberBanned{}})
	if !group.Flags().Has(peer.ChatForbidden) {
		t.Error("expected forbidden flag after ban")
	}

	applyChatMembership(group, models.ChatMember{Type: models.ChatMemberTypeOwner, Owner: &models.ChatMemberOwner{}})
	if !group.AmCreator() || !group.AmIn() {
		t.Errorf("expected creator membership, actual: %v", group.Flags().Current())
	}
}

func TestApplyChannelMembershipTransitions(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	channel := reg.Channel(300)

	applyChannelMembership(channel, models.ChatMember{
		Type: models.ChatMemberTypeRestricted,
		Restricted: func() *models.ChatMemberRestricted {
			r := allAllowedRestricted()
			r.CanSendMessages = false
			r.CanSendPhotos = false
			return &r
		}(),
	})
	if !channel.AmIn() {
		t.Error("expected restricted member to still be in")
	}
	expected := peer.RestrictSendText | peer.RestrictSendPhotos
	if actual := channel.Restrictions().Current(); actual != expected {
		t.Errorf("expected: %v, actual: %v", expected, actual)
	}

	applyChannelMembership(channel, models.ChatMember{Type: models.ChatMemberTypeMember, Member: &models.ChatMemberMember{}})
	if actual := channel.Restrictions().Current(); actual != 0 {
		t.Errorf("expected restrictions to clear, actual: %v", actual)
	}

	applyChannelMembership(channel, models.ChatMember{
		Type: models.ChatMemberTypeRestricted,
		Restricted: func() *models.ChatMemberRestricted {
			r := allAllowedRestricted()
			r.IsMember = false
			return &r
		}(),
	})
	if channel.AmIn() {
		t.Error("expected kicked restricted entry to end membership")
	}

	applyChannelMembership(channel, models.ChatMember{
		Type:          models.ChatMemberTypeAdministrator,
		Administrator: &models.ChatMemberAdministrator{CanManageTopics: true},
	})
	if !channel.AmIn() {
		t.Error("expected membership after promotion")
	}
	if actual := channel.AdminRights().Current(); actual != peer.AdminManageTopics {
		t.Errorf("expected: %v, actual: %v", peer.AdminManageTopics, actual)
	}

	applyChannelMembership(channel, models.ChatMember{Type: models.ChatMemberTypeBanned, Banned: &models.ChatMemberBanned{}})
	if !channel.Flags().Has(peer.ChannelForbidden) {
		t.Error("expected forbidden flag after ban")
	}
	if actual := channel.AdminRights().Current(); actual != 0 {
		t.Errorf("expected rights to clear after ban, actual: %v", actual)
	}
}

func TestApplyChatInfoGroup(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	permissions := models.ChatPermissions{
		CanSendMessages: true,
		CanSendPhotos:   true,
	}
	applyChatInfo(reg, &models.ChatFullInfo{
		ID:                 -200,
		Type:               models.ChatTypeGroup,
		Title:              "Tea Party",
		Permissions:        &permissions,
		AvailableReactions: []models.ReactionType{{ReactionTypeEmoji: &models.ReactionTypeEmoji{Emoji: "👍"}}},
		MaxReactionCount:   11,
		Photo:              &models.ChatPhoto{BigFileID: "big-file", BigFileUniqueID: "big-unique"},
	})

	group := reg.Chat(-200)
	if group.Name() != "Tea Party" {
		t.Errorf("expected: %q, actual: %q", "Tea Party", group.Name())
	}
	restrictions := group.DefaultRestrictions().Current()
	if restrictions&peer.RestrictSendText != 0 {
		t.Error("expected text sending to stay allowed")
	}
	if restrictions&peer.RestrictSendPolls == 0 {
		t.Error("expected polls to be restricted")
	}

	allowed := peer.AllowedReactionsFor(group)
	if allowed.Type != peer.ReactionsSome || len(allowed.Some) != 1 {
		t.Fatalf("unexpected allowed reactions: %+v", allowed)
	}
	if allowed.Some[0].Emoji != "👍" {
		t.Errorf("expected: %q, actual: %q", "👍", allowed.Some[0].Emoji)
	}

	if group.PhotoID() == 0 {
		t.Error("expected photo revision to be set")
	}
	if actual := peer.UniqueReactionsLimit(reg.Config()); actual != 11 {
		t.Errorf("expected unique reactions limit 11, actual: %d", actual)
	}
}

func TestApplyChatInfoChannel(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	applyChatInfo(reg, &models.ChatFullInfo{
		ID:                  -1002,
		Type:                models.ChatTypeChannel,
		Title:               "Announcements",
		Username:            "announce",
		JoinToSendMessages:  true,
		LinkedChatID:        -1003,
		HasProtectedContent: true,
	})

	channel := reg.Channel(-1002)
	if !channel.IsBroadcast() {
		t.Error("expected broadcast flag")
	}
	for _, flag := range []peer.ChannelFlags{
		peer.ChannelUsername,
		peer.ChannelJoinToWrite,
		peer.ChannelHasLink,
		peer.ChannelNoForwards,
	} {
		if !channel.Flags().Has(flag) {
			t.Errorf("expected flag %v to be set", flag)
		}
	}
	if channel.Flags().Has(peer.ChannelLocation) {
		t.Error("expected location flag to stay clear")
	}

	allowed := peer.AllowedReactionsFor(channel)
	if allowed.Type != peer.ReactionsAll {
		t.Errorf("expected ReactionsAll for absent reaction list, actual: %v", allowed.Type)
	}
}

func TestApplyChatInfoPrivate(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	applyChatInfo(reg, &models.ChatFullInfo{
		ID:                                 100,
		Type:                               models.ChatTypePrivate,
		FirstName:                          "Alice",
		HasRestrictedVoiceAndVideoMessages: true,
	})

	user := reg.User(100)
	if user.Name() != "Alice" {
		t.Errorf("expected: %q, actual: %q", "Alice", user.Name())
	}
	if !user.Flags().Has(peer.UserVoiceMessagesForbidden) {
		t.Error("expected voice messages forbidden flag")
	}
	if user.PhotoID() != 0 {
		t.Errorf("expected no photo, actual revision: %d", user.PhotoID())
	}
}

func TestApplyTopicSignals(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	channel := reg.Channel(-1001)
	channel.Flags().Add(peer.ChannelForum)

	applyTopicSignals(reg, channel, &models.Message{
		MessageThreadID:   7,
		From:              &models.User{ID: 1},
		ForumTopicCreated: &models.ForumTopicCreated{Name: "Plans"},
	})
	topic := reg.Topic(-1001, 7)
	if topic.Title() != "Plans" {
		t.Errorf("expected: %q, actual: %q", "Plans", topic.Title())
	}
	if !topic.My() {
		t.Error("expected own topic flag when created by self")
	}

	applyTopicSignals(reg, channel, &models.Message{
		MessageThreadID:  7,
		IsTopicMessage:   true,
		ForumTopicClosed: &models.ForumTopicClosed{},
	})
	if !topic.Closed() {
		t.Error("expected topic to close")
	}

	applyTopicSignals(reg, channel, &models.Message{
		MessageThreadID:    7,
		IsTopicMessage:     true,
		ForumTopicReopened: &models.ForumTopicReopened{},
	})
	if topic.Closed() {
		t.Error("expected topic to reopen")
	}

	applyTopicSignals(reg, channel, &models.Message{
		MessageThreadID:  7,
		IsTopicMessage:   true,
		ForumTopicEdited: &models.ForumTopicEdited{Name: "Revised Plans"},
	})
	if topic.Title() != "Revised Plans" {
		t.Errorf("expected: %q, actual: %q", "Revised Plans", topic.Title())
	}

	// Created by someone else: topic exists but is not ours.
	applyTopicSignals(reg, channel, &models.Message{
		MessageThreadID:   9,
		From:              &models.User{ID: 100},
		ForumTopicCreated: &models.ForumTopicCreated{Name: "Other"},
	})
	if reg.Topic(-1001, 9).My() {
		t.Error("expected foreign topic to not be marked as ours")
	}
}

func TestApplyPhotoSignals(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	group := reg.Chat(200)

	applyPhotoSignals(group, &models.Message{
		NewChatPhoto: []models.PhotoSize{
			{FileID: "small", FileUniqueID: "small-u", Width: 160, Height: 160},
			{FileID: "big", FileUniqueID: "big-u", Width: 640, Height: 640},
		},
	})
	if group.PhotoID() == 0 {
		t.Fatal("expected photo revision to be set")
	}
	if group.PhotoID() != photoRevision("big-u") {
		t.Error("expected the biggest size to win")
	}

	applyPhotoSignals(group, &models.Message{DeleteChatPhoto: true})
	if group.PhotoID() != 0 {
		t.Errorf("expected photo to clear, actual revision: %d", group.PhotoID())
	}

	// A plain text message leaves the photo alone.
	group.SetUserpic(42, "file-ref")
	applyPhotoSignals(group, &models.Message{Text: "hello"})
	if group.PhotoID() != 42 {
		t.Errorf("expected photo to survive unrelated message, actual revision: %d", group.PhotoID())
	}
}
