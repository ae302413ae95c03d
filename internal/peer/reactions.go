package peer

import (
	"fmt"
	"slices"

	"github.com/edgard/peerwatch/internal/appconfig"
	"github.com/edgard/peerwatch/internal/reactive"
)

// ReactionID identifies one reaction: a plain unicode emoji, or a custom
// emoji by document ID.
type ReactionID struct {
	Emoji      string
	DocumentID int64
}

// IsCustom reports whether the reaction is a custom emoji.
func (r ReactionID) IsCustom() bool { return r.DocumentID != 0 }

// String renders the reaction for logs and API payloads.
func (r ReactionID) String() string {
	if r.IsCustom() {
		return fmt.Sprintf("custom:%d", r.DocumentID)
	}
	return r.Emoji
}

// ReactionsPolicy says how a chat restricts reactions.
type ReactionsPolicy uint8

const (
	// ReactionsAll allows every reaction.
	ReactionsAll ReactionsPolicy = iota
	// ReactionsSome allows only the reactions listed explicitly. An
	// empty list means reactions are disabled entirely.
	ReactionsSome
)

// AllowedReactions is one chat's reaction policy. The instance owned by
// a peer is handed out by reference and mutated in place, so readers on
// the registry loop always observe the current policy without copying.
type AllowedReactions struct {
	Type ReactionsPolicy
	Some []ReactionID
}

// Allows reports whether the policy permits the given reaction.
func (a *AllowedReactions) Allows(id ReactionID) bool {
	if a.Type == ReactionsAll {
		return true
	}
	return slices.Contains(a.Some, id)
}

func (a *AllowedReactions) equal(b AllowedReactions) bool {
	return a.Type == b.Type && slices.Equal(a.Some, b.Some)
}

// reactionsAllDefault backs the policy returned for peers that cannot
// restrict reactions.
var reactionsAllDefault = AllowedReactions{Type: ReactionsAll}

// AllowedReactionsFor returns the peer's reaction policy by reference.
// Users cannot restrict reactions, so they share one static allow-all
// policy.
func AllowedReactionsFor(p Peer) *AllowedReactions {
	switch peer := p.(type) {
	case *Chat:
		return peer.reactions
	case *Channel:
		return peer.reactions
	default:
		return &reactionsAllDefault
	}
}

// AllowedReactionsValue streams the peer's reaction policy: the current
// one immediately, then after every policy change.
func AllowedReactionsValue(p Peer) reactive.Stream[*AllowedReactions] {
	updates := p.Registry().PeerUpdates(p, UpdateReactions)
	return reactive.Map(updates, func(UpdateFlag) *AllowedReactions {
		return AllowedReactionsFor(p)
	})
}

// SetAllowedReactions replaces the group's reaction policy in place and
// notifies subscribers when it changed.
func (c *Chat) SetAllowedReactions(policy AllowedReactions) {
	if c.reactions.equal(policy) {
		return
	}
	*c.reactions = policy
	c.updates.Fire(UpdateReactions)
}

// SetAllowedReactions replaces the channel's reaction policy in place and
// notifies subscribers when it changed.
func (c *Channel) SetAllowedReactions(policy AllowedReactions) {
	if c.reactions.equal(policy) {
		return
	}
	*c.reactions = policy
	c.updates.Fire(UpdateReactions)
}

// defaultUniqueReactionsLimit applies when the dynamic configuration does
// not carry a "reactions_uniq_max" value.
const defaultUniqueReactionsLimit = 11

// UniqueReactionsLimit returns how many distinct reactions a single
// message can accumulate.
func UniqueReactionsLimit(config *appconfig.Store) int {
	return config.GetInt("reactions_uniq_max", defaultUniqueReactionsLimit)
}

// UniqueReactionsLimitValue streams the unique reactions limit, emitting
// only when the effective value changes, no matter how often the
// configuration set is refreshed.
func UniqueReactionsLimitValue(config *appconfig.Store) reactive.Stream[int] {
	limits := reactive.Map(config.Value(), func(struct{}) int {
		return UniqueReactionsLimit(config)
	})
	return reactive.DistinctUntilChanged(limits)
}
