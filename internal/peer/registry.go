package peer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edgard/peerwatch/internal/appconfig"
	"github.com/edgard/peerwatch/internal/lang"
	"github.com/edgard/peerwatch/internal/media"
	"github.com/edgard/peerwatch/internal/reactive"
)

// UpdateFlag marks which aspect of a peer changed in an update
// notification.
type UpdateFlag uint32

const (
	UpdateName UpdateFlag = 1 << iota
	UpdatePhoto
	UpdateOnlineStatus
	UpdateRights
	UpdateRestrictions
	UpdateReactions
)

// ErrStopped is returned by Sync when the registry loop has already shut
// down.
var ErrStopped = errors.New("peer: registry stopped")

// Options configures a Registry. Zero fields fall back to sane defaults.
type Options struct {
	Logger   *slog.Logger
	Phrases  *lang.Pack
	Location *time.Location
	Config   *appconfig.Store

	// Downloader fetches avatar photos. Nil disables avatar loading;
	// userpic streams then render fallback frames only.
	Downloader media.Downloader

	// SelfID is the peer ID of the session's own account.
	SelfID PeerID

	// ForcePremium pretends the own account has a premium subscription
	// regardless of its real flags.
	ForcePremium bool
}

// Registry owns every peer of one session and the loop goroutine their
// state is confined to. All reads and writes of peer state must happen
// on that loop, entered via Post or Sync.
type Registry struct {
	log        *slog.Logger
	phrases    *lang.Pack
	loc        *time.Location
	config     *appconfig.Store
	downloader media.Downloader

	selfID       PeerID
	forcePremium bool

	users    map[PeerID]*User
	chats    map[PeerID]*Chat
	channels map[PeerID]*Channel

	peerAdded reactive.Event[Peer]

	tasks chan func()
	done  chan struct{}
}

// NewRegistry builds a registry. Run must be called before Post and Sync
// are useful.
func NewRegistry(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	phrases := opts.Phrases
	if phrases == nil {
		phrases = lang.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	config := opts.Config
	if config == nil {
		config = appconfig.NewStore(nil)
	}

	return &Registry{
		log:          log,
		phrases:      phrases,
		loc:          loc,
		config:       config,
		downloader:   opts.Downloader,
		selfID:       opts.SelfID,
		forcePremium: opts.ForcePremium,
		users:        make(map[PeerID]*User),
		chats:        make(map[PeerID]*Chat),
		channels:     make(map[PeerID]*Channel),
		tasks:        make(chan func(), 256),
		done:         make(chan struct{}),
	}
}

// Run executes the registry loop until ctx is canceled. It returns the
// context's error, so an errgroup shuts the whole application down
// together.
func (r *Registry) Run(ctx context.Context) error {
	defer close(r.done)
	r.log.Info("peer registry started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("peer registry stopping")
			return ctx.Err()
		case fn := <-r.tasks:
			fn()
		}
	}
}

// Post schedules fn to run on the registry loop. Posts issued after the
// loop stopped are dropped. Code already running on the loop must call
// functions directly instead of posting.
func (r *Registry) Post(fn func()) {
	select {
	case r.tasks <- fn:
	case <-r.done:
	}
}

// Sync runs fn on the registry loop and waits for it to finish. It is
// the bridge for request/response callers such as HTTP handlers.
func (r *Registry) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}
	select {
	case r.tasks <- wrapped:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Phrases returns the phrase pack used for presence texts.
func (r *Registry) Phrases() *lang.Pack { return r.phrases }

// Location returns the time zone presence formatting is rendered in.
func (r *Registry) Location() *time.Location { return r.loc }

// Config returns the dynamic configuration store.
func (r *Registry) Config() *appconfig.Store { return r.config }

// Downloader returns the avatar downloader, possibly nil.
func (r *Registry) Downloader() media.Downloader { return r.downloader }

// ForcePremium reports whether the premium override is active.
func (r *Registry) ForcePremium() bool { return r.forcePremium }

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger { return r.log }

// User returns the user with the given ID, creating it if needed.
func (r *Registry) User(id PeerID) *User {
	if user, ok := r.users[id]; ok {
		return user
	}
	user := &User{peerCommon: peerCommon{id: id, registry: r}}
	if id == r.selfID {
		user.flags.Add(UserSelf)
	}
	r.users[id] = user
	r.peerAdded.Fire(user)
	return user
}

// Chat returns the basic group with the given ID, creating it if needed.
func (r *Registry) Chat(id PeerID) *Chat {
	if chat, ok := r.chats[id]; ok {
		return chat
	}
	chat := &Chat{
		peerCommon: peerCommon{id: id, registry: r},
		reactions:  &AllowedReactions{Type: ReactionsAll},
	}
	r.chats[id] = chat
	r.peerAdded.Fire(chat)
	return chat
}

// Channel returns the channel with the given ID, creating it if needed.
func (r *Registry) Channel(id PeerID) *Channel {
	if channel, ok := r.channels[id]; ok {
		return channel
	}
	channel := &Channel{
		peerCommon: peerCommon{id: id, registry: r},
		reactions:  &AllowedReactions{Type: ReactionsAll},
		topics:     make(map[MsgID]*ForumTopic),
	}
	r.channels[id] = channel
	r.peerAdded.Fire(channel)
	return channel
}

// Topic returns the forum topic with the given root message ID inside a
// channel, creating it if needed.
func (r *Registry) Topic(channelID PeerID, rootID MsgID) *ForumTopic {
	channel := r.Channel(channelID)
	if topic, ok := channel.topics[rootID]; ok {
		return topic
	}
	topic := &ForumTopic{channel: channel, rootID: rootID}
	channel.topics[rootID] = topic
	return topic
}

// Self returns the session's own user.
func (r *Registry) Self() *User {
	return r.User(r.selfID)
}

// LookupPeer finds an already known peer by ID without creating one.
func (r *Registry) LookupPeer(id PeerID) (Peer, bool) {
	if user, ok := r.users[id]; ok {
		return user, true
	}
	if chat, ok := r.chats[id]; ok {
		return chat, true
	}
	if channel, ok := r.channels[id]; ok {
		return channel, true
	}
	return nil, false
}

// Peers returns every known peer, users first.
func (r *Registry) Peers() []Peer {
	out := make([]Peer, 0, len(r.users)+len(r.chats)+len(r.channels))
	for _, user := range r.users {
		out = append(out, user)
	}
	for _, chat := range r.chats {
		out = append(out, chat)
	}
	for _, channel := range r.channels {
		out = append(out, channel)
	}
	return out
}

// PeerAdded emits every peer the moment the registry first learns about
// it.
func (r *Registry) PeerAdded() reactive.Stream[Peer] {
	return r.peerAdded.Events()
}

// PeerUpdates streams update notifications for one peer, narrowed to the
// given mask. A synthetic first notification with the whole mask is
// emitted at subscription time so derived values can compute their
// initial state.
func (r *Registry) PeerUpdates(p Peer, mask UpdateFlag) reactive.Stream[UpdateFlag] {
	events := reactive.Filter(p.updatesEvent().Events(), func(flags UpdateFlag) bool {
		return flags&mask != 0
	})
	narrowed := reactive.Map(events, func(flags UpdateFlag) UpdateFlag {
		return flags & mask
	})
	return reactive.StartWith(narrowed, mask)
}

// NotifyPeerUpdate fans an update notification out to the peer's
// subscribers.
func (r *Registry) NotifyPeerUpdate(p Peer, flags UpdateFlag) {
	p.updatesEvent().Fire(flags)
}
