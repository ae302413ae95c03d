package gateway

import (
	"log/slog"
	"time"

	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/peer"
	"github.com/edgard/peerwatch/internal/reactive"
)

// Watcher subscribes to peer state on the registry loop and turns
// changes into hub events: identity updates, permission flips, presence
// phrase transitions and recorded edits. Clients fetch full snapshots
// over HTTP; the watcher only pushes what changed.
type Watcher struct {
	log *slog.Logger
	reg *peer.Registry
	hub *Hub

	// Everything below is confined to the registry loop.
	lt         *reactive.Lifetime
	lastPhrase map[peer.PeerID]string
	timers     map[peer.PeerID]*time.Timer
}

// NewWatcher builds a watcher. Start must be called to begin watching.
func NewWatcher(logger *slog.Logger, reg *peer.Registry, hub *Hub) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		log:        logger.With("component", "gateway_watcher"),
		reg:        reg,
		hub:        hub,
		lastPhrase: make(map[peer.PeerID]string),
		timers:     make(map[peer.PeerID]*time.Timer),
	}
}

// Start subscribes to every known peer and to peers added later.
func (w *Watcher) Start() {
	w.reg.Post(w.start)
}

// Stop tears down all subscriptions and presence timers.
func (w *Watcher) Stop() {
	w.reg.Post(w.stop)
}

func (w *Watcher) start() {
	if w.lt != nil {
		return
	}
	w.lt = reactive.NewLifetime()
	w.reg.PeerAdded().Start(w.lt, func(p peer.Peer) {
		w.watch(p)
	})
	for _, p := range w.reg.Peers() {
		w.watch(p)
	}
	w.log.Info("gateway watcher started")
}

func (w *Watcher) stop() {
	if w.lt == nil {
		return
	}
	w.lt.Destroy()
	w.lt = nil
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
	w.log.Info("gateway watcher stopped")
}

type peerEventData struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	PhotoID  uint64 `json:"photo_id,omitempty"`
}

type permissionEventData struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

type presenceEventData struct {
	Phrase     string `json:"phrase"`
	PhraseFull string `json:"phrase_full"`
	Online     bool   `json:"online"`
}

type reactionsEventData struct {
	Policy    string   `json:"policy"`
	Reactions []string `json:"reactions,omitempty"`
}

// watch wires one peer's streams to hub events. Runs on the loop.
func (w *Watcher) watch(p peer.Peer) {
	peerID := int64(p.ID())

	skipFirst(w.reg.PeerUpdates(p, peer.UpdateName|peer.UpdatePhoto)).Start(w.lt, func(peer.UpdateFlag) {
		w.hub.Broadcast(Event{Type: "peer", PeerID: peerID, Data: peerEventData{
			Name:     p.Name(),
			Username: p.Username(),
			PhotoID:  p.PhotoID(),
		}})
	})

	sendAllowed := reactive.DistinctUntilChanged(peer.CanSendAnyOfValue(p, peer.RestrictAnySend, false))
	skipFirst(sendAllowed).Start(w.lt, func(allowed bool) {
		w.hub.Broadcast(Event{Type: "permission", PeerID: peerID, Data: permissionEventData{
			Permission: "send_any",
			Allowed:    allowed,
		}})
	})

	pinAllowed := reactive.DistinctUntilChanged(peer.CanPinMessagesValue(p))
	skipFirst(pinAllowed).Start(w.lt, func(allowed bool) {
		w.hub.Broadcast(Event{Type: "permission", PeerID: peerID, Data: permissionEventData{
			Permission: "pin_messages",
			Allowed:    allowed,
		}})
	})

	skipFirst(peer.AllowedReactionsValue(p)).Start(w.lt, func(allowed *peer.AllowedReactions) {
		data := reactionsEventData{Policy: "all"}
		if allowed.Type == peer.ReactionsSome {
			data.Policy = "some"
			for _, r := range allowed.Some {
				data.Reactions = append(data.Reactions, r.String())
			}
		}
		w.hub.Broadcast(Event{Type: "reactions", PeerID: peerID, Data: data})
	})

	if user, ok := p.(*peer.User); ok {
		user.OnlineTillValue().Start(w.lt, func(int64) {
			w.presenceChanged(user)
		})
	}
}

// presenceChanged recomputes the user's presence phrase, announces it
// when it differs from the last announced one, and schedules the next
// re-check for the moment the phrase would change on its own. Runs on
// the loop.
func (w *Watcher) presenceChanged(user *peer.User) {
	now := time.Now().Unix()
	phrase := user.OnlineText(now)
	id := user.ID()

	if last, seen := w.lastPhrase[id]; !seen {
		// First sight of this user primes the state without an event;
		// connected clients snapshot over HTTP.
		w.lastPhrase[id] = phrase
	} else if last != phrase {
		w.lastPhrase[id] = phrase
		w.hub.Broadcast(Event{Type: "presence", PeerID: int64(id), Data: presenceEventData{
			Phrase:     phrase,
			PhraseFull: user.OnlineTextFull(now),
			Online:     user.IsOnline(now),
		}})
	}

	if t, ok := w.timers[id]; ok {
		t.Stop()
	}
	delay := user.OnlineChangeTimeout(now)
	w.timers[id] = time.AfterFunc(delay, func() {
		w.reg.Post(func() {
			if w.lt == nil || !w.lt.Alive() {
				return
			}
			w.presenceChanged(user)
		})
	})
}

// EditRecorded pushes a freshly recorded edit to subscribed clients.
// Called from the ingest handler's goroutine.
func (w *Watcher) EditRecorded(edit *database.MessageEdit) {
	w.hub.Broadcast(Event{Type: "edit", PeerID: edit.PeerID, Data: editEntry{
		ID:        edit.ID,
		MessageID: edit.MessageID,
		UserID:    edit.UserID,
		OldText:   edit.OldText,
		NewText:   edit.NewText,
		EditDate:  edit.EditDate,
	}})
}

// skipFirst drops the synchronous snapshot emission value streams
// produce on subscription.
func skipFirst[T any](s reactive.Stream[T]) reactive.Stream[T] {
	return reactive.New(func(next func(T), lt *reactive.Lifetime) {
		first := true
		s.Start(lt, func(v T) {
			if first {
				first = false
				return
			}
			next(v)
		})
	})
}
