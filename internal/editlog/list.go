// Package editlog maintains a paging window over the recorded edits of
// one peer: a slice of edit records ordered by ID, extendable upward
// (older) and downward (newer), with exhaustion marks on both ends.
package editlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/lang"
	"github.com/edgard/peerwatch/internal/reactive"
)

// Direction says which end of the window grew.
type Direction int

const (
	// DirectionUp means older records were prepended.
	DirectionUp Direction = iota
	// DirectionDown means newer records were appended.
	DirectionDown
)

// Added reports one window extension.
type Added struct {
	Direction Direction
	Count     int
}

// Memento captures a list's paging position so a new list over the same
// peer can resume where the old one stopped.
type Memento struct {
	// AnchorID is the oldest loaded edit at save time. Zero anchors the
	// window at the newest edit.
	AnchorID   uint
	UpLoaded   bool
	DownLoaded bool
}

// Options configures a List.
type Options struct {
	Store   database.Store
	Logger  *slog.Logger
	Phrases *lang.Pack
	PeerID  int64
}

// List is the paging window. It is not safe for concurrent use; confine
// each list to one goroutine.
type List struct {
	store   database.Store
	log     *slog.Logger
	phrases *lang.Pack
	peerID  int64

	// items stays ascending by ID; ids suppresses duplicates when pages
	// overlap live insertions.
	items []*database.MessageEdit
	ids   map[uint]struct{}

	// anchor positions an empty window: LoadUp pages strictly below it,
	// LoadDown pages from it (inclusive). Zero means "at the end".
	anchor     uint
	upLoaded   bool
	downLoaded bool

	added reactive.Event[Added]
}

// NewList builds an inert list: both ends count as loaded, so nothing is
// fetched until the list is positioned.
func NewList(opts Options) *List {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	phrases := opts.Phrases
	if phrases == nil {
		phrases = lang.Default()
	}
	return &List{
		store:      opts.Store,
		log:        log.With("component", "editlog", "peer_id", opts.PeerID),
		phrases:    phrases,
		peerID:     opts.PeerID,
		ids:        make(map[uint]struct{}),
		upLoaded:   true,
		downLoaded: true,
	}
}

// PositionAtEnd points the window at the newest edit: paging up walks
// into history, nothing exists below.
func (l *List) PositionAtEnd() {
	l.RestoreState(Memento{AnchorID: 0, UpLoaded: false, DownLoaded: true})
}

// PositionAround points the window at a specific edit: paging down starts
// with that edit, paging up with the one just above it. A zero ID falls
// back to the end position.
func (l *List) PositionAround(id uint) {
	if id == 0 {
		l.PositionAtEnd()
		return
	}
	l.RestoreState(Memento{AnchorID: id, UpLoaded: false, DownLoaded: false})
}

// SaveState captures the current paging position.
func (l *List) SaveState() Memento {
	m := Memento{UpLoaded: l.upLoaded, DownLoaded: l.downLoaded}
	if len(l.items) > 0 {
		m.AnchorID = l.items[0].ID
		// The saved window's records must be re-fetched by paging down
		// after a restore.
		m.DownLoaded = false
	} else {
		m.AnchorID = l.anchor
	}
	return m
}

// RestoreState clears the window and applies a saved paging position.
func (l *List) RestoreState(m Memento) {
	l.items = nil
	l.ids = make(map[uint]struct{})
	l.anchor = m.AnchorID
	l.upLoaded = m.UpLoaded
	l.downLoaded = m.DownLoaded
}

// Items returns the loaded window, ascending by ID. The slice is only
// valid until the next mutation.
func (l *List) Items() []*database.MessageEdit {
	return l.items
}

// UpLoaded reports whether history above the window is exhausted.
func (l *List) UpLoaded() bool { return l.upLoaded }

// DownLoaded reports whether history below the window is exhausted.
func (l *List) DownLoaded() bool { return l.downLoaded }

// Added streams window extensions.
func (l *List) Added() reactive.Stream[Added] {
	return l.added.Events()
}

// Empty reports whether the peer has no edits at all: both ends loaded
// and still nothing in the window.
func (l *List) Empty() bool {
	return len(l.items) == 0 && l.upLoaded && l.downLoaded
}

// EmptyTitle is the heading shown for a peer without edits.
func (l *List) EmptyTitle() string { return l.phrases.EditLogEmptyTitle }

// EmptyText is the explanation shown for a peer without edits.
func (l *List) EmptyText() string { return l.phrases.EditLogEmpty }

// LoadUp extends the window with up to limit older records. It reports
// how many records were actually added; a short fetch marks the upper end
// as exhausted.
func (l *List) LoadUp(ctx context.Context, limit int) (int, error) {
	if l.upLoaded {
		return 0, nil
	}
	if limit <= 0 {
		limit = 20
	}

	beforeID := l.anchor
	if len(l.items) > 0 {
		beforeID = l.items[0].ID
	}

	edits, err := l.store.GetEditsBefore(ctx, l.peerID, beforeID, limit)
	if err != nil {
		return 0, fmt.Errorf("loading older edits: %w", err)
	}
	if len(edits) < limit {
		l.upLoaded = true
	}

	// The store returns newest first; reverse into ascending order and
	// drop anything the window already holds.
	fresh := make([]*database.MessageEdit, 0, len(edits))
	for i := len(edits) - 1; i >= 0; i-- {
		edit := edits[i]
		if _, dup := l.ids[edit.ID]; dup {
			continue
		}
		l.ids[edit.ID] = struct{}{}
		fresh = append(fresh, edit)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	l.items = append(fresh, l.items...)
	l.log.Debug("older edits loaded", "count", len(fresh), "up_loaded", l.upLoaded)
	l.added.Fire(Added{Direction: DirectionUp, Count: len(fresh)})
	return len(fresh), nil
}

// LoadDown extends the window with up to limit newer records. It reports
// how many records were actually added; a short fetch marks the lower end
// as exhausted.
func (l *List) LoadDown(ctx context.Context, limit int) (int, error) {
	if l.downLoaded {
		return 0, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var afterID uint
	switch {
	case len(l.items) > 0:
		afterID = l.items[len(l.items)-1].ID
	case l.anchor > 0:
		// Include the anchor record itself in the first page.
		afterID = l.anchor - 1
	default:
		l.downLoaded = true
		return 0, nil
	}

	edits, err := l.store.GetEditsAfter(ctx, l.peerID, afterID, limit)
	if err != nil {
		return 0, fmt.Errorf("loading newer edits: %w", err)
	}
	if len(edits) < limit {
		l.downLoaded = true
	}

	fresh := 0
	for _, edit := range edits {
		if _, dup := l.ids[edit.ID]; dup {
			continue
		}
		l.ids[edit.ID] = struct{}{}
		l.items = append(l.items, edit)
		fresh++
	}
	if fresh == 0 {
		return 0, nil
	}

	l.log.Debug("newer edits loaded", "count", fresh, "down_loaded", l.downLoaded)
	l.added.Fire(Added{Direction: DirectionDown, Count: fresh})
	return fresh, nil
}

// ApplyLive appends a freshly recorded edit. It only applies when the
// window already reaches the newest record; otherwise the edit will be
// paged in later like any other.
func (l *List) ApplyLive(edit *database.MessageEdit) {
	if edit == nil || edit.PeerID != l.peerID || !l.downLoaded {
		return
	}
	if _, dup := l.ids[edit.ID]; dup {
		return
	}
	l.ids[edit.ID] = struct{}{}
	l.items = append(l.items, edit)
	l.added.Fire(Added{Direction: DirectionDown, Count: 1})
}
