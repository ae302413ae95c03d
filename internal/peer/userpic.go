package peer

import (
	"image"

	"github.com/edgard/peerwatch/internal/media"
	"github.com/edgard/peerwatch/internal/reactive"
)

// UserpicKey identifies one rendered avatar revision. Loaded distinguishes
// the placeholder drawn while the photo is still in flight from the final
// frame, so the arrival of the decoded image counts as a new revision.
type UserpicKey struct {
	PhotoID  uint64
	Identity PeerID
	Loaded   bool
}

// userpicKey computes the current key for a peer, requesting the photo
// from the downloader as a side effect when it is not yet available. A
// nil downloader leaves every photo unloaded.
func userpicKey(p Peer, dl media.Downloader) (UserpicKey, bool) {
	photoID := p.PhotoID()
	key := UserpicKey{PhotoID: photoID, Identity: p.ID()}
	if photoID == 0 || dl == nil {
		return key, false
	}
	dl.Request(photoID, p.userpicFile())
	if _, ok := dl.Image(photoID); ok {
		key.Loaded = true
		return key, false
	}
	return key, dl.Loading(photoID)
}

// renderUserpic draws the frame for a key.
func renderUserpic(p Peer, key UserpicKey, dl media.Downloader, size, radius int) image.Image {
	var photo image.Image
	if key.Loaded {
		photo, _ = dl.Image(key.PhotoID)
	}
	return media.RenderUserpic(photo, int64(p.ID()), size, radius)
}

// UserpicImageValue streams rendered avatar frames for a peer. The first
// frame is emitted immediately, even when the peer has no photo; after
// that a frame is emitted only when the photo revision actually changes.
// While a download is pending the previous frame stays current and the
// stream re-checks on every finished download task; that inner
// subscription is dropped as soon as nothing is in flight.
//
// Must be subscribed and consumed on the registry loop.
func UserpicImageValue(p Peer, size, radius int) reactive.Stream[image.Image] {
	return reactive.New(func(next func(image.Image), lt *reactive.Lifetime) {
		reg := p.Registry()
		dl := reg.Downloader()

		type state struct {
			waiting *reactive.Lifetime
			key     UserpicKey
			empty   bool
			push    func()
		}
		st := &state{empty: true}
		st.push = func() {
			key, loading := userpicKey(p, dl)

			if loading && st.waiting == nil {
				st.waiting = lt.Child()
				dl.TaskFinished().Start(st.waiting, func(uint64) {
					st.push()
				})
			} else if !loading && st.waiting != nil {
				st.waiting.Destroy()
				st.waiting = nil
			}

			if !st.empty && (loading || key == st.key) {
				return
			}
			st.key = key
			st.empty = false
			next(renderUserpic(p, key, dl, size, radius))
		}

		reg.PeerUpdates(p, UpdatePhoto).Start(lt, func(UpdateFlag) {
			st.push()
		})
	})
}

// UserpicImage renders the avatar as of right now, requesting the photo
// in the background if needed; callers polling again after TaskFinished
// get the downloaded frame.
func UserpicImage(p Peer, size, radius int) image.Image {
	dl := p.Registry().Downloader()
	key, _ := userpicKey(p, dl)
	return renderUserpic(p, key, dl, size, radius)
}
