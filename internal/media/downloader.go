// Package media fetches peer avatar photos in the background and caches
// the decoded images in memory. Fetches run on their own goroutines, but
// every completion is posted back onto the owning loop before any state
// changes, so readers never need a lock.
package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	// Avatar payloads are JPEG, with PNG as the fallback for stickers
	// and imported images.
	_ "image/jpeg"
	_ "image/png"

	"github.com/edgard/peerwatch/internal/reactive"
)

// Downloader is what the peer registry needs from an avatar fetcher. All
// methods except the internal fetch run on the owner's loop goroutine.
type Downloader interface {
	// Request schedules a fetch of the given photo revision; fileRef is
	// the transport-level file reference. Requesting a photo that is
	// cached or already in flight is a no-op.
	Request(photoID uint64, fileRef string)

	// Image returns the decoded image once the fetch has completed
	// successfully.
	Image(photoID uint64) (image.Image, bool)

	// Loading reports whether the photo is still in flight.
	Loading(photoID uint64) bool

	// TaskFinished emits the photo ID of every fetch that ends, whether
	// it succeeded or not, on the owner's loop goroutine.
	TaskFinished() reactive.Stream[uint64]
}

// Resolver turns a file reference into a fetchable URL. For Telegram
// bots this wraps the getFile call.
type Resolver func(ctx context.Context, fileRef string) (string, error)

const (
	defaultFetchTimeout = 30 * time.Second
	// Bot API caps profile photos well below this; the limit only
	// guards against a misbehaving server.
	maxAvatarBytes = 4 << 20
)

// HTTPOptions configures an HTTPDownloader.
type HTTPOptions struct {
	Logger  *slog.Logger
	Client  *http.Client
	Resolve Resolver

	// Post schedules a closure onto the owner's loop goroutine.
	Post func(func())

	// Timeout bounds one fetch, resolution included.
	Timeout time.Duration
}

// HTTPDownloader fetches avatars over HTTP.
type HTTPDownloader struct {
	log     *slog.Logger
	client  *http.Client
	resolve Resolver
	post    func(func())
	timeout time.Duration

	images   map[uint64]image.Image
	inflight map[uint64]struct{}
	failed   map[uint64]struct{}
	finished reactive.Event[uint64]
}

// NewHTTPDownloader builds a downloader. Resolve and Post are required;
// the rest falls back to defaults.
func NewHTTPDownloader(opts HTTPOptions) *HTTPDownloader {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPDownloader{
		log:      log,
		client:   client,
		resolve:  opts.Resolve,
		post:     opts.Post,
		timeout:  timeout,
		images:   make(map[uint64]image.Image),
		inflight: make(map[uint64]struct{}),
		failed:   make(map[uint64]struct{}),
	}
}

// Request schedules a fetch unless the photo is cached, in flight, or
// already failed once. Failed revisions stay failed; a peer changing its
// photo produces a new ID, which retries naturally.
func (d *HTTPDownloader) Request(photoID uint64, fileRef string) {
	if photoID == 0 {
		return
	}
	if _, ok := d.images[photoID]; ok {
		return
	}
	if _, ok := d.inflight[photoID]; ok {
		return
	}
	if _, ok := d.failed[photoID]; ok {
		return
	}
	d.inflight[photoID] = struct{}{}
	go d.fetch(photoID, fileRef)
}

// Image returns the decoded image for a completed fetch.
func (d *HTTPDownloader) Image(photoID uint64) (image.Image, bool) {
	img, ok := d.images[photoID]
	return img, ok
}

// Loading reports whether the photo is still in flight.
func (d *HTTPDownloader) Loading(photoID uint64) bool {
	_, ok := d.inflight[photoID]
	return ok
}

// TaskFinished emits completed photo IDs on the owner's loop.
func (d *HTTPDownloader) TaskFinished() reactive.Stream[uint64] {
	return d.finished.Events()
}

func (d *HTTPDownloader) fetch(photoID uint64, fileRef string) {
	img, err := d.download(fileRef)
	d.post(func() {
		delete(d.inflight, photoID)
		if err != nil {
			d.failed[photoID] = struct{}{}
			d.log.Warn("avatar fetch failed",
				"photo_id", photoID,
				"error", err)
		} else {
			d.images[photoID] = img
		}
		d.finished.Fire(photoID)
	})
}

func (d *HTTPDownloader) download(fileRef string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	url, err := d.resolve(ctx, fileRef)
	if err != nil {
		return nil, fmt.Errorf("resolving file reference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building avatar request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching avatar: unexpected status %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding avatar: %w", err)
	}
	return img, nil
}
