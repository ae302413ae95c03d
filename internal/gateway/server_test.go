package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/peer"
)

// fakeStore implements the slice of database.Store the gateway touches.
// The embedded nil interface panics on anything unexpected.
type fakeStore struct {
	database.Store
	edits   []*database.MessageEdit
	summary *database.EditSummary
	pingErr error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetEditsBefore(_ context.Context, peerID int64, beforeID uint, limit int) ([]*database.MessageEdit, error) {
	if beforeID == 0 {
		beforeID = ^uint(0)
	}
	var out []*database.MessageEdit
	for i := len(f.edits) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.edits[i]
		if e.PeerID != peerID || e.ID >= beforeID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) GetEditsAfter(_ context.Context, peerID int64, afterID uint, limit int) ([]*database.MessageEdit, error) {
	var out []*database.MessageEdit
	for _, e := range f.edits {
		if len(out) >= limit {
			break
		}
		if e.PeerID != peerID || e.ID <= afterID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) LatestEditSummary(_ context.Context, peerID int64) (*database.EditSummary, error) {
	if f.summary == nil || f.summary.PeerID != peerID {
		return nil, database.ErrNotFound
	}
	return f.summary, nil
}

// newServerFixture builds a server over a running registry loop so Sync
// round-trips work like in production.
func newServerFixture(t *testing.T, store *fakeStore) (*Server, *peer.Registry) {
	t.Helper()

	reg := peer.NewRegistry(peer.Options{SelfID: 1, Location: time.UTC})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = reg.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := NewServer("127.0.0.1:0", ServerDeps{
		Logger:   discardLogger(),
		Registry: reg,
		Store:    store,
		Hub:      NewHub(discardLogger()),
	})
	return srv, reg
}

func (s *Server) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	srv, _ := newServerFixture(t, store)

	rec := srv.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}

	store.pingErr = errors.New("database is gone")
	rec = srv.get(t, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, actual: %d", rec.Code)
	}
}

func TestPeerSnapshot(t *testing.T) {
	t.Parallel()

	srv, reg := newServerFixture(t, &fakeStore{})

	err := reg.Sync(context.Background(), func() {
		user := reg.User(100)
		user.SetName("Alice")
		user.SetUsername("alice")
		user.SetOnlineTill(time.Now().Unix() + 300)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := srv.get(t, "/peers/100")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d (%s)", rec.Code, rec.Body.String())
	}

	var snapshot struct {
		ID       int64  `json:"id"`
		Kind     string `json:"kind"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Presence *struct {
			Phrase string `json:"phrase"`
			Online bool   `json:"online"`
		} `json:"presence"`
		Permissions struct {
			SendText    bool `json:"send_text"`
			PinMessages bool `json:"pin_messages"`
		} `json:"permissions"`
		Reactions *struct {
			Policy      string `json:"policy"`
			UniqueLimit int    `json:"unique_limit"`
		} `json:"reactions"`
	}
	decodeBody(t, rec, &snapshot)

	if snapshot.Kind != "user" {
		t.Errorf("expected: %q, actual: %q", "user", snapshot.Kind)
	}
	if snapshot.Name != "Alice" || snapshot.Username != "alice" {
		t.Errorf("unexpected identity: %q %q", snapshot.Name, snapshot.Username)
	}
	if snapshot.Presence == nil || !snapshot.Presence.Online {
		t.Errorf("expected an online presence, actual: %+v", snapshot.Presence)
	}
	if !snapshot.Permissions.SendText {
		t.Error("expected send_text to be allowed for a plain user")
	}
	if snapshot.Reactions == nil || snapshot.Reactions.Policy != "all" {
		t.Errorf("expected allow-all reactions, actual: %+v", snapshot.Reactions)
	}
	if snapshot.Reactions.UniqueLimit == 0 {
		t.Error("expected a non-zero unique reactions limit")
	}
}

func TestPeerSnapshotUnknown(t *testing.T) {
	t.Parallel()

	srv, _ := newServerFixture(t, &fakeStore{})

	if rec := srv.get(t, "/peers/999"); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, actual: %d", rec.Code)
	}
	if rec := srv.get(t, "/peers/not-a-number"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, actual: %d", rec.Code)
	}
}

func TestPeerList(t *testing.T) {
	t.Parallel()

	srv, reg := newServerFixture(t, &fakeStore{})

	err := reg.Sync(context.Background(), func() {
		reg.User(100).SetName("Alice")
		reg.Channel(-1001).SetName("Wonderland")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := srv.get(t, "/peers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}

	var body struct {
		Peers []struct {
			ID   int64  `json:"id"`
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"peers"`
	}
	decodeBody(t, rec, &body)

	if len(body.Peers) != 2 {
		t.Fatalf("expected 2 peers, actual: %d", len(body.Peers))
	}
	if body.Peers[0].ID != -1001 || body.Peers[0].Kind != "supergroup" {
		t.Errorf("unexpected first entry: %+v", body.Peers[0])
	}
	if body.Peers[1].ID != 100 || body.Peers[1].Kind != "user" {
		t.Errorf("unexpected second entry: %+v", body.Peers[1])
	}
}

func TestAvatarRendering(t *testing.T) {
	t.Parallel()

	srv, reg := newServerFixture(t, &fakeStore{})

	err := reg.Sync(context.Background(), func() {
		reg.User(100).SetName("Alice")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := srv.get(t, "/peers/100/avatar?size=16")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected: %q, actual: %q", "image/png", ct)
	}
	frame, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("failed to decode avatar: %v", err)
	}
	if frame.Bounds().Dx() != 16 || frame.Bounds().Dy() != 16 {
		t.Errorf("expected a 16x16 frame, actual: %v", frame.Bounds())
	}

	if rec := srv.get(t, "/peers/100/avatar?size=100000"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an oversized avatar, actual: %d", rec.Code)
	}
}

func editFixtures(peerID int64, ids ...uint) []*database.MessageEdit {
	edits := make([]*database.MessageEdit, 0, len(ids))
	for _, id := range ids {
		edits = append(edits, &database.MessageEdit{
			ID:        id,
			PeerID:    peerID,
			MessageID: int64(id * 10),
			NewText:   "v2",
			OldText:   "v1",
			EditDate:  time.Unix(int64(1700000000+id), 0).UTC(),
		})
	}
	return edits
}

func TestEditLogEndpoint(t *testing.T) {
	t.Parallel()

	store := &fakeStore{edits: editFixtures(-200, 1, 2, 3, 4, 5)}
	srv, _ := newServerFixture(t, store)

	rec := srv.get(t, "/peers/-200/edits?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d (%s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Edits []struct {
			ID uint `json:"id"`
		} `json:"edits"`
		UpLoaded   bool `json:"up_loaded"`
		DownLoaded bool `json:"down_loaded"`
	}
	decodeBody(t, rec, &body)

	if len(body.Edits) != 2 || body.Edits[0].ID != 4 || body.Edits[1].ID != 5 {
		t.Fatalf("expected the newest two edits in order, actual: %+v", body.Edits)
	}
	if body.UpLoaded {
		t.Error("expected more history upward")
	}
	if !body.DownLoaded {
		t.Error("expected the end of history to be reached")
	}
}

func TestEditLogEndpointAround(t *testing.T) {
	t.Parallel()

	store := &fakeStore{edits: editFixtures(-200, 1, 2, 3, 4, 5)}
	srv, _ := newServerFixture(t, store)

	rec := srv.get(t, "/peers/-200/edits?around=3&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}

	var body struct {
		Edits []struct {
			ID uint `json:"id"`
		} `json:"edits"`
	}
	decodeBody(t, rec, &body)

	// Two records starting at the anchor plus two above it.
	expected := []uint{1, 2, 3, 4}
	if len(body.Edits) != len(expected) {
		t.Fatalf("expected %d edits, actual: %d", len(expected), len(body.Edits))
	}
	for i, id := range expected {
		if body.Edits[i].ID != id {
			t.Errorf("expected edit %d at index %d, actual: %d", id, i, body.Edits[i].ID)
		}
	}
}

func TestEditLogEndpointEmpty(t *testing.T) {
	t.Parallel()

	srv, _ := newServerFixture(t, &fakeStore{})

	rec := srv.get(t, "/peers/-200/edits")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}

	var body struct {
		Edits []any `json:"edits"`
		Empty *struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"empty"`
	}
	decodeBody(t, rec, &body)

	if len(body.Edits) != 0 {
		t.Errorf("expected no edits, actual: %d", len(body.Edits))
	}
	if body.Empty == nil || body.Empty.Title == "" || body.Empty.Text == "" {
		t.Errorf("expected an empty-state placeholder, actual: %+v", body.Empty)
	}
}

func TestEditSummaryEndpoint(t *testing.T) {
	t.Parallel()

	store := &fakeStore{summary: &database.EditSummary{
		PeerID:    -200,
		Summary:   "Alice rewrites announcements heavily.",
		Edits:     17,
		CreatedAt: time.Now().UTC(),
	}}
	srv, _ := newServerFixture(t, store)

	rec := srv.get(t, "/peers/-200/edits/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}
	var body struct {
		Summary string `json:"summary"`
		Edits   int    `json:"edits"`
	}
	decodeBody(t, rec, &body)
	if body.Summary == "" || body.Edits != 17 {
		t.Errorf("unexpected summary payload: %+v", body)
	}

	if rec := srv.get(t, "/peers/-999/edits/summary"); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, actual: %d", rec.Code)
	}
}

func TestStatusFeed(t *testing.T) {
	t.Parallel()

	srv, reg := newServerFixture(t, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/peers/100/status", strings.NewReader(`{"online_until": 12345}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, actual: %d (%s)", rec.Code, rec.Body.String())
	}

	// Sync queues behind the status post, so the value is applied once
	// this round-trip returns.
	var till int64
	err := reg.Sync(context.Background(), func() {
		till = reg.User(100).OnlineTill()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if till != 12345 {
		t.Errorf("expected online till 12345, actual: %d", till)
	}

	req = httptest.NewRequest(http.MethodPost, "/peers/100/status", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for a missing value, actual: %d", rec.Code)
	}
}

func TestLogoAndPreviews(t *testing.T) {
	t.Parallel()

	srv, _ := newServerFixture(t, &fakeStore{})

	rec := srv.get(t, "/app/logo")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, actual: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected: %q, actual: %q", "image/png", ct)
	}
	if rec.Header().Get("X-Logo-Name") == "" {
		t.Error("expected a logo name header")
	}

	if rec := srv.get(t, "/app/logo?variant=nomargin"); rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for the margin-free variant, actual: %d", rec.Code)
	}
	if rec := srv.get(t, "/app/previews/default"); rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for a known preview, actual: %d", rec.Code)
	}
	if rec := srv.get(t, "/app/previews/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for an unknown preview, actual: %d", rec.Code)
	}
}
