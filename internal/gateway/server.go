package gateway

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/peerwatch/assets"
	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/editlog"
	"github.com/edgard/peerwatch/internal/peer"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second

	defaultAvatarSize = 64
	maxAvatarSize     = 512
	defaultEditLimit  = 20
	maxEditLimit      = 100
)

// ServerDeps provides dependencies for the HTTP server.
type ServerDeps struct {
	Logger   *slog.Logger
	Registry *peer.Registry
	Store    database.Store
	Hub      *Hub
}

// Server is the local HTTP surface for UI clients: peer snapshots,
// avatars, the edit log, a presence feed and the WebSocket endpoint.
type Server struct {
	deps ServerDeps
	log  *slog.Logger
	http *http.Server
}

// Gin mode is process-global; flip it exactly once.
var ginModeOnce sync.Once

func configureGin() {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
}

// NewServer builds the server and its routes. Run must be called to
// start serving.
func NewServer(addr string, deps ServerDeps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		deps: deps,
		log:  log.With("component", "gateway"),
	}

	configureGin()
	router := gin.New()
	router.Use(requestLogger(s.log), gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/peers", s.handlePeerList)
	router.GET("/peers/:id", s.handlePeer)
	router.GET("/peers/:id/avatar", s.handleAvatar)
	router.GET("/peers/:id/edits", s.handleEdits)
	router.GET("/peers/:id/edits/summary", s.handleEditSummary)
	router.POST("/peers/:id/status", s.handleStatus)
	router.GET("/app/logo", s.handleLogo)
	router.GET("/app/previews/:name", s.handlePreview)
	router.GET("/ws", deps.Hub.ServeWS)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully. It
// returns the context's error on a clean stop so an errgroup shuts the
// whole application down together.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway server started", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("gateway server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Failed to shut down gateway server gracefully", "error", err)
	}
	return ctx.Err()
}

// requestLogger logs one line per handled request.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug("HTTP request handled",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(startTime),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type peerListEntry struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

func (s *Server) handlePeerList(c *gin.Context) {
	reg := s.deps.Registry

	var entries []peerListEntry
	err := reg.Sync(c.Request.Context(), func() {
		peers := reg.Peers()
		entries = make([]peerListEntry, 0, len(peers))
		for _, p := range peers {
			entries = append(entries, peerListEntry{
				ID:       int64(p.ID()),
				Kind:     peerKind(p),
				Name:     p.Name(),
				Username: p.Username(),
			})
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	c.JSON(http.StatusOK, gin.H{"peers": entries})
}

type presenceSnapshot struct {
	Phrase     string `json:"phrase"`
	PhraseFull string `json:"phrase_full"`
	Online     bool   `json:"online"`
}

type permissionsSnapshot struct {
	SendText        bool `json:"send_text"`
	SendMedia       bool `json:"send_media"`
	PinMessages     bool `json:"pin_messages"`
	ManageGroupCall bool `json:"manage_group_call"`
}

type reactionsSnapshot struct {
	Policy      string   `json:"policy"`
	Reactions   []string `json:"reactions,omitempty"`
	UniqueLimit int      `json:"unique_limit"`
}

type peerSnapshot struct {
	ID          int64               `json:"id"`
	Kind        string              `json:"kind"`
	Name        string              `json:"name"`
	Username    string              `json:"username,omitempty"`
	PhotoID     uint64              `json:"photo_id,omitempty"`
	Flags       uint32              `json:"flags"`
	Presence    *presenceSnapshot   `json:"presence,omitempty"`
	Permissions permissionsSnapshot `json:"permissions"`
	Reactions   *reactionsSnapshot  `json:"reactions,omitempty"`
}

func (s *Server) handlePeer(c *gin.Context) {
	id, ok := peerIDParam(c)
	if !ok {
		return
	}
	reg := s.deps.Registry

	var (
		snapshot peerSnapshot
		found    bool
	)
	err := reg.Sync(c.Request.Context(), func() {
		p, ok := reg.LookupPeer(peer.PeerID(id))
		if !ok {
			return
		}
		found = true
		snapshot = snapshotPeer(reg, p)
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown peer"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// snapshotPeer reads one peer's state. Must run on the registry loop.
func snapshotPeer(reg *peer.Registry, p peer.Peer) peerSnapshot {
	snapshot := peerSnapshot{
		ID:       int64(p.ID()),
		Kind:     peerKind(p),
		Name:     p.Name(),
		Username: p.Username(),
		PhotoID:  p.PhotoID(),
		Permissions: permissionsSnapshot{
			SendText:        peer.CanSendAnyOf(p, peer.RestrictSendText, false),
			SendMedia:       peer.CanSendAnyOf(p, peer.RestrictSendMedia, false),
			PinMessages:     peer.CanPinMessages(p),
			ManageGroupCall: peer.CanManageGroupCall(p),
		},
	}

	switch v := p.(type) {
	case *peer.User:
		snapshot.Flags = uint32(v.Flags().Current())
		now := time.Now().Unix()
		snapshot.Presence = &presenceSnapshot{
			Phrase:     v.OnlineText(now),
			PhraseFull: v.OnlineTextFull(now),
			Online:     v.IsOnline(now),
		}
	case *peer.Chat:
		snapshot.Flags = uint32(v.Flags().Current())
	case *peer.Channel:
		snapshot.Flags = uint32(v.Flags().Current())
	}

	allowed := peer.AllowedReactionsFor(p)
	if allowed != nil {
		reactions := &reactionsSnapshot{
			Policy:      "all",
			UniqueLimit: peer.UniqueReactionsLimit(reg.Config()),
		}
		if allowed.Type == peer.ReactionsSome {
			reactions.Policy = "some"
			for _, r := range allowed.Some {
				reactions.Reactions = append(reactions.Reactions, r.String())
			}
		}
		snapshot.Reactions = reactions
	}
	return snapshot
}

func (s *Server) handleAvatar(c *gin.Context) {
	id, ok := peerIDParam(c)
	if !ok {
		return
	}
	size := intQuery(c, "size", defaultAvatarSize)
	if size < 1 || size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("size must be between 1 and %d", maxAvatarSize)})
		return
	}
	// Negative radius renders a full circle, the default avatar shape.
	radius := intQuery(c, "radius", -1)

	reg := s.deps.Registry
	var (
		frame image.Image
		found bool
	)
	err := reg.Sync(c.Request.Context(), func() {
		p, ok := reg.LookupPeer(peer.PeerID(id))
		if !ok {
			return
		}
		found = true
		frame = peer.UserpicImage(p, size, radius)
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown peer"})
		return
	}

	c.Writer.Header().Set("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, frame); err != nil {
		s.log.Error("Failed to encode avatar", "error", err, "peer_id", id)
	}
}

func (s *Server) handleEdits(c *gin.Context) {
	id, ok := peerIDParam(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", defaultEditLimit)
	if limit < 1 || limit > maxEditLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxEditLimit)})
		return
	}
	around, err := strconv.ParseUint(c.DefaultQuery("around", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "around must be a record ID"})
		return
	}

	ctx := c.Request.Context()
	list := editlog.NewList(editlog.Options{
		Store:   s.deps.Store,
		Logger:  s.log,
		Phrases: s.deps.Registry.Phrases(),
		PeerID:  id,
	})

	if around > 0 {
		list.PositionAround(uint(around))
		if _, err := list.LoadDown(ctx, limit); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if _, err := list.LoadUp(ctx, limit); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	} else {
		list.PositionAtEnd()
		if _, err := list.LoadUp(ctx, limit); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	response := gin.H{
		"peer_id":     id,
		"edits":       editEntries(list.Items()),
		"up_loaded":   list.UpLoaded(),
		"down_loaded": list.DownLoaded(),
	}
	if list.Empty() {
		response["empty"] = gin.H{
			"title": list.EmptyTitle(),
			"text":  list.EmptyText(),
		}
	}
	c.JSON(http.StatusOK, response)
}

type editEntry struct {
	ID        uint      `json:"id"`
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id,omitempty"`
	OldText   string    `json:"old_text"`
	NewText   string    `json:"new_text"`
	EditDate  time.Time `json:"edit_date"`
}

func editEntries(edits []*database.MessageEdit) []editEntry {
	entries := make([]editEntry, 0, len(edits))
	for _, e := range edits {
		entries = append(entries, editEntry{
			ID:        e.ID,
			MessageID: e.MessageID,
			UserID:    e.UserID,
			OldText:   e.OldText,
			NewText:   e.NewText,
			EditDate:  e.EditDate,
		})
	}
	return entries
}

func (s *Server) handleEditSummary(c *gin.Context) {
	id, ok := peerIDParam(c)
	if !ok {
		return
	}
	summary, err := s.deps.Store.LatestEditSummary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no summary yet"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"peer_id":    summary.PeerID,
		"summary":    summary.Summary,
		"edits":      summary.Edits,
		"created_at": summary.CreatedAt,
	})
}

// handleStatus accepts explicit presence values, e.g. from an
// MTProto-side companion that sees real "online until" timestamps the
// Bot API never exposes.
func (s *Server) handleStatus(c *gin.Context) {
	id, ok := peerIDParam(c)
	if !ok {
		return
	}
	var req struct {
		OnlineUntil *int64 `json:"online_until" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must carry online_until"})
		return
	}

	reg := s.deps.Registry
	till := *req.OnlineUntil
	reg.Post(func() {
		reg.User(peer.PeerID(id)).SetOnlineTill(till)
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) handleLogo(c *gin.Context) {
	data := assets.AppLogo()
	if c.Query("variant") == "nomargin" {
		data = assets.AppLogoNoMargin()
	}
	c.Header("X-Logo-Name", assets.LogoName())
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handlePreview(c *gin.Context) {
	data, err := assets.Preview(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown preview"})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func peerKind(p peer.Peer) string {
	switch v := p.(type) {
	case *peer.User:
		return "user"
	case *peer.Chat:
		return "group"
	case *peer.Channel:
		if v.IsBroadcast() {
			return "channel"
		}
		return "supergroup"
	default:
		return "peer"
	}
}

func peerIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer ID must be an integer"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
