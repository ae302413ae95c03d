package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/peer"
)

const (
	dbSaveTimeout   = 5 * time.Second
	chatInfoTimeout = 10 * time.Second
)

// Notifier receives freshly recorded edits so they can be fanned out to
// connected gateway clients.
type Notifier interface {
	EditRecorded(edit *database.MessageEdit)
}

// IngestDeps provides dependencies for the update ingest handler.
type IngestDeps struct {
	Logger   *slog.Logger
	Registry *peer.Registry
	Store    database.Store
	Notifier Notifier
}

type ingestHandler struct {
	deps IngestDeps
}

// NewIngestHandler creates the handler that translates Bot API updates
// into peer state and edit records. Registry mutations are posted onto
// the registry loop; store writes run on the handler's own goroutine
// with a bounded timeout.
func NewIngestHandler(deps IngestDeps) bot.HandlerFunc {
	return ingestHandler{deps}.Handle
}

func (h ingestHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		h.handleEdited(ctx, update.EditedMessage)
	case update.ChannelPost != nil:
		h.handleMessage(ctx, update.ChannelPost)
	case update.EditedChannelPost != nil:
		h.handleEdited(ctx, update.EditedChannelPost)
	case update.MyChatMember != nil:
		h.handleMyChatMember(ctx, b, update.MyChatMember)
	case update.ChatMember != nil:
		h.handleChatMember(update.ChatMember)
	default:
		h.deps.Logger.DebugContext(ctx, "Ignoring update without usable payload", "update_id", update.ID)
	}
}

// handleMessage refreshes the chat and sender state a message reveals and
// snapshots its text so a later edit can recover what it said.
func (h ingestHandler) handleMessage(ctx context.Context, msg *models.Message) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	reg := deps.Registry
	reg.Post(func() {
		target := applyChat(reg, &msg.Chat)
		if msg.From != nil {
			sender := applyUser(reg, msg.From)
			if !sender.IsBot() {
				sender.SetOnlineTill(int64(msg.Date))
			}
		}
		applyPhotoSignals(target, msg)
		if channel, ok := target.(*peer.Channel); ok {
			applyTopicSignals(reg, channel, msg)
		}
	})

	text := messageText(msg)
	if text == "" {
		return
	}

	snapshot := &database.MessageSnapshot{
		PeerID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Text:      text,
		Date:      time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.From != nil {
		snapshot.UserID = msg.From.ID
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()
	if err := deps.Store.SaveMessageSnapshot(dbCtx, snapshot); err != nil {
		log.ErrorContext(ctx, "Failed to save message snapshot", "error", err, "chat_id", msg.Chat.ID, "message_id", msg.ID)
	}
}

// handleEdited records one edit: the pre-edit text comes from the
// snapshot store, the new text from the update.
func (h ingestHandler) handleEdited(ctx context.Context, msg *models.Message) {
	deps := h.deps
	log := deps.Logger.With("handler", "edited_message")

	editDate := msg.EditDate
	if editDate == 0 {
		editDate = msg.Date
	}

	reg := deps.Registry
	reg.Post(func() {
		applyChat(reg, &msg.Chat)
		if msg.From != nil {
			sender := applyUser(reg, msg.From)
			if !sender.IsBot() {
				sender.SetOnlineTill(int64(editDate))
			}
		}
	})

	newText := messageText(msg)
	if newText == "" {
		// Media-only edits carry no text to log.
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()

	oldText := ""
	snapshot, err := deps.Store.GetMessageSnapshot(dbCtx, msg.Chat.ID, int64(msg.ID))
	if err != nil {
		log.WarnContext(ctx, "Failed to look up pre-edit text, recording edit without it", "error", err, "chat_id", msg.Chat.ID, "message_id", msg.ID)
	} else if snapshot != nil {
		oldText = snapshot.Text
	}
	if oldText == newText {
		// Formatting or media changed; the text this log tracks did not.
		return
	}

	edit := &database.MessageEdit{
		PeerID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		OldText:   oldText,
		NewText:   newText,
		EditDate:  time.Unix(int64(editDate), 0).UTC(),
	}
	if msg.From != nil {
		edit.UserID = msg.From.ID
	}

	if err := deps.Store.RecordEdit(dbCtx, edit); err != nil {
		log.ErrorContext(ctx, "Failed to record edit", "error", err, "chat_id", msg.Chat.ID, "message_id", msg.ID)
		return
	}
	log.DebugContext(ctx, "Recorded message edit", "chat_id", msg.Chat.ID, "message_id", msg.ID)

	if deps.Notifier != nil {
		deps.Notifier.EditRecorded(edit)
	}
}

// handleMyChatMember folds our own membership transition into the peer's
// flag, rights and restriction cells, then refreshes the full chat
// snapshot while we still have access to it.
func (h ingestHandler) handleMyChatMember(ctx context.Context, b *bot.Bot, upd *models.ChatMemberUpdated) {
	deps := h.deps
	log := deps.Logger.With("handler", "my_chat_member")

	member := upd.NewChatMember
	reg := deps.Registry
	reg.Post(func() {
		target := applyChat(reg, &upd.Chat)
		actor := applyUser(reg, &upd.From)
		if !actor.IsBot() {
			actor.SetOnlineTill(int64(upd.Date))
		}
		switch p := target.(type) {
		case *peer.Chat:
			applyChatMembership(p, member)
		case *peer.Channel:
			applyChannelMembership(p, member)
		}
	})

	if upd.Chat.Type == models.ChatTypePrivate || !isParticipating(member) {
		return
	}

	infoCtx, cancel := context.WithTimeout(ctx, chatInfoTimeout)
	defer cancel()
	info, err := b.GetChat(infoCtx, &bot.GetChatParams{ChatID: upd.Chat.ID})
	if err != nil {
		log.WarnContext(ctx, "Failed to fetch chat snapshot", "error", err, "chat_id", upd.Chat.ID)
		return
	}
	reg.Post(func() {
		applyChatInfo(reg, info)
	})
	log.DebugContext(ctx, "Applied chat snapshot", "chat_id", upd.Chat.ID)
}

// handleChatMember refreshes identity state for membership changes of
// other users. Their rights do not affect ours, but the update still
// names fresh user payloads and proves the actor was just online.
func (h ingestHandler) handleChatMember(upd *models.ChatMemberUpdated) {
	reg := h.deps.Registry
	reg.Post(func() {
		applyChat(reg, &upd.Chat)
		actor := applyUser(reg, &upd.From)
		if !actor.IsBot() {
			actor.SetOnlineTill(int64(upd.Date))
		}
		if subject := memberUser(upd.NewChatMember); subject != nil {
			applyUser(reg, subject)
		}
	})
}

// messageText returns the loggable text of a message: the text itself or
// the media caption.
func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}
