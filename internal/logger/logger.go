// Package logger provides structured logging for peerwatch. It uses Go's
// slog package with configurable levels and formats.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Middleware creates a logging middleware for the Telegram listener.
// It logs the shape and timing of every incoming update.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID)

			var updateType string
			switch {
			case update.Message != nil:
				updateType = "message"
				logEntry = messageEntry(logEntry, update.Message)
			case update.EditedMessage != nil:
				updateType = "edited_message"
				logEntry = messageEntry(logEntry, update.EditedMessage)
			case update.ChannelPost != nil:
				updateType = "channel_post"
				logEntry = messageEntry(logEntry, update.ChannelPost)
			case update.EditedChannelPost != nil:
				updateType = "edited_channel_post"
				logEntry = messageEntry(logEntry, update.EditedChannelPost)
			case update.MyChatMember != nil:
				updateType = "my_chat_member"
				logEntry = memberEntry(logEntry, update.MyChatMember)
			case update.ChatMember != nil:
				updateType = "chat_member"
				logEntry = memberEntry(logEntry, update.ChatMember)
			default:
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			duration := time.Since(startTime)
			logEntry.DebugContext(ctx, "Finished processing update", "duration", duration)
		}
	}
}

func messageEntry(logEntry *slog.Logger, msg *models.Message) *slog.Logger {
	logEntry = logEntry.With(
		"message_id", msg.ID,
		"chat_id", msg.Chat.ID,
		"text_preview", truncateString(msg.Text, 50),
	)
	if msg.From != nil {
		logEntry = logEntry.With("user_id", msg.From.ID)
	}
	return logEntry
}

func memberEntry(logEntry *slog.Logger, upd *models.ChatMemberUpdated) *slog.Logger {
	return logEntry.With(
		"chat_id", upd.Chat.ID,
		"actor_id", upd.From.ID,
		"new_status", upd.NewChatMember.Type,
	)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
