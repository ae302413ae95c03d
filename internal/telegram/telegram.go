// Package telegram connects the peer registry and the edit store to the
// Bot API: it configures the long-polling client, translates incoming
// updates into registry state, and resolves avatar file references into
// download URLs.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/peerwatch/internal/media"
)

// DefaultAllowedUpdates names the update kinds the ingest consumes. The
// member updates are opt-in on the Bot API side and must be requested
// explicitly, or the server never delivers them.
var DefaultAllowedUpdates = bot.AllowedUpdates{
	"message",
	"edited_message",
	"channel_post",
	"edited_channel_post",
	"my_chat_member",
	"chat_member",
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully")
	return b, nil
}

// NewFileResolver adapts the bot's file API into the downloader's
// resolver: a Bot API file ID in, a short-lived download URL out.
func NewFileResolver(b *bot.Bot, token string) media.Resolver {
	return func(ctx context.Context, fileRef string) (string, error) {
		file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileRef})
		if err != nil {
			return "", fmt.Errorf("failed to get file info from Telegram: %w", err)
		}
		if file.FilePath == "" {
			return "", fmt.Errorf("empty file path returned from Telegram for file %q", fileRef)
		}
		return fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, file.FilePath), nil
	}
}

// RegisterIngestHandler attaches the update ingest as a catch-all handler
// on an already constructed bot. Registration happens after construction
// because the ingest's dependencies need the bot instance themselves.
func RegisterIngestHandler(b *bot.Bot, logger *slog.Logger, handler bot.HandlerFunc) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if handler == nil {
		return fmt.Errorf("ingest handler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b.RegisterHandlerMatchFunc(matchAllUpdates, handler)
	logger.With("component", "handler_registry").Info("Registered update ingest handler")
	return nil
}

func matchAllUpdates(_ *models.Update) bool {
	return true
}
