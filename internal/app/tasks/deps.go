// Package tasks implements the scheduled tasks of the PeerWatch
// application. It includes task definitions, dependencies, and
// registration mechanisms.
package tasks

import (
	"log/slog"

	"github.com/edgard/peerwatch/internal/config"
	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/gemini"
)

// TaskDeps contains all dependencies required by scheduled tasks.
// GeminiClient may be nil when no API key is configured; tasks that need
// it skip their work.
type TaskDeps struct {
	Logger       *slog.Logger
	Store        database.Store
	GeminiClient gemini.Client
	Config       *config.Config
}
