package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/peerwatch/internal/database"
)

const (
	// analysisTimeout bounds one full analysis run across all peers.
	analysisTimeout = 5 * time.Minute

	// analysisWindow is how far back a run looks for edit activity.
	analysisWindow = 24 * time.Hour

	// minEditsForSummary skips peers with too little activity to be
	// worth an API call.
	minEditsForSummary = 3
)

// newEditAnalysisTask creates a scheduled task that summarizes the recent
// edit activity of each peer through the Gemini client and stores the
// resulting notes.
func newEditAnalysisTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "edit_analysis")

	return func(ctx context.Context) error {
		if deps.GeminiClient == nil {
			log.InfoContext(ctx, "Edit analysis skipped, no Gemini client configured")
			return nil
		}

		log.InfoContext(ctx, "Starting scheduled edit analysis task...")
		startTime := time.Now()

		// Set timeout for the entire analysis operation
		timeoutCtx, cancel := context.WithTimeout(ctx, analysisTimeout)
		defer cancel()

		since := time.Now().Add(-analysisWindow).UTC()
		peers, err := deps.Store.EditedPeersSince(timeoutCtx, since)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list peers with edit activity", "error", err)
			return fmt.Errorf("failed to list edited peers: %w", err)
		}
		if len(peers) == 0 {
			log.InfoContext(ctx, "Edit analysis completed - no edit activity found", "duration", time.Since(startTime))
			return nil
		}
		log.InfoContext(ctx, "Found peers with edit activity", "count", len(peers))

		var summarized, skipped, failed int
		for _, peerID := range peers {
			if timeoutCtx.Err() != nil {
				break
			}

			edits, err := deps.Store.GetEditsForPeerSince(timeoutCtx, peerID, since)
			if err != nil {
				log.ErrorContext(ctx, "Failed to load edits for peer", "error", err, "peer_id", peerID)
				failed++
				continue
			}
			if len(edits) < minEditsForSummary {
				skipped++
				continue
			}

			summary, err := deps.GeminiClient.SummarizeEdits(timeoutCtx, peerID, edits)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					break
				}
				log.ErrorContext(ctx, "Failed to summarize edits via Gemini", "error", err, "peer_id", peerID)
				failed++
				continue
			}

			record := &database.EditSummary{
				PeerID:  peerID,
				Summary: summary,
				Edits:   len(edits),
			}
			if err := deps.Store.SaveEditSummary(timeoutCtx, record); err != nil {
				log.ErrorContext(ctx, "Failed to save edit summary", "error", err, "peer_id", peerID)
				failed++
				continue
			}
			summarized++
		}

		duration := time.Since(startTime)

		if ctxErr := timeoutCtx.Err(); ctxErr != nil {
			log.WarnContext(ctx, "Edit analysis timed out or was cancelled",
				"error", ctxErr, "summarized", summarized, "duration", duration)
			return fmt.Errorf("edit analysis timed out or was cancelled: %w", ctxErr)
		}

		if failed > 0 {
			log.WarnContext(ctx, "Edit analysis completed with failures",
				"summarized", summarized, "skipped", skipped, "failed", failed, "duration", duration)
			return fmt.Errorf("edit analysis failed for %d of %d peers", failed, len(peers))
		}

		log.InfoContext(ctx, "Edit analysis completed successfully",
			"summarized", summarized, "skipped", skipped, "duration", duration)
		return nil
	}
}
