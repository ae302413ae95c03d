package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by lookups whose callers branch on absence,
// such as the latest-summary endpoint mapping it to a 404.
var ErrNotFound = errors.New("database: not found")

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessageSnapshot inserts or updates the current text of a message.
	SaveMessageSnapshot(ctx context.Context, snapshot *MessageSnapshot) error

	// GetMessageSnapshot retrieves the stored text of a message.
	// Returns nil, nil if the message was never seen.
	GetMessageSnapshot(ctx context.Context, peerID, messageID int64) (*MessageSnapshot, error)

	// RecordEdit appends an edit record and moves the message snapshot to
	// the new text in one transaction.
	RecordEdit(ctx context.Context, edit *MessageEdit) error

	// GetEditsBefore retrieves up to 'limit' edits of a peer with IDs
	// strictly below beforeID, newest first. beforeID zero means "from
	// the newest edit".
	GetEditsBefore(ctx context.Context, peerID int64, beforeID uint, limit int) ([]*MessageEdit, error)

	// GetEditsAfter retrieves up to 'limit' edits of a peer with IDs
	// strictly above afterID, oldest first.
	GetEditsAfter(ctx context.Context, peerID int64, afterID uint, limit int) ([]*MessageEdit, error)

	// CountEdits counts all edits recorded for a peer.
	CountEdits(ctx context.Context, peerID int64) (int64, error)

	// GetEditsForPeerSince retrieves all edits of a peer recorded after
	// 'since', oldest first.
	GetEditsForPeerSince(ctx context.Context, peerID int64, since time.Time) ([]*MessageEdit, error)

	// EditedPeersSince lists the peers with at least one edit recorded
	// after 'since'.
	EditedPeersSince(ctx context.Context, since time.Time) ([]int64, error)

	// DeleteEditsForPeer deletes all edits and snapshots of one peer.
	DeleteEditsForPeer(ctx context.Context, peerID int64) error

	// SaveEditSummary inserts a generated edit-activity summary.
	SaveEditSummary(ctx context.Context, summary *EditSummary) error

	// LatestEditSummary retrieves the most recent summary for a peer.
	// Returns ErrNotFound when no summary was generated yet.
	LatestEditSummary(ctx context.Context, peerID int64) (*EditSummary, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rollback undoes tx unless it was already committed.
func (s *sqlxStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if tx == nil {
		return
	}
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		if !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}
}

// SaveMessageSnapshot inserts or updates the current text of a message,
// keyed by (peer_id, message_id).
func (s *sqlxStore) SaveMessageSnapshot(ctx context.Context, snapshot *MessageSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil message snapshot")
	}
	if snapshot.PeerID == 0 {
		return fmt.Errorf("message snapshot must have a non-zero peer_id")
	}
	if snapshot.MessageID == 0 {
		return fmt.Errorf("message snapshot must have a non-zero message_id")
	}

	now := time.Now().UTC()
	snapshot.UpdatedAt = now
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	if snapshot.Date.IsZero() {
		snapshot.Date = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving snapshot",
			"peer_id", snapshot.PeerID, "message_id", snapshot.MessageID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	if err := upsertSnapshot(ctx, tx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message snapshot",
			"peer_id", snapshot.PeerID, "message_id", snapshot.MessageID, "error", err)
		return fmt.Errorf("failed to save snapshot (peer %d, message %d): %w",
			snapshot.PeerID, snapshot.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"peer_id", snapshot.PeerID, "message_id", snapshot.MessageID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message snapshot saved",
		"peer_id", snapshot.PeerID, "message_id", snapshot.MessageID)
	return nil
}

// upsertSnapshot runs the insert-or-update of one snapshot inside tx.
func upsertSnapshot(ctx context.Context, tx *sqlx.Tx, snapshot *MessageSnapshot) error {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		`SELECT 1 FROM messages WHERE peer_id = ? AND message_id = ? LIMIT 1`,
		snapshot.PeerID, snapshot.MessageID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check if snapshot exists: %w", err)
	}

	if exists {
		query := `
			UPDATE messages SET
				user_id = :user_id,
				text = :text,
				date = :date,
				updated_at = :updated_at
			WHERE peer_id = :peer_id AND message_id = :message_id
		`
		_, err = tx.NamedExecContext(ctx, query, snapshot)
		return err
	}

	query := `
		INSERT INTO messages (peer_id, message_id, user_id, text, date, created_at, updated_at)
		VALUES (:peer_id, :message_id, :user_id, :text, :date, :created_at, :updated_at)
	`
	result, err := tx.NamedExecContext(ctx, query, snapshot)
	if err != nil {
		return err
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		snapshot.ID = uint(id)
	}
	return nil
}

// GetMessageSnapshot retrieves the stored text of a message. Returns
// nil, nil if the message was never seen.
func (s *sqlxStore) GetMessageSnapshot(ctx context.Context, peerID, messageID int64) (*MessageSnapshot, error) {
	if peerID == 0 {
		return nil, fmt.Errorf("peer_id cannot be zero")
	}
	if messageID == 0 {
		return nil, fmt.Errorf("message_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var snapshot MessageSnapshot
	query := `SELECT id, created_at, updated_at, peer_id, message_id, user_id, text, date
	          FROM messages WHERE peer_id = ? AND message_id = ?`

	err := s.db.GetContext(ctx, &snapshot, query, peerID, messageID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// An unseen message is expected for edits of old history.
		s.logger.DebugContext(ctx, "No snapshot found", "peer_id", peerID, "message_id", messageID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching snapshot",
			"peer_id", peerID, "message_id", messageID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting message snapshot",
			"peer_id", peerID, "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to get snapshot (peer %d, message %d): %w", peerID, messageID, err)
	}

	return &snapshot, nil
}

// RecordEdit appends an edit record and moves the message snapshot to the
// new text, atomically.
func (s *sqlxStore) RecordEdit(ctx context.Context, edit *MessageEdit) error {
	if edit == nil {
		return fmt.Errorf("cannot record nil edit")
	}
	if edit.PeerID == 0 {
		return fmt.Errorf("edit must have a non-zero peer_id")
	}
	if edit.MessageID == 0 {
		return fmt.Errorf("edit must have a non-zero message_id")
	}
	if edit.EditDate.IsZero() {
		edit.EditDate = time.Now().UTC()
	}
	edit.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for recording edit",
			"peer_id", edit.PeerID, "message_id", edit.MessageID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	query := `
		INSERT INTO message_edits (peer_id, message_id, user_id, old_text, new_text, edit_date, created_at)
		VALUES (:peer_id, :message_id, :user_id, :old_text, :new_text, :edit_date, :created_at)
	`
	result, err := tx.NamedExecContext(ctx, query, edit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording edit",
			"peer_id", edit.PeerID, "message_id", edit.MessageID, "error", err)
		return fmt.Errorf("failed to record edit (peer %d, message %d): %w",
			edit.PeerID, edit.MessageID, err)
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		edit.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after recording edit",
			"peer_id", edit.PeerID, "message_id", edit.MessageID, "error", idErr)
	}

	// The snapshot follows the edit so the next edit of the same message
	// recovers this text as its old text.
	snapshot := &MessageSnapshot{
		PeerID:    edit.PeerID,
		MessageID: edit.MessageID,
		UserID:    edit.UserID,
		Text:      edit.NewText,
		Date:      edit.EditDate,
		CreatedAt: edit.CreatedAt,
		UpdatedAt: edit.CreatedAt,
	}
	if err := upsertSnapshot(ctx, tx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Error updating snapshot after edit",
			"peer_id", edit.PeerID, "message_id", edit.MessageID, "error", err)
		return fmt.Errorf("failed to update snapshot after edit (peer %d, message %d): %w",
			edit.PeerID, edit.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"peer_id", edit.PeerID, "message_id", edit.MessageID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Edit recorded",
		"peer_id", edit.PeerID, "message_id", edit.MessageID, "edit_id", edit.ID)
	return nil
}

// GetEditsBefore retrieves up to 'limit' edits of a peer with IDs
// strictly below beforeID, newest first.
func (s *sqlxStore) GetEditsBefore(ctx context.Context, peerID int64, beforeID uint, limit int) ([]*MessageEdit, error) {
	if peerID == 0 {
		return nil, fmt.Errorf("peer_id cannot be zero")
	}
	if limit <= 0 {
		limit = 20
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if beforeID == 0 {
		// A max ID makes the condition admit the newest edits.
		beforeID = ^uint(0)
	}

	var edits []*MessageEdit
	query := `
        SELECT id, created_at, peer_id, message_id, user_id, old_text, new_text, edit_date
        FROM message_edits
        WHERE peer_id = ? AND id < ?
        ORDER BY id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &edits, query, peerID, beforeID, limit)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching edits",
			"peer_id", peerID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting edits before anchor",
			"peer_id", peerID, "before_id", beforeID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get edits for peer %d: %w", peerID, err)
	}

	s.logger.DebugContext(ctx, "Fetched edits before anchor",
		"peer_id", peerID, "before_id", beforeID, "count", len(edits))
	return edits, nil
}

// GetEditsAfter retrieves up to 'limit' edits of a peer with IDs strictly
// above afterID, oldest first.
func (s *sqlxStore) GetEditsAfter(ctx context.Context, peerID int64, afterID uint, limit int) ([]*MessageEdit, error) {
	if peerID == 0 {
		return nil, fmt.Errorf("peer_id cannot be zero")
	}
	if limit <= 0 {
		limit = 20
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var edits []*MessageEdit
	query := `
        SELECT id, created_at, peer_id, message_id, user_id, old_text, new_text, edit_date
        FROM message_edits
        WHERE peer_id = ? AND id > ?
        ORDER BY id ASC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &edits, query, peerID, afterID, limit)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching edits",
			"peer_id", peerID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting edits after anchor",
			"peer_id", peerID, "after_id", afterID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get edits for peer %d: %w", peerID, err)
	}

	s.logger.DebugContext(ctx, "Fetched edits after anchor",
		"peer_id", peerID, "after_id", afterID, "count", len(edits))
	return edits, nil
}

// CountEdits counts all edits recorded for a peer.
func (s *sqlxStore) CountEdits(ctx context.Context, peerID int64) (int64, error) {
	if peerID == 0 {
		return 0, fmt.Errorf("peer_id cannot be zero")
	}

	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM message_edits WHERE peer_id = ?`, peerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting edits", "peer_id", peerID, "error", err)
		return 0, fmt.Errorf("failed to count edits for peer %d: %w", peerID, err)
	}
	return count, nil
}

// GetEditsForPeerSince retrieves all edits of a peer recorded after
// 'since', oldest first.
func (s *sqlxStore) GetEditsForPeerSince(ctx context.Context, peerID int64, since time.Time) ([]*MessageEdit, error) {
	if peerID == 0 {
		return nil, fmt.Errorf("peer_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var edits []*MessageEdit
	query := `
        SELECT id, created_at, peer_id, message_id, user_id, old_text, new_text, edit_date
        FROM message_edits
        WHERE peer_id = ? AND edit_date >= ?
        ORDER BY id ASC;
    `

	err := s.db.SelectContext(ctx, &edits, query, peerID, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting edits since",
			"peer_id", peerID, "since", since, "error", err)
		return nil, fmt.Errorf("failed to get edits for peer %d since %s: %w", peerID, since, err)
	}

	s.logger.DebugContext(ctx, "Fetched edits since",
		"peer_id", peerID, "since", since, "count", len(edits))
	return edits, nil
}

// EditedPeersSince lists the peers with at least one edit recorded after
// 'since'.
func (s *sqlxStore) EditedPeersSince(ctx context.Context, since time.Time) ([]int64, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var peers []int64
	query := `SELECT DISTINCT peer_id FROM message_edits WHERE edit_date >= ? ORDER BY peer_id`

	err := s.db.SelectContext(ctx, &peers, query, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing edited peers", "since", since, "error", err)
		return nil, fmt.Errorf("failed to list edited peers since %s: %w", since, err)
	}
	return peers, nil
}

// DeleteEditsForPeer deletes all edits and snapshots of one peer.
func (s *sqlxStore) DeleteEditsForPeer(ctx context.Context, peerID int64) error {
	if peerID == 0 {
		return fmt.Errorf("peer_id cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for peer data deletion",
			"peer_id", peerID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	editsResult, err := tx.ExecContext(ctx, `DELETE FROM message_edits WHERE peer_id = ?`, peerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting edits", "peer_id", peerID, "error", err)
		return fmt.Errorf("failed to delete edits for peer %d: %w", peerID, err)
	}
	editsCount, _ := editsResult.RowsAffected()

	snapshotsResult, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE peer_id = ?`, peerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting snapshots", "peer_id", peerID, "error", err)
		return fmt.Errorf("failed to delete snapshots for peer %d: %w", peerID, err)
	}
	snapshotsCount, _ := snapshotsResult.RowsAffected()

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction for peer data deletion",
			"peer_id", peerID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Deleted peer data",
		"peer_id", peerID, "edits_deleted", editsCount, "snapshots_deleted", snapshotsCount)
	return nil
}

// SaveEditSummary inserts a generated edit-activity summary.
func (s *sqlxStore) SaveEditSummary(ctx context.Context, summary *EditSummary) error {
	if summary == nil {
		return fmt.Errorf("cannot save nil edit summary")
	}
	if summary.PeerID == 0 {
		return fmt.Errorf("edit summary must have a non-zero peer_id")
	}
	if summary.Summary == "" {
		return fmt.Errorf("edit summary must have non-empty text")
	}
	summary.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO edit_summaries (peer_id, summary, edits, created_at)
		VALUES (:peer_id, :summary, :edits, :created_at)
	`
	result, err := s.db.NamedExecContext(ctx, query, summary)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving edit summary", "peer_id", summary.PeerID, "error", err)
		return fmt.Errorf("failed to save edit summary for peer %d: %w", summary.PeerID, err)
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		summary.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Edit summary saved", "peer_id", summary.PeerID, "edits", summary.Edits)
	return nil
}

// LatestEditSummary retrieves the most recent summary for a peer.
func (s *sqlxStore) LatestEditSummary(ctx context.Context, peerID int64) (*EditSummary, error) {
	if peerID == 0 {
		return nil, fmt.Errorf("peer_id cannot be zero")
	}

	var summary EditSummary
	query := `SELECT id, created_at, peer_id, summary, edits
	          FROM edit_summaries WHERE peer_id = ?
	          ORDER BY id DESC LIMIT 1`

	err := s.db.GetContext(ctx, &summary, query, peerID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("no summary for peer %d: %w", peerID, ErrNotFound)

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting latest edit summary", "peer_id", peerID, "error", err)
		return nil, fmt.Errorf("failed to get latest summary for peer %d: %w", peerID, err)
	}

	return &summary, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite; raise the busy
	// timeout first so it waits for in-flight writes instead of failing.
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		s.logger.WarnContext(ctx, "Database maintenance (ANALYZE) failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
