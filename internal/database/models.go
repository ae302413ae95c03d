package database

import (
	"time"
)

// MessageSnapshot stores the current text of one message, keyed by peer
// and message ID. When an edit arrives, the snapshot is what recovers the
// text it replaced.
type MessageSnapshot struct {
	ID        uint      `db:"id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`

	PeerID    int64     `db:"peer_id" json:"peer_id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Text      string    `db:"text" json:"text"`
	Date      time.Time `db:"date" json:"date"`
}

// MessageEdit is one observed edit: the text a message carried before and
// after. OldText is empty when the message was never seen in its original
// form.
type MessageEdit struct {
	ID        uint      `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"-"`

	PeerID    int64     `db:"peer_id" json:"peer_id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	OldText   string    `db:"old_text" json:"old_text"`
	NewText   string    `db:"new_text" json:"new_text"`
	EditDate  time.Time `db:"edit_date" json:"edit_date"`
}

// EditSummary is a generated digest of recent edit activity in one chat.
type EditSummary struct {
	ID        uint      `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	PeerID  int64  `db:"peer_id" json:"peer_id"`
	Summary string `db:"summary" json:"summary"`
	Edits   int    `db:"edits" json:"edits"`
}
