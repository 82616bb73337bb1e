package models

import "time"

// PublishRecord is one publish attempt, kept in Postgres as an audit trail
// separate from the queue document.
type PublishRecord struct {
	ID           int64     `db:"id" json:"id"`
	PostID       string    `db:"post_id" json:"post_id"`
	Channel      string    `db:"channel" json:"channel"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
