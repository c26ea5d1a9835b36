// Package models defines the data model shared between the HTTP boundary,
// the socket protocol and the synchronization core.
package models

// Message is one chat message. Immutable once created except for
// UnreadCount, which the server may revise in place via an updated-message
// event referencing the same ID.
type Message struct {
	ID          int64  `json:"id"`
	Sender      int64  `json:"sender"`
	SenderNick  string `json:"sender_nick"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"` // unix epoch seconds
	UnreadCount int    `json:"unread_cnt"`
}

// Before reports the authoritative history order: CreatedAt ascending with
// ID as the tiebreak for equal timestamps.
func (m Message) Before(other Message) bool {
	if m.CreatedAt != other.CreatedAt {
		return m.CreatedAt < other.CreatedAt
	}
	return m.ID < other.ID
}
