package domain

import "time"

// CommentType differentiates comment records.
type CommentType string

const (
	CommentTypeComment CommentType = "COMMENT"
)

// Comment is a ticket thread entry visible to the requester unless Internal.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Text      string
	Type      CommentType
	Internal  bool
	CreatedAt time.Time
}

// WorkNote is an internal note only visible to support staff.
type WorkNote struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Note      string
	CreatedAt time.Time
}
