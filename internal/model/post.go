package model

import "time"

// Post is a single message on the shared board. Posts are immutable after
// creation; the only mutation is deletion by the author or an admin.
// AuthorName is denormalized at creation time so listings don't need a join.
type Post struct {
	ID         string    `json:"id" db:"id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
