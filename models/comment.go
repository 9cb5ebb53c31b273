package models

import "time"

// Comment represents a reply in a post's thread. PostID comes from the storage path.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}
