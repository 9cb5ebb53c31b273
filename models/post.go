package models

import "time"

// Post is a feed entry with one image and a like counter.
type Post struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ImageBase64     string    `json:"image"`
	AuthorID        string    `json:"author_id"`
	AuthorName      string    `json:"author_name"`
	AuthorAvatarURL string    `json:"author_avatar_url"`
	CreatedAt       time.Time `json:"created_at"`
	LikeCount       int64     `json:"like_count"`
	LikedBy         []string  `json:"-"`
}

// IsLikedBy reports whether viewerID is in the liker set. An empty id never matches.
func (p Post) IsLikedBy(viewerID string) bool {
	if viewerID == "" {
		return false
	}
	for _, id := range p.LikedBy {
		if id == viewerID {
			return true
		}
	}
	return false
}

// PostView is the JSON shape returned to a specific viewer.
type PostView struct {
	Post
	IsLiked bool `json:"is_liked"`
}

// ViewFor derives the viewer-specific representation of p.
func (p Post) ViewFor(viewerID string) PostView {
	return PostView{Post: p, IsLiked: p.IsLikedBy(viewerID)}
}
