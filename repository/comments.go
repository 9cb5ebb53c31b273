package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/utils"
)

// CommentRepository reads and appends a post's comment thread.
type CommentRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewCommentRepository creates a CommentRepository backed by store.
func NewCommentRepository(store docstore.Store) *CommentRepository {
	return &CommentRepository{store: store, now: time.Now}
}

// ListComments returns the thread of postID, newest first. The post itself is
// not consulted, so threads of deleted posts stay readable.
func (r *CommentRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	docs, err := r.store.List(ctx, commentsPath(postID), newestFirst)
	if err != nil {
		utils.Sugar.Errorw("list comments failed", "post", postID, "err", err)
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		createdAt, ok := doc.Data.Time(fieldCreatedAt)
		if !ok {
			createdAt = r.now()
		}
		comments = append(comments, models.Comment{
			ID:         doc.ID,
			PostID:     postID,
			Text:       doc.Data.String(fieldText),
			AuthorName: doc.Data.String(fieldAuthorName),
			CreatedAt:  createdAt,
		})
	}
	return comments, nil
}

// AddComment appends a comment with a store-assigned timestamp. Blank text is
// rejected without contacting the store.
func (r *CommentRepository) AddComment(ctx context.Context, postID, text, authorName string) (string, error) {
	text = utils.SanitizeText(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	if authorName == "" {
		authorName = defaultCommentAuthor
	}
	id, err := r.store.Add(ctx, commentsPath(postID), docstore.Data{
		fieldText:       text,
		fieldAuthorName: authorName,
		fieldCreatedAt:  docstore.ServerTimestamp,
	})
	if err != nil {
		utils.Sugar.Errorw("add comment failed", "post", postID, "err", err)
		return "", fmt.Errorf("add comment: %w", err)
	}
	return id, nil
}
