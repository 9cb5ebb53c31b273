// Package repository maps document-store records to post and comment models.
package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/utils"
)

// Collection and field names as stored.
const (
	PostsCollection    = "posts"
	CommentsCollection = "comments"

	fieldTitle      = "title"
	fieldImage      = "image"
	fieldAuthorID   = "authorID"
	fieldAuthorName = "authorName"
	fieldAvatarURL  = "authorAvatarURL"
	fieldCreatedAt  = "createdAt"
	fieldLikeCount  = "likeCount"
	fieldLikedBy    = "likedBy"
	fieldText       = "text"

	defaultPostAuthor    = "Người dùng"
	defaultCommentAuthor = "Anonymous"
)

var (
	ErrNotSignedIn  = errors.New("no signed-in viewer")
	ErrEmptyImage   = errors.New("image payload is empty")
	ErrEmptyTitle   = errors.New("title is empty")
	ErrEmptyComment = errors.New("comment text is empty")
	ErrPostNotFound = errors.New("post not found")
)

var newestFirst = docstore.Query{OrderBy: fieldCreatedAt, Descending: true}

// PostRepository reads and mutates posts.
type PostRepository struct {
	store docstore.Store
	// CascadeComments deletes a post's comment thread together with the post.
	CascadeComments bool
	now             func() time.Time
}

// NewPostRepository creates a PostRepository backed by store.
func NewPostRepository(store docstore.Store) *PostRepository {
	return &PostRepository{store: store, now: time.Now}
}

// ListPosts returns every post, newest first.
func (r *PostRepository) ListPosts(ctx context.Context) ([]models.Post, error) {
	docs, err := r.store.List(ctx, PostsCollection, newestFirst)
	if err != nil {
		utils.Sugar.Errorw("list posts failed", "err", err)
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, r.decodePost(doc))
	}
	return posts, nil
}

// GetPost loads a single post.
func (r *PostRepository) GetPost(ctx context.Context, id string) (models.Post, error) {
	doc, err := r.store.Get(ctx, PostsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Post{}, ErrPostNotFound
		}
		return models.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return r.decodePost(doc), nil
}

// CreatePost stores a new post authored by viewer. Nothing is written when the
// viewer is not signed in, the title is blank, or the image is empty.
func (r *PostRepository) CreatePost(ctx context.Context, viewer identity.Viewer, title string, image []byte) (models.Post, error) {
	if !viewer.SignedIn() {
		return models.Post{}, ErrNotSignedIn
	}
	if len(image) == 0 {
		return models.Post{}, ErrEmptyImage
	}
	title = utils.SanitizeText(title)
	if title == "" {
		return models.Post{}, ErrEmptyTitle
	}
	author := viewer.DisplayName
	if author == "" {
		author = defaultPostAuthor
	}

	data := docstore.Data{
		fieldTitle:      title,
		fieldImage:      base64.StdEncoding.EncodeToString(image),
		fieldAuthorID:   viewer.ID,
		fieldAuthorName: author,
		fieldAvatarURL:  viewer.AvatarURL,
		fieldCreatedAt:  docstore.ServerTimestamp,
		fieldLikeCount:  0,
		fieldLikedBy:    []string{},
	}
	id, err := r.store.Add(ctx, PostsCollection, data)
	if err != nil {
		utils.Sugar.Errorw("create post failed", "viewer", viewer.ID, "err", err)
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	utils.Sugar.Infow("post created", "post", id, "viewer", viewer.ID)
	return r.GetPost(ctx, id)
}

// ToggleLike flips viewerID's like on post with one atomic update. The returned
// post reflects the change only when the store acknowledged it; on failure the
// input is returned unchanged together with the error.
func (r *PostRepository) ToggleLike(ctx context.Context, post models.Post, viewerID string) (models.Post, error) {
	if viewerID == "" {
		return post, ErrNotSignedIn
	}
	liked := post.IsLikedBy(viewerID)
	var ops []docstore.FieldOp
	if liked {
		ops = []docstore.FieldOp{docstore.IncrementFloor(fieldLikeCount, -1, 0), docstore.ArrayRemove(fieldLikedBy, viewerID)}
	} else {
		ops = []docstore.FieldOp{docstore.Increment(fieldLikeCount, 1), docstore.ArrayUnion(fieldLikedBy, viewerID)}
	}
	if err := r.store.Update(ctx, PostsCollection, post.ID, ops...); err != nil {
		utils.Sugar.Errorw("toggle like failed", "post", post.ID, "viewer", viewerID, "err", err)
		if errors.Is(err, docstore.ErrNotFound) {
			return post, ErrPostNotFound
		}
		return post, fmt.Errorf("toggle like: %w", err)
	}

	updated := post
	updated.LikedBy = make([]string, 0, len(post.LikedBy)+1)
	for _, id := range post.LikedBy {
		if id != viewerID {
			updated.LikedBy = append(updated.LikedBy, id)
		}
	}
	if liked {
		updated.LikeCount = max(post.LikeCount-1, 0)
	} else {
		updated.LikedBy = append(updated.LikedBy, viewerID)
		updated.LikeCount = post.LikeCount + 1
	}
	return updated, nil
}

// DeletePost removes the post. Its comment thread is left in place unless
// CascadeComments is set.
func (r *PostRepository) DeletePost(ctx context.Context, postID string) error {
	if err := r.store.Delete(ctx, PostsCollection, postID); err != nil {
		utils.Sugar.Errorw("delete post failed", "post", postID, "err", err)
		return fmt.Errorf("delete post: %w", err)
	}
	utils.Sugar.Infow("post deleted", "post", postID, "cascade", r.CascadeComments)
	if !r.CascadeComments {
		return nil
	}
	thread := commentsPath(postID)
	docs, err := r.store.List(ctx, thread, docstore.Query{})
	if err != nil {
		return fmt.Errorf("list comments for cascade: %w", err)
	}
	for _, doc := range docs {
		if err := r.store.Delete(ctx, thread, doc.ID); err != nil {
			return fmt.Errorf("delete comment %s: %w", doc.ID, err)
		}
	}
	return nil
}

// decodePost maps a raw record, defaulting missing fields instead of failing.
func (r *PostRepository) decodePost(doc docstore.Document) models.Post {
	createdAt, ok := doc.Data.Time(fieldCreatedAt)
	if !ok {
		createdAt = r.now()
	}
	return models.Post{
		ID:              doc.ID,
		Title:           doc.Data.String(fieldTitle),
		ImageBase64:     doc.Data.String(fieldImage),
		AuthorID:        doc.Data.String(fieldAuthorID),
		AuthorName:      doc.Data.String(fieldAuthorName),
		AuthorAvatarURL: doc.Data.String(fieldAvatarURL),
		CreatedAt:       createdAt,
		LikeCount:       max(doc.Data.Int(fieldLikeCount), 0),
		LikedBy:         doc.Data.Strings(fieldLikedBy),
	}
}

func commentsPath(postID string) string {
	return docstore.Sub(PostsCollection, postID, CommentsCollection)
}
