package presenters

import (
	"context"
	"errors"
	"fmt"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// ErrDeleteNotConfirmed is returned by ConfirmDelete without a prior RequestDelete.
var ErrDeleteNotConfirmed = errors.New("delete was not requested")

// PostPresenter renders one post and owns its like, comment and delete actions.
type PostPresenter struct {
	view
	repo      *repository.PostRepository
	comments  *repository.CommentRepository
	viewer    identity.Provider
	onDeleted func(context.Context)

	post          models.Post
	toggling      bool
	confirmDelete bool
	deleting      bool
	deleted       bool
}

// NewPostPresenter returns a mounted presenter for post. onDeleted may be nil.
func NewPostPresenter(post models.Post, repo *repository.PostRepository, comments *repository.CommentRepository,
	viewer identity.Provider, d Dispatcher, onDeleted func(context.Context)) *PostPresenter {
	p := &PostPresenter{
		view:      view{dispatcher: d},
		repo:      repo,
		comments:  comments,
		viewer:    viewer,
		onDeleted: onDeleted,
		post:      post,
	}
	p.mountLocked()
	return p
}

// Post returns the current snapshot.
func (p *PostPresenter) Post() models.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.post
}

// LikeCount is the locally shown counter.
func (p *PostPresenter) LikeCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.post.LikeCount
}

// Liked reports whether the current viewer likes the post.
func (p *PostPresenter) Liked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.post.IsLikedBy(p.viewer.CurrentViewer().ID)
}

// Header renders the author line and timestamp.
func (p *PostPresenter) Header() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%s · %s", p.post.AuthorName, FormatTime(p.post.CreatedAt))
}

// ToggleLike likes or unlikes the post for the current viewer. Without a viewer
// it returns repository.ErrNotSignedIn and never contacts the store. The shown
// state changes only after the store confirmed.
func (p *PostPresenter) ToggleLike(ctx context.Context) *Result {
	viewer := p.viewer.CurrentViewer()
	if !viewer.SignedIn() {
		return completed(repository.ErrNotSignedIn)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.toggling {
		return completed(ErrBusy)
	}
	p.toggling = true
	snapshot := p.post
	return launch(ctx, &p.view, func(ctx context.Context) (models.Post, error) {
		return p.repo.ToggleLike(ctx, snapshot, viewer.ID)
	}, func(updated models.Post, err error) func() {
		p.toggling = false
		if err != nil {
			utils.Sugar.Warnw("like toggle failed", "post", snapshot.ID, "err", err)
			return nil
		}
		p.post = updated
		return nil
	})
}

// RequestDelete arms the destructive confirmation.
func (p *PostPresenter) RequestDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmDelete = true
}

// CancelDelete disarms the confirmation.
func (p *PostPresenter) CancelDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmDelete = false
}

// DeleteRequested reports whether the confirmation is showing.
func (p *PostPresenter) DeleteRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmDelete
}

// Deleted reports whether the post was removed through this presenter.
func (p *PostPresenter) Deleted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleted
}

// ConfirmDelete deletes the post when RequestDelete was called first.
func (p *PostPresenter) ConfirmDelete(ctx context.Context) *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.confirmDelete {
		return completed(ErrDeleteNotConfirmed)
	}
	if p.deleting {
		return completed(ErrBusy)
	}
	p.deleting = true
	p.confirmDelete = false
	id := p.post.ID
	return launch(ctx, &p.view, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.repo.DeletePost(ctx, id)
	}, func(_ struct{}, err error) func() {
		p.deleting = false
		if err != nil {
			utils.Sugar.Warnw("post delete failed", "post", id, "err", err)
			return nil
		}
		p.deleted = true
		if p.onDeleted == nil {
			return nil
		}
		return func() { p.onDeleted(ctx) }
	})
}

// OpenComments returns an unmounted thread presenter scoped to this post.
func (p *PostPresenter) OpenComments() *CommentPresenter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewCommentPresenter(p.post.ID, p.comments, p.viewer, p.dispatcher)
}
