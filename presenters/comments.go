package presenters

import (
	"context"
	"strings"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// CommentPresenter shows one post's thread and a single-line composer.
type CommentPresenter struct {
	view
	postID string
	repo   *repository.CommentRepository
	viewer identity.Provider

	comments []models.Comment
	draft    string
	sending  bool
}

// NewCommentPresenter returns an unmounted thread view for postID.
func NewCommentPresenter(postID string, repo *repository.CommentRepository, viewer identity.Provider, d Dispatcher) *CommentPresenter {
	return &CommentPresenter{view: view{dispatcher: d}, postID: postID, repo: repo, viewer: viewer}
}

// PostID is the post owning the thread.
func (c *CommentPresenter) PostID() string { return c.postID }

// Mount shows the thread and fetches it.
func (c *CommentPresenter) Mount(ctx context.Context) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mountLocked()
	c.sending = false
	return launch(ctx, &c.view, func(ctx context.Context) ([]models.Comment, error) {
		return c.repo.ListComments(ctx, c.postID)
	}, func(list []models.Comment, err error) func() {
		if err != nil {
			utils.Sugar.Warnw("comment fetch failed", "post", c.postID, "err", err)
			return nil
		}
		c.comments = list
		return nil
	})
}

// Comments returns a copy of the shown thread, newest first.
func (c *CommentPresenter) Comments() []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Comment, len(c.comments))
	copy(out, c.comments)
	return out
}

// SetDraft replaces the composer text.
func (c *CommentPresenter) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft is the composer text.
func (c *CommentPresenter) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

type submitOutcome struct {
	thread  []models.Comment
	listErr error
}

// Submit posts the draft. On success the whole thread is fetched again and the
// draft is cleared unless it was edited while the send was in flight. Blank drafts return repository.ErrEmptyComment without a request.
func (c *CommentPresenter) Submit(ctx context.Context) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := c.draft
	if strings.TrimSpace(text) == "" {
		return completed(repository.ErrEmptyComment)
	}
	if c.sending {
		return completed(ErrBusy)
	}
	c.sending = true
	author := c.viewer.CurrentViewer().DisplayName
	return launch(ctx, &c.view, func(ctx context.Context) (submitOutcome, error) {
		if _, err := c.repo.AddComment(ctx, c.postID, text, author); err != nil {
			return submitOutcome{}, err
		}
		thread, err := c.repo.ListComments(ctx, c.postID)
		return submitOutcome{thread: thread, listErr: err}, nil
	}, func(out submitOutcome, err error) func() {
		c.sending = false
		if err != nil {
			utils.Sugar.Warnw("comment submit failed", "post", c.postID, "err", err)
			return nil
		}
		if c.draft == text {
			c.draft = ""
		}
		if out.listErr != nil {
			utils.Sugar.Warnw("comment refetch failed", "post", c.postID, "err", out.listErr)
			return nil
		}
		c.comments = out.thread
		return nil
	})
}
