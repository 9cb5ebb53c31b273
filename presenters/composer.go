package presenters

import (
	"context"
	"strings"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/media"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// PostComposer collects a title and one image and publishes them as a new post.
type PostComposer struct {
	view
	repo      *repository.PostRepository
	viewer    identity.Provider
	picker    media.Picker
	onCreated func(context.Context)

	title      string
	image      []byte
	picking    bool
	submitting bool
	dismissed  bool
	lastErr    error
}

// NewPostComposer returns a mounted composer. onCreated may be nil.
func NewPostComposer(repo *repository.PostRepository, viewer identity.Provider, picker media.Picker,
	d Dispatcher, onCreated func(context.Context)) *PostComposer {
	c := &PostComposer{
		view:      view{dispatcher: d},
		repo:      repo,
		viewer:    viewer,
		picker:    picker,
		onCreated: onCreated,
	}
	c.mountLocked()
	return c
}

// SetTitle replaces the title input.
func (c *PostComposer) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// Title is the title input.
func (c *PostComposer) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// HasImage reports whether an image has been picked.
func (c *PostComposer) HasImage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.image) > 0
}

// Image returns the picked, compressed payload.
func (c *PostComposer) Image() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.image...)
}

// LastError is the most recent pick or submit failure, cleared by a successful attempt.
func (c *PostComposer) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Dismissed reports whether the composer closed after a successful submission
// or through Dismiss.
func (c *PostComposer) Dismissed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dismissed
}

// Dismiss closes the composer without posting. Pending results are dropped.
func (c *PostComposer) Dismiss() {
	c.mu.Lock()
	c.dismissed = true
	c.mu.Unlock()
	c.Unmount()
}

// PickImage asks the picker for one image. A dismissed picker keeps the
// previous selection.
func (c *PostComposer) PickImage(ctx context.Context) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picking {
		return completed(ErrBusy)
	}
	c.picking = true
	return launch(ctx, &c.view, c.picker.Pick, func(data []byte, err error) func() {
		c.picking = false
		if err != nil {
			utils.Sugar.Warnw("image pick failed", "err", err)
			c.lastErr = err
			return nil
		}
		c.lastErr = nil
		if len(data) > 0 {
			c.image = data
		}
		return nil
	})
}

// Submit publishes the post. Missing viewer, image or title are reported
// without contacting the store. On failure the composer stays open with its
// inputs intact.
func (c *PostComposer) Submit(ctx context.Context) *Result {
	viewer := c.viewer.CurrentViewer()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !viewer.SignedIn():
		return completed(repository.ErrNotSignedIn)
	case len(c.image) == 0:
		return completed(repository.ErrEmptyImage)
	case strings.TrimSpace(c.title) == "":
		return completed(repository.ErrEmptyTitle)
	case c.submitting:
		return completed(ErrBusy)
	}
	c.submitting = true
	title, image := c.title, c.image
	return launch(ctx, &c.view, func(ctx context.Context) (models.Post, error) {
		return c.repo.CreatePost(ctx, viewer, title, image)
	}, func(post models.Post, err error) func() {
		c.submitting = false
		if err != nil {
			utils.Sugar.Errorw("post submit failed", "viewer", viewer.ID, "err", err)
			c.lastErr = err
			return nil
		}
		utils.Sugar.Debugw("post submitted", "post", post.ID)
		c.lastErr = nil
		c.dismissed = true
		c.mounted = false
		c.generation++
		if c.onCreated == nil {
			return nil
		}
		return func() { c.onCreated(ctx) }
	})
}
