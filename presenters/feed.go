package presenters

import (
	"context"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/media"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// FeedState is the phase of the feed screen.
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedLoading
	FeedDisplaying
)

func (s FeedState) String() string {
	switch s {
	case FeedLoading:
		return "loading"
	case FeedDisplaying:
		return "displaying"
	default:
		return "idle"
	}
}

// FeedPresenter shows every post, newest first.
type FeedPresenter struct {
	view
	posts    *repository.PostRepository
	comments *repository.CommentRepository
	viewer   identity.Provider

	state FeedState
	items []models.Post
	stale bool
}

// NewFeedPresenter returns an unmounted feed.
func NewFeedPresenter(posts *repository.PostRepository, comments *repository.CommentRepository, viewer identity.Provider, d Dispatcher) *FeedPresenter {
	return &FeedPresenter{
		view:     view{dispatcher: d},
		posts:    posts,
		comments: comments,
		viewer:   viewer,
	}
}

// Mount shows the feed and fetches posts.
func (f *FeedPresenter) Mount(ctx context.Context) *Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mountLocked()
	return f.fetchLocked(ctx)
}

// Refresh re-fetches the whole feed. It does nothing while unmounted.
func (f *FeedPresenter) Refresh(ctx context.Context) *Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return completed(nil)
	}
	return f.fetchLocked(ctx)
}

func (f *FeedPresenter) fetchLocked(ctx context.Context) *Result {
	f.state = FeedLoading
	return launch(ctx, &f.view, f.posts.ListPosts, func(posts []models.Post, err error) func() {
		f.state = FeedDisplaying
		if err != nil {
			utils.Sugar.Warnw("feed refresh failed, keeping previous posts", "err", err, "shown", len(f.items))
			f.stale = true
			return nil
		}
		f.items = posts
		f.stale = false
		return nil
	})
}

// State reports the current phase.
func (f *FeedPresenter) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stale reports whether the shown posts come from an earlier fetch because the
// last one failed.
func (f *FeedPresenter) Stale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}

// Posts returns a copy of the shown posts.
func (f *FeedPresenter) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Post, len(f.items))
	copy(out, f.items)
	return out
}

// PostPresenter builds a mounted presenter for one shown post. Deleting through
// it refreshes this feed.
func (f *FeedPresenter) PostPresenter(post models.Post) *PostPresenter {
	return NewPostPresenter(post, f.posts, f.comments, f.viewer, f.dispatcher, func(ctx context.Context) {
		f.Refresh(ctx)
	})
}

// Composer builds a mounted composer whose successful submission refreshes this feed.
func (f *FeedPresenter) Composer(picker media.Picker) *PostComposer {
	return NewPostComposer(f.posts, f.viewer, picker, f.dispatcher, func(ctx context.Context) {
		f.Refresh(ctx)
	})
}
