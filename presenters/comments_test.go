package presenters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/repository"
)

func TestCommentsSubmitRefetchesThread(t *testing.T) {
	f := newFixture()
	post := firstPost(t, f)
	_, err := f.comments.AddComment(context.Background(), post.ID, "older", "Bob")
	require.NoError(t, err)

	p := NewPostPresenter(post, f.posts, f.comments, alice, ImmediateDispatcher{}, nil)
	c := p.OpenComments()
	assert.Equal(t, post.ID, c.PostID())
	require.NoError(t, wait(t, c.Mount(context.Background())))
	require.Len(t, c.Comments(), 1)

	c.SetDraft("hello")
	require.NoError(t, wait(t, c.Submit(context.Background())))
	assert.Empty(t, c.Draft())
	thread := c.Comments()
	require.Len(t, thread, 2)
	assert.Equal(t, "hello", thread[0].Text)
	assert.Equal(t, "Alice", thread[0].AuthorName)
	assert.Equal(t, "older", thread[1].Text)
}

func TestCommentsBlankDraftSkipsStore(t *testing.T) {
	f := newFixture()
	c := NewCommentPresenter("p1", f.comments, alice, ImmediateDispatcher{})
	c.SetDraft("   ")

	err := wait(t, c.Submit(context.Background()))
	assert.ErrorIs(t, err, repository.ErrEmptyComment)
	assert.Zero(t, f.store.callCount())
	assert.Equal(t, "   ", c.Draft())
}

func TestCommentsAnonymousAuthor(t *testing.T) {
	f := newFixture()
	c := NewCommentPresenter("p1", f.comments, identity.Anonymous, ImmediateDispatcher{})
	require.NoError(t, wait(t, c.Mount(context.Background())))

	c.SetDraft("hi")
	require.NoError(t, wait(t, c.Submit(context.Background())))
	require.Len(t, c.Comments(), 1)
	assert.Equal(t, "Anonymous", c.Comments()[0].AuthorName)
}

func TestCommentsSubmitFailureKeepsDraft(t *testing.T) {
	f := newFixture()
	c := NewCommentPresenter("p1", f.comments, alice, ImmediateDispatcher{})
	require.NoError(t, wait(t, c.Mount(context.Background())))

	f.store.setFail(true)
	c.SetDraft("lost?")
	assert.ErrorIs(t, wait(t, c.Submit(context.Background())), errOffline)
	assert.Equal(t, "lost?", c.Draft())
	assert.Empty(t, c.Comments())
}

func TestCommentsSubmitKeepsTextTypedWhileSending(t *testing.T) {
	f := newFixture()
	c := NewCommentPresenter("p1", f.comments, alice, ImmediateDispatcher{})
	require.NoError(t, wait(t, c.Mount(context.Background())))

	f.store.listGate = make(chan struct{})
	c.SetDraft("hello")
	res := c.Submit(context.Background())
	c.SetDraft("hello again")
	close(f.store.listGate)

	require.NoError(t, wait(t, res))
	assert.Equal(t, "hello again", c.Draft())
	thread := c.Comments()
	require.Len(t, thread, 1)
	assert.Equal(t, "hello", thread[0].Text)
}

func TestCommentsUnmountedSubmitNotApplied(t *testing.T) {
	f := newFixture()
	c := NewCommentPresenter("p1", f.comments, alice, ImmediateDispatcher{})
	c.SetDraft("stored anyway")

	res := c.Submit(context.Background())
	require.NoError(t, wait(t, res))
	assert.False(t, res.Applied())
	assert.Equal(t, "stored anyway", c.Draft())

	thread, err := f.comments.ListComments(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}
