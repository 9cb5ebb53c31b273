package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/identity"
)

var errUnreachable = errors.New("store unreachable")

// spyStore counts calls and can be switched to fail every request.
type spyStore struct {
	docstore.Store
	mu    sync.Mutex
	calls int
	fail  bool
}

func newSpy() *spyStore { return &spyStore{Store: docstore.NewMemory()} }

func (s *spyStore) hit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errUnreachable
	}
	return nil
}

func (s *spyStore) Add(ctx context.Context, c string, d docstore.Data) (string, error) {
	if err := s.hit(); err != nil {
		return "", err
	}
	return s.Store.Add(ctx, c, d)
}

func (s *spyStore) Get(ctx context.Context, c, id string) (docstore.Document, error) {
	if err := s.hit(); err != nil {
		return docstore.Document{}, err
	}
	return s.Store.Get(ctx, c, id)
}

func (s *spyStore) List(ctx context.Context, c string, q docstore.Query) ([]docstore.Document, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.Store.List(ctx, c, q)
}

func (s *spyStore) Update(ctx context.Context, c, id string, ops ...docstore.FieldOp) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.Store.Update(ctx, c, id, ops...)
}

func (s *spyStore) Delete(ctx context.Context, c, id string) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, c, id)
}

var (
	alice = identity.Viewer{ID: "alice", DisplayName: "Alice", AvatarURL: "https://img.example/alice.png"}
	bob   = identity.Viewer{ID: "bob", DisplayName: "Bob"}
	jpeg  = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
)

func TestCreatePostStoresDocument(t *testing.T) {
	store := newSpy()
	repo := NewPostRepository(store)
	ctx := context.Background()

	post, err := repo.CreatePost(ctx, alice, "  First <b>post</b> ", jpeg)
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "First post", post.Title)
	assert.Equal(t, base64.StdEncoding.EncodeToString(jpeg), post.ImageBase64)
	assert.Equal(t, "Alice", post.AuthorName)
	assert.Equal(t, "alice", post.AuthorID)
	assert.Equal(t, alice.AvatarURL, post.AuthorAvatarURL)
	assert.Equal(t, int64(0), post.LikeCount)
	assert.Empty(t, post.LikedBy)
	assert.WithinDuration(t, time.Now(), post.CreatedAt, time.Minute)

	doc, err := store.Store.Get(ctx, PostsCollection, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, doc.Data.Strings("likedBy"))
	assert.Equal(t, int64(0), doc.Data.Int("likeCount"))
}

func TestCreatePostDefaultsAuthorName(t *testing.T) {
	repo := NewPostRepository(docstore.NewMemory())
	post, err := repo.CreatePost(context.Background(), identity.Viewer{ID: "anon"}, "t", jpeg)
	require.NoError(t, err)
	assert.Equal(t, "Người dùng", post.AuthorName)
}

func TestCreatePostValidationGate(t *testing.T) {
	cases := []struct {
		name   string
		viewer identity.Viewer
		title  string
		image  []byte
		want   error
	}{
		{"no viewer", identity.Viewer{}, "t", jpeg, ErrNotSignedIn},
		{"nil image", alice, "t", nil, ErrEmptyImage},
		{"empty image", alice, "t", []byte{}, ErrEmptyImage},
		{"blank title", alice, "   ", jpeg, ErrEmptyTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newSpy()
			repo := NewPostRepository(store)

			_, err := repo.CreatePost(context.Background(), tc.viewer, tc.title, tc.image)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, store.calls, "store must not be contacted")

			docs, err := store.Store.List(context.Background(), PostsCollection, docstore.Query{})
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestListPostsEmptyStore(t *testing.T) {
	posts, err := NewPostRepository(docstore.NewMemory()).ListPosts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestListPostsNewestFirstWithDefaults(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	_, err := store.Add(ctx, PostsCollection, docstore.Data{"title": "old", "createdAt": base, "likeCount": 2, "likedBy": []string{"alice", "bob"}})
	require.NoError(t, err)
	_, err = store.Add(ctx, PostsCollection, docstore.Data{"title": "new", "createdAt": base.Add(time.Hour), "likeCount": -3})
	require.NoError(t, err)
	_, err = store.Add(ctx, PostsCollection, docstore.Data{"createdAt": base.Add(-time.Hour)})
	require.NoError(t, err)

	repo := NewPostRepository(store)
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	posts, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "new", posts[0].Title)
	assert.Equal(t, int64(0), posts[0].LikeCount, "negative counters are clamped")
	assert.Equal(t, "old", posts[1].Title)
	assert.Equal(t, "", posts[2].Title)
	assert.Equal(t, "", posts[2].AuthorName)
	assert.Empty(t, posts[2].LikedBy)

	for _, p := range posts {
		assert.GreaterOrEqual(t, p.LikeCount, int64(0))
		for _, v := range []string{"alice", "bob", "carol"} {
			assert.Equal(t, contains(p.LikedBy, v), p.IsLikedBy(v))
		}
	}
}

func TestListPostsMissingCreatedAtUsesNow(t *testing.T) {
	store := docstore.NewMemory()
	_, err := store.Add(context.Background(), PostsCollection, docstore.Data{"title": "x"})
	require.NoError(t, err)

	repo := NewPostRepository(store)
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	posts, err := repo.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, fixed, posts[0].CreatedAt)
}

func TestListPostsTransportError(t *testing.T) {
	store := newSpy()
	store.fail = true
	posts, err := NewPostRepository(store).ListPosts(context.Background())
	assert.ErrorIs(t, err, errUnreachable)
	assert.Nil(t, posts)
}

func TestToggleLikeRoundTrip(t *testing.T) {
	repo := NewPostRepository(docstore.NewMemory())
	ctx := context.Background()
	created, err := repo.CreatePost(ctx, alice, "t", jpeg)
	require.NoError(t, err)

	liked, err := repo.ToggleLike(ctx, created, bob.ID)
	require.NoError(t, err)
	assert.True(t, liked.IsLikedBy(bob.ID))
	assert.Equal(t, int64(1), liked.LikeCount)

	stored, err := repo.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.LikeCount)
	assert.Equal(t, []string{"bob"}, stored.LikedBy)

	unliked, err := repo.ToggleLike(ctx, liked, bob.ID)
	require.NoError(t, err)
	assert.False(t, unliked.IsLikedBy(bob.ID))
	assert.Equal(t, created.LikeCount, unliked.LikeCount)

	stored, err = repo.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.LikeCount, stored.LikeCount)
	assert.Equal(t, created.LikedBy, stored.LikedBy)
}

func TestToggleLikeWithoutViewerSkipsStore(t *testing.T) {
	store := newSpy()
	repo := NewPostRepository(store)

	in := repo.decodePost(docstore.Document{ID: "p1", Data: docstore.Data{"likeCount": 4}})
	out, err := repo.ToggleLike(context.Background(), in, "")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, in, out)
	assert.Zero(t, store.calls)
}

func TestToggleLikeFailureLeavesStateUnchanged(t *testing.T) {
	store := newSpy()
	repo := NewPostRepository(store)
	ctx := context.Background()
	created, err := repo.CreatePost(ctx, alice, "t", jpeg)
	require.NoError(t, err)

	store.fail = true
	out, err := repo.ToggleLike(ctx, created, bob.ID)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, created, out)
}

func TestToggleLikeUnlikeNeverStoresNegativeCount(t *testing.T) {
	store := docstore.NewMemory()
	repo := NewPostRepository(store)
	ctx := context.Background()
	id, err := store.Add(ctx, PostsCollection, docstore.Data{"likeCount": 0, "likedBy": []string{bob.ID}})
	require.NoError(t, err)
	drifted, err := repo.GetPost(ctx, id)
	require.NoError(t, err)
	require.True(t, drifted.IsLikedBy(bob.ID))

	out, err := repo.ToggleLike(ctx, drifted, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, out.LikeCount)
	assert.False(t, out.IsLikedBy(bob.ID))

	doc, err := store.Get(ctx, PostsCollection, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Data.Int("likeCount"))
	assert.Empty(t, doc.Data.Strings("likedBy"))
}

func TestToggleLikeMissingPost(t *testing.T) {
	repo := NewPostRepository(docstore.NewMemory())
	_, err := repo.ToggleLike(context.Background(), repo.decodePost(docstore.Document{ID: "gone"}), bob.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePostLeavesThreadByDefault(t *testing.T) {
	store := docstore.NewMemory()
	posts := NewPostRepository(store)
	comments := NewCommentRepository(store)
	ctx := context.Background()

	p, err := posts.CreatePost(ctx, alice, "t", jpeg)
	require.NoError(t, err)
	_, err = comments.AddComment(ctx, p.ID, "first", "Bob")
	require.NoError(t, err)

	require.NoError(t, posts.DeletePost(ctx, p.ID))

	list, err := posts.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = posts.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	thread, err := comments.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1, "orphaned thread stays fetchable by post id")
	assert.Equal(t, "first", thread[0].Text)
}

func TestDeletePostCascade(t *testing.T) {
	store := docstore.NewMemory()
	posts := NewPostRepository(store)
	posts.CascadeComments = true
	comments := NewCommentRepository(store)
	ctx := context.Background()

	p, err := posts.CreatePost(ctx, alice, "t", jpeg)
	require.NoError(t, err)
	for _, text := range []string{"one", "two"} {
		_, err = comments.AddComment(ctx, p.ID, text, "Bob")
		require.NoError(t, err)
	}

	require.NoError(t, posts.DeletePost(ctx, p.ID))
	thread, err := comments.ListComments(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestAddCommentThenListNewestFirst(t *testing.T) {
	repo := NewCommentRepository(docstore.NewMemory())
	ctx := context.Background()

	for _, text := range []string{"first", "second", "hello"} {
		_, err := repo.AddComment(ctx, "p1", text, "Bob")
		require.NoError(t, err)
	}

	thread, err := repo.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "hello", thread[0].Text)
	assert.Equal(t, "p1", thread[0].PostID)
	assert.Equal(t, "Bob", thread[0].AuthorName)
	assert.False(t, thread[0].CreatedAt.Before(thread[1].CreatedAt))
}

func TestAddCommentRejectsBlankText(t *testing.T) {
	store := newSpy()
	repo := NewCommentRepository(store)

	for _, text := range []string{"", "   ", "<p></p>"} {
		_, err := repo.AddComment(context.Background(), "p1", text, "Bob")
		assert.ErrorIs(t, err, ErrEmptyComment)
	}
	assert.Zero(t, store.calls)
}

func TestAddCommentDefaultsAuthor(t *testing.T) {
	repo := NewCommentRepository(docstore.NewMemory())
	ctx := context.Background()
	_, err := repo.AddComment(ctx, "p1", "hi", "")
	require.NoError(t, err)

	thread, err := repo.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "Anonymous", thread[0].AuthorName)
}

func TestAddCommentTransportError(t *testing.T) {
	store := newSpy()
	store.fail = true
	_, err := NewCommentRepository(store).AddComment(context.Background(), "p1", "hi", "Bob")
	assert.ErrorIs(t, err, errUnreachable)
}

func contains(list []string, v string) bool {
	for _, it := range list {
		if it == v {
			return true
		}
	}
	return false
}
