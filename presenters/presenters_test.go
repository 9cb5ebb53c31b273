package presenters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/repository"
)

var errOffline = errors.New("offline")

// stubStore wraps Memory; it counts calls, can fail every call and can hold
// List or Update until the gate is closed.
type stubStore struct {
	docstore.Store
	mu         sync.Mutex
	calls      int
	fail       bool
	listGate   chan struct{}
	updateGate chan struct{}
}

func newStub() *stubStore { return &stubStore{Store: docstore.NewMemory()} }

func (s *stubStore) enter() (listGate, updateGate chan struct{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, nil, errOffline
	}
	return s.listGate, s.updateGate, nil
}

func (s *stubStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubStore) Add(ctx context.Context, c string, d docstore.Data) (string, error) {
	if _, _, err := s.enter(); err != nil {
		return "", err
	}
	return s.Store.Add(ctx, c, d)
}

func (s *stubStore) Get(ctx context.Context, c, id string) (docstore.Document, error) {
	if _, _, err := s.enter(); err != nil {
		return docstore.Document{}, err
	}
	return s.Store.Get(ctx, c, id)
}

func (s *stubStore) List(ctx context.Context, c string, q docstore.Query) ([]docstore.Document, error) {
	gate, _, err := s.enter()
	if err != nil {
		return nil, err
	}
	if gate != nil {
		<-gate
	}
	return s.Store.List(ctx, c, q)
}

func (s *stubStore) Update(ctx context.Context, c, id string, ops ...docstore.FieldOp) error {
	_, gate, err := s.enter()
	if err != nil {
		return err
	}
	if gate != nil {
		<-gate
	}
	return s.Store.Update(ctx, c, id, ops...)
}

func (s *stubStore) Delete(ctx context.Context, c, id string) error {
	if _, _, err := s.enter(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, c, id)
}

var (
	alice = identity.Static{ID: "alice", DisplayName: "Alice"}
	jpeg  = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
)

type fixture struct {
	store    *stubStore
	posts    *repository.PostRepository
	comments *repository.CommentRepository
}

func newFixture() fixture {
	s := newStub()
	return fixture{store: s, posts: repository.NewPostRepository(s), comments: repository.NewCommentRepository(s)}
}

func (f fixture) feed(viewer identity.Provider) *FeedPresenter {
	return NewFeedPresenter(f.posts, f.comments, viewer, ImmediateDispatcher{})
}

func (f fixture) seed(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := f.posts.CreatePost(context.Background(), identity.Viewer(alice), title, jpeg)
		require.NoError(t, err)
	}
}

func wait(t *testing.T, r *Result) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-r.Done():
		return r.Err()
	case <-ctx.Done():
		t.Fatal("presenter action did not finish")
		return nil
	}
}
