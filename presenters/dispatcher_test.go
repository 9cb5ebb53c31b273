package presenters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialDispatcherRunsInOrder(t *testing.T) {
	d := NewSerialDispatcher(4)
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 10; i++ {
		i := i
		d.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	d.Close()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	d.Close()
}

func TestFeedOnSerialDispatcher(t *testing.T) {
	f := newFixture()
	f.seed(t, "one", "two")
	d := NewSerialDispatcher(8)
	defer d.Close()

	feed := NewFeedPresenter(f.posts, f.comments, alice, d)
	require.NoError(t, wait(t, feed.Mount(context.Background())))
	assert.Len(t, feed.Posts(), 2)
}

func TestResultWaitHonorsContext(t *testing.T) {
	r := newResult()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	r.finish(nil, true)
	require.NoError(t, r.Wait(context.Background()))
	assert.True(t, r.Applied())
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 1, 0, time.Local)
	assert.Equal(t, "23:59:01 - 31/12/2023", FormatTime(ts))
}

func TestSerialDispatcherAfterClose(t *testing.T) {
	d := NewSerialDispatcher(1)
	d.Close()
	ran := false
	d.Dispatch(func() { ran = true })
	assert.True(t, ran)
}
