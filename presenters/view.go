// Package presenters holds the per-screen state of the forum client: the feed,
// a single post, a comment thread and the post composer. Store calls run in the
// background and their results are applied through a Dispatcher, and only while
// the originating view is still mounted.
package presenters

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DateLayout renders timestamps as 15:04:05 - 02/01/2006.
const DateLayout = "15:04:05 - 02/01/2006"

// ErrBusy is returned when the same action is already in flight.
var ErrBusy = errors.New("action already in progress")

// FormatTime renders t in the local zone using DateLayout.
func FormatTime(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// Result is the outcome of an asynchronous presenter action.
type Result struct {
	done    chan struct{}
	err     error
	applied bool
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// completed returns a Result that finished without touching any view state.
func completed(err error) *Result {
	r := newResult()
	r.finish(err, false)
	return r
}

func (r *Result) finish(err error, applied bool) {
	r.err = err
	r.applied = applied
	close(r.done)
}

// Done is closed once the action finished.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err is the action error. Only valid after Done.
func (r *Result) Err() error { return r.err }

// Applied reports whether the result reached the view. It is false when the
// view was unmounted before completion or the action never started.
func (r *Result) Applied() bool { return r.applied }

// Wait blocks until the action finished or ctx ends.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// view carries the lifecycle shared by every presenter. Each Unmount bumps the
// generation so completions started earlier are dropped.
type view struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	generation uint64
	mounted    bool
}

func (v *view) mountLocked() {
	v.generation++
	v.mounted = true
}

// Unmount detaches the view. In-flight requests still run but their results
// are discarded.
func (v *view) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.mounted = false
}

// Mounted reports whether the view is currently shown.
func (v *view) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// launch runs call off the UI thread and applies its outcome through the
// dispatcher while holding the view lock. apply may return a follow-up that
// runs after the lock is released. Must be called with v.mu held.
func launch[T any](ctx context.Context, v *view, call func(context.Context) (T, error), apply func(T, error) func()) *Result {
	gen := v.generation
	res := newResult()
	go func() {
		val, err := call(ctx)
		v.dispatcher.Dispatch(func() {
			v.mu.Lock()
			if !v.mounted || v.generation != gen {
				v.mu.Unlock()
				res.finish(err, false)
				return
			}
			after := apply(val, err)
			v.mu.Unlock()
			if after != nil {
				after()
			}
			res.finish(err, true)
		})
	}()
	return res
}
