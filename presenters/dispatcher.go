package presenters

import "sync"

// Dispatcher marshals completions back onto the goroutine that owns view state.
type Dispatcher interface {
	Dispatch(fn func())
}

// ImmediateDispatcher runs callbacks on the calling goroutine.
type ImmediateDispatcher struct{}

// Dispatch implements Dispatcher.
func (ImmediateDispatcher) Dispatch(fn func()) { fn() }

// SerialDispatcher runs callbacks one at a time, in submission order, on a
// single goroutine.
type SerialDispatcher struct {
	mu     sync.RWMutex
	closed bool
	queue  chan func()
	wg     sync.WaitGroup
}

// NewSerialDispatcher starts the UI goroutine.
func NewSerialDispatcher(buffer int) *SerialDispatcher {
	d := &SerialDispatcher{queue: make(chan func(), buffer)}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for fn := range d.queue {
			fn()
		}
	}()
	return d
}

// Dispatch implements Dispatcher. After Close, fn runs on the caller's goroutine.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		fn()
		return
	}
	d.queue <- fn
	d.mu.RUnlock()
}

// Close drains queued callbacks and stops the goroutine. It is safe to call twice.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
