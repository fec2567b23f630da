package executor

import "sync"

// Pool runs submitted units of work with bounded concurrency. Deploy work
// dispatched by the agent runs here, never on the poll goroutine: Submit
// returns immediately and the work waits for a free slot on its own
// goroutine. A hung unit of work occupies one slot indefinitely.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool creates a Pool allowing up to size concurrent units of work. Size
// is clamped to at least one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit schedules fn and returns a Future that completes when fn returns.
// Submitting after Close is a programming error.
func (p *Pool) Submit(fn func()) *Future {
	f := newFuture()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		defer f.finish()
		fn()
	}()
	return f
}

// Close waits for all submitted work to finish.
func (p *Pool) Close() {
	p.wg.Wait()
}

// Future tracks completion of one submitted unit of work.
type Future struct {
	mu        sync.Mutex
	done      bool
	doneCh    chan struct{}
	callbacks []func(*Future)
}

func newFuture() *Future {
	return &Future{doneCh: make(chan struct{})}
}

// OnDone registers a callback invoked exactly once after the unit of work
// finishes, regardless of outcome. A callback registered after completion
// fires immediately on the caller's goroutine.
func (f *Future) OnDone(cb func(*Future)) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		cb(f)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// Done returns a channel closed when the unit of work has finished.
func (f *Future) Done() <-chan struct{} {
	return f.doneCh
}

// Wait blocks until the unit of work has finished.
func (f *Future) Wait() {
	<-f.doneCh
}

func (f *Future) finish() {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(f)
	}
	close(f.doneCh)
}
