package slice

import "sync"

// RenderLoop executes queued tasks on a single goroutine. It stands in for
// the host renderer's main thread: result delivery and subscription teardown
// are serialized here so a render never races observer removal.
type RenderLoop struct {
	mu     sync.Mutex
	closed bool
	tasks  chan func()
	done   chan struct{}
}

// NewRenderLoop starts the loop goroutine.
func NewRenderLoop() *RenderLoop {
	loop := &RenderLoop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go loop.run()
	return loop
}

func (l *RenderLoop) run() {
	defer close(l.done)
	for task := range l.tasks {
		task()
	}
}

// Schedule enqueues a task for execution on the loop goroutine. Tasks
// scheduled after Close are dropped.
func (l *RenderLoop) Schedule(task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.tasks <- task
	return true
}

// Do runs the task on the loop goroutine and waits for it to finish.
func (l *RenderLoop) Do(task func()) bool {
	finished := make(chan struct{})
	if !l.Schedule(func() {
		defer close(finished)
		task()
	}) {
		return false
	}
	<-finished
	return true
}

// Close stops accepting tasks and waits for queued work to drain.
func (l *RenderLoop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.tasks)
	}
	l.mu.Unlock()
	<-l.done
}
