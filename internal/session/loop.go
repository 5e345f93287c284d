// Package session runs on-screen keyboard sessions on a single event loop.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"oskim/internal/level"
	"oskim/internal/logging"
)

// ErrLoopClosed is returned by Do after Close.
var ErrLoopClosed = errors.New("session: loop closed")

// Loop runs posted functions one at a time in arrival order on its own
// goroutine.
type Loop struct {
	logger *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewLoop starts a loop.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn and returns immediately. It reports false once the loop
// is closed. Post never blocks, so handlers may post follow-up work.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it. It must not be called from a
// loop handler.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// Close drains the queue, so fn has run unless it panicked.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// AfterFunc runs f on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, f func()) level.Timer {
	return time.AfterFunc(d, func() { l.Post(f) })
}

// Close stops accepting work, runs what is already queued and waits for
// the loop goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for range l.wake {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				closed := l.closed
				l.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.call(fn)
		}
	}
}

func (l *Loop) call(fn func()) {
	defer logging.Recover(l.logger, "session loop")
	fn()
}
