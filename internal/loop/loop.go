/*
 * MIT License
 *
 * Copyright (c) 2026 transferd authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package loop is the single-threaded cooperative scheduler each session
// runs on. One Loop owns exactly one goroutine; every Handler bound to it
// only ever runs its callbacks on that goroutine, which is what gives the
// rest of the server core its "no handler may block, events arrive FIFO"
// guarantee without a global lock.
//
// Posting (Post / InvokeLater) is safe from any goroutine; running
// callbacks happens only on the Loop's own goroutine.
package loop

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/xcontext"
)

// TimerID identifies a timer previously registered with AddTimer.
type TimerID uint64

// Loop is a FIFO task queue drained by a single goroutine, plus a small
// timer registry. The zero value is not usable; use New. Its lifetime is
// tracked by an xcontext.Context[string] rather than a bare channel, so
// Stop doubles as context cancellation, and Context() offers a typed
// place to stash loop-scoped data.
type Loop struct {
	tasks     chan func()
	ctx       xcontext.Context[string]
	once      sync.Once
	running   int32
	mu        sync.Mutex
	timers    map[TimerID]*time.Timer
	nextTimer uint64
}

// New returns a Loop with the given task queue depth. A depth of 0 makes
// Post a rendezvous with the loop goroutine; most callers want a small
// buffer (e.g. 64) so producers on other goroutines do not stall.
func New(queueDepth int) *Loop {
	return &Loop{
		tasks:  make(chan func(), queueDepth),
		ctx:    xcontext.New[string](nil),
		timers: make(map[TimerID]*time.Timer),
	}
}

// Context returns the loop's cancelable key/value store. Its Done()
// channel closes when Stop is called; Load/Store attach loop-scoped
// state without a side map keyed by *Loop.
func (l *Loop) Context() xcontext.Context[string] { return l.ctx }

// Run drains the task queue on the calling goroutine until Stop is called.
// Running a Loop from two goroutines concurrently is a programming error;
// Run panics if called while already running.
func (l *Loop) Run() {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		panic("loop: Run called while already running")
	}
	defer atomic.StoreInt32(&l.running, 0)

	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.ctx.Done():
			l.drain()
			return
		}
	}
}

// drain executes whatever is left in the queue without blocking, so a
// Stop does not silently discard already-posted work.
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}

// Stop asks Run to return after draining pending tasks. Safe to call more
// than once.
func (l *Loop) Stop() {
	l.once.Do(func() { l.ctx.Cancel() })
}

// Post enqueues fn for execution on the loop goroutine. Safe from any
// goroutine. This is the primitive behind both SendEvent and InvokeLater.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.ctx.Done():
	}
}

// InvokeLater posts fn to run on the loop's own goroutine; used to
// re-enter the loop after a tricky state transition instead of calling
// straight through.
func (l *Loop) InvokeLater(fn func()) {
	l.Post(fn)
}

// AddTimer arms a timer that posts fn to the loop when it fires. If
// oneShot is false the timer is periodic. Returns an id usable with
// StopTimer.
func (l *Loop) AddTimer(d time.Duration, oneShot bool, fn func()) TimerID {
	l.mu.Lock()
	l.nextTimer++
	id := TimerID(l.nextTimer)
	l.mu.Unlock()

	l.arm(id, d, oneShot, fn)
	return id
}

func (l *Loop) arm(id TimerID, d time.Duration, oneShot bool, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.Post(fn)
		if !oneShot {
			l.mu.Lock()
			_, alive := l.timers[id]
			l.mu.Unlock()
			if alive {
				l.arm(id, d, oneShot, fn)
			}
		} else {
			l.mu.Lock()
			delete(l.timers, id)
			l.mu.Unlock()
		}
	})

	l.mu.Lock()
	l.timers[id] = t
	l.mu.Unlock()
}

// StopTimer cancels a previously armed timer. No-op if already fired/stopped.
func (l *Loop) StopTimer(id TimerID) {
	l.mu.Lock()
	t, ok := l.timers[id]
	delete(l.timers, id)
	l.mu.Unlock()

	if ok {
		t.Stop()
	}
}

// StopAddTimer swaps a timer's schedule: stop id (if any), then arm a new
// timer under a fresh id.
func (l *Loop) StopAddTimer(id TimerID, d time.Duration, oneShot bool, fn func()) TimerID {
	l.StopTimer(id)
	return l.AddTimer(d, oneShot, fn)
}
