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

// Package receiver implements the typed one-shot continuation handle that
// underlies every asynchronous operation in the server core. A Handle[T] is
// bound to a loop.Handler at creation. Activating it (Activate) constructs the
// value and posts it to the handler's loop, which invokes the registered
// callback exactly once. Re-activating is a no-op; activating after the handler
// has been torn down is also a no-op.
package receiver

import (
	"sync"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/loop"
)

// Handle is a single-shot continuation carrying a value of type T.
type Handle[T any] struct {
	mu        sync.Mutex
	h         *loop.Handler
	handlerID uint64
	gen       uint64
	fired     bool
	canceled  bool
	cb        func(T)
	reentrant func(*Handle[T], T)
}

// Receive registers fn to run, on h's loop, the first time the returned
// handle is activated.
func Receive[T any](h *loop.Handler, fn func(T)) *Handle[T] {
	r := &Handle[T]{h: h, handlerID: h.ID(), gen: h.Generation(), cb: fn}
	h.OnTeardown(r.invalidate)
	return r
}

// ReceiveReentrant registers fn to run with a fresh Handle so the
// continuation can re-arm itself without allocating a second receiver.
func ReceiveReentrant[T any](h *loop.Handler, fn func(*Handle[T], T)) *Handle[T] {
	r := &Handle[T]{h: h, handlerID: h.ID(), gen: h.Generation(), reentrant: fn}
	h.OnTeardown(r.invalidate)
	return r
}

func (r *Handle[T]) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
}

// Activate constructs the tuple and posts a single delivery to the bound
// handler's loop. A Handle may be activated at most once; later calls are
// no-ops. Safe to call from any goroutine.
func (r *Handle[T]) Activate(v T) {
	r.mu.Lock()
	if r.fired || r.canceled || r.h.ID() != r.handlerID || r.h.Generation() != r.gen {
		r.mu.Unlock()
		return
	}
	r.fired = true
	r.mu.Unlock()

	r.h.Post(func() {
		if r.reentrant != nil {
			next := &Handle[T]{h: r.h, handlerID: r.h.ID(), gen: r.h.Generation(), reentrant: r.reentrant}
			r.h.OnTeardown(next.invalidate)
			r.reentrant(next, v)
		} else if r.cb != nil {
			r.cb(v)
		}
	})
}

// Cancel discards an unactivated handle: the continuation never runs. A
// no-op if the handle already fired.
func (r *Handle[T]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
}

// Fired reports whether Activate has already taken effect.
func (r *Handle[T]) Fired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired
}

// SyncReceive drives a private threadless loop until the awaitable
// operation started by start completes, returning the delivered value.
// start receives the private handler and a completion callback to invoke
// exactly once. It must not be called from a loop goroutine that other
// code depends on making progress, since it blocks the calling goroutine.
func SyncReceive[T any](start func(h *loop.Handler, complete func(T))) T {
	priv := loop.New(1)
	handler := loop.NewHandler(priv)
	result := make(chan T, 1)

	start(handler, func(v T) {
		result <- v
		priv.Stop()
	})

	go priv.Run()
	return <-result
}

// SyncTimeoutReceive is the cancellable blocking variant: it runs a
// private nested loop until either start's operation completes or the
// timeout elapses, reporting which happened.
func SyncTimeoutReceive[T any](d time.Duration, start func(h *loop.Handler, complete func(T))) (value T, timedOut bool) {
	priv := loop.New(1)
	handler := loop.NewHandler(priv)
	go priv.Run()
	defer priv.Stop()

	done := make(chan struct{})
	var v T
	var once sync.Once

	start(handler, func(got T) {
		once.Do(func() {
			v = got
			close(done)
		})
	})

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return v, false
	case <-timer.C:
		handler.RemoveHandler()
		once.Do(func() { close(done) })
		return v, true
	}
}
