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

package loop

import (
	"sync"
	"sync/atomic"

	"github.com/iynaix/filezilla-server-sub001/internal/elist"
)

var handlerIDs uint64

// Handler is a receiver context bound to exactly one Loop: an event handler
// plus the intrusive list of managed objects (receivers) it owns. Sessions and
// transactions each embed one. The managed list is an elist.List of teardown
// callbacks, drained in registration order by RemoveHandler.
type Handler struct {
	id         uint64
	generation uint64
	loop       *Loop
	mu         sync.Mutex
	removed    bool
	teardown   *elist.List[func()]
}

// NewHandler binds a new Handler to l.
func NewHandler(l *Loop) *Handler {
	return &Handler{
		id:       atomic.AddUint64(&handlerIDs, 1),
		loop:     l,
		teardown: elist.New[func()](),
	}
}

// ID is a process-unique identifier for this handler, stable for its
// lifetime; used together with Generation as the arena key for receivers.
func (h *Handler) ID() uint64 { return h.id }

// Generation increments every time the handler is removed, so a receiver
// holding a stale (id, generation) pair can detect it was orphaned.
func (h *Handler) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// Loop returns the loop this handler is bound to.
func (h *Handler) Loop() *Loop { return h.loop }

// IsRemoved reports whether RemoveHandler has been called.
func (h *Handler) IsRemoved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed
}

// Post enqueues fn on the handler's loop, unless the handler has already been
// removed, in which case fn is silently dropped.
func (h *Handler) Post(fn func()) {
	if h.IsRemoved() {
		return
	}
	h.loop.Post(fn)
}

// OnTeardown registers a cleanup callback invoked once, in registration
// order, when RemoveHandler runs (or at once if it already has). Used by
// receivers to invalidate themselves when the handler goes away.
func (h *Handler) OnTeardown(fn func()) {
	h.mu.Lock()
	if h.removed {
		h.mu.Unlock()
		fn()
		return
	}
	h.teardown.PushBack(fn)
	h.mu.Unlock()
}

// RemoveHandler stops the handler from accepting new posts, bumps its
// generation and runs the teardown callbacks, which invalidate its receivers.
// Tasks already queued on the loop still run. Safe to call from within the
// handler's own loop goroutine.
func (h *Handler) RemoveHandler() {
	h.mu.Lock()
	if h.removed {
		h.mu.Unlock()
		return
	}
	h.removed = true
	h.generation++
	h.mu.Unlock()

	h.teardown.DrainEach(func(cb func()) { cb() })
}
