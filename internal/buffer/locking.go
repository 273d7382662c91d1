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

package buffer

import "sync"

// LockingBuffer grants mutual exclusion over a Buffer to its holder via a
// scoped acquisition handle. It is the in-process analogue of the server core's
// "locked proxy" pattern: callers must Release what Acquire returns instead of
// calling Lock/Unlock directly.
type LockingBuffer struct {
	mu  sync.Mutex
	buf *Buffer
}

// NewLockingBuffer wraps buf for exclusive access.
func NewLockingBuffer(buf *Buffer) *LockingBuffer {
	return &LockingBuffer{buf: buf}
}

// Guard is the scoped acquisition handle returned by Acquire. Release
// must be called, typically via defer; calls after the first are no-ops.
type Guard struct {
	lb   *LockingBuffer
	once sync.Once
}

// Acquire blocks until the buffer is available and returns a Guard giving
// exclusive access to the underlying Buffer until Release is called.
func (lb *LockingBuffer) Acquire() *Guard {
	lb.mu.Lock()
	return &Guard{lb: lb}
}

// Buffer returns the guarded Buffer. Valid only until Release.
func (g *Guard) Buffer() *Buffer {
	return g.lb.buf
}

// Release gives up exclusive access. Safe to call more than once; only
// the first call has an effect.
func (g *Guard) Release() {
	g.once.Do(func() { g.lb.mu.Unlock() })
}
