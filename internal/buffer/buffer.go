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

// Buffer is an appendable/consumable byte array: Get reserves a writable
// region, Add commits bytes written into that region, and Consume drops
// bytes from the front. It is not safe for concurrent use on its own; use
// LockingBuffer for that.
type Buffer struct {
	data []byte
	off  int // logical start; bytes before off are already consumed
}

// NewBuffer returns an empty Buffer with capacity pre-allocated.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Get returns a writable region of size n at the tail of the buffer. The
// caller must call Add with the number of bytes it actually wrote before
// calling Get again.
func (b *Buffer) Get(n int) []byte {
	b.compact()
	if cap(b.data)-len(b.data) < n {
		grown := make([]byte, len(b.data), len(b.data)+n)
		copy(grown, b.data)
		b.data = grown
	}
	return b.data[len(b.data) : len(b.data)+n]
}

// Add commits n bytes previously written into the region returned by Get.
func (b *Buffer) Add(n int) {
	b.data = b.data[:len(b.data)+n]
}

// Consume drops n bytes from the front of the buffer.
func (b *Buffer) Consume(n int) {
	if n > b.Size() {
		n = b.Size()
	}
	b.off += n
}

// Size returns the number of unconsumed bytes currently in the buffer.
func (b *Buffer) Size() int {
	return len(b.data) - b.off
}

// Empty reports whether Size() == 0.
func (b *Buffer) Empty() bool {
	return b.Size() == 0
}

// Bytes returns the unconsumed region without copying; callers must not
// retain the slice across a subsequent Get/Add/Consume call.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Write appends p to the tail of the buffer, growing it as needed. It is
// a convenience wrapper around Get+Add for producers that already have a
// []byte in hand (e.g. a socket Read).
func (b *Buffer) Write(p []byte) (int, error) {
	dst := b.Get(len(p))
	n := copy(dst, p)
	b.Add(n)
	return n, nil
}

// compact reclaims consumed space once it dominates the buffer, so a
// long-lived connection does not grow its backing array unbounded.
func (b *Buffer) compact() {
	if b.off == 0 {
		return
	}
	if b.off < len(b.data)/2 && len(b.data) < 64*1024 {
		return
	}
	copy(b.data, b.data[b.off:])
	b.data = b.data[:len(b.data)-b.off]
	b.off = 0
}
