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

// Package xatomic provides generic, type-safe wrappers around sync/atomic,
// used in place of a naked mutex on hot paths such as the TCP server's
// session counter.
package xatomic

import "sync/atomic"

// Value is a generic, type-safe wrapper around atomic.Value.
type Value[T any] struct {
	v atomic.Value
}

// NewValue returns an empty Value[T].
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// Load returns the current value, or the zero value of T if never stored.
func (v *Value[T]) Load() T {
	val, _ := v.load()
	return val
}

// Store sets the current value.
func (v *Value[T]) Store(val T) {
	v.v.Store(box[T]{val: val})
}

// box wraps T so that atomic.Value accepts a stable concrete type even when
// T is itself an interface (atomic.Value rejects Store of inconsistent
// concrete types otherwise).
type box[T any] struct {
	val T
}

func (v *Value[T]) load() (T, bool) {
	var zero T
	i := v.v.Load()
	if i == nil {
		return zero, false
	}
	b, ok := i.(box[T])
	if !ok {
		return zero, false
	}
	return b.val, true
}

// Counter is an atomic counter used for session and authorization ids,
// monotonic within one server.
type Counter struct {
	n int64
}

// Next atomically increments and returns the counter.
func (c *Counter) Next() uint64 {
	return uint64(atomic.AddInt64(&c.n, 1))
}
