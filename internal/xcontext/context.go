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

// Package xcontext provides a generic, cancelable key/value store embedding
// a context.Context, used as each loop's lifetime and key/value store. Keys
// are typed (T comparable) instead of the bare `any` the standard library
// allows.
package xcontext

import (
	"context"
	"sync"
	"time"
)

// Context is a context.Context plus a typed, mutable key/value map.
type Context[T comparable] interface {
	context.Context

	Load(key T) (value any, ok bool)
	Store(key T, value any)
	Delete(key T)
	Clone(parent func() context.Context) Context[T]
	Cancel()
}

type ccx[T comparable] struct {
	mu   sync.RWMutex
	data map[T]any
	x    context.Context
	cnl  context.CancelFunc
}

// New creates a Context[T] derived from parentFunc() (or context.Background()
// if parentFunc is nil), cancelable via Cancel.
func New[T comparable](parentFunc func() context.Context) Context[T] {
	var parent context.Context
	if parentFunc != nil {
		parent = parentFunc()
	}
	if parent == nil {
		parent = context.Background()
	}

	x, cnl := context.WithCancel(parent)
	return &ccx[T]{
		data: make(map[T]any),
		x:    x,
		cnl:  cnl,
	}
}

func (c *ccx[T]) Deadline() (time.Time, bool) { return c.x.Deadline() }
func (c *ccx[T]) Done() <-chan struct{}       { return c.x.Done() }
func (c *ccx[T]) Err() error                  { return c.x.Err() }

func (c *ccx[T]) Value(key any) any {
	if k, ok := key.(T); ok {
		if v, found := c.Load(k); found {
			return v
		}
	}
	return c.x.Value(key)
}

func (c *ccx[T]) Load(key T) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *ccx[T]) Store(key T, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *ccx[T]) Delete(key T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *ccx[T]) Clone(parentFunc func() context.Context) Context[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := New[T](parentFunc).(*ccx[T])
	for k, v := range c.data {
		n.data[k] = v
	}
	return n
}

func (c *ccx[T]) Cancel() {
	if c.cnl != nil {
		c.cnl()
	}
}
