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

// Package elist is a generic intrusive doubly-linked list: the Node lives
// embedded inside (a wrapper around) the object it tracks rather than the
// list allocating its own storage, so removal given a Node is O(1) and
// never needs to scan. The event loop uses one List per handler to track
// the receivers it owns so teardown can invalidate every outstanding one
// without a second index.
package elist

import "sync"

// Node is an element of a List. The zero value is not usable; obtain one
// via List.PushBack.
type Node[T any] struct {
	mu         sync.Mutex
	list       *List[T]
	prev, next *Node[T]
	Value      T
}

// Remove detaches the node from its list. Safe to call more than once and
// safe to call from within a callback iterating the list.
func (n *Node[T]) Remove() {
	if n == nil {
		return
	}
	n.mu.Lock()
	l := n.list
	n.mu.Unlock()

	if l == nil {
		return
	}
	l.remove(n)
}

// List is a doubly-linked list of Node[T], safe for concurrent use.
type List[T any] struct {
	mu         sync.Mutex
	head, tail *Node[T]
	len        int
}

// New returns an empty List[T].
func New[T any]() *List[T] {
	return &List[T]{}
}

// PushBack appends a new node carrying val and returns it.
func (l *List[T]) PushBack(val T) *Node[T] {
	n := &Node[T]{list: l, Value: val}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.len++
	return n
}

func (l *List[T]) remove(n *Node[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.list != l {
		return
	}

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.list = nil, nil, nil
	l.len--
}

// Len returns the number of nodes currently in the list.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.len
}

// Each calls f for every node currently in the list, front to back. f may
// call Remove on the node it is given; Each snapshots the next pointer
// before invoking f so this is safe.
func (l *List[T]) Each(f func(*Node[T])) {
	l.mu.Lock()
	cur := l.head
	l.mu.Unlock()

	for cur != nil {
		cur.mu.Lock()
		next := cur.next
		cur.mu.Unlock()

		f(cur)
		cur = next
	}
}

// DrainEach removes every node from the list and calls f with each one's
// value, front to back. Used by handler teardown to invalidate every
// outstanding managed receiver exactly once.
func (l *List[T]) DrainEach(f func(T)) {
	l.mu.Lock()
	cur := l.head
	l.head, l.tail, l.len = nil, nil, 0
	l.mu.Unlock()

	for cur != nil {
		next := cur.next
		cur.mu.Lock()
		cur.prev, cur.next, cur.list = nil, nil, nil
		cur.mu.Unlock()
		f(cur.Value)
		cur = next
	}
}
