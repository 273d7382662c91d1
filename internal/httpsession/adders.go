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

package httpsession

import (
	"io"
	"sync"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
)

// ByteAdder is a buffer.Adder that emits a fixed byte slice, then ENoData.
type ByteAdder struct {
	data []byte
	off  int
}

// NewByteAdder wraps p.
func NewByteAdder(p []byte) *ByteAdder { return &ByteAdder{data: p} }

func (a *ByteAdder) SetWake(func()) {}

func (a *ByteAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	if a.off >= len(a.data) {
		return buffer.ENoData, nil
	}
	remaining := a.data[a.off:]
	dst := buf.Get(len(remaining))
	n := copy(dst, remaining)
	buf.Add(n)
	a.off += n
	return buffer.OK, nil
}

// ReaderAdder streams an io.ReadCloser (e.g. a TVFS file) in bounded chunks.
type ReaderAdder struct {
	r      io.ReadCloser
	chunk  int
	closed bool
}

// NewReaderAdder streams r in chunkSize-sized reads, closing r on
// completion or error.
func NewReaderAdder(r io.ReadCloser, chunkSize int) *ReaderAdder {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &ReaderAdder{r: r, chunk: chunkSize}
}

func (a *ReaderAdder) SetWake(func()) {}

func (a *ReaderAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	if a.closed {
		return buffer.ENoData, nil
	}
	dst := buf.Get(a.chunk)
	n, err := a.r.Read(dst)
	if n > 0 {
		buf.Add(n)
	}
	if err == io.EOF {
		a.closed = true
		_ = a.r.Close()
		if n > 0 {
			return buffer.OK, nil
		}
		return buffer.ENoData, nil
	}
	if err != nil {
		a.closed = true
		_ = a.r.Close()
		return buffer.EFault, err
	}
	if n == 0 {
		return buffer.ENoBufs, nil
	}
	return buffer.OK, nil
}

// FuncAdder adapts a pull function (used by the directory-listing writer,
// which formats one entry per call) to buffer.Adder. fn returns the next
// chunk of bytes and whether the stream is finished.
type FuncAdder struct {
	fn   func() (p []byte, done bool, err error)
	done bool
}

// NewFuncAdder wraps fn.
func NewFuncAdder(fn func() ([]byte, bool, error)) *FuncAdder {
	return &FuncAdder{fn: fn}
}

func (a *FuncAdder) SetWake(func()) {}

func (a *FuncAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	if a.done {
		return buffer.ENoData, nil
	}
	p, done, err := a.fn()
	if err != nil {
		a.done = true
		return buffer.EFault, err
	}
	if len(p) > 0 {
		dst := buf.Get(len(p))
		n := copy(dst, p)
		buf.Add(n)
	}
	if done {
		a.done = true
		if len(p) > 0 {
			return buffer.OK, nil
		}
		return buffer.ENoData, nil
	}
	return buffer.OK, nil
}

// SequenceAdder runs a queue of adders in order: when the current one
// reports ENoData, it advances to the next instead of propagating
// end-of-stream. An empty queue reports EAgain, not ENoData — the
// response stream outlives any one transaction on a keep-alive
// connection, so running dry just means the next response has not been
// staged yet; Push wakes the channel when it is. The responder uses this
// to chain "status+headers" then "body" without the channel ever seeing
// more than one Adder.
type SequenceAdder struct {
	mu    sync.Mutex
	queue []buffer.Adder
	wake  func()
}

// NewSequenceAdder returns an empty SequenceAdder.
func NewSequenceAdder() *SequenceAdder { return &SequenceAdder{} }

// Push appends an adder to the queue and wakes the channel. Safe from
// any goroutine; responder methods may run off the session loop (timers,
// authenticator completions).
func (s *SequenceAdder) Push(a buffer.Adder) {
	s.mu.Lock()
	a.SetWake(s.wake)
	s.queue = append(s.queue, a)
	wake := s.wake
	s.mu.Unlock()
	if wake != nil {
		wake()
	}
}

func (s *SequenceAdder) SetWake(wake func()) {
	s.mu.Lock()
	s.wake = wake
	for _, a := range s.queue {
		a.SetWake(wake)
	}
	s.mu.Unlock()
}

func (s *SequenceAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if len(s.queue) == 0 {
			return buffer.EAgain, nil
		}
		res, err := s.queue[0].AddToBuffer(buf)
		if res == buffer.ENoData {
			s.queue = s.queue[1:]
			if buf.Size() > 0 {
				return buffer.OK, nil
			}
			continue
		}
		return res, err
	}
}

// doneAdder invokes done exactly once, when the wrapped adder first
// reports ENoData. The responder uses it to advance a streaming-body
// transaction to its ended state without the handler having to call
// SendEnd by hand.
type doneAdder struct {
	inner buffer.Adder
	done  func()
	fired bool
}

func (a *doneAdder) SetWake(wake func()) { a.inner.SetWake(wake) }

func (a *doneAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	res, err := a.inner.AddToBuffer(buf)
	if res == buffer.ENoData && !a.fired {
		a.fired = true
		a.done()
	}
	return res, err
}
