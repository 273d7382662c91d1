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

// Package channel implements the mediator that pumps bytes between a socket
// (optionally TLS-wrapped) and protocol code without buffering more than a
// configured high-water mark. Reads are driven by a dedicated goroutine doing
// blocking reads against the net.Conn, and every read is reported back to the
// owning handler's loop via Handler.Post, so the Consumer only runs on the
// session's own loop goroutine. Writes have no goroutine of their own:
// pumpWrite calls the Adder and writes to the socket synchronously, on the
// goroutine that calls SetAdder or, after a wake, on the handler's loop.
package channel

import (
	"net"
	"sync"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
)

// DefaultHighWaterMark bounds how much unsent/unconsumed data a Channel
// will buffer before applying backpressure.
const DefaultHighWaterMark = 256 * 1024

// ProgressNotifier is informed of successful transfers so the owning session
// can refresh its activity timestamp.
type ProgressNotifier interface {
	OnRead(at time.Time, n int)
	OnWritten(at time.Time, n int)
}

// Channel mediates between a socket and an Adder/Consumer pair.
type Channel struct {
	conn    net.Conn
	handler *loop.Handler
	notify  ProgressNotifier
	hwm     int

	mu       sync.Mutex
	adder    buffer.Adder
	consumer buffer.Consumer
	readBuf  *buffer.LockingBuffer
	writeBuf *buffer.LockingBuffer

	stopped  bool
	onDone   func(error)
	readWake chan struct{}
}

// New creates a Channel pumping conn, posting callbacks to h's loop.
func New(conn net.Conn, h *loop.Handler, notify ProgressNotifier) *Channel {
	c := &Channel{
		conn:     conn,
		handler:  h,
		notify:   notify,
		hwm:      DefaultHighWaterMark,
		readBuf:  buffer.NewLockingBuffer(buffer.NewBuffer(4096)),
		writeBuf: buffer.NewLockingBuffer(buffer.NewBuffer(4096)),
		readWake: make(chan struct{}, 1),
	}
	return c
}

// SetHighWaterMark overrides DefaultHighWaterMark.
func (c *Channel) SetHighWaterMark(n int) { c.hwm = n }

// OnDone registers the callback invoked, on the handler's loop, exactly once
// when the channel stops touching the socket.
func (c *Channel) OnDone(fn func(error)) {
	c.mu.Lock()
	c.onDone = fn
	c.mu.Unlock()
}

// SetAdder binds the outbound (adder -> socket) source. Only one adder may
// be bound at a time.
func (c *Channel) SetAdder(a buffer.Adder) {
	c.mu.Lock()
	c.adder = a
	c.mu.Unlock()
	if a != nil {
		a.SetWake(c.wakeWrite)
		c.pumpWrite()
	}
}

// SetConsumer binds the inbound (socket -> consumer) sink. Only one
// consumer may be bound at a time.
func (c *Channel) SetConsumer(cons buffer.Consumer) {
	c.mu.Lock()
	c.consumer = cons
	c.mu.Unlock()
	if cons != nil {
		cons.SetWake(c.wakeRead)
	}
}

// Start begins the read pump goroutine. Call once the consumer (or at
// least the intent to read) is wired.
func (c *Channel) Start() {
	go c.readLoop()
}

// wakeWrite is the callback an EAgain-returning adder invokes once more data is
// ready.
func (c *Channel) wakeWrite() {
	c.handler.Post(c.pumpWrite)
}

// wakeRead resumes a paused consumer.
func (c *Channel) wakeRead() {
	c.handler.Post(c.drainRead)
}

// pumpWrite asks the bound adder for bytes and writes them to the socket,
// looping until EAgain, ENoData or the buffer empties.
func (c *Channel) pumpWrite() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	adder := c.adder
	c.mu.Unlock()
	if adder == nil {
		return
	}

	for {
		g := c.writeBuf.Acquire()
		res, err := adder.AddToBuffer(g.Buffer())
		produced := g.Buffer().Size()
		g.Release()

		switch res {
		case buffer.OK:
			if produced > 0 {
				if !c.flushWrite() {
					return
				}
			}
			continue
		case buffer.ENoData:
			c.flushWrite()
			if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
				_ = cw.CloseWrite()
			}
			return
		case buffer.ENoBufs:
			if !c.flushWrite() {
				return
			}
			continue
		case buffer.EAgain:
			c.flushWrite()
			return
		default:
			c.shutdown(err)
			return
		}
	}
}

// flushWrite writes whatever is currently queued to the socket. Returns
// false if the channel was shut down as a result.
func (c *Channel) flushWrite() bool {
	g := c.writeBuf.Acquire()
	b := g.Buffer()
	if b.Empty() {
		g.Release()
		return true
	}
	data := append([]byte(nil), b.Bytes()...)
	b.Consume(len(data))
	g.Release()

	n, err := c.conn.Write(data)
	if n > 0 && c.notify != nil {
		c.notify.OnWritten(time.Now(), n)
	}
	if err != nil {
		c.shutdown(err)
		return false
	}
	return true
}

// readLoop is the blocking socket-read goroutine; it reports every read
// back onto the handler's loop so ConsumeBuffer only ever runs there. When
// the read buffer sits above the high-water mark (a paused consumer), the
// loop stops pulling from the socket until drainRead signals space.
func (c *Channel) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			done := make(chan struct{})
			c.handler.Post(func() {
				c.appendRead(chunk)
				close(done)
			})
			<-done
			c.waitReadSpace()
		}
		if err != nil {
			c.handler.Post(func() { c.shutdown(err) })
			return
		}
	}
}

func (c *Channel) waitReadSpace() {
	for {
		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}
		g := c.readBuf.Acquire()
		size := g.Buffer().Size()
		g.Release()
		if size <= c.hwm {
			return
		}
		<-c.readWake
	}
}

// signalReadSpace unblocks a readLoop parked on the high-water mark.
func (c *Channel) signalReadSpace() {
	select {
	case c.readWake <- struct{}{}:
	default:
	}
}

func (c *Channel) appendRead(chunk []byte) {
	g := c.readBuf.Acquire()
	_, _ = g.Buffer().Write(chunk)
	g.Release()

	if c.notify != nil {
		c.notify.OnRead(time.Now(), len(chunk))
	}
	c.drainRead()
}

// drainRead feeds the read buffer to the consumer until ECanceled or the buffer
// empties.
func (c *Channel) drainRead() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	cons := c.consumer
	c.mu.Unlock()
	if cons == nil {
		return
	}
	defer c.signalReadSpace()

	for {
		g := c.readBuf.Acquire()
		if g.Buffer().Empty() {
			g.Release()
			return
		}
		res, err := cons.ConsumeBuffer(g.Buffer())
		g.Release()

		switch res {
		case buffer.OK:
			continue
		case buffer.ECanceled, buffer.EAgain:
			return
		default:
			c.shutdown(err)
			return
		}
	}
}

// Resume re-invokes the consumer explicitly, used by the HTTP session layer
// when it creates a fresh transaction after a pipelined request was parsed
// while the prior response was still sending.
func (c *Channel) Resume() { c.drainRead() }

// Shutdown stops both directions, disassociates the socket, and emits the done
// event to the owning session.
func (c *Channel) Shutdown(err error) { c.shutdown(err) }

func (c *Channel) shutdown(err error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cb := c.onDone
	c.mu.Unlock()

	c.signalReadSpace()
	_ = c.conn.Close()
	if cb != nil {
		cb(err)
	}
}
