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
	"fmt"
	"strconv"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
)

// DefaultChunkSize is the initial target chunk size the chunk adder accumulates
// before framing and flushing.
const DefaultChunkSize = 256 * 1024

// chunkSizeDigits is the fixed width of the hex size in each chunk header:
// lower-case hex zero-padded to two digits per size byte.
const chunkSizeDigits = 2 * strconv.IntSize / 8

// ChunkAdder wraps an inner buffer.Adder to emit HTTP/1.1 Transfer-Encoding:
// chunked framing. Payload bytes accumulate in a staging buffer first, so the
// "<hex-size>\r\n" header is known before anything is written out; header,
// payload and trailing CRLF are three plain appends with no in-place patching
// of already-staged bytes.
type ChunkAdder struct {
	inner     buffer.Adder
	chunkSize int
	stage     *buffer.Buffer
	innerDone bool
	finished  bool
	wake      func()
}

// NewChunkAdder wraps inner, targeting chunkSize bytes per frame (0 means
// DefaultChunkSize).
func NewChunkAdder(inner buffer.Adder, chunkSize int) *ChunkAdder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	c := &ChunkAdder{
		inner:     inner,
		chunkSize: chunkSize,
		stage:     buffer.NewBuffer(chunkSize),
	}
	inner.SetWake(c.onInnerWake)
	return c
}

func (c *ChunkAdder) onInnerWake() {
	if c.wake != nil {
		c.wake()
	}
}

func (c *ChunkAdder) SetWake(wake func()) { c.wake = wake }

// AddToBuffer implements buffer.Adder.
func (c *ChunkAdder) AddToBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	if c.finished {
		return buffer.ENoData, nil
	}

	for !c.innerDone && c.stage.Size() < c.chunkSize {
		res, err := c.inner.AddToBuffer(c.stage)
		switch res {
		case buffer.OK:
			continue
		case buffer.ENoData:
			c.innerDone = true
		case buffer.ENoBufs:
			// Flush what we have now and shrink the target so we do not re-hit ENoBufs
			// on the same backlog.
			if c.stage.Size() > 0 {
				c.chunkSize = c.stage.Size()
			}
		case buffer.EAgain:
			if c.stage.Size() == 0 {
				return buffer.EAgain, nil
			}
		default:
			return res, err
		}
		if res == buffer.ENoBufs || res == buffer.EAgain {
			break
		}
	}

	if c.stage.Size() == 0 {
		if c.innerDone {
			c.writeTerminator(buf)
			c.finished = true
			return buffer.OK, nil
		}
		return buffer.EAgain, nil
	}

	c.writeFrame(buf)
	if c.innerDone {
		c.writeTerminator(buf)
		c.finished = true
	}
	return buffer.OK, nil
}

func (c *ChunkAdder) writeFrame(buf *buffer.Buffer) {
	n := c.stage.Size()
	header := []byte(fmt.Sprintf("%0*x\r\n", chunkSizeDigits, n))

	dst := buf.Get(len(header))
	buf.Add(copy(dst, header))

	payload := c.stage.Bytes()
	dst = buf.Get(len(payload))
	buf.Add(copy(dst, payload))
	c.stage.Consume(len(payload))

	dst = buf.Get(2)
	buf.Add(copy(dst, []byte("\r\n")))
}

func (c *ChunkAdder) writeTerminator(buf *buffer.Buffer) {
	const term = "0\r\n\r\n"
	dst := buf.Get(len(term))
	buf.Add(copy(dst, []byte(term)))
}
