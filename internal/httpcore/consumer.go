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

package httpcore

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
	"github.com/iynaix/filezilla-server-sub001/internal/xerrors"
)

// MaxLineSize bounds the request line and the cumulative size of any single
// folded header.
const MaxLineSize = 4096

// MaxHeaders bounds the number of distinct header fields.
const MaxHeaders = 100

// State is the message consumer's state machine.
type State uint8

const (
	StateStart State = iota
	StateStartLine
	StateHeaders
	StateBody
	StateEnd
	StateError
)

// BodySink receives inbound request-body bytes once the transaction handler
// opts in via ReceiveBody.
type BodySink interface {
	Write(p []byte) (int, error)
	// OnEnd is called exactly once: true on a clean end of body, false if the
	// connection died mid-body.
	OnEnd(success bool)
}

// HeadersCompleteFunc is invoked once per request, synchronously, as soon as
// the header block has been fully parsed.
type HeadersCompleteFunc func(req *Request)

// Consumer is the HTTP/1.x request-side state machine: a line/header parser
// driving buffer.Consumer, with bounded sizes.
type Consumer struct {
	onHeaders HeadersCompleteFunc
	onError   func(err xerrors.Error)
	wake      func()

	state       State
	req         *Request
	headerCount int

	bodyMode   bodyFraming
	bodyLeft   int64 // Content-Length remaining
	chunkState chunkDecodeState
	chunkLeft  int64
	sink       BodySink
	sinkWanted bool
}

type bodyFraming uint8

const (
	bodyNone bodyFraming = iota
	bodyContentLength
	bodyChunked
)

type chunkDecodeState uint8

const (
	chunkSize chunkDecodeState = iota
	chunkData
	chunkCRLF
	chunkTrailer
	chunkDone
)

// NewConsumer constructs a Consumer. onHeaders is called for every
// request; onError is called (at most once per request) when a parse
// error occurs and the caller should emit a 400/500 response.
func NewConsumer(onHeaders HeadersCompleteFunc, onError func(xerrors.Error)) *Consumer {
	return &Consumer{onHeaders: onHeaders, onError: onError, state: StateStart}
}

// SetWake implements buffer.Consumer.
func (c *Consumer) SetWake(wake func()) { c.wake = wake }

// ReceiveBody opts the transaction handler into the request body; until called,
// ConsumeBuffer reports EAgain once the header block is done.
func (c *Consumer) ReceiveBody(sink BodySink) {
	c.sink = sink
	c.sinkWanted = true
	if c.state == StateEnd {
		// Bodiless request: nothing to stream, signal end immediately.
		sink.OnEnd(true)
	}
	if c.wake != nil {
		c.wake()
	}
}

// ConsumeBuffer implements buffer.Consumer.
func (c *Consumer) ConsumeBuffer(buf *buffer.Buffer) (buffer.Result, error) {
	switch c.state {
	case StateError, StateEnd:
		return buffer.ECanceled, nil
	}

	progressed := false
	for {
		switch c.state {
		case StateStart, StateStartLine:
			ok, res, err := c.consumeLine(buf, c.handleStartLine)
			if !ok {
				return res, err
			}
			progressed = true
		case StateHeaders:
			ok, res, err := c.consumeLine(buf, c.handleHeaderLine)
			if !ok {
				return res, err
			}
			progressed = true
			if c.state != StateHeaders {
				return buffer.OK, nil
			}
		case StateBody:
			if !c.sinkWanted {
				return buffer.EAgain, nil
			}
			res, err := c.consumeBody(buf)
			if res != buffer.OK {
				return res, err
			}
			progressed = true
		default:
			if progressed {
				return buffer.OK, nil
			}
			return buffer.ECanceled, nil
		}
		if buf.Empty() {
			return buffer.OK, nil
		}
	}
}

// consumeLine extracts one CRLF-terminated line up to MaxLineSize and
// hands it to fn; returns false with the Result/err to propagate when no
// full line is available yet or a bound was exceeded.
func (c *Consumer) consumeLine(buf *buffer.Buffer, fn func(line string) xerrors.Error) (bool, buffer.Result, error) {
	data := buf.Bytes()
	idx := bytes.Index(data, []byte("\r\n"))
	if idx < 0 {
		if len(data) > MaxLineSize {
			res, err := c.fail(xerrors.New(xerrors.CodeBadRequest, "request line too long"))
			return false, res, err
		}
		return false, buffer.OK, nil
	}
	if idx > MaxLineSize {
		res, err := c.fail(xerrors.New(xerrors.CodeBadRequest, "header line too long"))
		return false, res, err
	}
	line := string(data[:idx])
	buf.Consume(idx + 2)
	if cerr := fn(line); cerr != nil {
		res, err := c.fail(cerr)
		return false, res, err
	}
	return true, buffer.OK, nil
}

func (c *Consumer) fail(err xerrors.Error) (buffer.Result, error) {
	c.state = StateError
	if c.onError != nil {
		c.onError(err)
	}
	return buffer.EFault, err
}

func (c *Consumer) handleStartLine(line string) xerrors.Error {
	if line == "" {
		// Allow (and ignore) a single leading blank line some clients send.
		return nil
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return xerrors.New(xerrors.CodeBadRequest, "malformed request line")
	}
	method, target, proto := parts[0], parts[1], parts[2]

	version, ok := parseVersion(proto)
	if !ok {
		return xerrors.New(xerrors.CodeBadRequest, "unsupported HTTP version")
	}

	path, query, perr := ParseRequestTarget(target)
	if perr != nil {
		return xerrors.New(xerrors.CodeBadRequest, "malformed request target")
	}

	c.req = &Request{
		Method:  method,
		RawURI:  target,
		Path:    path,
		Query:   query,
		Headers: NewHeaders(),
		Version: version,
	}
	c.state = StateHeaders
	c.headerCount = 0
	return nil
}

func parseVersion(proto string) (string, bool) {
	switch proto {
	case "HTTP/1.1":
		return "1.1", true
	case "HTTP/1.0":
		return "1.0", true
	default:
		return "", false
	}
}

func (c *Consumer) handleHeaderLine(line string) xerrors.Error {
	if line == "" {
		return c.endHeaders()
	}
	name, value, found := strings.Cut(line, ":")
	if !found {
		return xerrors.New(xerrors.CodeBadRequest, "malformed header line")
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if !c.req.Headers.Has(name) {
		c.headerCount++
		if c.headerCount > MaxHeaders {
			return xerrors.New(xerrors.CodeBadRequest, "too many headers")
		}
	}
	c.req.Headers.Add(name, value)
	if v, _ := c.req.Headers.Get(name); len(name)+len(v)+4 > MaxLineSize {
		return xerrors.New(xerrors.CodeBadRequest, "header too large")
	}

	if strings.EqualFold(name, "Connection") {
		if _, ok := c.req.Headers.ConnectionKeepAlive(c.req.Version); !ok {
			return xerrors.New(xerrors.CodeBadRequest, "invalid Connection value")
		}
	}
	return nil
}

// endHeaders finishes the header block. A request with no body framing is
// complete right here — the session relies on StateEnd to know when the next
// pipelined request may be read, whether or not the handler ever asks for a
// body.
func (c *Consumer) endHeaders() xerrors.Error {
	c.determineBodyFraming()
	if c.bodyMode == bodyNone {
		c.state = StateEnd
	} else {
		c.state = StateBody
	}
	if c.onHeaders != nil {
		c.onHeaders(c.req)
	}
	return nil
}

func (c *Consumer) determineBodyFraming() {
	if te, ok := c.req.Headers.Get("Transfer-Encoding"); ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		c.bodyMode = bodyChunked
		c.chunkState = chunkSize
		return
	}
	if cl, ok := c.req.Headers.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err == nil && n > 0 {
			c.bodyMode = bodyContentLength
			c.bodyLeft = n
			return
		}
	}
	c.bodyMode = bodyNone
}

func (c *Consumer) consumeBody(buf *buffer.Buffer) (buffer.Result, error) {
	switch c.bodyMode {
	case bodyContentLength:
		return c.consumeContentLength(buf)
	case bodyChunked:
		return c.consumeChunked(buf)
	default:
		c.state = StateEnd
		if c.sink != nil {
			c.sink.OnEnd(true)
		}
		return buffer.OK, nil
	}
}

func (c *Consumer) consumeContentLength(buf *buffer.Buffer) (buffer.Result, error) {
	if buf.Empty() {
		return buffer.OK, nil
	}
	data := buf.Bytes()
	take := int64(len(data))
	if take > c.bodyLeft {
		take = c.bodyLeft
	}
	if take > 0 {
		n, err := c.sink.Write(data[:take])
		buf.Consume(n)
		if err != nil {
			c.state = StateError
			c.sink.OnEnd(false)
			return buffer.EFault, err
		}
		c.bodyLeft -= int64(n)
	}
	if c.bodyLeft == 0 {
		c.state = StateEnd
		c.sink.OnEnd(true)
	}
	return buffer.OK, nil
}

func (c *Consumer) consumeChunked(buf *buffer.Buffer) (buffer.Result, error) {
	for {
		switch c.chunkState {
		case chunkSize:
			data := buf.Bytes()
			idx := bytes.Index(data, []byte("\r\n"))
			if idx < 0 {
				return buffer.OK, nil
			}
			line := string(data[:idx])
			if semi := strings.IndexByte(line, ';'); semi >= 0 {
				line = line[:semi]
			}
			n, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
			if err != nil {
				c.state = StateError
				c.sink.OnEnd(false)
				return buffer.EFault, xerrors.New(xerrors.CodeBadRequest, "malformed chunk size")
			}
			buf.Consume(idx + 2)
			c.chunkLeft = n
			if n == 0 {
				c.chunkState = chunkTrailer
			} else {
				c.chunkState = chunkData
			}
		case chunkData:
			data := buf.Bytes()
			if len(data) == 0 {
				return buffer.OK, nil
			}
			take := int64(len(data))
			if take > c.chunkLeft {
				take = c.chunkLeft
			}
			n, err := c.sink.Write(data[:take])
			buf.Consume(n)
			if err != nil {
				c.state = StateError
				c.sink.OnEnd(false)
				return buffer.EFault, err
			}
			c.chunkLeft -= int64(n)
			if c.chunkLeft == 0 {
				c.chunkState = chunkCRLF
			} else {
				return buffer.OK, nil
			}
		case chunkCRLF:
			data := buf.Bytes()
			if len(data) < 2 {
				return buffer.OK, nil
			}
			buf.Consume(2)
			c.chunkState = chunkSize
		case chunkTrailer:
			data := buf.Bytes()
			idx := bytes.Index(data, []byte("\r\n"))
			if idx < 0 {
				return buffer.OK, nil
			}
			buf.Consume(idx + 2)
			if idx == 0 {
				c.chunkState = chunkDone
				c.state = StateEnd
				c.sink.OnEnd(true)
				return buffer.OK, nil
			}
			// trailer header line, discarded
		case chunkDone:
			return buffer.OK, nil
		}
	}
}

// Request returns the currently parsed request, or nil before the start
// line has been parsed.
func (c *Consumer) Request() *Request { return c.req }

// StateValue returns the consumer's current state.
func (c *Consumer) StateValue() State { return c.state }

// Reset prepares the consumer to parse a fresh request on the same connection.
func (c *Consumer) Reset() {
	*c = Consumer{onHeaders: c.onHeaders, onError: c.onError, wake: c.wake, state: StateStart}
}
