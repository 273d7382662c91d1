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

// Package httpsession implements the per-connection HTTP session and
// transaction state machine: request parsing is handed off to
// httpcore.Consumer, and this package owns response emission (including
// streaming bodies and chunked encoding) plus the keepalive / pipelining
// contract.
package httpsession

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
	"github.com/iynaix/filezilla-server-sub001/internal/xerrors"
)

// ResponseState is the responder's state machine.
type ResponseState uint8

const (
	StateWaitingCodeAndReason ResponseState = iota
	StateWaitingHeaders
	StateWaitingBody
	StateSendingBody
	StateSentBody
	StateEnded
)

// ListingFormat selects the content-negotiated directory-listing encoding.
type ListingFormat uint8

const (
	ListingHTML ListingFormat = iota
	ListingPlain
	ListingNDJSON
)

// NegotiateListingFormat picks a ListingFormat from an Accept header value.
func NegotiateListingFormat(accept string) ListingFormat {
	accept = strings.ToLower(accept)
	switch {
	case strings.Contains(accept, "application/ndjson"):
		return ListingNDJSON
	case strings.Contains(accept, "text/plain"):
		return ListingPlain
	default:
		return ListingHTML
	}
}

func (f ListingFormat) contentType() string {
	switch f {
	case ListingNDJSON:
		return "application/ndjson"
	case ListingPlain:
		return "text/plain; charset=utf-8"
	default:
		return "text/html; charset=utf-8"
	}
}

// Transaction is one HTTP request/response pair. A mutex guards the response
// state machine and the detached flag, since responder methods and Detach may
// run on different goroutines.
type Transaction struct {
	Request *httpcore.Request

	mu        sync.Mutex
	state     ResponseState
	headers   *httpcore.Headers
	out       *SequenceAdder
	isHEAD    bool
	keepAlive bool
	isHTTPS   bool
	isHTTP10  bool
	detached  bool
	onInvalid func(err error)
	onEnded   func()
}

// NewTransaction constructs a Transaction that will write its response
// into out.
func NewTransaction(req *httpcore.Request, out *SequenceAdder, isHTTPS, keepAlive bool) *Transaction {
	return &Transaction{
		Request:   req,
		out:       out,
		headers:   httpcore.NewHeaders(),
		keepAlive: keepAlive,
		isHTTPS:   isHTTPS,
		isHTTP10:  req.Version == "1.0",
		isHEAD:    strings.EqualFold(req.Method, "HEAD"),
	}
}

// OnInvalid registers the callback invoked when a responder method is called
// out of state-machine order.
func (t *Transaction) OnInvalid(fn func(err error)) { t.onInvalid = fn }

// OnEnded registers the callback invoked, exactly once, when the transaction
// reaches StateEnded — the session uses this to resume reading the next
// pipelined request.
func (t *Transaction) OnEnded(fn func()) { t.onEnded = fn }

// Detach marks the transaction as detached once the owning session has ended.
// The responder methods do not consult the flag: calls made afterwards still
// queue their output on the SequenceAdder, which the stopped channel no
// longer drains.
func (t *Transaction) Detach() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

func (t *Transaction) invalid(op string) {
	t.mu.Unlock()
	if t.onInvalid != nil {
		t.onInvalid(xerrors.Codef(xerrors.CodeInvalidState, "httpsession: %s called out of order", op))
	}
}

// SendStatus writes the status line. 100 Continue is special-cased: it may be
// sent any number of times per transaction and does not advance the state
// machine.
func (t *Transaction) SendStatus(code int, reason string) {
	t.mu.Lock()
	if code == 100 {
		t.writeRaw(fmt.Sprintf("HTTP/%s 100 Continue\r\n\r\n", t.Request.Version))
		t.mu.Unlock()
		return
	}
	if t.state != StateWaitingCodeAndReason {
		t.invalid("SendStatus")
		return
	}
	t.writeRaw(fmt.Sprintf("HTTP/%s %d %s\r\n", t.Request.Version, code, reason))
	t.state = StateWaitingHeaders
	t.mu.Unlock()
}

// SendHeaders stages extra application headers (merged over the automatic
// ones) and advances to StateWaitingBody. The header block is written by the
// SendBody* call that follows, once the body headers are known.
func (t *Transaction) SendHeaders(extra *httpcore.Headers) {
	t.mu.Lock()
	if t.state != StateWaitingHeaders {
		t.invalid("SendHeaders")
		return
	}
	if extra != nil {
		for _, name := range extra.Names() {
			v, _ := extra.Get(name)
			t.headers.Set(name, v)
		}
		for _, c := range extra.SetCookies() {
			t.headers.AddSetCookie(c)
		}
	}
	t.state = StateWaitingBody
	t.mu.Unlock()
}

// finalizeAutomaticHeaders fills in Server/Date/Connection, assuming the caller
// already holds t.mu.
func (t *Transaction) finalizeAutomaticHeaders() {
	if !t.headers.Has("Server") {
		t.headers.Set("Server", "transferd")
	}
	if !t.headers.Has("Date") {
		t.headers.Set("Date", time.Now().UTC().Format(http11DateFormat))
	}
	if !t.headers.Has("Connection") {
		if t.wantsClose() {
			t.headers.Set("Connection", "close")
		} else {
			t.headers.Set("Connection", "keep-alive")
		}
	}
}

// wantsClose reports whether Connection: close applies, honoring the explicit
// keep-alive override on 1.0.
func (t *Transaction) wantsClose() bool {
	if !t.keepAlive {
		return true
	}
	if v, ok := t.headers.Get("Connection"); ok {
		return strings.EqualFold(v, "close")
	}
	return false
}

const http11DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

func (t *Transaction) flushHeaders() {
	var b strings.Builder
	for _, name := range t.headers.Names() {
		v, _ := t.headers.Get(name)
		b.WriteString(canonicalHeaderName(name))
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	for _, c := range t.headers.SetCookies() {
		b.WriteString("Set-Cookie: ")
		b.WriteString(c)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	t.writeRaw(b.String())
}

func canonicalHeaderName(lower string) string {
	parts := strings.Split(lower, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

func (t *Transaction) writeRaw(s string) {
	t.out.Push(NewByteAdder([]byte(s)))
}

// SetHeader stages a header for the next SendHeaders call.
func (t *Transaction) SetHeader(name, value string) {
	t.mu.Lock()
	t.headers.Set(name, value)
	t.mu.Unlock()
}

// SendBodyString sends a fixed string body, setting Content-Length and ending
// the transaction.
func (t *Transaction) SendBodyString(body, contentType string) {
	t.mu.Lock()
	if t.state != StateWaitingBody {
		t.invalid("SendBodyString")
		return
	}
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	t.headers.Set("Content-Type", contentType)
	t.headers.Set("Content-Length", strconv.Itoa(len(body)))
	t.finalizeAutomaticHeaders()
	t.flushHeaders()
	if !t.isHEAD {
		t.out.Push(NewByteAdder([]byte(body)))
	}
	t.state = StateEnded
	cb := t.onEnded
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SendBodyFile streams a TVFS file of known size.
func (t *Transaction) SendBodyFile(f tvfs.File, size int64, contentType, disposition string) {
	t.mu.Lock()
	if t.state != StateWaitingBody {
		t.invalid("SendBodyFile")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	t.headers.Set("Content-Type", contentType)
	t.headers.Set("Content-Length", strconv.FormatInt(size, 10))
	if disposition != "" {
		t.headers.Set("Content-Disposition", disposition)
	}
	t.finalizeAutomaticHeaders()
	t.flushHeaders()
	if t.isHEAD {
		_ = f.Close()
		t.state = StateEnded
		cb := t.onEnded
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	t.out.Push(&doneAdder{inner: NewReaderAdder(io.NopCloser(f), 0), done: t.endStreaming})
	t.state = StateSendingBody
	t.mu.Unlock()
}

// endStreaming moves a streaming body to ended once its adder runs dry; a
// no-op if the transaction was already ended or aborted in the meantime.
func (t *Transaction) endStreaming() {
	t.mu.Lock()
	if t.state != StateSendingBody {
		t.mu.Unlock()
		return
	}
	t.state = StateEnded
	cb := t.onEnded
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SendBodyListing streams a directory listing in a negotiated format. When the
// connection is 1.1 the listing is chunked; on 1.0 Connection: close is forced
// since no explicit length is known in advance.
func (t *Transaction) SendBodyListing(name string, it tvfs.EntryIterator, format ListingFormat) {
	t.mu.Lock()
	if t.state != StateWaitingBody {
		t.invalid("SendBodyListing")
		return
	}
	t.headers.Set("Content-Type", format.contentType())
	t.headers.Set("Vary", "Accept")

	writer := newListingWriter(name, it, format)
	var body buffer.Adder
	if t.isHTTP10 {
		t.headers.Set("Connection", "close")
		t.finalizeAutomaticHeaders()
		t.flushHeaders()
		body = NewFuncAdder(writer.next)
	} else {
		t.headers.Set("Transfer-Encoding", "chunked")
		t.finalizeAutomaticHeaders()
		t.flushHeaders()
		body = NewChunkAdder(NewFuncAdder(writer.next), DefaultChunkSize)
	}
	if t.isHEAD {
		_ = it.Close()
		t.state = StateEnded
		cb := t.onEnded
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	t.out.Push(&doneAdder{inner: body, done: t.endStreaming})
	t.state = StateSendingBody
	t.mu.Unlock()
}

// SendEnd ends a transaction whose body is still streaming (StateSendingBody).
// SendBodyString ends the transaction itself, and SendBodyFile/SendBodyListing
// end it once their stream runs dry; SendEnd in any other state is reported
// through OnInvalid.
func (t *Transaction) SendEnd() {
	t.mu.Lock()
	if t.state == StateSendingBody {
		t.state = StateEnded
		cb := t.onEnded
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	t.invalid("SendEnd")
}

// AbortSend force-ends the transaction after an internal error, without
// requiring the state machine to be in a particular state.
func (t *Transaction) AbortSend() {
	t.mu.Lock()
	t.state = StateEnded
	cb := t.onEnded
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// IsHTTPS reports whether the owning connection is TLS-wrapped.
func (t *Transaction) IsHTTPS() bool { return t.isHTTPS }

// State returns the transaction's current ResponseState.
func (t *Transaction) State() ResponseState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SendError emits a 400/500-class error response if the responder has not
// advanced past StateWaitingCodeAndReason; otherwise the session is expected to
// shut down silently.
func (t *Transaction) SendError(code int, reason, body string) bool {
	t.mu.Lock()
	if t.state != StateWaitingCodeAndReason {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	t.SendStatus(code, reason)
	t.SetHeader("Connection", "close")
	t.SendHeaders(nil)
	t.SendBodyString(body, "text/plain; charset=utf-8")
	return true
}
