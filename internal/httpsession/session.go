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
	"net"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/channel"
	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
	"github.com/iynaix/filezilla-server-sub001/internal/xerrors"
	"github.com/iynaix/filezilla-server-sub001/internal/xlog"
)

// DefaultKeepaliveTimeout bounds how long a session waits for the next request
// between transactions.
const DefaultKeepaliveTimeout = 30 * time.Second

// DefaultActivityTimeout bounds how long the session waits for input
// progress while a request is being read.
const DefaultActivityTimeout = 60 * time.Second

// Dispatch is called once per request, after headers are fully parsed, to route
// the transaction to protocol-level handler code (the router). It may call
// ReceiveBody asynchronously on the consumer it is handed.
type Dispatch func(tx *Transaction, consumer *httpcore.Consumer)

// Session owns one accepted connection end to end: TLS-wrappable socket,
// channel, message consumer, current transaction, and the keepalive/ activity
// timers.
type Session struct {
	sessionID uint64
	loopH     *loop.Handler
	l         *loop.Loop
	conn      net.Conn
	isHTTPS   bool
	log       xlog.FuncLog

	ch       *channel.Channel
	out      *SequenceAdder
	consumer *httpcore.Consumer
	dispatch Dispatch

	cur *Transaction

	keepaliveTimer loop.TimerID
	activityTimer  loop.TimerID

	onEnded func(id uint64, err error)
}

// New constructs a Session around conn and starts pumping bytes. The session
// runs its own Loop on a dedicated goroutine, one per accepted connection.
func New(conn net.Conn, id uint64, isHTTPS bool, log xlog.FuncLog, dispatch Dispatch, ended func(id uint64, err error)) *Session {
	l := loop.New(64)
	h := loop.NewHandler(l)

	s := &Session{
		sessionID: id,
		loopH:     h,
		l:         l,
		conn:      conn,
		isHTTPS:   isHTTPS,
		log:       log,
		dispatch:  dispatch,
		onEnded:   ended,
	}

	s.ch = channel.New(conn, h, s)
	s.ch.OnDone(s.onChannelDone)

	s.newRequest()
	s.ch.SetConsumer(s.consumer)
	s.out = NewSequenceAdder()
	s.ch.SetAdder(s.out)
	s.ch.Start()

	s.armActivityTimer()

	go l.Run()
	return s
}

// ID implements netsrv.Session.
func (s *Session) ID() uint64 { return s.sessionID }

// OnRead implements channel.ProgressNotifier, refreshing the activity
// timer on every inbound transfer.
func (s *Session) OnRead(at time.Time, n int) {
	s.loopH.Post(s.armActivityTimer)
}

// OnWritten implements channel.ProgressNotifier.
func (s *Session) OnWritten(at time.Time, n int) {}

func (s *Session) armActivityTimer() {
	s.activityTimer = s.l.StopAddTimer(s.activityTimer, DefaultActivityTimeout, true, s.onActivityTimeout)
}

func (s *Session) armKeepaliveTimer() {
	s.keepaliveTimer = s.l.StopAddTimer(s.keepaliveTimer, DefaultKeepaliveTimeout, true, s.onKeepaliveTimeout)
}

// onActivityTimeout sends 408 Request Timeout if the responder has not yet
// started writing a status line, then shuts down.
func (s *Session) onActivityTimeout() {
	if s.cur != nil && s.cur.State() == StateWaitingCodeAndReason {
		s.cur.SendError(408, "Request Timeout", "request timeout")
	}
	s.Shutdown(xerrors.New(xerrors.CodeRequestTimeout, "activity timeout"))
}

func (s *Session) onKeepaliveTimeout() {
	s.Shutdown(nil)
}

func (s *Session) newRequest() {
	s.consumer = httpcore.NewConsumer(s.onHeadersComplete, s.onParseError)
}

// onHeadersComplete is httpcore.HeadersCompleteFunc: it builds a Transaction
// and hands it to Dispatch.
func (s *Session) onHeadersComplete(req *httpcore.Request) {
	keepAlive, _ := req.Headers.ConnectionKeepAlive(req.Version)
	tx := NewTransaction(req, s.out, s.isHTTPS, keepAlive)
	tx.OnInvalid(func(err error) { s.Shutdown(err) })
	// Posted, not called inline: OnEnded can fire from inside the channel's
	// own pump (a streaming body's final ENoData), where resuming the
	// consumer directly would re-enter the buffer locks.
	tx.OnEnded(func() { s.loopH.Post(s.onTransactionEnded) })
	s.cur = tx

	if expect, ok := req.Headers.Get("Expect"); ok && expect == "100-continue" {
		tx.SendStatus(100, "Continue")
	}

	s.l.StopTimer(s.keepaliveTimer)
	if s.dispatch != nil {
		s.dispatch(tx, s.consumer)
	}
}

func (s *Session) onParseError(err xerrors.Error) {
	if s.cur == nil {
		req := &httpcore.Request{Version: "1.1", Headers: httpcore.NewHeaders()}
		s.cur = NewTransaction(req, s.out, s.isHTTPS, false)
	}
	code := int(err.Code())
	if code < 400 || code > 599 {
		code = 400
	}
	s.cur.SendError(code, reasonFor(code), err.Error())
	s.onTransactionEnded()
	s.Shutdown(err)
}

func reasonFor(code int) string {
	switch code {
	case 400:
		return "Bad Request"
	case 500:
		return "Internal Server Error"
	default:
		return "Error"
	}
}

// onTransactionEnded resumes reading the next pipelined request once both the
// response has ended and the request body (if any) has been fully consumed.
func (s *Session) onTransactionEnded() {
	if s.consumer.StateValue() != httpcore.StateEnd && s.consumer.StateValue() != httpcore.StateError {
		return
	}
	if s.cur != nil && !s.cur.wantsClose() {
		s.newRequest()
		s.ch.SetConsumer(s.consumer)
		s.armKeepaliveTimer()
		s.ch.Resume()
		return
	}
	s.Shutdown(nil)
}

func (s *Session) onChannelDone(err error) {
	if s.cur != nil {
		s.cur.Detach()
	}
	s.l.StopTimer(s.activityTimer)
	s.l.StopTimer(s.keepaliveTimer)
	s.loopH.RemoveHandler()
	if s.onEnded != nil {
		s.onEnded(s.sessionID, err)
	}
	s.l.Stop()
}

// Shutdown ends the session, per netsrv.Session.
func (s *Session) Shutdown(err error) {
	s.loopH.Post(func() { s.ch.Shutdown(err) })
}
