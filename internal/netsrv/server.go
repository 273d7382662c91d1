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

package netsrv

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/iynaix/filezilla-server-sub001/internal/xatomic"
	"github.com/iynaix/filezilla-server-sub001/internal/xlog"
)

// Session is the minimal surface the TCP server needs from a protocol session:
// an id, a way to ask it to shut down, and a way to be told it ended.
type Session interface {
	ID() uint64
	Shutdown(err error)
}

// SessionFactory builds a protocol session from an accepted connection. ended
// is the callback the new session must invoke exactly once, with its own id,
// when it is done.
type SessionFactory func(conn net.Conn, id uint64, ended func(id uint64, err error)) Session

// maxAcceptsPerTurn bounds how many connections the server dispatches per
// connected callback, so one busy listener cannot starve the others sharing the
// same loop.
const maxAcceptsPerTurn = 10

// Server is the TCP server: a set of listeners keyed by AddressInfo and a
// map of live sessions keyed by id.
type Server struct {
	factory SessionFactory
	log     xlog.FuncLog
	ids     xatomic.Counter

	mu        sync.Mutex
	listeners map[AddressInfo]*Listener
	sessions  map[uint64]Session
}

// NewServer constructs a Server dispatching accepted connections to factory.
func NewServer(factory SessionFactory, log xlog.FuncLog) *Server {
	return &Server{
		factory:   factory,
		log:       log,
		listeners: make(map[AddressInfo]*Listener),
		sessions:  make(map[uint64]Session),
	}
}

// UserDataFunc computes the opaque user data (e.g. TLS-or-not) for a
// listener address, re-evaluated on every SetListenAddressInfos call.
type UserDataFunc func(AddressInfo) any

// SetListenAddressInfos diffs the desired address set against the currently
// running listeners: listeners present in both are kept (their user data
// refreshed), listeners only in the new set are started, and listeners only in
// the old set are stopped.
func (s *Server) SetListenAddressInfos(want []AddressInfo, userData UserDataFunc, allow PeerAllowanceChecker) {
	wantSet := make(map[AddressInfo]struct{}, len(want))
	for _, a := range want {
		wantSet[a] = struct{}{}
	}

	s.mu.Lock()
	var toStop []*Listener
	for addr, l := range s.listeners {
		if _, keep := wantSet[addr]; !keep {
			toStop = append(toStop, l)
			delete(s.listeners, addr)
		} else {
			l.UserData = userData(addr)
		}
	}
	var toStart []*Listener
	for addr := range wantSet {
		if _, exists := s.listeners[addr]; exists {
			continue
		}
		l := NewListener(addr, userData(addr), allow, s.log, func() { s.onConnected(addr) })
		s.listeners[addr] = l
		toStart = append(toStart, l)
	}
	s.mu.Unlock()

	for _, l := range toStop {
		l.Stop()
	}
	for _, l := range toStart {
		l.Start()
	}
}

// onConnected drains up to maxAcceptsPerTurn sockets from the listener at addr,
// builds a session for each, and self-reposts if more remain.
func (s *Server) onConnected(addr AddressInfo) {
	s.mu.Lock()
	l, ok := s.listeners[addr]
	s.mu.Unlock()
	if !ok {
		return
	}

	for _, conn := range l.Pop(maxAcceptsPerTurn) {
		id := s.ids.Next()
		sess := s.factory(conn, id, s.onEnded)

		s.mu.Lock()
		s.sessions[id] = sess
		s.mu.Unlock()
	}

	if l.HasPending() {
		go s.onConnected(addr)
	}
}

// onEnded extracts and drops the session outside the lock, since destruction
// may block.
func (s *Server) onEnded(id uint64, err error) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err != nil {
		s.entry(xlog.WarnLevel, "session ended with error").FieldAdd("session_id", id).ErrorAdd(true, err).Log()
	} else {
		s.entry(xlog.DebugLevel, "session ended").FieldAdd("session_id", id).Log()
	}
}

func (s *Server) entry(lvl xlog.Level, msg string) *xlog.Entry {
	if s.log == nil {
		return nil
	}
	return s.log().Entry(lvl, msg)
}

// Listener returns the running listener for addr, if any.
func (s *Server) Listener(addr AddressInfo) (*Listener, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listeners[addr]
	return l, ok
}

// SessionGuard is a locked proxy onto a Session: it holds the server's
// mutex until Release is called, and must not be held across a long
// operation.
type SessionGuard struct {
	s    *Server
	sess Session
	once sync.Once
}

// GetSession looks up a session by id, returning a SessionGuard holding
// the server's mutex. Release must be called; calls after the first are
// no-ops.
func (s *Server) GetSession(id uint64) (*SessionGuard, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	return &SessionGuard{s: s, sess: sess}, true
}

// Session returns the guarded session. Valid only until Release.
func (g *SessionGuard) Session() Session { return g.sess }

// Release gives up the server mutex.
func (g *SessionGuard) Release() {
	g.once.Do(func() { g.s.mu.Unlock() })
}

// EndSessions shuts each matching session down; an empty ids slice means all
// sessions.
func (s *Server) EndSessions(ids []uint64, err error) {
	s.mu.Lock()
	var targets []Session
	if len(ids) == 0 {
		for _, sess := range s.sessions {
			targets = append(targets, sess)
		}
	} else {
		for _, id := range ids {
			if sess, ok := s.sessions[id]; ok {
				targets = append(targets, sess)
			}
		}
	}
	s.mu.Unlock()

	for _, sess := range targets {
		sess.Shutdown(err)
	}
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop stops every listener and ends every session.
func (s *Server) Stop() {
	s.mu.Lock()
	listeners := make([]*Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l.Stop()
	}
	s.EndSessions(nil, nil)
}

// NewSessionID mints a correlation id for logging; the numeric session id used
// for the session map stays the monotonic Counter above.
func NewSessionID() string { return uuid.NewString() }
