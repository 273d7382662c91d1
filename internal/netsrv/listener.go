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

// Package netsrv implements the listener and TCP server substrate:
// bind/accept/retry, a peer-allowance filter, a session factory and a thread-
// safe session table.
package netsrv

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/xlog"
)

// AddressInfo identifies a listener by host/port, the key used to diff
// desired vs. current listeners in SetListenAddressInfos.
type AddressInfo struct {
	Host string
	Port int
	// FileDescriptor, when >= 0, means this address uses an already
	// listening descriptor handed off via socket activation.
	FileDescriptor int
}

func (a AddressInfo) String() string {
	if a.FileDescriptor >= 0 {
		return fmt.Sprintf("file_descriptor:%d", a.FileDescriptor)
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ParseAddressInfo accepts either "host:port" or "file_descriptor:<N>".
func ParseAddressInfo(s string) (AddressInfo, error) {
	if fd, ok := strings.CutPrefix(s, "file_descriptor:"); ok {
		n, err := strconv.Atoi(fd)
		if err != nil {
			return AddressInfo{}, fmt.Errorf("netsrv: bad file_descriptor address %q: %w", s, err)
		}
		return AddressInfo{FileDescriptor: n}, nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return AddressInfo{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return AddressInfo{}, fmt.Errorf("netsrv: bad port in %q: %w", s, err)
	}
	return AddressInfo{Host: host, Port: port, FileDescriptor: -1}, nil
}

// ListenerState is the closed state alphabet a listener moves through.
type ListenerState uint8

const (
	StateStopped ListenerState = iota
	StateStarted
	StateRetrying
)

// PeerAllowanceChecker gates accepted connections by remote address.
type PeerAllowanceChecker interface {
	Allowed(remote net.Addr) bool
}

// AllowAll is a PeerAllowanceChecker that accepts every peer.
type AllowAll struct{}

func (AllowAll) Allowed(net.Addr) bool { return true }

const retryInterval = time.Second

// Listener owns a bound socket and a deque of accepted-but-undispatched
// connections.
type Listener struct {
	Addr     AddressInfo
	UserData any
	Allow    PeerAllowanceChecker
	log      xlog.FuncLog

	mu      sync.Mutex
	state   ListenerState
	ln      net.Listener
	pending []net.Conn
	onConn  func() // fires on the empty -> non-empty transition
	retry   *time.Timer
	closed  chan struct{}
}

// NewListener constructs a stopped Listener for addr. onConnected is invoked
// exactly when the pending deque transitions from empty to non-empty.
func NewListener(addr AddressInfo, userData any, allow PeerAllowanceChecker, log xlog.FuncLog, onConnected func()) *Listener {
	if allow == nil {
		allow = AllowAll{}
	}
	return &Listener{
		Addr:     addr,
		UserData: userData,
		Allow:    allow,
		log:      log,
		onConn:   onConnected,
		closed:   make(chan struct{}),
	}
}

func (l *Listener) entry(lvl xlog.Level, msg string) *xlog.Entry {
	if l.log == nil {
		return nil
	}
	return l.log().Entry(lvl, msg)
}

// Start binds and listens. On bind failure it schedules a retry every second,
// transitioning to StateRetrying.
func (l *Listener) Start() {
	l.mu.Lock()
	if l.state == StateStarted {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	l.tryStart()
}

func (l *Listener) tryStart() {
	ln, err := l.bind()
	if err != nil {
		l.entry(xlog.WarnLevel, "listener bind failed, retrying").
			FieldAdd("addr", l.Addr.String()).ErrorAdd(true, err).Log()
		l.mu.Lock()
		l.state = StateRetrying
		l.retry = time.AfterFunc(retryInterval, l.tryStart)
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.ln = ln
	l.state = StateStarted
	l.mu.Unlock()

	go l.acceptLoop(ln)
}

func (l *Listener) bind() (net.Listener, error) {
	if l.Addr.FileDescriptor >= 0 {
		// Socket activation: the descriptor is already listening, handed
		// off by the process manager.
		f := os.NewFile(uintptr(l.Addr.FileDescriptor), l.Addr.String())
		if f == nil {
			return nil, fmt.Errorf("netsrv: invalid file descriptor %d", l.Addr.FileDescriptor)
		}
		ln, err := net.FileListener(f)
		_ = f.Close()
		return ln, err
	}
	return net.Listen("tcp", net.JoinHostPort(l.Addr.Host, strconv.Itoa(l.Addr.Port)))
}

func (l *Listener) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
			}
			l.entry(xlog.WarnLevel, "accept failed").ErrorAdd(true, err).Log()
			return
		}
		if !l.Allow.Allowed(conn.RemoteAddr()) {
			_ = conn.Close()
			continue
		}
		l.push(conn)
	}
}

func (l *Listener) push(conn net.Conn) {
	l.mu.Lock()
	wasEmpty := len(l.pending) == 0
	l.pending = append(l.pending, conn)
	l.mu.Unlock()

	if wasEmpty && l.onConn != nil {
		l.onConn()
	}
}

// Pop removes and returns up to n queued connections.
func (l *Listener) Pop(n int) []net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.pending) {
		n = len(l.pending)
	}
	out := l.pending[:n]
	l.pending = l.pending[n:]
	return out
}

// HasPending reports whether any accepted connections are still queued.
func (l *Listener) HasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

// BoundAddr returns the actual bound address once Start has succeeded, or nil.
// Useful when the configured port is 0.
func (l *Listener) BoundAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// State returns the current ListenerState.
func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stop closes the socket, drops pending connections and cancels the retry
// timer.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state == StateStopped {
		l.mu.Unlock()
		return
	}
	l.state = StateStopped
	ln := l.ln
	pending := l.pending
	l.pending = nil
	retry := l.retry
	l.mu.Unlock()

	close(l.closed)
	if retry != nil {
		retry.Stop()
	}
	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range pending {
		_ = c.Close()
	}
}
