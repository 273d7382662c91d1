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

package httpsession_test

import (
	"net"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
)

// eventLog records the interleaving of dispatch and reply steps so ordering
// between pipelined transactions can be asserted.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(name string) {
	e.mu.Lock()
	e.events = append(e.events, name)
	e.mu.Unlock()
}

func (e *eventLog) index(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, n := range e.events {
		if n == name {
			return i
		}
	}
	return -1
}

// collector accumulates everything the session writes back to the client.
type collector struct {
	mu   sync.Mutex
	data []byte
}

func (c *collector) run(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.data = append(c.data, buf[:n]...)
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.data)
}

var _ = Describe("Session", func() {
	It("serves pipelined keep-alive requests strictly in order", func() {
		server, client := net.Pipe()
		defer client.Close()

		log := &eventLog{}
		ended := make(chan error, 1)

		dispatch := func(tx *httpsession.Transaction, _ *httpcore.Consumer) {
			path := tx.Request.Path
			log.add("dispatch " + path)
			reply := func() {
				log.add("reply " + path)
				tx.SendStatus(200, "Ok")
				tx.SendHeaders(nil)
				tx.SendBodyString(strings.TrimPrefix(path, "/"), "")
			}
			if path == "/one" {
				// Delay the first response so a missing pipelining guard
				// would dispatch the second request early.
				go func() {
					time.Sleep(50 * time.Millisecond)
					reply()
				}()
				return
			}
			reply()
		}

		httpsession.New(server, 1, false, nil, dispatch, func(_ uint64, err error) {
			ended <- err
		})

		out := &collector{}
		go out.run(client)

		_, err := client.Write([]byte(
			"GET /one HTTP/1.1\r\nHost: t\r\n\r\n" +
				"GET /two HTTP/1.1\r\nHost: t\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int {
			return strings.Count(out.String(), "HTTP/1.1 200 Ok")
		}, "5s").Should(Equal(2))

		resp := out.String()
		Expect(strings.Index(resp, "\r\n\r\none")).To(BeNumerically("<", strings.Index(resp, "\r\n\r\ntwo")))

		// The second request must not have been dispatched while the first
		// response was still pending.
		Expect(log.index("dispatch /two")).To(BeNumerically(">", log.index("reply /one")))

		_ = client.Close()
		Eventually(ended, "5s").Should(Receive())
	})

	It("closes a 1.0 connection that does not ask for keep-alive", func() {
		server, client := net.Pipe()
		defer client.Close()

		dispatch := func(tx *httpsession.Transaction, _ *httpcore.Consumer) {
			tx.SendStatus(200, "Ok")
			tx.SendHeaders(nil)
			tx.SendBodyString("done", "")
		}

		ended := make(chan error, 1)
		httpsession.New(server, 2, false, nil, dispatch, func(_ uint64, err error) {
			ended <- err
		})

		out := &collector{}
		go out.run(client)

		_, err := client.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		// 1.0 without an explicit keep-alive defaults to close: the session
		// ends itself once the response is out.
		Eventually(ended, "5s").Should(Receive(BeNil()))
		Expect(out.String()).To(ContainSubstring("Connection: close"))
		Expect(out.String()).To(HaveSuffix("done"))
	})
})
