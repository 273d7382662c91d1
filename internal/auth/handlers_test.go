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

package auth_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/auth"
	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
	"github.com/iynaix/filezilla-server-sub001/internal/crypt"
	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
	"github.com/iynaix/filezilla-server-sub001/internal/xerrors"
)

// drive feeds a raw "METHOD path HTTP/1.1\r\nheaders\r\n\r\nbody" request
// through consumer, returning whatever the handler wrote to out.
func drive(consumer *httpcore.Consumer, out *httpsession.SequenceAdder, raw string) string {
	buf := buffer.NewBuffer(4096)
	buf.Write([]byte(raw))

	// The consumer returns as soon as the header block ends, before it has
	// had a chance to drain any body bytes already sitting in buf. A
	// non-OK result means the handler declined the body (or errored), so
	// whatever is left stays unread.
	_, _ = consumer.ConsumeBuffer(buf)
	for !buf.Empty() {
		res, _ := consumer.ConsumeBuffer(buf)
		if res != buffer.OK {
			break
		}
	}

	drain := buffer.NewBuffer(4096)
	for {
		res, _ := out.AddToBuffer(drain)
		if res == buffer.ENoData || res == buffer.EAgain {
			break
		}
	}
	return string(drain.Bytes())
}

// setCookieLines extracts the value of every Set-Cookie header in a raw
// response.
func setCookieLines(resp string) []string {
	var out []string
	for _, line := range strings.Split(resp, "\r\n") {
		if v, ok := strings.CutPrefix(line, "Set-Cookie: "); ok {
			out = append(out, v)
		}
	}
	return out
}

func postForm(path, form string) string {
	return fmt.Sprintf(
		"POST %s HTTP/1.1\r\nHost: example\r\nContent-Type: application/x-www-form-urlencoded\r\nContent-Length: %d\r\n\r\n%s",
		path, len(form), form)
}

var _ = Describe("token and revoke HTTP handlers", func() {
	var (
		az  *auth.Authorizator
		l   *loop.Loop
		out *httpsession.SequenceAdder
	)

	BeforeEach(func() {
		accessKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		shareKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		tmKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())

		tm, err := auth.NewMemoryTokenManager(tmKey)
		Expect(err).NotTo(HaveOccurred())

		authn := newFakeAuthenticator("s3cret", "alice")
		az, err = auth.New(accessKey, shareKey, tm, authn, nil)
		Expect(err).NotTo(HaveOccurred())

		l = runningLoop()
		out = httpsession.NewSequenceAdder()
	})

	AfterEach(func() {
		l.Stop()
	})

	// Token endpoints are TLS-only, so the transactions here are all marked
	// HTTPS; the one plaintext case below asserts the 403.
	newTLSConsumer := func(handler func(tx *httpsession.Transaction, consumer *httpcore.Consumer)) *httpcore.Consumer {
		var consumer *httpcore.Consumer
		consumer = httpcore.NewConsumer(func(req *httpcore.Request) {
			tx := httpsession.NewTransaction(req, out, true, true)
			handler(tx, consumer)
		}, func(xerrors.Error) {})
		return consumer
	}

	It("issues an access_token on a password grant", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		resp := drive(consumer, out, postForm("/token", "grant_type=password&username=alice&password=s3cret"))

		Expect(resp).To(ContainSubstring("HTTP/1.1 200 Ok"))
		Expect(resp).To(ContainSubstring(`"token_type":"bearer"`))
		Expect(resp).To(ContainSubstring(`"access_token"`))
		Expect(resp).To(ContainSubstring(`"refresh_token"`))
	})

	It("rejects a password grant with the wrong password", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		resp := drive(consumer, out, postForm("/token", "grant_type=password&username=alice&password=wrong"))

		Expect(resp).To(ContainSubstring("HTTP/1.1 400 Bad Request"))
		Expect(resp).To(ContainSubstring(`"error":"invalid_grant"`))
	})

	It("rejects an unsupported grant_type", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		resp := drive(consumer, out, postForm("/token", "grant_type=client_credentials"))

		Expect(resp).To(ContainSubstring("HTTP/1.1 400 Bad Request"))
		Expect(resp).To(ContainSubstring(`"error":"unsupported_grant_type"`))
	})

	It("sets cookies when cookie_path is supplied", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		resp := drive(consumer, out, postForm("/token", "grant_type=password&username=alice&password=s3cret&cookie_path=/app/"))

		Expect(resp).To(ContainSubstring("Set-Cookie: access_token="))
		Expect(resp).To(ContainSubstring("Set-Cookie: refresh_token="))
		Expect(strings.Count(resp, "Set-Cookie: access_token=")).To(Equal(2))

		// Every cookie carries the full attribute set in order:
		// Path, Expires, Max-Age, Secure, HttpOnly.
		for _, line := range setCookieLines(resp) {
			Expect(line).To(MatchRegexp(`; Path=[^;]+; Expires=[A-Z][a-z]{2}, \d{2} [A-Z][a-z]{2} \d{4} \d{2}:\d{2}:\d{2} GMT; Max-Age=\d+; Secure; HttpOnly$`))
		}
		Expect(setCookieLines(resp)).To(HaveLen(4))
	})

	It("revokes a refresh_token and reports success", func() {
		_, _, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		Expect(az.Count()).To(Equal(1))

		consumer := newTLSConsumer(az.RevokeHandler())
		resp := drive(consumer, out, postForm("/revoke", "token="+refresh))

		Expect(resp).To(ContainSubstring("HTTP/1.1 200 Ok"))
		Eventually(az.Count).Should(Equal(0))
	})

	It("clears cookies when revoking a cookie-delivered token", func() {
		consumer := newTLSConsumer(az.RevokeHandler())
		resp := drive(consumer, out, postForm("/revoke", "token=cookie:refresh_token"))

		Expect(resp).To(ContainSubstring("Set-Cookie: access_token=; Path=/;"))
		Expect(resp).To(ContainSubstring("Set-Cookie: refresh_token=; Path=/;"))

		// Clearing cookies carry a past Expires date alongside Max-Age=0.
		for _, line := range setCookieLines(resp) {
			Expect(line).To(ContainSubstring("Expires=Thu, 01 Jan 1970 00:00:00 GMT; Max-Age=0"))
		}
	})

	It("refuses the token endpoint over plaintext", func() {
		var consumer *httpcore.Consumer
		consumer = httpcore.NewConsumer(func(req *httpcore.Request) {
			tx := httpsession.NewTransaction(req, out, false, true)
			az.TokenHandler(l)(tx, consumer)
		}, func(xerrors.Error) {})

		resp := drive(consumer, out, postForm("/token", "grant_type=password&username=alice&password=s3cret"))
		Expect(resp).To(ContainSubstring("HTTP/1.1 403 Forbidden"))
	})

	It("refuses a non-POST method", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		resp := drive(consumer, out, "GET /token HTTP/1.1\r\nHost: example\r\n\r\n")
		Expect(resp).To(ContainSubstring("HTTP/1.1 405 Method Not Allowed"))
		Expect(resp).To(ContainSubstring("Allow: POST"))
	})

	It("refuses an unsupported media type", func() {
		consumer := newTLSConsumer(az.TokenHandler(l))
		body := `{"grant_type":"password"}`
		raw := fmt.Sprintf(
			"POST /token HTTP/1.1\r\nHost: example\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
			len(body), body)
		resp := drive(consumer, out, raw)
		Expect(resp).To(ContainSubstring("HTTP/1.1 415 Unsupported Media Type"))
	})
})
