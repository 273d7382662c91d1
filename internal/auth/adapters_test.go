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

package auth

import (
	"encoding/base64"

	"github.com/spf13/afero"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/buffer"
	"github.com/iynaix/filezilla-server-sub001/internal/crypt"
	"github.com/iynaix/filezilla-server-sub001/internal/fileserver"
	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
)

// fixedUser is a minimal SessionUser double with no invalidation support,
// sufficient for adapter tests that never tear a user down mid-test.
type fixedUser struct{ username string }

func (u *fixedUser) Username() string        { return u.username }
func (u *fixedUser) Subscribe(func()) func() { return func() {} }

// fixedAuthenticator accepts one username/password pair.
type fixedAuthenticator struct {
	username, password string
	user               *fixedUser
}

func newFixedAuthenticator(username, password string) *fixedAuthenticator {
	return &fixedAuthenticator{username: username, password: password, user: &fixedUser{username: username}}
}

func (a *fixedAuthenticator) Authenticate(username, password string) (SessionUser, bool) {
	if username != a.username || password != a.password {
		return nil, false
	}
	return a.user, true
}

func (a *fixedAuthenticator) Lookup(username string) (SessionUser, bool) {
	if username != a.username {
		return nil, false
	}
	return a.user, true
}

var _ = Describe("splitFirstSegment", func() {
	It("splits an absolute multi-segment path", func() {
		segment, rest := splitFirstSegment("/abc123/a/b.txt")
		Expect(segment).To(Equal("abc123"))
		Expect(rest).To(Equal("/a/b.txt"))
	})

	It("treats a single-segment path as having no remainder beyond root", func() {
		segment, rest := splitFirstSegment("/abc123")
		Expect(segment).To(Equal("abc123"))
		Expect(rest).To(Equal("/"))
	})
})

// singleMount always hands back the same tvfs.FileSystem, bumping gen only
// when told to.
type singleMount struct {
	fs  tvfs.FileSystem
	gen uint64
}

func (m *singleMount) MountFor(SessionUser) (tvfs.FileSystem, uint64) { return m.fs, m.gen }

func newMemFS(files map[string]string) tvfs.FileSystem {
	afs := afero.NewMemMapFs()
	for name, contents := range files {
		_ = afero.WriteFile(afs, name, []byte(contents), 0o644)
	}
	return tvfs.NewAferoFileSystem(afs)
}

func newGetTransaction(path string) (*httpsession.Transaction, *httpsession.SequenceAdder) {
	out := httpsession.NewSequenceAdder()
	req := &httpcore.Request{Method: "GET", Path: path, Version: "1.1", Headers: httpcore.NewHeaders()}
	return httpsession.NewTransaction(req, out, false, false), out
}

func drainAdder(out *httpsession.SequenceAdder) string {
	buf := buffer.NewBuffer(4096)
	for {
		res, _ := out.AddToBuffer(buf)
		if res == buffer.ENoData || res == buffer.EAgain {
			break
		}
	}
	return string(buf.Bytes())
}

var _ = Describe("AuthorizedFileServer", func() {
	var (
		az  *Authorizator
		l   *loop.Loop
		srv *AuthorizedFileServer
	)

	BeforeEach(func() {
		accessKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		shareKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		tmKey, err := crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())

		tm, err := NewMemoryTokenManager(tmKey)
		Expect(err).NotTo(HaveOccurred())

		authn := newFixedAuthenticator("alice", "s3cret")
		az, err = New(accessKey, shareKey, tm, authn, nil)
		Expect(err).NotTo(HaveOccurred())

		l = loop.New(16)
		go l.Run()

		fs := newMemFS(map[string]string{"/hello.txt": "hi there"})
		srv = &AuthorizedFileServer{
			Authorizator: az,
			Mounts:       &singleMount{fs: fs, gen: 1},
			Opts:         fileserver.DefaultOptions(),
		}
	})

	AfterEach(func() {
		l.Stop()
	})

	It("rejects a request with no Authorization header", func() {
		tx, out := newGetTransaction("/hello.txt")
		srv.Handle(tx, nil)
		Expect(drainAdder(out)).To(ContainSubstring("HTTP/1.1 401 Unauthorized"))
	})

	It("rejects a request bearing an unknown access_token", func() {
		tx, out := newGetTransaction("/hello.txt")
		tx.Request.Headers.Set("Authorization", "Bearer not-a-real-token")
		srv.Handle(tx, nil)
		Expect(drainAdder(out)).To(ContainSubstring("HTTP/1.1 401 Unauthorized"))
	})

	It("serves a file once authorized", func() {
		_, access, _, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		encoded, err := EncodeAccessToken(az.AccessSealer(), access)
		Expect(err).NotTo(HaveOccurred())

		tx, out := newGetTransaction("/hello.txt")
		tx.Request.Headers.Set("Authorization", "Bearer "+encoded)
		srv.Handle(tx, nil)

		resp := drainAdder(out)
		Expect(resp).To(ContainSubstring("HTTP/1.1 200 Ok"))
		Expect(resp).To(ContainSubstring("hi there"))
	})
})

var _ = Describe("checkBasicAuth", func() {
	It("accepts the right password regardless of username", func() {
		hash, err := HashPassword("letmein")
		Expect(err).NotTo(HaveOccurred())

		tx, _ := newGetTransaction("/")
		creds := base64.StdEncoding.EncodeToString([]byte("anyone:letmein"))
		tx.Request.Headers.Set("Authorization", "Basic "+creds)

		s := &Sharer{}
		Expect(s.checkBasicAuth(tx, hash)).To(BeTrue())
	})

	It("rejects a wrong password", func() {
		hash, err := HashPassword("letmein")
		Expect(err).NotTo(HaveOccurred())

		tx, _ := newGetTransaction("/")
		creds := base64.StdEncoding.EncodeToString([]byte("anyone:wrong"))
		tx.Request.Headers.Set("Authorization", "Basic "+creds)

		s := &Sharer{}
		Expect(s.checkBasicAuth(tx, hash)).To(BeFalse())
	})

	It("rejects a missing Authorization header", func() {
		tx, _ := newGetTransaction("/")
		hash, _ := HashPassword("letmein")
		s := &Sharer{}
		Expect(s.checkBasicAuth(tx, hash)).To(BeFalse())
	})
})
