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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/auth"
	"github.com/iynaix/filezilla-server-sub001/internal/crypt"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
)

// fakeUser is a minimal auth.SessionUser double whose invalidation is
// triggered manually by the test via Invalidate.
type fakeUser struct {
	mu       sync.Mutex
	username string
	cb       func()
}

func (u *fakeUser) Username() string { return u.username }

func (u *fakeUser) Subscribe(invalidated func()) func() {
	u.mu.Lock()
	u.cb = invalidated
	u.mu.Unlock()
	return func() {
		u.mu.Lock()
		u.cb = nil
		u.mu.Unlock()
	}
}

func (u *fakeUser) Invalidate() {
	u.mu.Lock()
	cb := u.cb
	u.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// fakeAuthenticator is a credential store keyed by username, with one fixed
// password shared by every user for simplicity.
type fakeAuthenticator struct {
	mu       sync.Mutex
	password string
	users    map[string]*fakeUser
}

func newFakeAuthenticator(password string, usernames ...string) *fakeAuthenticator {
	a := &fakeAuthenticator{password: password, users: make(map[string]*fakeUser)}
	for _, name := range usernames {
		a.users[name] = &fakeUser{username: name}
	}
	return a
}

func (a *fakeAuthenticator) Authenticate(username, password string) (auth.SessionUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[username]
	if !ok || password != a.password {
		return nil, false
	}
	return u, true
}

func (a *fakeAuthenticator) Lookup(username string) (auth.SessionUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[username]
	if !ok {
		return nil, false
	}
	return u, true
}

func (a *fakeAuthenticator) user(username string) *fakeUser {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users[username]
}

func runningLoop() *loop.Loop {
	l := loop.New(16)
	go l.Run()
	return l
}

var _ = Describe("Authorizator", func() {
	var (
		accessKey, shareKey, tmKey [crypt.KeySize]byte
		tm                         auth.TokenManager
		authn                      *fakeAuthenticator
		az                         *auth.Authorizator
		l                          *loop.Loop
	)

	BeforeEach(func() {
		var err error
		accessKey, err = crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		shareKey, err = crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())
		tmKey, err = crypt.GenKey()
		Expect(err).NotTo(HaveOccurred())

		tm, err = auth.NewMemoryTokenManager(tmKey)
		Expect(err).NotTo(HaveOccurred())

		authn = newFakeAuthenticator("s3cret", "alice")
		az, err = auth.New(accessKey, shareKey, tm, authn, nil)
		Expect(err).NotTo(HaveOccurred())

		l = runningLoop()
	})

	AfterEach(func() {
		l.Stop()
	})

	It("issues an Authorization on correct credentials", func() {
		a, access, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		Expect(a.User.Username()).To(Equal("alice"))
		Expect(access.ID).To(Equal(a.AccessID))
		Expect(refresh).NotTo(BeEmpty())
		Expect(az.Count()).To(Equal(1))
	})

	It("refuses IssuePassword on wrong credentials", func() {
		_, _, _, ok := az.IssuePassword("alice", "wrong", "", l)
		Expect(ok).To(BeFalse())
		Expect(az.Count()).To(Equal(0))
	})

	It("resolves a bearer access_token via GetAuthorizationData", func() {
		a, access, _, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())

		encoded, err := auth.EncodeAccessToken(az.AccessSealer(), access)
		Expect(err).NotTo(HaveOccurred())

		guard, ok := az.GetAuthorizationData(encoded)
		Expect(ok).To(BeTrue())
		defer guard.Release()
		Expect(guard.Authorization().AccessID).To(Equal(a.AccessID))
	})

	It("rejects a bearer token for an authorization that has since been revoked", func() {
		_, access, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		az.Revoke(refresh)

		encoded, err := auth.EncodeAccessToken(az.AccessSealer(), access)
		Expect(err).NotTo(HaveOccurred())

		_, ok = az.GetAuthorizationData(encoded)
		Expect(ok).To(BeFalse())
	})

	It("mints a fresh access_token on RefreshAccess and retires the old one", func() {
		_, firstAccess, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())

		_, secondAccess, secondRefresh, ok := az.RefreshAccess(refresh, l)
		Expect(ok).To(BeTrue())
		Expect(secondAccess.ID).NotTo(Equal(firstAccess.ID))
		Expect(secondRefresh).NotTo(Equal(refresh))
		Expect(az.Count()).To(Equal(1))

		encoded, err := auth.EncodeAccessToken(az.AccessSealer(), firstAccess)
		Expect(err).NotTo(HaveOccurred())
		_, ok = az.GetAuthorizationData(encoded)
		Expect(ok).To(BeFalse())
	})

	It("refuses RefreshAccess with an already-revoked refresh_token", func() {
		_, _, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		az.Revoke(refresh)

		_, _, _, ok = az.RefreshAccess(refresh, l)
		Expect(ok).To(BeFalse())
	})

	It("drops an Authorization from the map once its access TTL elapses", func() {
		az.SetTTLs(20*time.Millisecond, time.Hour)
		_, access, _, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())

		Eventually(az.Count).Should(Equal(0))

		encoded, err := auth.EncodeAccessToken(az.AccessSealer(), access)
		Expect(err).NotTo(HaveOccurred())
		_, ok = az.GetAuthorizationData(encoded)
		Expect(ok).To(BeFalse())
	})

	It("expires an Authorization when its user is invalidated", func() {
		_, _, _, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())
		Expect(az.Count()).To(Equal(1))

		authn.user("alice").Invalidate()

		Eventually(az.Count).Should(Equal(0))
	})

	It("reuses a cached Authorization via Authorize when the refresh_token still matches", func() {
		a, _, refresh, ok := az.IssuePassword("alice", "s3cret", "", l)
		Expect(ok).To(BeTrue())

		rt, err := tm.Resolve(refresh)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan *auth.AuthorizationGuard, 1)
		az.Authorize(rt, l, func(g *auth.AuthorizationGuard) { done <- g })

		var guard *auth.AuthorizationGuard
		Eventually(done).Should(Receive(&guard))
		Expect(guard).NotTo(BeNil())
		Expect(guard.Authorization().AccessID).To(Equal(a.AccessID))
		guard.Release()
	})

	It("mints a fresh Authorization via Authorize when none is cached for the refresh_token", func() {
		rt := auth.RefreshToken{
			Access:   auth.AccessToken{ID: 999, RefreshID: 1000},
			Username: "alice",
			Expiry:   time.Now().Add(time.Hour),
		}

		done := make(chan *auth.AuthorizationGuard, 1)
		az.Authorize(rt, l, func(g *auth.AuthorizationGuard) { done <- g })

		var guard *auth.AuthorizationGuard
		Eventually(done).Should(Receive(&guard))
		Expect(guard).NotTo(BeNil())
		guard.Release()
	})

	It("invokes the Authorize continuation with nil when the username is unknown", func() {
		rt := auth.RefreshToken{
			Access:   auth.AccessToken{ID: 1, RefreshID: 2},
			Username: "nobody",
			Expiry:   time.Now().Add(time.Hour),
		}

		done := make(chan *auth.AuthorizationGuard, 1)
		az.Authorize(rt, l, func(g *auth.AuthorizationGuard) { done <- g })

		var guard *auth.AuthorizationGuard
		Eventually(done).Should(Receive(&guard))
		Expect(guard).To(BeNil())
	})
})
