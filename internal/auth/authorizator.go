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
	"sync"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/crypt"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
	"github.com/iynaix/filezilla-server-sub001/internal/xatomic"
	"github.com/iynaix/filezilla-server-sub001/internal/xlog"
)

// DefaultAccessTTL is the default access_token lifetime.
const DefaultAccessTTL = 5 * time.Minute

// DefaultRefreshTTL is the default refresh_token lifetime.
const DefaultRefreshTTL = 15 * 24 * time.Hour

// SessionUser is the external user record an Authorization attaches to.
// Subscribe registers a callback invoked once, when the underlying user record
// is invalidated; it returns an unsubscribe func.
type SessionUser interface {
	Username() string
	Subscribe(invalidated func()) (unsubscribe func())
}

// Authenticator is the external credential check. Lookup supports the
// refresh_token grant, which re-validates a username without a password.
type Authenticator interface {
	Authenticate(username, password string) (SessionUser, bool)
	Lookup(username string) (SessionUser, bool)
}

// TokenManager owns refresh_token storage behind its own mutex. The in-memory
// implementation below is the module's default; a real deployment may back it
// with durable storage instead.
type TokenManager interface {
	// Issue persists rt and returns the token-manager-encrypted,
	// transport-encoded refresh_token string.
	Issue(rt RefreshToken) (string, error)
	// Resolve decrypts and validates a refresh_token string previously
	// returned by Issue.
	Resolve(encoded string) (RefreshToken, error)
	// Revoke deletes any stored entry for accessID.
	Revoke(accessID uint64)
}

// memoryTokenManager is the default TokenManager: refresh tokens are
// self-contained ciphertext, so "storage" only needs to track which
// access ids have been revoked.
type memoryTokenManager struct {
	sealer *crypt.Sealer

	mu      sync.Mutex
	revoked map[uint64]struct{}
}

// NewMemoryTokenManager builds the module's default TokenManager, sealing
// refresh tokens with key, a symmetric key distinct from the
// authorizator's own access-token key.
func NewMemoryTokenManager(key [crypt.KeySize]byte) (TokenManager, error) {
	sealer, err := crypt.NewSealer(key)
	if err != nil {
		return nil, err
	}
	return &memoryTokenManager{sealer: sealer, revoked: make(map[uint64]struct{})}, nil
}

func (m *memoryTokenManager) Issue(rt RefreshToken) (string, error) {
	return EncodeRefreshToken(m.sealer, rt)
}

func (m *memoryTokenManager) Resolve(encoded string) (RefreshToken, error) {
	rt, err := DecodeRefreshToken(m.sealer, encoded)
	if err != nil {
		return RefreshToken{}, err
	}
	m.mu.Lock()
	_, revoked := m.revoked[rt.Access.ID]
	m.mu.Unlock()
	if revoked {
		return RefreshToken{}, ErrMalformedToken
	}
	return rt, nil
}

func (m *memoryTokenManager) Revoke(accessID uint64) {
	m.mu.Lock()
	m.revoked[accessID] = struct{}{}
	m.mu.Unlock()
}

// Authorization is the in-memory record of one authorized session: an
// access id bound to a refresh
// token, a session user and an expiry timer, plus a per-handler custom-data map
// lazily filled through CustomData.
type Authorization struct {
	mu sync.Mutex

	AccessID     uint64
	RefreshToken RefreshToken
	User         SessionUser

	expiryLoop  *loop.Loop
	expiryTimer loop.TimerID
	unsubscribe func()

	custom map[string]any
}

// CustomData returns key's per-handler payload, building it with factory on
// first access.
func (a *Authorization) CustomData(key string, factory func() any) any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.custom[key]; ok {
		return v
	}
	v := factory()
	a.custom[key] = v
	return v
}

// worker is the per-event-loop helper, lazily created in a map keyed by
// loop pointer so that authentication round-trips happen on the correct
// thread. It gives Authorize a place to post its continuation back onto
// the caller's loop.
type worker struct {
	l *loop.Loop
}

// Authorizator is the central authorization contract.
type Authorizator struct {
	accessSealer  *crypt.Sealer
	shareSealer   *crypt.Sealer
	tokenManager  TokenManager
	authenticator Authenticator
	log           xlog.FuncLog

	accessTTL  time.Duration
	refreshTTL time.Duration

	ids   xatomic.Counter
	clock func() time.Time

	mu             sync.Mutex
	authorizations map[uint64]*Authorization
	workers        map[*loop.Loop]*worker
}

// New constructs an Authorizator. accessKey seals access_token values; shareKey
// seals share_token values; tm stores/validates refresh tokens.
func New(accessKey, shareKey [crypt.KeySize]byte, tm TokenManager, authn Authenticator, log xlog.FuncLog) (*Authorizator, error) {
	accessSealer, err := crypt.NewSealer(accessKey)
	if err != nil {
		return nil, err
	}
	shareSealer, err := crypt.NewSealer(shareKey)
	if err != nil {
		return nil, err
	}
	return &Authorizator{
		accessSealer:   accessSealer,
		shareSealer:    shareSealer,
		tokenManager:   tm,
		authenticator:  authn,
		log:            log,
		accessTTL:      DefaultAccessTTL,
		refreshTTL:     DefaultRefreshTTL,
		clock:          time.Now,
		authorizations: make(map[uint64]*Authorization),
		workers:        make(map[*loop.Loop]*worker),
	}, nil
}

// SetTTLs overrides the access/refresh lifetimes (zero leaves a value
// unchanged); used by internal/config to apply configured durations.
func (a *Authorizator) SetTTLs(access, refresh time.Duration) {
	if access > 0 {
		a.accessTTL = access
	}
	if refresh > 0 {
		a.refreshTTL = refresh
	}
}

// workerFor returns (creating if absent) the worker bound to l.
func (a *Authorizator) workerFor(l *loop.Loop) *worker {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.workers[l]
	if !ok {
		w = &worker{l: l}
		a.workers[l] = w
	}
	return w
}

// issue mints a fresh Authorization for user, scoped to path (empty for a
// full-access token), arming its expiry timer on l. Caller must hold no
// lock; issue takes a.mu internally.
func (a *Authorizator) issue(user SessionUser, path string, l *loop.Loop) (*Authorization, AccessToken, RefreshToken, error) {
	accessID := a.ids.Next()
	access := AccessToken{ID: accessID, RefreshID: a.ids.Next()}
	refresh := RefreshToken{
		Access:   access,
		Username: user.Username(),
		Path:     path,
		// Truncated to the wire format's second precision so a decoded
		// token still Equals the one it was minted from.
		Expiry: a.clock().Add(a.refreshTTL).Truncate(time.Second),
	}

	auth := &Authorization{
		AccessID:     accessID,
		RefreshToken: refresh,
		User:         user,
		expiryLoop:   l,
		custom:       make(map[string]any),
	}
	auth.unsubscribe = user.Subscribe(func() { a.expire(accessID) })
	auth.expiryTimer = l.AddTimer(a.accessTTL, true, func() { a.expire(accessID) })

	a.mu.Lock()
	a.authorizations[accessID] = auth
	a.mu.Unlock()

	a.entry(xlog.DebugLevel, "authorization issued").FieldAdd("access_id", accessID).FieldAdd("username", refresh.Username).Log()
	return auth, access, refresh, nil
}

func (a *Authorizator) entry(lvl xlog.Level, msg string) *xlog.Entry {
	if a.log == nil {
		return nil
	}
	return a.log().Entry(lvl, msg)
}

// expire removes accessID's Authorization, firing on either the timer or a
// user-invalidation subscription callback.
func (a *Authorizator) expire(accessID uint64) {
	a.mu.Lock()
	auth, ok := a.authorizations[accessID]
	if ok {
		delete(a.authorizations, accessID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	auth.mu.Lock()
	auth.expiryLoop.StopTimer(auth.expiryTimer)
	unsub := auth.unsubscribe
	auth.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	a.entry(xlog.DebugLevel, "authorization expired").FieldAdd("access_id", accessID).Log()
}

// AuthorizationGuard is a locked proxy onto an Authorization: it holds the
// authorizator's mutex until Release is called.
type AuthorizationGuard struct {
	a    *Authorizator
	auth *Authorization
	once sync.Once
}

// Authorization returns the guarded record. Valid only until Release.
func (g *AuthorizationGuard) Authorization() *Authorization { return g.auth }

// Release gives up the authorizator mutex.
func (g *AuthorizationGuard) Release() {
	g.once.Do(func() { g.a.mu.Unlock() })
}

// GetAuthorizationData looks up the bearer's Authorization. bearer is already
// stripped of any leading "Bearer " scheme prefix by the caller.
func (a *Authorizator) GetAuthorizationData(bearer string) (*AuthorizationGuard, bool) {
	access, err := DecodeAccessToken(a.accessSealer, bearer)
	if err != nil {
		return nil, false
	}

	a.mu.Lock()
	auth, ok := a.authorizations[access.ID]
	if !ok || auth.RefreshToken.Access != access {
		a.mu.Unlock()
		return nil, false
	}
	return &AuthorizationGuard{a: a, auth: auth}, true
}

// Authorize is the out-of-band continuation-style path used by the share-link
// handler: reuse a cached Authorization if one already exists for this refresh
// token's access id, else authenticate afresh and mint one. continuation is
// always invoked on l, matching the worker-per-loop threading rule.
func (a *Authorizator) Authorize(rt RefreshToken, l *loop.Loop, continuation func(*AuthorizationGuard)) {
	a.workerFor(l)

	a.mu.Lock()
	if auth, ok := a.authorizations[rt.Access.ID]; ok && auth.RefreshToken.Equal(rt) {
		guard := &AuthorizationGuard{a: a, auth: auth}
		l.Post(func() { continuation(guard) })
		return
	}
	a.mu.Unlock()

	user, ok := a.authenticator.Lookup(rt.Username)
	if !ok {
		l.Post(func() { continuation(nil) })
		return
	}
	auth, _, _, err := a.issue(user, rt.Path, l)
	if err != nil {
		l.Post(func() { continuation(nil) })
		return
	}
	l.Post(func() {
		a.mu.Lock()
		continuation(&AuthorizationGuard{a: a, auth: auth})
	})
}

// IssuePassword authenticates username/password and, on success, mints a fresh
// Authorization scoped to path. The refresh token is persisted through the
// token manager so /revoke can find it later.
func (a *Authorizator) IssuePassword(username, password, path string, l *loop.Loop) (*Authorization, AccessToken, string, bool) {
	user, ok := a.authenticator.Authenticate(username, password)
	if !ok {
		return nil, AccessToken{}, "", false
	}
	return a.finishIssue(user, path, l)
}

func (a *Authorizator) finishIssue(user SessionUser, path string, l *loop.Loop) (*Authorization, AccessToken, string, bool) {
	auth, access, refresh, err := a.issue(user, path, l)
	if err != nil {
		return nil, AccessToken{}, "", false
	}
	encodedRefresh, err := a.tokenManager.Issue(refresh)
	if err != nil {
		a.expire(access.ID)
		return nil, AccessToken{}, "", false
	}
	return auth, access, encodedRefresh, true
}

// RefreshAccess exchanges a still-valid refresh_token for a fresh
// Authorization. The previous access id is revoked so its short-lived
// access_token can no longer be used once a new one has been minted.
func (a *Authorizator) RefreshAccess(encodedRefresh string, l *loop.Loop) (*Authorization, AccessToken, string, bool) {
	rt, err := a.tokenManager.Resolve(encodedRefresh)
	if err != nil || !a.clock().Before(rt.Expiry) {
		return nil, AccessToken{}, "", false
	}
	user, ok := a.authenticator.Lookup(rt.Username)
	if !ok {
		return nil, AccessToken{}, "", false
	}
	a.tokenManager.Revoke(rt.Access.ID)
	a.expire(rt.Access.ID)
	return a.finishIssue(user, rt.Path, l)
}

// Revoke deletes the refresh_token entry via the token manager and any
// corresponding in-memory Authorization.
func (a *Authorizator) Revoke(encodedRefresh string) {
	rt, err := a.tokenManager.Resolve(encodedRefresh)
	if err != nil {
		return
	}
	a.tokenManager.Revoke(rt.Access.ID)
	a.expire(rt.Access.ID)
}

// AccessSealer exposes the authorizator's access-token key, for callers
// (the authorized file server, the sharer) that need to decode a bearer
// outside of GetAuthorizationData.
func (a *Authorizator) AccessSealer() *crypt.Sealer { return a.accessSealer }

// ShareSealer exposes the authorizator's share-token key, used by the
// sharer adapter to decode a share_token parsed out of a share URL.
func (a *Authorizator) ShareSealer() *crypt.Sealer { return a.shareSealer }

// Count returns the number of live authorizations, for tests and metrics.
func (a *Authorizator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.authorizations)
}
