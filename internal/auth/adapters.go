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
	"strings"

	"github.com/iynaix/filezilla-server-sub001/internal/fileserver"
	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
)

// MountProvider resolves a session user's TVFS mount tree. Generation increases
// whenever the user's underlying record changes, so cached adapters know to
// rebuild.
type MountProvider interface {
	MountFor(user SessionUser) (tvfs.FileSystem, uint64)
}

type mountCache struct {
	fs  tvfs.FileSystem
	gen uint64
}

// extractBearer reads the Authorization: Bearer <token> header, following the
// cookie: indirection.
func extractBearer(tx *httpsession.Transaction) (string, bool) {
	v, ok := tx.Request.Headers.Get("Authorization")
	if !ok {
		return "", false
	}
	rest, ok := strings.CutPrefix(v, "Bearer ")
	if !ok {
		return "", false
	}
	return resolveBearer(tx, rest)
}

func sendUnauthorized(tx *httpsession.Transaction) {
	tx.SendStatus(401, "Unauthorized")
	tx.SetHeader("WWW-Authenticate", "Bearer")
	tx.SendHeaders(nil)
	tx.SendBodyString("unauthorized", "text/plain; charset=utf-8")
}

// AuthorizedFileServer gates a fileserver.FileServer behind a bearer lookup,
// allocating one TVFS instance per Authorization.
type AuthorizedFileServer struct {
	Authorizator *Authorizator
	Mounts       MountProvider
	Opts         fileserver.Options
}

// Handle is an httpsession.Dispatch: extract, authorize, mount, serve.
func (s *AuthorizedFileServer) Handle(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
	bearer, ok := extractBearer(tx)
	if !ok {
		sendUnauthorized(tx)
		return
	}
	guard, ok := s.Authorizator.GetAuthorizationData(bearer)
	if !ok {
		sendUnauthorized(tx)
		return
	}
	defer guard.Release()

	auth := guard.Authorization()
	fs := s.mountFor(auth)
	fileserver.New(fs, s.Opts).ServeHTTP(tx, consumer, tx.Request.Path)
}

func (s *AuthorizedFileServer) mountFor(auth *Authorization) tvfs.FileSystem {
	fs, gen := s.Mounts.MountFor(auth.User)
	cached := auth.CustomData("fileserver.mount", func() any {
		return &mountCache{fs: fs, gen: gen}
	}).(*mountCache)

	if gen != cached.gen {
		cached.fs, cached.gen = fs, gen
	}
	return cached.fs
}

// Sharer serves one share_token's subtree without requiring the client to hold
// a bearer of their own.
type Sharer struct {
	Authorizator *Authorizator
	Mounts       MountProvider
	Opts         fileserver.Options
}

// Handle is an httpsession.Dispatch for the share-link prefix; l is the
// session's loop, needed by Authorizator.Authorize's worker-per-loop rule.
func (s *Sharer) Handle(l *loop.Loop) func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
	return func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
		segment, rest := splitFirstSegment(tx.Request.Path)
		share, err := DecodeShareToken(s.Authorizator.ShareSealer(), segment)
		if err != nil {
			tx.SendStatus(404, "Not Found")
			tx.SendHeaders(nil)
			tx.SendBodyString("unknown share", "text/plain; charset=utf-8")
			return
		}

		if len(share.PasswordHash) > 0 && !s.checkBasicAuth(tx, share.PasswordHash) {
			tx.SendStatus(401, "Unauthorized")
			tx.SetHeader("WWW-Authenticate", `Basic realm="share"`)
			tx.SendHeaders(nil)
			tx.SendBodyString("password required", "text/plain; charset=utf-8")
			return
		}

		s.Authorizator.Authorize(share.Refresh, l, func(guard *AuthorizationGuard) {
			if guard == nil {
				tx.SendStatus(404, "Not Found")
				tx.SendHeaders(nil)
				tx.SendBodyString("share expired", "text/plain; charset=utf-8")
				return
			}
			defer guard.Release()

			auth := guard.Authorization()
			fs := mountForShare(s.Mounts, auth, share.Refresh.Path)
			fileserver.New(fs, s.Opts).ServeHTTP(tx, consumer, rest)
		})
	}
}

func mountForShare(mounts MountProvider, auth *Authorization, sharedPath string) tvfs.FileSystem {
	cached := auth.CustomData("sharer.mount", func() any {
		fs, gen := mounts.MountFor(auth.User)
		return &mountCache{fs: tvfs.Narrow(fs, sharedPath), gen: gen}
	}).(*mountCache)
	return cached.fs
}

// checkBasicAuth validates the request's HTTP Basic credentials against
// hash, ignoring the username (the share's password is the only secret).
func (s *Sharer) checkBasicAuth(tx *httpsession.Transaction, hash []byte) bool {
	v, ok := tx.Request.Headers.Get("Authorization")
	if !ok {
		return false
	}
	rest, ok := strings.CutPrefix(v, "Basic ")
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return false
	}
	_, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return false
	}
	return ComparePassword(hash, password)
}

// splitFirstSegment splits an absolute path into its first "/"-bounded
// segment and the remainder (with a leading slash), used to peel the
// share_token off a share URL.
func splitFirstSegment(path string) (segment, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, "/"
	}
	return trimmed[:idx], trimmed[idx:]
}
