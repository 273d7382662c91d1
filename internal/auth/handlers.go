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
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
	"github.com/iynaix/filezilla-server-sub001/internal/loop"
)

// oauthError is the OAuth2-style JSON error body: {"error":"<…>","description":"<…>"}.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

func sendOAuthError(tx *httpsession.Transaction, code, reason string) {
	body, _ := json.Marshal(oauthError{Error: code, Description: reason})
	tx.SendStatus(400, "Bad Request")
	tx.SendHeaders(nil)
	tx.SendBodyString(string(body), "application/json")
}

// formSink buffers a request body into memory, then hands it to done as a
// parsed x-www-form-urlencoded value set.
type formSink struct {
	buf  strings.Builder
	done func(url.Values, bool)
}

func (s *formSink) Write(b []byte) (int, error) {
	return s.buf.Write(b)
}

func (s *formSink) OnEnd(success bool) {
	if !success {
		s.done(nil, false)
		return
	}
	form, err := url.ParseQuery(s.buf.String())
	s.done(form, err == nil)
}

// resolveBearer reads value, following the "cookie:<name>" indirection to an
// HttpOnly cookie of the same name.
func resolveBearer(tx *httpsession.Transaction, value string) (string, bool) {
	name, ok := strings.CutPrefix(value, "cookie:")
	if !ok {
		return value, value != ""
	}
	return tx.Request.Headers.GetCookie(name, tx.IsHTTPS())
}

// tokenResponse is the success body of POST /token.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// guardEndpoint enforces the endpoint preconditions shared by /token and
// /revoke: TLS only, POST only, form-urlencoded only.
func guardEndpoint(tx *httpsession.Transaction) bool {
	if !tx.IsHTTPS() {
		tx.SendStatus(403, "Forbidden")
		tx.SendHeaders(nil)
		tx.SendBodyString("token endpoints require TLS", "text/plain; charset=utf-8")
		return false
	}
	if tx.Request.Method != "POST" {
		tx.SendStatus(405, "Method Not Allowed")
		tx.SetHeader("Allow", "POST")
		tx.SendHeaders(nil)
		tx.SendBodyString("method not allowed", "text/plain; charset=utf-8")
		return false
	}
	ct := tx.Request.Headers.GetDefault("Content-Type", "")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		tx.SendStatus(415, "Unsupported Media Type")
		tx.SendHeaders(nil)
		tx.SendBodyString("expected application/x-www-form-urlencoded", "text/plain; charset=utf-8")
		return false
	}
	return true
}

// TokenHandler implements POST /token. l is the loop the owning session runs
// on, so timers the Authorization arms stay on the correct goroutine.
func (a *Authorizator) TokenHandler(l *loop.Loop) func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
	return func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
		if !guardEndpoint(tx) {
			return
		}
		consumer.ReceiveBody(&formSink{done: func(form url.Values, ok bool) {
			if !ok {
				sendOAuthError(tx, "invalid_request", "malformed form body")
				return
			}
			a.handleTokenForm(tx, l, form)
		}})
	}
}

func (a *Authorizator) handleTokenForm(tx *httpsession.Transaction, l *loop.Loop, form url.Values) {
	var (
		access     AccessToken
		encodedRef string
		ok         bool
		grant      = form.Get("grant_type")
	)

	switch grant {
	case "password":
		_, access, encodedRef, ok = a.IssuePassword(form.Get("username"), form.Get("password"), "", l)
	case "refresh_token":
		rawRefresh, has := resolveBearer(tx, form.Get("refresh_token"))
		if !has {
			sendOAuthError(tx, "invalid_request", "missing refresh_token")
			return
		}
		_, access, encodedRef, ok = a.RefreshAccess(rawRefresh, l)
	default:
		sendOAuthError(tx, "unsupported_grant_type", fmt.Sprintf("unsupported grant_type %q", grant))
		return
	}

	if !ok {
		sendOAuthError(tx, "invalid_grant", "authentication failed")
		return
	}

	encodedAccess, err := EncodeAccessToken(a.accessSealer, access)
	if err != nil {
		sendOAuthError(tx, "server_error", "could not encode access token")
		return
	}

	resp := tokenResponse{
		TokenType:    "bearer",
		ExpiresIn:    int64(a.accessTTL.Seconds()),
		AccessToken:  encodedAccess,
		RefreshToken: encodedRef,
	}
	body, _ := json.Marshal(resp)

	headers := httpcore.NewHeaders()
	if cookiePath := form.Get("cookie_path"); cookiePath != "" {
		revokePath := siblingRevokePath(cookiePath)
		maxAge := int(a.accessTTL.Seconds())
		refreshMaxAge := int(a.refreshTTL.Seconds())
		headers.AddSetCookie(cookieLine("access_token", encodedAccess, cookiePath, maxAge))
		headers.AddSetCookie(cookieLine("refresh_token", encodedRef, cookiePath, refreshMaxAge))
		headers.AddSetCookie(cookieLine("access_token", encodedAccess, revokePath, maxAge))
		headers.AddSetCookie(cookieLine("refresh_token", encodedRef, revokePath, refreshMaxAge))
	}

	tx.SendStatus(200, "Ok")
	tx.SendHeaders(headers)
	tx.SendBodyString(string(body), "application/json")
}

// RevokeHandler implements POST /revoke.
func (a *Authorizator) RevokeHandler() func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
	return func(tx *httpsession.Transaction, consumer *httpcore.Consumer) {
		if !guardEndpoint(tx) {
			return
		}
		consumer.ReceiveBody(&formSink{done: func(form url.Values, ok bool) {
			if !ok {
				sendOAuthError(tx, "invalid_request", "malformed form body")
				return
			}
			a.handleRevokeForm(tx, form)
		}})
	}
}

func (a *Authorizator) handleRevokeForm(tx *httpsession.Transaction, form url.Values) {
	raw, has := resolveBearer(tx, form.Get("token"))
	viaCookie := strings.HasPrefix(form.Get("token"), "cookie:")

	headers := httpcore.NewHeaders()
	if has {
		a.Revoke(raw)
	}
	if viaCookie {
		// The cookie's original scoping path is not a /revoke parameter, so
		// the clearing cookies are emitted at the root path.
		headers.AddSetCookie(cookieLine("access_token", "", "/", 0))
		headers.AddSetCookie(cookieLine("refresh_token", "", "/", 0))
	}

	tx.SendStatus(200, "Ok")
	tx.SendHeaders(headers)
	tx.SendBodyString("", "application/json")
}

// siblingRevokePath replaces cookiePath's final segment with "revoke".
func siblingRevokePath(cookiePath string) string {
	trimmed := strings.TrimSuffix(cookiePath, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "/revoke"
	}
	return trimmed[:idx+1] + "revoke"
}

// httpDateFormat is the RFC 1123 / GMT shape HTTP-date attributes use.
const httpDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// cookieLine formats one Set-Cookie value carrying the full attribute set:
// Path, Expires, Max-Age, Secure, HttpOnly. maxAge <= 0 expires the cookie
// immediately, with an epoch Expires date, matching the "clear cookies"
// behavior /revoke needs.
func cookieLine(name, value, path string, maxAge int) string {
	if maxAge <= 0 {
		return fmt.Sprintf("%s=%s; Path=%s; Expires=%s; Max-Age=0; Secure; HttpOnly",
			name, value, path, time.Unix(0, 0).UTC().Format(httpDateFormat))
	}
	expires := time.Now().Add(time.Duration(maxAge) * time.Second).UTC().Format(httpDateFormat)
	return fmt.Sprintf("%s=%s; Path=%s; Expires=%s; Max-Age=%d; Secure; HttpOnly",
		name, value, path, expires, maxAge)
}
