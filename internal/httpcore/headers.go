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

// Package httpcore holds the wire-level HTTP/1.x types shared by the message
// consumer and the session/transaction layer: headers, the request line, and
// path normalization.
package httpcore

import (
	"net/url"
	"strings"
)

// Headers is the case-insensitive field-name map for one message. List-typed
// fields are comma-joined on insert and split back out by AsList.
type Headers struct {
	// order preserves insertion order for deterministic emission.
	order []string
	vals  map[string]string

	// setCookies holds raw Set-Cookie line values. RFC 6265 forbids
	// folding multiple Set-Cookie instances into one comma-joined line
	// the way other list fields work, so they bypass vals/Add entirely.
	setCookies []string
}

// NewHeaders returns an empty Headers.
func NewHeaders() *Headers {
	return &Headers{vals: make(map[string]string)}
}

// AddSetCookie appends a raw Set-Cookie header value.
func (h *Headers) AddSetCookie(value string) {
	h.setCookies = append(h.setCookies, value)
}

// SetCookies returns the accumulated Set-Cookie values in insertion order.
func (h *Headers) SetCookies() []string {
	return append([]string(nil), h.setCookies...)
}

func canon(name string) string {
	return strings.ToLower(name)
}

// Set overwrites name's value outright.
func (h *Headers) Set(name, value string) {
	k := canon(name)
	if _, exists := h.vals[k]; !exists {
		h.order = append(h.order, k)
	}
	h.vals[k] = value
}

// Add folds value into name's existing value, comma-joining for list fields.
func (h *Headers) Add(name, value string) {
	k := canon(name)
	if cur, ok := h.vals[k]; ok {
		h.vals[k] = cur + ", " + value
		return
	}
	h.order = append(h.order, k)
	h.vals[k] = value
}

// Get returns name's value and whether it is present.
func (h *Headers) Get(name string) (string, bool) {
	v, ok := h.vals[canon(name)]
	return v, ok
}

// GetDefault returns name's value, or def if absent.
func (h *Headers) GetDefault(name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.vals[canon(name)]
	return ok
}

// Del removes name.
func (h *Headers) Del(name string) {
	k := canon(name)
	delete(h.vals, k)
	for i, n := range h.order {
		if n == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// AsList splits a field's value on commas per RFC 7230 list-typed-field
// rules, trimming OWS around each element and dropping empty elements.
func (h *Headers) AsList(name string) []string {
	v, ok := h.Get(name)
	if !ok {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Names returns header names in insertion order.
func (h *Headers) Names() []string {
	return append([]string(nil), h.order...)
}

// Size returns the cumulative size of all folded header lines.
func (h *Headers) Size() int {
	n := 0
	for _, k := range h.order {
		n += len(k) + len(h.vals[k]) + 4 // ": " + CRLF
	}
	return n
}

// GetCookie returns the named cookie's value, URL-unescaped when possible.
// isSecure is not consulted: the value is returned whether or not the current
// connection is secure.
func (h *Headers) GetCookie(name string, isSecure bool) (string, bool) {
	raw, ok := h.Get("Cookie")
	if !ok {
		return "", false
	}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		k, v, found := strings.Cut(pair, "=")
		if !found || k != name {
			continue
		}
		if !isSecure {
			// Still return the value; the caller (authorizator)
			// decides whether a non-TLS request may use it.
		}
		unescaped, err := url.QueryUnescape(v)
		if err != nil {
			return v, true
		}
		return unescaped, true
	}
	return "", false
}

// ConnectionKeepAlive interprets the Connection header against the request's
// HTTP version.
func (h *Headers) ConnectionKeepAlive(version string) (keepAlive bool, ok bool) {
	v, has := h.Get("Connection")
	if !has {
		return version == "1.1", true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "keep-alive":
		return true, true
	case "close":
		return false, true
	default:
		return false, false
	}
}
