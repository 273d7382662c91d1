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

// Package router implements the prefix-dispatch router and WebUI rewriter.
package router

import (
	"sort"
	"strings"
	"sync"

	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
)

// OriginalPathHeader is the internal-only header the router stashes the
// original request path in.
const OriginalPathHeader = "X-FZ-INT-Original-Path"

// Handler serves one routed request.
type Handler func(tx *httpsession.Transaction, consumer *httpcore.Consumer)

// Router dispatches by longest matching "/"-bounded path prefix: registered
// prefixes are kept sorted in descending order and scanned linearly, so a
// longer prefix always wins over a shorter one it contains.
type Router struct {
	mu       sync.RWMutex
	prefixes []string
	handlers map[string]Handler
}

// New returns an empty Router.
func New() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers fn for prefix.
func (r *Router) Handle(prefix string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[prefix]; !exists {
		r.prefixes = append(r.prefixes, prefix)
		sort.Sort(sort.Reverse(sort.StringSlice(r.prefixes)))
	}
	r.handlers[prefix] = fn
}

// Match finds the longest registered prefix matching path on a "/" boundary,
// stashes the original path in OriginalPathHeader (only if not already set;
// subsequent routes do not overwrite), strips the matched prefix
// (preserving a leading slash) and returns the handler plus the rewritten
// request path.
func (r *Router) Match(req *httpcore.Request) (Handler, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.prefixes {
		if !prefixMatches(p, req.Path) {
			continue
		}
		if !req.Headers.Has(OriginalPathHeader) {
			req.Headers.Set(OriginalPathHeader, req.Path)
		}
		rest := strings.TrimPrefix(req.Path, p)
		if rest == "" || rest[0] != '/' {
			rest = "/" + rest
		}
		return r.handlers[p], rest, true
	}
	return nil, "", false
}

// prefixMatches reports whether p matches path exactly or on a "/" boundary.
func prefixMatches(p, path string) bool {
	if p == path {
		return true
	}
	if !strings.HasPrefix(path, p) {
		return false
	}
	if p == "/" {
		return true
	}
	return strings.HasPrefix(path[len(p):], "/")
}

// webUIReserved lists the path prefixes the rewriter leaves untouched.
var webUIReserved = []string{"/assets", "/favicon.ico", "/icons", "/index.html", "/api"}

// RewriteWebUI rewrites any path not under a reserved prefix to
// /index.html, for single-page-app style WebUI entry points.
func RewriteWebUI(path string) string {
	for _, p := range webUIReserved {
		if prefixMatches(p, path) {
			return path
		}
	}
	return "/index.html"
}
