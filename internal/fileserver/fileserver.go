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

// Package fileserver maps HTTP verbs onto TVFS operations with content-type
// negotiation.
package fileserver

import (
	"strings"

	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
	"github.com/iynaix/filezilla-server-sub001/internal/httpsession"
	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
)

// Options selects which verbs are enabled and directory-listing policy.
type Options struct {
	AllowGet     bool
	AllowPut     bool
	AllowDelete  bool
	AllowPost    bool
	AllowListing bool
	DefaultIndex []string
	Honor406     bool
}

// DefaultOptions enables every verb with listing on and a conventional
// index fallback.
func DefaultOptions() Options {
	return Options{
		AllowGet:     true,
		AllowPut:     true,
		AllowDelete:  true,
		AllowPost:    true,
		AllowListing: true,
		DefaultIndex: []string{"index.html"},
	}
}

// FileServer adapts a tvfs.FileSystem to the HTTP surface.
type FileServer struct {
	FS   tvfs.FileSystem
	Opts Options
}

// New constructs a FileServer over fs with opts.
func New(fs tvfs.FileSystem, opts Options) *FileServer {
	return &FileServer{FS: fs, Opts: opts}
}

// ServeHTTP dispatches tx's method against path (already stripped of its
// router prefix).
func (f *FileServer) ServeHTTP(tx *httpsession.Transaction, consumer *httpcore.Consumer, path string) {
	switch tx.Request.Method {
	case "GET", "HEAD":
		f.serveGet(tx, path)
	case "PUT":
		f.servePut(tx, consumer, path)
	case "DELETE":
		f.serveDelete(tx, path)
	case "POST":
		f.servePost(tx, path)
	default:
		tx.SendStatus(405, "Method Not Allowed")
		tx.SetHeader("Allow", "GET, HEAD, PUT, DELETE, POST")
		tx.SendHeaders(nil)
		tx.SendBodyString("method not allowed", "text/plain; charset=utf-8")
	}
}

func (f *FileServer) serveGet(tx *httpsession.Transaction, path string) {
	if !f.Opts.AllowGet {
		f.methodDisabled(tx)
		return
	}

	entry, res := f.FS.GetEntry(path)
	if res.OK() && entry.Type == tvfs.TypeDirectory {
		f.serveDirectory(tx, path)
		return
	}
	if !res.OK() {
		f.sendTVFSError(tx, res)
		return
	}

	file, openRes := f.FS.OpenFile(path, tvfs.ModeRead)
	if !openRes.OK() {
		f.sendTVFSError(tx, openRes)
		return
	}

	disposition := "inline"
	if strings.Contains(tx.Request.Query, "download") {
		disposition = "attachment"
	}

	tx.SendStatus(200, "Ok")
	tx.SendHeaders(nil)
	tx.SendBodyFile(file, entry.Size, contentTypeFor(path), disposition)
}

// serveDirectory tries each DefaultIndex file first; absent any, streams a
// listing if permitted.
func (f *FileServer) serveDirectory(tx *httpsession.Transaction, path string) {
	if !strings.HasSuffix(path, "/") {
		tx.SendStatus(301, "Moved Permanently")
		tx.SetHeader("Location", path+"/")
		tx.SendHeaders(nil)
		tx.SendBodyString("", "text/plain; charset=utf-8")
		return
	}

	for _, idx := range f.Opts.DefaultIndex {
		indexPath := path + idx
		entry, res := f.FS.GetEntry(indexPath)
		if res.OK() && entry.Type != tvfs.TypeDirectory {
			file, openRes := f.FS.OpenFile(indexPath, tvfs.ModeRead)
			if openRes.OK() {
				tx.SendStatus(200, "Ok")
				tx.SendHeaders(nil)
				tx.SendBodyFile(file, entry.Size, contentTypeFor(indexPath), "inline")
				return
			}
		}
	}

	if !f.Opts.AllowListing {
		tx.SendStatus(404, "Not Found")
		tx.SendHeaders(nil)
		tx.SendBodyString("not found", "text/plain; charset=utf-8")
		return
	}

	it, res := f.FS.GetEntries(path)
	if !res.OK() {
		f.sendTVFSError(tx, res)
		return
	}

	accept, _ := tx.Request.Headers.Get("Accept")
	format := httpsession.NegotiateListingFormat(accept)

	tx.SendStatus(200, "Ok")
	tx.SendHeaders(nil)
	tx.SendBodyListing(path, it, format)
}

func (f *FileServer) servePut(tx *httpsession.Transaction, consumer *httpcore.Consumer, path string) {
	if !f.Opts.AllowPut {
		f.methodDisabled(tx)
		return
	}

	if action, params, ok := parseAction(tx.Request.Headers); ok {
		switch action {
		case "mkdir":
			res := f.FS.MakeDirectory(path)
			f.finishAction(tx, res)
			return
		case "copy-from":
			_ = params
			tx.SendStatus(501, "Not Implemented")
			tx.SendHeaders(nil)
			tx.SendBodyString("copy-from is not implemented", "text/plain; charset=utf-8")
			return
		}
	}

	file, res := f.FS.OpenFile(path, tvfs.ModeWriteTruncate)
	if !res.OK() {
		f.sendTVFSError(tx, res)
		return
	}

	consumer.ReceiveBody(&putSink{file: file, done: func(ok bool) {
		_ = file.Close()
		if ok {
			tx.SendStatus(200, "Ok")
			tx.SendHeaders(nil)
			tx.SendBodyString("", "text/plain; charset=utf-8")
		} else {
			tx.AbortSend()
		}
	}})
}

type putSink struct {
	file tvfs.File
	done func(ok bool)
}

func (p *putSink) Write(b []byte) (int, error) { return p.file.Write(b) }
func (p *putSink) OnEnd(success bool)          { p.done(success) }

func (f *FileServer) serveDelete(tx *httpsession.Transaction, path string) {
	if !f.Opts.AllowDelete {
		f.methodDisabled(tx)
		return
	}

	entry, res := f.FS.GetEntry(path)
	if !res.OK() {
		f.sendTVFSError(tx, res)
		return
	}

	if entry.Type == tvfs.TypeDirectory {
		recursive := tx.Request.Headers.GetDefault("X-FZ-Recursive", "") == "true"
		f.finishAction(tx, f.FS.RemoveDirectory(path, recursive))
		return
	}
	f.finishAction(tx, f.FS.RemoveFile(path))
}

func (f *FileServer) servePost(tx *httpsession.Transaction, path string) {
	if !f.Opts.AllowPost {
		f.methodDisabled(tx)
		return
	}

	moveFrom, hasFrom := headerAction(tx.Request.Headers, "move-from")
	moveTo, hasTo := headerAction(tx.Request.Headers, "move-to")
	if !hasFrom || !hasTo {
		tx.SendStatus(400, "Bad Request")
		tx.SendHeaders(nil)
		tx.SendBodyString("POST requires X-FZ-Action move-from and move-to", "text/plain; charset=utf-8")
		return
	}

	oldPath := resolveAgainst(path, moveFrom)
	newPath := resolveAgainst(path, moveTo)
	f.finishAction(tx, f.FS.Rename(oldPath, newPath))
}

func resolveAgainst(base, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	return strings.TrimSuffix(base, "/") + "/" + rel
}

func (f *FileServer) finishAction(tx *httpsession.Transaction, res tvfs.Result) {
	if !res.OK() {
		f.sendTVFSError(tx, res)
		return
	}
	tx.SendStatus(200, "Ok")
	tx.SendHeaders(nil)
	tx.SendBodyString("", "text/plain; charset=utf-8")
}

func (f *FileServer) methodDisabled(tx *httpsession.Transaction) {
	tx.SendStatus(405, "Method Not Allowed")
	tx.SendHeaders(nil)
	tx.SendBodyString("method disabled", "text/plain; charset=utf-8")
}

// sendTVFSError maps a tvfs.Result to an HTTP response.
func (f *FileServer) sendTVFSError(tx *httpsession.Transaction, res tvfs.Result) {
	code, reason := 500, "Internal Server Error"
	closeConn := false
	switch res.Kind {
	case tvfs.KindNoPerm:
		code, reason = 403, "Forbidden"
	case tvfs.KindNoFile, tvfs.KindNoDir:
		code, reason = 404, "Not Found"
	case tvfs.KindAlreadyExists:
		code, reason = 409, "Conflict"
	case tvfs.KindNotImplemented:
		code, reason = 501, "Not Implemented"
	default:
		closeConn = true
	}

	tx.SendStatus(code, reason)
	if closeConn {
		tx.SetHeader("Connection", "close")
	}
	tx.SendHeaders(nil)

	body := reason
	if res.Raw != nil {
		body = res.Raw.Error()
	}
	tx.SendBodyString(body, "text/plain; charset=utf-8")
}

// parseAction parses the X-FZ-Action header into (action, params) as used by
// PUT (mkdir / copy-from).
func parseAction(h *httpcore.Headers) (action string, params map[string]string, ok bool) {
	v, has := h.Get("X-FZ-Action")
	if !has {
		return "", nil, false
	}
	action, params = splitAction(v)
	return action, params, true
}

// headerAction parses a single "action; path=..." clause matching want,
// used by POST move-from/move-to, which both target the same header
// emitted twice (folded by Headers.Add into a comma-joined list).
func headerAction(h *httpcore.Headers, want string) (path string, ok bool) {
	for _, clause := range h.AsList("X-FZ-Action") {
		action, params := splitAction(clause)
		if action == want {
			return params["path"], true
		}
	}
	return "", false
}

func splitAction(v string) (string, map[string]string) {
	parts := strings.Split(v, ";")
	action := strings.TrimSpace(parts[0])
	params := make(map[string]string)
	for _, p := range parts[1:] {
		k, val, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return action, params
}
