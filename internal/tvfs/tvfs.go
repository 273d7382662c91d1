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

// Package tvfs is the narrow external filesystem interface consumed by the
// file-server handlers. The core never talks to an OS path directly; it goes
// through this interface so a mount tree, an impersonator backend or a share-
// scoped subtree can all be plugged in without touching the HTTP layer.
// The concrete implementation here is backed by an afero.Fs, so an OS tree,
// an in-memory tree for tests, or a path-scoped subtree all plug in the same
// way.
package tvfs

import (
	"io"
	"os"
	"time"
)

// ErrorKind is the small closed alphabet TVFS operations report, mapped to HTTP
// status codes by the file-server.
type ErrorKind uint8

const (
	KindOK ErrorKind = iota
	KindInvalid
	KindNoPerm
	KindNoFile
	KindNoDir
	KindAlreadyExists
	KindNoSpace
	KindResourceLimit
	KindNotImplemented
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalid:
		return "invalid"
	case KindNoPerm:
		return "noperm"
	case KindNoFile:
		return "nofile"
	case KindNoDir:
		return "nodir"
	case KindAlreadyExists:
		return "already_exists"
	case KindNoSpace:
		return "nospace"
	case KindResourceLimit:
		return "resource_limit"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "other"
	}
}

// Result wraps the outcome of a TVFS operation: a closed ErrorKind plus the raw
// underlying error for logging.
type Result struct {
	Kind ErrorKind
	Raw  error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Kind == KindOK }

func ok() Result { return Result{Kind: KindOK} }

// EntryType distinguishes the four kinds of directory entry the NDJSON and
// HTML/plain listing formats report.
type EntryType byte

const (
	TypeFile      EntryType = 'f'
	TypeDirectory EntryType = 'd'
	TypeLink      EntryType = 'l'
	TypeUnknown   EntryType = 'u'
)

// Entry describes one file-system object as returned by GetEntry/GetEntries.
type Entry struct {
	Name    string
	Type    EntryType
	Size    int64
	ModTime time.Time
}

// EntryIterator is the streaming cursor returned by GetEntries, consumed by
// the directory-listing body writer one entry at a time so a large
// directory never has to be materialized in full.
type EntryIterator interface {
	// Next advances to the next entry; returns false at end of stream or
	// on error (check Err after a false return).
	Next() bool
	Entry() Entry
	Err() error
	Close() error
}

// OpenMode selects the access mode for OpenFile.
type OpenMode uint8

const (
	ModeRead OpenMode = iota
	ModeWrite
	ModeWriteTruncate
)

// FileSystem is the operation set the core requires of TVFS.
type FileSystem interface {
	OpenFile(path string, mode OpenMode) (File, Result)
	GetEntry(path string) (Entry, Result)
	GetEntries(path string) (EntryIterator, Result)
	Rename(oldPath, newPath string) Result
	RemoveFile(path string) Result
	RemoveDirectory(path string, recursive bool) Result
	MakeDirectory(path string) Result
}

// File is a single opened TVFS handle: readable, writable or both depending
// on the OpenMode it was opened with.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	io.Seeker
}

// errnoKind maps an *os.PathError / plain errno-carrying error to an
// ErrorKind. Backends that are not os-based (e.g. a remote mount) should
// produce Result values directly instead of routing through this.
func errnoKind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOK
	case os.IsNotExist(err):
		return KindNoFile
	case os.IsPermission(err):
		return KindNoPerm
	case os.IsExist(err):
		return KindAlreadyExists
	default:
		return KindOther
	}
}
