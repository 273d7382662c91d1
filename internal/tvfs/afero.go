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

package tvfs

import (
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// AferoFileSystem adapts an afero.Fs (an OS tree, an in-memory tree for tests,
// or a path-scoped BasePathFs for a share-link subtree) to FileSystem. Mount-
// tree narrowing is just wrapping the afero.Fs in afero.NewBasePathFs before
// constructing one of these.
type AferoFileSystem struct {
	fs afero.Fs
}

// NewAferoFileSystem wraps fs.
func NewAferoFileSystem(fs afero.Fs) *AferoFileSystem {
	return &AferoFileSystem{fs: fs}
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func (a *AferoFileSystem) OpenFile(p string, mode OpenMode) (File, Result) {
	p = clean(p)
	var (
		f   afero.File
		err error
	)
	switch mode {
	case ModeRead:
		f, err = a.fs.Open(p)
	case ModeWrite:
		f, err = a.fs.OpenFile(p, osOpenFlags(mode), 0o644)
	case ModeWriteTruncate:
		f, err = a.fs.OpenFile(p, osOpenFlags(mode), 0o644)
	}
	if err != nil {
		return nil, Result{Kind: errnoKind(err), Raw: err}
	}
	return f, ok()
}

func osOpenFlags(mode OpenMode) int {
	const (
		oRDONLY = 0x0
		oWRONLY = 0x1
		oCREATE = 0x40
		oTRUNC  = 0x200
	)
	switch mode {
	case ModeWrite:
		return oWRONLY | oCREATE
	case ModeWriteTruncate:
		return oWRONLY | oCREATE | oTRUNC
	default:
		return oRDONLY
	}
}

func (a *AferoFileSystem) GetEntry(p string) (Entry, Result) {
	p = clean(p)
	fi, err := a.fs.Stat(p)
	if err != nil {
		return Entry{}, Result{Kind: errnoKind(err), Raw: err}
	}
	return Entry{
		Name:    path.Base(p),
		Type:    entryType(fi.IsDir(), fi.Mode()&0o1000 != 0),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, ok()
}

func entryType(isDir, isSymlink bool) EntryType {
	switch {
	case isSymlink:
		return TypeLink
	case isDir:
		return TypeDirectory
	default:
		return TypeFile
	}
}

func (a *AferoFileSystem) GetEntries(p string) (EntryIterator, Result) {
	p = clean(p)
	infos, err := afero.ReadDir(a.fs, p)
	if err != nil {
		return nil, Result{Kind: errnoKind(err), Raw: err}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:    fi.Name(),
			Type:    entryType(fi.IsDir(), false),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return &sliceIterator{entries: entries, idx: -1}, ok()
}

type sliceIterator struct {
	entries []Entry
	idx     int
}

func (s *sliceIterator) Next() bool {
	s.idx++
	return s.idx < len(s.entries)
}

func (s *sliceIterator) Entry() Entry {
	if s.idx < 0 || s.idx >= len(s.entries) {
		return Entry{}
	}
	return s.entries[s.idx]
}

func (s *sliceIterator) Err() error   { return nil }
func (s *sliceIterator) Close() error { return nil }

func (a *AferoFileSystem) Rename(oldPath, newPath string) Result {
	err := a.fs.Rename(clean(oldPath), clean(newPath))
	if err != nil {
		return Result{Kind: errnoKind(err), Raw: err}
	}
	return ok()
}

func (a *AferoFileSystem) RemoveFile(p string) Result {
	err := a.fs.Remove(clean(p))
	if err != nil {
		return Result{Kind: errnoKind(err), Raw: err}
	}
	return ok()
}

func (a *AferoFileSystem) RemoveDirectory(p string, recursive bool) Result {
	p = clean(p)
	if recursive {
		if err := a.fs.RemoveAll(p); err != nil {
			return Result{Kind: errnoKind(err), Raw: err}
		}
		return ok()
	}

	infos, err := afero.ReadDir(a.fs, p)
	if err != nil {
		return Result{Kind: errnoKind(err), Raw: err}
	}
	if len(infos) > 0 {
		return Result{Kind: KindInvalid, Raw: errNotEmpty(p)}
	}
	if err := a.fs.Remove(p); err != nil {
		return Result{Kind: errnoKind(err), Raw: err}
	}
	return ok()
}

func (a *AferoFileSystem) MakeDirectory(p string) Result {
	if err := a.fs.MkdirAll(clean(p), 0o755); err != nil {
		return Result{Kind: errnoKind(err), Raw: err}
	}
	return ok()
}

type notEmptyError string

func (e notEmptyError) Error() string { return "directory not empty: " + string(e) }

func errNotEmpty(p string) error { return notEmptyError(strings.TrimSuffix(p, "/")) }
