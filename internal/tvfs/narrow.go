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

import "strings"

// narrowed rebases every path under base before delegating, the same idea as
// afero.NewBasePathFs generalized to the FileSystem interface so it also works
// over backends that are not afero-backed.
type narrowed struct {
	inner FileSystem
	base  string
}

// Narrow returns a FileSystem that prefixes every path with base before
// delegating to inner. It neither cleans nor rejects paths: a path with ".."
// segments is passed to inner as base+path.
func Narrow(inner FileSystem, base string) FileSystem {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return inner
	}
	return &narrowed{inner: inner, base: base}
}

func (n *narrowed) rebase(path string) string {
	if path == "/" {
		return n.base
	}
	return n.base + path
}

func (n *narrowed) OpenFile(path string, mode OpenMode) (File, Result) {
	return n.inner.OpenFile(n.rebase(path), mode)
}

func (n *narrowed) GetEntry(path string) (Entry, Result) {
	return n.inner.GetEntry(n.rebase(path))
}

func (n *narrowed) GetEntries(path string) (EntryIterator, Result) {
	return n.inner.GetEntries(n.rebase(path))
}

func (n *narrowed) Rename(oldPath, newPath string) Result {
	return n.inner.Rename(n.rebase(oldPath), n.rebase(newPath))
}

func (n *narrowed) RemoveFile(path string) Result {
	return n.inner.RemoveFile(n.rebase(path))
}

func (n *narrowed) RemoveDirectory(path string, recursive bool) Result {
	return n.inner.RemoveDirectory(n.rebase(path), recursive)
}

func (n *narrowed) MakeDirectory(path string) Result {
	return n.inner.MakeDirectory(n.rebase(path))
}
