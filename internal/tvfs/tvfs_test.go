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

package tvfs_test

import (
	"io"
	"testing"

	"github.com/spf13/afero"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
)

func TestTVFS(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "tvfs suite")
}

func newFS(files map[string]string) (afero.Fs, tvfs.FileSystem) {
	afs := afero.NewMemMapFs()
	for name, contents := range files {
		_ = afero.WriteFile(afs, name, []byte(contents), 0o644)
	}
	return afs, tvfs.NewAferoFileSystem(afs)
}

var _ = Describe("AferoFileSystem", func() {
	It("opens and reads back an existing file", func() {
		_, fs := newFS(map[string]string{"/a.txt": "hello world"})

		f, res := fs.OpenFile("/a.txt", tvfs.ModeRead)
		Expect(res.OK()).To(BeTrue())
		defer f.Close()

		b, err := io.ReadAll(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("hello world"))
	})

	It("reports KindNoFile for a missing path", func() {
		_, fs := newFS(nil)
		_, res := fs.OpenFile("/missing.txt", tvfs.ModeRead)
		Expect(res.OK()).To(BeFalse())
		Expect(res.Kind).To(Equal(tvfs.KindNoFile))
	})

	It("creates a file on ModeWriteTruncate and the new content is visible", func() {
		_, fs := newFS(nil)
		f, res := fs.OpenFile("/new.txt", tvfs.ModeWriteTruncate)
		Expect(res.OK()).To(BeTrue())
		_, err := f.Write([]byte("payload"))
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		entry, res := fs.GetEntry("/new.txt")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Type).To(Equal(tvfs.TypeFile))
		Expect(entry.Size).To(Equal(int64(len("payload"))))
	})

	It("describes a directory via GetEntry", func() {
		_, fs := newFS(map[string]string{"/dir/a.txt": "x"})
		entry, res := fs.GetEntry("/dir")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Type).To(Equal(tvfs.TypeDirectory))
	})

	It("lists directory entries sorted by name", func() {
		_, fs := newFS(map[string]string{
			"/dir/b.txt": "2",
			"/dir/a.txt": "1",
			"/dir/c.txt": "3",
		})
		it, res := fs.GetEntries("/dir")
		Expect(res.OK()).To(BeTrue())
		defer it.Close()

		var names []string
		for it.Next() {
			names = append(names, it.Entry().Name)
		}
		Expect(it.Err()).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"a.txt", "b.txt", "c.txt"}))
	})

	It("renames a file", func() {
		_, fs := newFS(map[string]string{"/old.txt": "data"})
		Expect(fs.Rename("/old.txt", "/new.txt").OK()).To(BeTrue())
		_, res := fs.GetEntry("/old.txt")
		Expect(res.OK()).To(BeFalse())
		entry, res := fs.GetEntry("/new.txt")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Name).To(Equal("new.txt"))
	})

	It("removes a file", func() {
		_, fs := newFS(map[string]string{"/gone.txt": "x"})
		Expect(fs.RemoveFile("/gone.txt").OK()).To(BeTrue())
		_, res := fs.GetEntry("/gone.txt")
		Expect(res.OK()).To(BeFalse())
	})

	It("refuses to remove a non-empty directory without recursive", func() {
		_, fs := newFS(map[string]string{"/dir/a.txt": "x"})
		res := fs.RemoveDirectory("/dir", false)
		Expect(res.OK()).To(BeFalse())
		Expect(res.Kind).To(Equal(tvfs.KindInvalid))
	})

	It("removes a non-empty directory when recursive", func() {
		_, fs := newFS(map[string]string{"/dir/a.txt": "x", "/dir/b.txt": "y"})
		Expect(fs.RemoveDirectory("/dir", true).OK()).To(BeTrue())
		_, res := fs.GetEntry("/dir")
		Expect(res.OK()).To(BeFalse())
	})

	It("creates intermediate directories via MakeDirectory", func() {
		_, fs := newFS(nil)
		Expect(fs.MakeDirectory("/a/b/c").OK()).To(BeTrue())
		entry, res := fs.GetEntry("/a/b/c")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Type).To(Equal(tvfs.TypeDirectory))
	})

	It("cleans unrooted and dotted paths the same way", func() {
		_, fs := newFS(map[string]string{"/a.txt": "x"})
		entry, res := fs.GetEntry("a.txt")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Name).To(Equal("a.txt"))
	})
})

var _ = Describe("Narrow", func() {
	It("returns the inner filesystem unchanged for an empty base", func() {
		_, fs := newFS(map[string]string{"/a.txt": "x"})
		Expect(tvfs.Narrow(fs, "")).To(BeIdenticalTo(fs))
	})

	It("rebases paths under the given base before delegating", func() {
		_, fs := newFS(map[string]string{"/share/inner/hello.txt": "hi"})
		scoped := tvfs.Narrow(fs, "/share/inner")

		entry, res := scoped.GetEntry("/hello.txt")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Name).To(Equal("hello.txt"))

		f, res := scoped.OpenFile("/hello.txt", tvfs.ModeRead)
		Expect(res.OK()).To(BeTrue())
		b, err := io.ReadAll(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("hi"))
		Expect(f.Close()).To(Succeed())
	})

	It("treats root under the scoped base as the base itself", func() {
		_, fs := newFS(map[string]string{"/share/inner/a.txt": "x"})
		scoped := tvfs.Narrow(fs, "/share/inner")

		entry, res := scoped.GetEntry("/")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Type).To(Equal(tvfs.TypeDirectory))
	})

	It("cannot see a sibling mount's file under the same name", func() {
		_, fs := newFS(map[string]string{
			"/share/inner/a.txt": "inside",
			"/other/a.txt":       "outside",
		})
		scoped := tvfs.Narrow(fs, "/share/inner")

		entry, res := scoped.GetEntry("/a.txt")
		Expect(res.OK()).To(BeTrue())
		Expect(entry.Name).To(Equal("a.txt"))

		f, res := scoped.OpenFile("/a.txt", tvfs.ModeRead)
		Expect(res.OK()).To(BeTrue())
		b, err := io.ReadAll(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("inside"))
		Expect(f.Close()).To(Succeed())
	})

	It("propagates MakeDirectory/RemoveFile/Rename through the rebase", func() {
		_, fs := newFS(nil)
		scoped := tvfs.Narrow(fs, "/share")

		Expect(scoped.MakeDirectory("/dir").OK()).To(BeTrue())
		_, res := fs.GetEntry("/share/dir")
		Expect(res.OK()).To(BeTrue())

		f, res := scoped.OpenFile("/dir/file.txt", tvfs.ModeWriteTruncate)
		Expect(res.OK()).To(BeTrue())
		Expect(f.Close()).To(Succeed())

		Expect(scoped.Rename("/dir/file.txt", "/dir/renamed.txt").OK()).To(BeTrue())
		_, res = fs.GetEntry("/share/dir/renamed.txt")
		Expect(res.OK()).To(BeTrue())

		Expect(scoped.RemoveFile("/dir/renamed.txt").OK()).To(BeTrue())
		Expect(scoped.RemoveDirectory("/dir", false).OK()).To(BeTrue())
	})
})
