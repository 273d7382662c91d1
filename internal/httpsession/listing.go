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

package httpsession

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/iynaix/filezilla-server-sub001/internal/tvfs"
)

// listingWriter formats one tvfs.Entry at a time into the negotiated encoding,
// pulled by FuncAdder (or ChunkAdder wrapping one) so a large directory is
// never materialized in full.
type listingWriter struct {
	name     string
	it       tvfs.EntryIterator
	format   ListingFormat
	wroteHdr bool
	wroteEnd bool
}

func newListingWriter(name string, it tvfs.EntryIterator, format ListingFormat) *listingWriter {
	return &listingWriter{name: name, it: it, format: format}
}

func (w *listingWriter) next() ([]byte, bool, error) {
	var b strings.Builder

	if !w.wroteHdr {
		w.wroteHdr = true
		switch w.format {
		case ListingHTML:
			b.WriteString(fmt.Sprintf(
				`<!doctype html><html><head><meta charset="utf-8"/><title>Listing of %s</title></head><body><h1>Listing of %s</h1><pre>`,
				html.EscapeString(w.name), html.EscapeString(w.name)))
		}
	}

	if w.it.Next() {
		e := w.it.Entry()
		switch w.format {
		case ListingHTML:
			href := url.PathEscape(e.Name)
			display := html.EscapeString(e.Name)
			if e.Type == tvfs.TypeDirectory {
				href += "/"
				display += "/"
			}
			b.WriteString(fmt.Sprintf("%s <a href=\"%s\">%s</a>\n", entryStats(e), href, display))
		case ListingPlain:
			b.WriteString(fmt.Sprintf("%s %s\n", entryStats(e), e.Name))
		case ListingNDJSON:
			line, _ := json.Marshal(listingEntry{
				Name:  e.Name,
				MTime: e.ModTime.UnixMilli(),
				Type:  string(rune(e.Type)),
				Size:  e.Size,
			})
			b.Write(line)
			b.WriteByte('\n')
		}
		return []byte(b.String()), false, nil
	}

	if err := w.it.Err(); err != nil {
		_ = w.it.Close()
		return nil, true, err
	}
	_ = w.it.Close()

	if w.format == ListingHTML && !w.wroteEnd {
		w.wroteEnd = true
		b.WriteString("</pre></body></html>")
	}
	return []byte(b.String()), true, nil
}

func entryStats(e tvfs.Entry) string {
	return fmt.Sprintf("%c %10d %s", e.Type, e.Size, e.ModTime.UTC().Format("2006-01-02 15:04:05"))
}

// listingEntry is one NDJSON-encoded directory entry.
type listingEntry struct {
	Name  string `json:"name"`
	MTime int64  `json:"mtime"`
	Type  string `json:"type"`
	Size  int64  `json:"size"`
}
