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

package httpcore_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/httpcore"
)

var _ = Describe("Headers", func() {
	It("is case-insensitive on field names", func() {
		h := httpcore.NewHeaders()
		h.Set("Content-Type", "text/plain")

		v, ok := h.Get("content-type")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("text/plain"))
		Expect(h.Has("CONTENT-TYPE")).To(BeTrue())
	})

	It("folds repeated fields into a comma-joined list", func() {
		h := httpcore.NewHeaders()
		h.Add("X-FZ-Action", "move-from; path=/a")
		h.Add("X-FZ-Action", "move-to; path=/b")

		v, _ := h.Get("X-FZ-Action")
		Expect(v).To(Equal("move-from; path=/a, move-to; path=/b"))
	})

	It("splits list fields back out via AsList, trimming OWS", func() {
		h := httpcore.NewHeaders()
		h.Set("Accept", "text/html , application/ndjson,, text/plain")
		Expect(h.AsList("Accept")).To(Equal([]string{"text/html", "application/ndjson", "text/plain"}))
	})

	It("returns nil from AsList for an absent field", func() {
		Expect(httpcore.NewHeaders().AsList("Accept")).To(BeNil())
	})

	It("preserves insertion order in Names and honors Del", func() {
		h := httpcore.NewHeaders()
		h.Set("Server", "t")
		h.Set("Date", "now")
		h.Set("Connection", "close")
		h.Del("Date")
		Expect(h.Names()).To(Equal([]string{"server", "connection"}))
		Expect(h.Has("Date")).To(BeFalse())
	})

	It("keeps Set-Cookie values in their own multi-value slot", func() {
		h := httpcore.NewHeaders()
		h.AddSetCookie("a=1; Path=/")
		h.AddSetCookie("b=2; Path=/")
		Expect(h.SetCookies()).To(Equal([]string{"a=1; Path=/", "b=2; Path=/"}))
		Expect(h.Has("Set-Cookie")).To(BeFalse())
	})

	Describe("GetCookie", func() {
		It("extracts a named cookie from the Cookie header", func() {
			h := httpcore.NewHeaders()
			h.Set("Cookie", "access_token=abc; refresh_token=def")

			v, ok := h.GetCookie("refresh_token", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("def"))
		})

		It("percent-decodes cookie values", func() {
			h := httpcore.NewHeaders()
			h.Set("Cookie", "name=x%20y")

			v, ok := h.GetCookie("name", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("x y"))
		})

		It("reports absence", func() {
			h := httpcore.NewHeaders()
			h.Set("Cookie", "a=1")
			_, ok := h.GetCookie("b", true)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("ConnectionKeepAlive", func() {
		It("defaults to keep-alive on 1.1 and close on 1.0", func() {
			h := httpcore.NewHeaders()
			ka, ok := h.ConnectionKeepAlive("1.1")
			Expect(ok).To(BeTrue())
			Expect(ka).To(BeTrue())

			ka, ok = h.ConnectionKeepAlive("1.0")
			Expect(ok).To(BeTrue())
			Expect(ka).To(BeFalse())
		})

		It("lets an explicit header override the version default", func() {
			h := httpcore.NewHeaders()
			h.Set("Connection", "keep-alive")
			ka, ok := h.ConnectionKeepAlive("1.0")
			Expect(ok).To(BeTrue())
			Expect(ka).To(BeTrue())

			h.Set("Connection", "close")
			ka, ok = h.ConnectionKeepAlive("1.1")
			Expect(ok).To(BeTrue())
			Expect(ka).To(BeFalse())
		})

		It("rejects any value other than keep-alive or close", func() {
			h := httpcore.NewHeaders()
			h.Set("Connection", "upgrade")
			_, ok := h.ConnectionKeepAlive("1.1")
			Expect(ok).To(BeFalse())
		})
	})
})
