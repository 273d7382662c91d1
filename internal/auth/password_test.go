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

package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/auth"
)

var _ = Describe("password hashing", func() {
	It("accepts the correct password", func() {
		hash, err := auth.HashPassword("correct horse battery staple")
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.ComparePassword(hash, "correct horse battery staple")).To(BeTrue())
	})

	It("rejects an incorrect password", func() {
		hash, err := auth.HashPassword("correct horse battery staple")
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.ComparePassword(hash, "wrong guess")).To(BeFalse())
	})

	It("produces a different hash on every call", func() {
		a, err := auth.HashPassword("same password")
		Expect(err).NotTo(HaveOccurred())
		b, err := auth.HashPassword("same password")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(a)).NotTo(Equal(string(b)))
	})
})
