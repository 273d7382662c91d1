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

package elist_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iynaix/filezilla-server-sub001/internal/elist"
)

func TestElist(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "elist suite")
}

var _ = Describe("List", func() {
	It("preserves insertion order", func() {
		l := elist.New[int]()
		l.PushBack(1)
		l.PushBack(2)
		l.PushBack(3)

		var got []int
		l.Each(func(n *elist.Node[int]) { got = append(got, n.Value) })
		Expect(got).To(Equal([]int{1, 2, 3}))
		Expect(l.Len()).To(Equal(3))
	})

	It("removes a middle node in O(1) without disturbing order", func() {
		l := elist.New[string]()
		l.PushBack("a")
		n := l.PushBack("b")
		l.PushBack("c")

		n.Remove()

		var got []string
		l.Each(func(n *elist.Node[string]) { got = append(got, n.Value) })
		Expect(got).To(Equal([]string{"a", "c"}))
		Expect(l.Len()).To(Equal(2))
	})

	It("tolerates double Remove", func() {
		l := elist.New[int]()
		n := l.PushBack(42)
		n.Remove()
		Expect(func() { n.Remove() }).ToNot(Panic())
		Expect(l.Len()).To(Equal(0))
	})

	It("drains every node exactly once via DrainEach", func() {
		l := elist.New[int]()
		l.PushBack(1)
		l.PushBack(2)

		var drained []int
		l.DrainEach(func(v int) { drained = append(drained, v) })

		Expect(drained).To(Equal([]int{1, 2}))
		Expect(l.Len()).To(Equal(0))

		var second []int
		l.DrainEach(func(v int) { second = append(second, v) })
		Expect(second).To(BeEmpty())
	})
})
