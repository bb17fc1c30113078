/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package httpmsg_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/reactor-httpd/httpmsg"
)

func joinFrames(frames [][]byte) string {
	var b bytes.Buffer
	for _, f := range frames {
		b.Write(f)
	}
	return b.String()
}

var _ = Describe("Writer", func() {
	It("defaults to 200 OK with Content-Length computed from the body", func() {
		w := httpmsg.NewWriter(4096)
		_, _ = w.WriteString("hello")
		out := joinFrames(w.Finish())

		Expect(out).To(HavePrefix("HTTP/1.0 200 OK\r\n"))
		Expect(out).To(ContainSubstring("Content-Length: 5\r\n"))
		Expect(out).To(HaveSuffix("\r\n\r\nhello"))
	})

	It("honors an explicit status and does not overwrite an explicit Content-Length", func() {
		w := httpmsg.NewWriter(4096)
		w.Status(404)
		w.HeadersBuilder().Set("Content-Length", "0")
		out := joinFrames(w.Finish())

		Expect(out).To(HavePrefix("HTTP/1.0 404 Not Found\r\n"))
		Expect(strings.Count(out, "Content-Length:")).To(Equal(1))
		Expect(out).To(ContainSubstring("Content-Length: 0\r\n"))
	})

	It("adds Connection: close when SetConnectionClose is requested", func() {
		w := httpmsg.NewWriter(4096)
		w.SetConnectionClose()
		Expect(w.WantsClose()).To(BeTrue())

		out := joinFrames(w.Finish())
		Expect(out).To(ContainSubstring("Connection: close\r\n"))
	})

	It("reflects the minor version passed to Reset in the status line", func() {
		w := httpmsg.NewWriter(4096)
		w.Reset(1)
		out := joinFrames(w.Finish())
		Expect(out).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
	})

	It("Reset clears body byte count and headers for the next pipelined response", func() {
		w := httpmsg.NewWriter(4096)
		_, _ = w.WriteString("first")
		w.Finish()

		w.Reset(0)
		Expect(w.BodyBytes()).To(Equal(0))
		_, _ = w.WriteString("ab")
		out := joinFrames(w.Finish())
		Expect(out).To(ContainSubstring("Content-Length: 2\r\n"))
		Expect(out).To(HaveSuffix("ab"))
	})
})
