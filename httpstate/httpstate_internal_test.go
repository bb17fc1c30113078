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

// White-box suite: drive() and its step* phases are only reachable through
// the unexported transport interface, so this file stays in package
// httpstate (rather than httpstate_test) to supply a fake implementation
// directly, instead of standing up real sockets just to exercise parsing.
package httpstate

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/reactor-httpd/httpmsg"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/netbuf"
)

func TestHTTPState(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HTTPState Suite")
}

type sentBatch struct {
	frames [][]byte
	done   func()
}

type fakeTransport struct {
	in      *netbuf.ConnAware
	armed   func()
	closed  bool
	batches []sentBatch
}

func newFakeTransport(capacity int) *fakeTransport {
	return &fakeTransport{in: netbuf.NewConnAware(capacity, func(*netbuf.Buffer) {})}
}

func (f *fakeTransport) InBuffer() *netbuf.ConnAware { return f.in }
func (f *fakeTransport) ArmRecv(cb func())           { f.armed = cb }
func (f *fakeTransport) Close() error                { f.closed = true; return nil }

func (f *fakeTransport) SendFrames(cb func(), frames [][]byte) {
	f.batches = append(f.batches, sentBatch{frames: frames, done: cb})
}

// feed appends data to the buffer's write cursor and invokes the armed recv
// callback, as the reactor would after a readable event.
func (f *fakeTransport) feed(data []byte) {
	raw := f.in.Raw()
	pos := raw.Position()
	copy(raw.Raw()[pos:], data)
	raw.SetPosition(pos + len(data))
	if f.armed != nil {
		f.armed()
	}
}

func joinBatch(b sentBatch) string {
	var out bytes.Buffer
	for _, f := range b.frames {
		out.Write(f)
	}
	return out.String()
}

var _ = Describe("Machine", func() {
	It("parses a simple GET and dispatches it once headers terminate", func() {
		ft := newFakeTransport(4096)
		var gotURI string
		m := newMachine(ft, func(req *httpmsg.Request, _ []byte, w *httpmsg.Writer) {
			gotURI = req.URI
			w.Status(200)
			_, _ = w.WriteString("ok")
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("GET /hello HTTP/1.1\r\nHost: test\r\n\r\n"))

		Expect(gotURI).To(Equal("/hello"))
		Expect(ft.batches).To(HaveLen(1))
		Expect(joinBatch(ft.batches[0])).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(joinBatch(ft.batches[0])).To(HaveSuffix("ok"))
	})

	It("folds a header continuation line onto the preceding header", func() {
		ft := newFakeTransport(4096)
		var gotValue string
		m := newMachine(ft, func(req *httpmsg.Request, _ []byte, w *httpmsg.Writer) {
			gotValue, _ = req.Headers.Get("X-Long")
			w.Status(200)
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("GET / HTTP/1.1\r\nX-Long: part-one\r\n continued\r\n\r\n"))

		Expect(gotValue).To(Equal("part-one continued"))
	})

	It("delivers the body to a POST request", func() {
		ft := newFakeTransport(4096)
		var gotBody string
		m := newMachine(ft, func(req *httpmsg.Request, body []byte, w *httpmsg.Writer) {
			gotBody = string(body)
			w.Status(200)
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))

		Expect(gotBody).To(Equal("hello"))
	})

	It("resumes parsing a second pipelined request once the first response drains", func() {
		ft := newFakeTransport(4096)
		seen := 0
		m := newMachine(ft, func(req *httpmsg.Request, _ []byte, w *httpmsg.Writer) {
			seen++
			w.Status(200)
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n"))
		Expect(ft.batches).To(HaveLen(1))
		Expect(seen).To(Equal(1))

		ft.batches[0].done()

		Expect(ft.batches).To(HaveLen(2))
		Expect(seen).To(Equal(2))
	})

	It("answers a malformed request line with an error response and closes after it drains", func() {
		ft := newFakeTransport(4096)
		m := newMachine(ft, func(*httpmsg.Request, []byte, *httpmsg.Writer) {
			Fail("dispatch should not run for a malformed request")
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("GARBAGE\r\n\r\n"))

		Expect(ft.batches).To(HaveLen(1))
		Expect(joinBatch(ft.batches[0])).To(HavePrefix("HTTP/1.0 400"))
		Expect(joinBatch(ft.batches[0])).To(ContainSubstring("Connection: close"))

		ft.batches[0].done()
		Expect(ft.closed).To(BeTrue())
	})

	It("waits for more input when the request line hasn't fully arrived", func() {
		ft := newFakeTransport(4096)
		m := newMachine(ft, func(*httpmsg.Request, []byte, *httpmsg.Writer) {
			Fail("dispatch should not run before the request is complete")
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("GET /partial HTTP/1.1\r\n"))
		Expect(ft.batches).To(BeEmpty())

		ft.feed([]byte("\r\n"))
		Expect(ft.batches).To(HaveLen(1))
	})

	It("waits for the full Content-Length body to arrive before dispatching", func() {
		ft := newFakeTransport(4096)
		var gotBody string
		m := newMachine(ft, func(req *httpmsg.Request, body []byte, w *httpmsg.Writer) {
			gotBody = string(body)
			w.Status(200)
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("POST /submit HTTP/1.1\r\nContent-Length: 10\r\n\r\nhel"))
		Expect(ft.batches).To(BeEmpty())

		ft.feed([]byte("lo world"))
		Expect(ft.batches).To(HaveLen(1))
		Expect(gotBody).To(Equal("hello worl"))
	})

	It("leaves pipelined bytes past a fully-delivered Content-Length body untouched", func() {
		ft := newFakeTransport(4096)
		var gotBody, gotURI string
		m := newMachine(ft, func(req *httpmsg.Request, body []byte, w *httpmsg.Writer) {
			gotBody = string(body)
			gotURI = req.URI
			w.Status(200)
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("POST /a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhelloGET /b HTTP/1.1\r\n\r\n"))
		Expect(ft.batches).To(HaveLen(1))
		Expect(gotBody).To(Equal("hello"))
		Expect(gotURI).To(Equal("/a"))

		ft.batches[0].done()
		Expect(ft.batches).To(HaveLen(2))
		Expect(gotURI).To(Equal("/b"))
	})

	It("answers 413 when Content-Length can never fit the buffer's remaining room", func() {
		ft := newFakeTransport(64)
		m := newMachine(ft, func(*httpmsg.Request, []byte, *httpmsg.Writer) {
			Fail("dispatch should not run for an oversized body")
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("POST /big HTTP/1.1\r\nContent-Length: 1000\r\n\r\n"))

		Expect(ft.batches).To(HaveLen(1))
		Expect(joinBatch(ft.batches[0])).To(HavePrefix("HTTP/1.1 413"))
		Expect(joinBatch(ft.batches[0])).To(ContainSubstring("Connection: close"))

		ft.batches[0].done()
		Expect(ft.closed).To(BeTrue())
	})

	It("answers 400 for a malformed Content-Length header", func() {
		ft := newFakeTransport(4096)
		m := newMachine(ft, func(*httpmsg.Request, []byte, *httpmsg.Writer) {
			Fail("dispatch should not run for a malformed Content-Length")
		}, logging.Discard())
		m.Start()

		ft.feed([]byte("POST /submit HTTP/1.1\r\nContent-Length: nope\r\n\r\n"))

		Expect(ft.batches).To(HaveLen(1))
		Expect(joinBatch(ft.batches[0])).To(HavePrefix("HTTP/1.1 400"))
	})
})
