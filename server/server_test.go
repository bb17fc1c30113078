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

//go:build linux

package server_test

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nabbar/reactor-httpd/httpmsg"
	"github.com/nabbar/reactor-httpd/server"
)

var _ = Describe("Server", func() {
	It("accepts a real TCP connection and answers a registered route end to end", func() {
		reg := server.NewRegistry()
		reg.Handle("/hello", func(req *httpmsg.Request, _ []byte, w *httpmsg.Writer) {
			w.Status(200)
			w.HeadersBuilder().Set("Content-Type", "text/plain")
			_, _ = w.WriteString("hello, " + req.URI)
		})

		s := server.New(reg, nil)
		stats := server.NewStats(prometheus.NewRegistry())
		s.SetStats(stats)

		const port = 18743
		serveErr := make(chan error, 1)
		go func() { serveErr <- s.ListenAndServe("127.0.0.1", port) }()

		var conn net.Conn
		var err error
		Eventually(func() error {
			conn, err = net.DialTimeout("tcp", "127.0.0.1:18743", 200*time.Millisecond)
			return err
		}, 2*time.Second, 20*time.Millisecond).Should(Succeed())
		defer func() { _ = conn.Close() }()

		_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(200))

		Expect(testutil.ToFloat64(stats.ConnsAccepted)).To(Equal(1.0))

		s.Stop()
		Eventually(serveErr, 2*time.Second).Should(Receive(BeNil()))
		Expect(s.Close()).To(Succeed())
	})

	It("answers 404 for an unregistered route on a fresh connection", func() {
		reg := server.NewRegistry()
		s := server.New(reg, nil)

		const port = 18744
		serveErr := make(chan error, 1)
		go func() { serveErr <- s.ListenAndServe("127.0.0.1", port) }()

		var conn net.Conn
		var err error
		Eventually(func() error {
			conn, err = net.DialTimeout("tcp", "127.0.0.1:18744", 200*time.Millisecond)
			return err
		}, 2*time.Second, 20*time.Millisecond).Should(Succeed())
		defer func() { _ = conn.Close() }()

		_, err = conn.Write([]byte("GET /nope HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(404))

		s.Stop()
		Eventually(serveErr, 2*time.Second).Should(Receive(BeNil()))
		Expect(s.Close()).To(Succeed())
	})

	It("holds a connection unaccepted at the connection cap until a slot frees up", func() {
		reg := server.NewRegistry()
		reg.Handle("/hello", func(req *httpmsg.Request, _ []byte, w *httpmsg.Writer) {
			w.Status(200)
			_, _ = w.WriteString("hi")
		})

		s := server.New(reg, nil)
		s.SetLimits(1, 0, 0)

		const port = 18745
		serveErr := make(chan error, 1)
		go func() { serveErr <- s.ListenAndServe("127.0.0.1", port) }()

		var first, second net.Conn
		var err error
		Eventually(func() error {
			first, err = net.DialTimeout("tcp", "127.0.0.1:18745", 200*time.Millisecond)
			return err
		}, 2*time.Second, 20*time.Millisecond).Should(Succeed())
		defer func() { _ = first.Close() }()

		second, err = net.DialTimeout("tcp", "127.0.0.1:18745", 200*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = second.Close() }()

		_, err = second.Write([]byte("GET /hello HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(second.SetReadDeadline(time.Now().Add(300 * time.Millisecond))).To(Succeed())
		_, err = bufio.NewReader(second).ReadByte()
		Expect(err).To(HaveOccurred())

		Expect(first.Close()).To(Succeed())

		Expect(second.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		resp, err := http.ReadResponse(bufio.NewReader(second), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(200))

		s.Stop()
		Eventually(serveErr, 2*time.Second).Should(Receive(BeNil()))
		Expect(s.Close()).To(Succeed())
	})

	It("closes a connection that sits idle past the configured idle timeout", func() {
		reg := server.NewRegistry()
		s := server.New(reg, nil)
		s.SetLimits(0, 0, 150*time.Millisecond)

		const port = 18746
		serveErr := make(chan error, 1)
		go func() { serveErr <- s.ListenAndServe("127.0.0.1", port) }()

		var conn net.Conn
		var err error
		Eventually(func() error {
			conn, err = net.DialTimeout("tcp", "127.0.0.1:18746", 200*time.Millisecond)
			return err
		}, 2*time.Second, 20*time.Millisecond).Should(Succeed())
		defer func() { _ = conn.Close() }()

		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, err = bufio.NewReader(conn).ReadByte()
		Expect(err).To(Equal(io.EOF))

		s.Stop()
		Eventually(serveErr, 2*time.Second).Should(Receive(BeNil()))
		Expect(s.Close()).To(Succeed())
	})
})

