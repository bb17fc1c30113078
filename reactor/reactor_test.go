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

package reactor_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor-httpd/reactor"
)

func TestReactor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reactor Suite")
}

type readyCall struct {
	readable, writable bool
}

func newPipe() (rfd, wfd int) {
	fds := make([]int, 2)
	Expect(unix.Pipe2(fds, unix.O_NONBLOCK)).To(Succeed())
	return fds[0], fds[1]
}

var _ = Describe("Reactor", func() {
	It("dispatches a readable event for data already waiting on the fd", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		rfd, wfd := newPipe()
		defer func() { _ = unix.Close(rfd); _ = unix.Close(wfd) }()

		calls := make(chan readyCall, 4)
		_, err = r.Register(rfd, reactor.OpRead, reactor.HandlerFunc(func(k *reactor.Key, readable, writable bool) {
			calls <- readyCall{readable, writable}
			_ = r.Cancel(k)
			r.Stop()
		}), nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = unix.Write(wfd, []byte("x"))
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		select {
		case c := <-calls:
			Expect(c.readable).To(BeTrue())
			Expect(c.writable).To(BeFalse())
		case <-time.After(2 * time.Second):
			Fail("timed out waiting for readiness callback")
		}

		select {
		case err := <-done:
			Expect(err).NotTo(HaveOccurred())
		case <-time.After(2 * time.Second):
			Fail("Run did not return after Stop")
		}
	})

	It("only reports interests the key currently holds, and SetInterest takes effect once posted onto the reactor thread", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		rfd, wfd := newPipe()
		defer func() { _ = unix.Close(rfd); _ = unix.Close(wfd) }()

		_, err = unix.Write(wfd, []byte("y"))
		Expect(err).NotTo(HaveOccurred())

		calls := make(chan readyCall, 4)
		k, err := r.Register(rfd, reactor.OpWrite, reactor.HandlerFunc(func(_ *reactor.Key, readable, writable bool) {
			calls <- readyCall{readable, writable}
		}), nil)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		// rfd is readable but the key only holds OpWrite, and a read end of a
		// pipe never reports EPOLLOUT, so nothing should fire yet.
		Consistently(calls, 200*time.Millisecond).ShouldNot(Receive())

		// SetInterest is only safe from the reactor's own thread, so it is
		// posted as a Task rather than called directly from this goroutine.
		r.Post(func() { _ = r.SetInterest(k, reactor.OpRead) })

		select {
		case c := <-calls:
			Expect(c.readable).To(BeTrue())
			Expect(c.writable).To(BeFalse())
		case <-time.After(2 * time.Second):
			Fail("timed out waiting for readiness after SetInterest")
		}

		r.Stop()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("does not re-invoke a callback that drops its own read interest while the fd is still readable", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		rfd, wfd := newPipe()
		defer func() { _ = unix.Close(rfd); _ = unix.Close(wfd) }()

		// Leave data in the pipe so rfd stays readable for the life of the
		// test: a level-triggered epoll would report it ready on every pass
		// unless the handler's own interest drop is honored immediately.
		_, err = unix.Write(wfd, []byte("abc"))
		Expect(err).NotTo(HaveOccurred())

		var calls int
		k, err := r.Register(rfd, reactor.OpRead, reactor.HandlerFunc(func(k *reactor.Key, readable, _ bool) {
			if readable {
				calls++
				Expect(r.SetInterest(k, 0)).To(Succeed())
			}
		}), nil)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		Eventually(func() int { return calls }, time.Second).Should(Equal(1))
		Consistently(func() int { return calls }, 300*time.Millisecond).Should(Equal(1))
		Expect(k.Interest() & reactor.OpRead).To(BeZero())

		r.Stop()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("never invokes the handler for a key canceled before Run starts", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		rfd, wfd := newPipe()
		defer func() { _ = unix.Close(rfd); _ = unix.Close(wfd) }()

		calls := make(chan readyCall, 4)
		k, err := r.Register(rfd, reactor.OpRead, reactor.HandlerFunc(func(_ *reactor.Key, readable, writable bool) {
			calls <- readyCall{readable, writable}
		}), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Cancel(k)).To(Succeed())
		Expect(k.IsCanceled()).To(BeTrue())

		_, err = unix.Write(wfd, []byte("z"))
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		Consistently(calls, 200*time.Millisecond).ShouldNot(Receive())

		r.Stop()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("runs a posted task on the reactor thread and wakes a blocked Wait", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		ran := make(chan struct{})
		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		r.Post(func() { close(ran) })

		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			Fail("posted task never ran")
		}

		r.Stop()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("returns from Run once a StopAt deadline passes, with nothing else happening", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		r.StopAt(time.Now().Add(50 * time.Millisecond))

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("returns ErrAlreadyRunning when Run is called concurrently", func() {
		r, err := reactor.New()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		done := make(chan error, 1)
		go func() { done <- r.Run() }()

		Eventually(func() error {
			return r.Run()
		}, 2*time.Second).Should(Equal(reactor.ErrAlreadyRunning))

		r.Stop()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})
})
