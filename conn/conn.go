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

// Package conn implements the raw, non-blocking connection layer that sits
// directly on a reactor.Reactor registration: one socket, an input and an
// output netbuf.ConnAware buffer, and a recv/send callback contract.
// Nothing in this package ever blocks; every read/write is a single
// non-blocking syscall driven by reactor readiness.
package conn

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor-httpd/buffer"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/netbuf"
	"github.com/nabbar/reactor-httpd/reactor"
)

const defaultBufferSize = 64 * 1024

// RecvFunc is invoked with the connection whose InBuffer holds newly
// received bytes (in its appending phase — call Flip or read Unread()).
type RecvFunc func(c *Conn)

// SendFunc is invoked once a send request has progressed per the partial/
// full-drain contract described on Send/SendPartial.
type SendFunc func(c *Conn)

// CloseFunc is invoked when a read reaches EOF; an explicit Close does not
// invoke it. It is expected to call Close itself if it has not already
// happened.
type CloseFunc func(c *Conn)

// ErrorFunc is invoked on I/O failure with a short reason string; sends
// never invoke their success callback on failure.
type ErrorFunc func(c *Conn, reason string)

// outMode selects how the output side is currently being drained.
type outMode uint8

const (
	outIdle outMode = iota
	outBuffer
	outPartial
	outScatter
)

// Conn is a single non-blocking TCP connection registered with a reactor.
// Invariant: recvCB is non-nil iff read interest is set on the key; sendCB
// is non-nil iff write interest is set.
type Conn struct {
	r   *reactor.Reactor
	fd  int
	key *reactor.Key
	log logging.Logger

	in  *netbuf.ConnAware
	out *netbuf.ConnAware

	recvCB    RecvFunc
	persist   bool
	sendCB    SendFunc
	mode      outMode
	scatter   [][]byte
	scatterAt int
	extBuf    *buffer.Buffer

	onClose CloseFunc
	onError ErrorFunc

	idleTimeout time.Duration
	idleTimer   *time.Timer

	closed bool
}

// New wraps fd (already non-blocking) in a Conn registered with r, with no
// initial interest. bufSize sizes the fixed input/output buffers (<= 0
// falls back to defaultBufferSize). idleTimeout, if positive, reports an
// "idle timeout" reason to the error callback once that long passes with no
// readable or writable event on it (closing is left to that callback);
// <= 0 disables the timer.
func New(r *reactor.Reactor, fd int, bufSize int, idleTimeout time.Duration, log logging.Logger) (*Conn, error) {
	if log == nil {
		log = logging.Discard()
	}
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	c := &Conn{r: r, fd: fd, log: log, idleTimeout: idleTimeout}

	c.in = netbuf.NewConnAware(bufSize, func(b *netbuf.Buffer) {})
	c.out = netbuf.NewConnAware(bufSize, func(b *netbuf.Buffer) {})

	key, err := r.Register(fd, 0, c, c)
	if err != nil {
		return nil, err
	}
	c.key = key
	c.armIdleTimer()
	return c, nil
}

// armIdleTimer starts the idle timer, if configured. The timer callback
// runs on its own goroutine (time.AfterFunc's contract), so it crosses
// back onto the reactor thread via Post before touching any Conn field,
// the same rule tlsconn.Conn follows for its own off-thread resumptions.
func (c *Conn) armIdleTimer() {
	if c.idleTimeout <= 0 {
		return
	}
	c.idleTimer = time.AfterFunc(c.idleTimeout, func() {
		c.r.Post(func() { c.onIdleTimeout() })
	})
}

// resetIdleTimer is called on every genuine I/O activity to push the
// deadline back out.
func (c *Conn) resetIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Reset(c.idleTimeout)
	}
}

func (c *Conn) onIdleTimeout() {
	if c.closed {
		return
	}
	c.fail("idle timeout")
}

// Fd returns the underlying file descriptor.
func (c *Conn) Fd() int { return c.fd }

// InBuffer returns the connection's input buffer.
func (c *Conn) InBuffer() *netbuf.ConnAware { return c.in }

// OutBuffer returns the connection's output buffer.
func (c *Conn) OutBuffer() *netbuf.ConnAware { return c.out }

// SetOnClose registers the close callback.
func (c *Conn) SetOnClose(cb CloseFunc) { c.onClose = cb }

// SetOnError registers the error callback.
func (c *Conn) SetOnError(cb ErrorFunc) { c.onError = cb }

func (c *Conn) interest() reactor.Ops {
	var ops reactor.Ops
	if c.recvCB != nil {
		ops |= reactor.OpRead
	}
	if c.sendCB != nil {
		ops |= reactor.OpWrite
	}
	return ops
}

func (c *Conn) syncInterest() {
	if c.closed {
		return
	}
	_ = c.r.SetInterest(c.key, c.interest())
}

// Recv arms a one-shot read notification: cb fires once on the next
// readable event, then read interest is cancelled automatically.
func (c *Conn) Recv(cb RecvFunc) {
	c.recvCB = cb
	c.persist = false
	c.syncInterest()
}

// RecvPersistent arms a continuing read notification: cb fires on every
// readable event until CancelRecv is called. Re-arming an already-armed
// read is idempotent — it replaces the callback without re-registering.
func (c *Conn) RecvPersistent(cb RecvFunc) {
	c.recvCB = cb
	c.persist = true
	c.syncInterest()
}

// CancelRecv clears the read callback and drops read interest.
func (c *Conn) CancelRecv() {
	c.recvCB = nil
	c.persist = false
	c.syncInterest()
}

// Send requests a full-drain notification of the current OutBuffer
// contents: cb fires only once every byte has been written.
func (c *Conn) Send(cb SendFunc) {
	c.sendCB = cb
	c.mode = outBuffer
	c.syncInterest()
}

// SendPartial requests notification after any non-zero write that still
// leaves bytes remaining, or once fully drained; either way write interest
// is then cancelled (the caller must call Send/SendPartial again to
// continue).
func (c *Conn) SendPartial(cb SendFunc) {
	c.sendCB = cb
	c.mode = outPartial
	c.syncInterest()
}

// SendScatter queues an externally owned sequence of byte slices for a
// scatter/gather write, notifying cb on full drain.
func (c *Conn) SendScatter(cb SendFunc, bufs [][]byte) {
	c.sendCB = cb
	c.mode = outScatter
	c.scatter = bufs
	c.scatterAt = 0
	c.syncInterest()
}

// SendBuffer queues a single externally owned buffer.Buffer (already
// flipped to its reading phase) for a zero-copy write, notifying cb on
// full drain.
func (c *Conn) SendBuffer(cb SendFunc, buf *buffer.Buffer) {
	c.sendCB = cb
	c.mode = outBuffer
	c.extBuf = buf
	c.syncInterest()
}

// Close closes the socket and invalidates the reactor key. Safe to call
// more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	_ = c.r.Cancel(c.key)
	return unix.Close(c.fd)
}

func (c *Conn) fail(reason string) {
	if c.onError != nil {
		c.onError(c, reason)
	}
}

// OnReady implements reactor.Handler. It is invoked from the reactor
// thread only.
func (c *Conn) OnReady(key *reactor.Key, readable, writable bool) {
	if c.closed {
		return
	}
	c.resetIdleTimer()
	if readable {
		c.handleRead()
	}
	if c.closed {
		return
	}
	if writable {
		c.handleWrite()
	}
}

// handleRead fills the in-buffer until EAGAIN or EOF, then delivers exactly
// one recv callback for everything read this pass. It never re-invokes a
// cancelled one-shot callback against stale readiness — interest is always
// recomputed from recvCB, not from the ready bits the OS handed back.
func (c *Conn) handleRead() {
	raw := c.in.Raw()
	raw.SetLimit(raw.Capacity())

	total := 0
	for {
		if raw.Position() >= raw.Capacity() {
			break
		}
		n, err := unix.Read(c.fd, raw.Raw()[raw.Position():raw.Capacity()])
		if n > 0 {
			raw.SetPosition(raw.Position() + n)
			total += n
			continue
		}
		if n == 0 {
			c.onEOF()
			return
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err == unix.EINTR {
			continue
		}
		c.fail(fmt.Sprintf("read: %v", err))
		return
	}

	if total == 0 {
		return
	}

	cb := c.recvCB
	if cb == nil {
		return
	}
	cb(c)
	if c.closed {
		return
	}
	if !c.persist {
		c.CancelRecv()
	}
}

func (c *Conn) onEOF() {
	if c.onClose != nil {
		c.onClose(c)
	}
}

// handleWrite dispatches a write-ready event across the three send modes
// (full buffer, partial, external scatter/single-buffer).
func (c *Conn) handleWrite() {
	switch c.mode {
	case outScatter:
		c.writeScatter()
	case outBuffer, outPartial:
		if c.extBuf != nil {
			c.writeExternal()
		} else {
			c.writeOutBuffer()
		}
	default:
	}
}

func (c *Conn) writeBytes(p []byte) (int, bool) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return written, true
		}
		if err == unix.EINTR {
			continue
		}
		c.fail(fmt.Sprintf("write: %v", err))
		return written, false
	}
	return written, true
}

// writeOutBuffer drains c.out as-is (not compacted): the caller is
// responsible for having flipped it to its reading phase before calling
// Send/SendPartial.
func (c *Conn) writeOutBuffer() {
	raw := c.out.Raw().Raw()
	remaining := c.out.Raw()
	start := remaining.Position()
	end := remaining.Limit()

	n, ok := c.writeBytes(raw[start:end])
	if !ok {
		return
	}
	remaining.SetPosition(start + n)

	c.finishWrite(remaining.Remaining() == 0)
}

func (c *Conn) writeExternal() {
	raw := c.extBuf.Raw()
	start := c.extBuf.Position()
	end := c.extBuf.Limit()

	n, ok := c.writeBytes(raw[start:end])
	if !ok {
		return
	}
	c.extBuf.SetPosition(start + n)

	drained := c.extBuf.Remaining() == 0
	if drained {
		c.extBuf = nil
	}
	c.finishWrite(drained)
}

func (c *Conn) writeScatter() {
	for c.scatterAt < len(c.scatter) {
		cur := c.scatter[c.scatterAt]
		n, ok := c.writeBytes(cur)
		if !ok {
			return
		}
		if n < len(cur) {
			c.scatter[c.scatterAt] = cur[n:]
			c.finishWrite(false)
			return
		}
		c.scatterAt++
	}
	c.scatter = nil
	c.scatterAt = 0
	c.finishWrite(true)
}

// finishWrite applies the partial/full-drain notification rule and then
// cancels write interest either way: after a partial notification or a
// full drain, the application must call Send/SendPartial again to
// continue.
func (c *Conn) finishWrite(drained bool) {
	if drained {
		cb := c.sendCB
		c.sendCB = nil
		c.mode = outIdle
		c.syncInterest()
		if cb != nil {
			cb(c)
		}
		return
	}

	if c.mode == outPartial {
		cb := c.sendCB
		c.sendCB = nil
		c.mode = outIdle
		c.syncInterest()
		if cb != nil {
			cb(c)
		}
	}
}
