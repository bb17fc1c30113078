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

// Package tlsconn layers a TLS overlay over conn.Conn presenting the same
// recv/send callback contract. Go's crypto/tls exposes no lower-level
// wrap/unwrap step API (unlike javax.net.ssl.SSLEngine), so the engine here
// is a real *tls.Conn driven over an in-process bridgeConn: handshake and
// Conn.Read/Write calls run on a workerpool goroutine, and every result
// crosses back onto the reactor thread via reactor.Post before touching any
// connection state, preserving the single-threaded-owns-state guarantee the
// rest of this module relies on.
package tlsconn

import (
	"crypto/tls"
	"fmt"
	"io"

	"github.com/nabbar/reactor-httpd/conn"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/netbuf"
	"github.com/nabbar/reactor-httpd/reactor"
	"github.com/nabbar/reactor-httpd/workerpool"
)

const (
	appBufferSize = 32 * 1024
	netBufferSize = 32 * 1024
)

// RecvFunc is invoked with the TLS connection whose AppInBuffer holds
// newly decrypted bytes.
type RecvFunc func(c *Conn)

// SendFunc is invoked once queued cleartext has been fully encrypted and
// handed to the raw connection's send path.
type SendFunc func(c *Conn)

// CloseFunc is invoked exactly once, on peer EOF or a completed
// close_notify exchange.
type CloseFunc func(c *Conn)

// ErrorFunc is invoked on I/O or TLS engine failure with a short reason.
type ErrorFunc func(c *Conn, reason string)

// Conn is a TLS-wrapped connection. It is only ever touched from the
// reactor thread; its bridge and pool goroutines only ever communicate back
// in via reactor.Post closures, never by touching Conn fields directly.
type Conn struct {
	raw  *conn.Conn
	r    *reactor.Reactor
	pool *workerpool.Pool
	log  logging.Logger

	tls    *tls.Conn
	bridge *bridgeConn

	// appIn holds cleartext delivered to the application; appOut buffers
	// cleartext the application handed us to encrypt; netIn stages raw
	// ciphertext as it arrives from the socket before it is pushed into the
	// bridge; netOut buffers ciphertext produced by the engine, waiting to
	// be handed to the raw connection's send path.
	appIn  *netbuf.ConnAware
	appOut *netbuf.ConnAware
	netIn  *netbuf.ConnAware
	netOut *netbuf.ConnAware

	recvCB  RecvFunc
	persist bool
	sendCB  SendFunc

	onClose CloseFunc
	onError ErrorFunc

	handshakeDone bool
	readInFlight  bool
	writeInFlight bool
	closing       bool
	closed        bool
	peerClosed    bool
}

// Server wraps raw in a server-side TLS connection using cfg and pool for
// delegated (handshake/record) work. Call Start to begin the handshake.
func Server(r *reactor.Reactor, raw *conn.Conn, cfg *tls.Config, pool *workerpool.Pool, log logging.Logger) *Conn {
	if log == nil {
		log = logging.Discard()
	}
	if pool == nil {
		pool = workerpool.Shared()
	}

	c := &Conn{raw: raw, r: r, pool: pool, log: log}

	c.appIn = netbuf.NewConnAware(appBufferSize, func(*netbuf.Buffer) {})
	c.appOut = netbuf.NewConnAware(appBufferSize, func(*netbuf.Buffer) {})
	c.netIn = netbuf.NewConnAware(netBufferSize, func(*netbuf.Buffer) {})
	c.netOut = netbuf.NewConnAware(netBufferSize, func(*netbuf.Buffer) {})

	c.bridge = newBridgeConn(func(ciphertext []byte) { c.onEngineWrite(ciphertext) })
	c.tls = tls.Server(c.bridge, cfg)

	raw.SetOnClose(func(*conn.Conn) { c.handlePeerClosed() })
	raw.SetOnError(func(_ *conn.Conn, reason string) { c.fail(reason) })

	return c
}

// Fd returns the underlying socket descriptor.
func (c *Conn) Fd() int { return c.raw.Fd() }

// AppInBuffer returns the cleartext buffer delivered to recv callbacks.
func (c *Conn) AppInBuffer() *netbuf.ConnAware { return c.appIn }

// AppOutBuffer returns the cleartext buffer the application writes to
// before calling Send/SendPartial.
func (c *Conn) AppOutBuffer() *netbuf.ConnAware { return c.appOut }

// SetOnClose registers the close callback, fired once on peer EOF or a
// controlled close_notify exchange. An EOF without a preceding close_notify
// is treated as a graceful close here, not surfaced as an error.
func (c *Conn) SetOnClose(cb CloseFunc) { c.onClose = cb }

// SetOnError registers the error callback.
func (c *Conn) SetOnError(cb ErrorFunc) { c.onError = cb }

// Start begins the handshake on the worker pool and arms the raw
// connection's persistent recv so ciphertext keeps flowing into the
// bridge while it runs.
func (c *Conn) Start() {
	c.raw.RecvPersistent(func(rc *conn.Conn) { c.feedInbound(rc) })
	c.runHandshake()
}

func (c *Conn) feedInbound(rc *conn.Conn) {
	in := rc.InBuffer()
	data := in.Unread()
	if len(data) == 0 {
		in.Reset()
		return
	}

	netIn := c.netIn.Raw()
	netIn.Clear()
	_, _ = netIn.Put(data)
	in.Reset()

	netIn.Flip()
	c.bridge.PushInbound(netIn.Bytes())
	netIn.Clear()

	if c.handshakeDone {
		c.scheduleRead()
	}
}

// runHandshake drives tls.Conn.Handshake on the worker pool (an SSLEngine's
// NEED_TASK/NEED_UNWRAP/NEED_WRAP steps folded together, since crypto/tls
// hides the per-record substates behind a single blocking call) and posts
// the outcome back to the reactor thread.
func (c *Conn) runHandshake() {
	c.pool.Submit(func() {
		err := c.tls.Handshake()
		c.r.Post(func() {
			if c.closed {
				return
			}
			if err != nil {
				c.fail(fmt.Sprintf("tls handshake: %v", err))
				return
			}
			c.handshakeDone = true
			if c.recvCB != nil {
				c.scheduleRead()
			}
		})
	})
}

// scheduleRead submits one blocking tls.Conn.Read to the worker pool if one
// is not already in flight, preserving the "at most one in-flight unwrap
// chain" guarantee.
func (c *Conn) scheduleRead() {
	if c.readInFlight || c.closed {
		return
	}
	c.readInFlight = true
	c.pool.Submit(func() {
		buf := make([]byte, appBufferSize)
		n, err := c.tls.Read(buf)
		c.r.Post(func() {
			c.readInFlight = false
			if c.closed {
				return
			}
			if err != nil {
				if err == io.EOF {
					c.handlePeerClosed()
				} else {
					c.fail(fmt.Sprintf("tls read: %v", err))
				}
				return
			}
			c.deliverApp(buf[:n])
		})
	})
}

func (c *Conn) deliverApp(p []byte) {
	raw := c.appIn.Raw()
	raw.Clear()
	_, _ = raw.Put(p)
	raw.Flip()

	cb := c.recvCB
	if !c.persist {
		c.recvCB = nil
	}
	if cb != nil {
		cb(c)
	}
	if c.recvCB != nil && !c.closed {
		c.scheduleRead()
	}
}

// Recv arms a one-shot cleartext read notification.
func (c *Conn) Recv(cb RecvFunc) {
	c.recvCB = cb
	c.persist = false
	if c.handshakeDone {
		c.scheduleRead()
	}
}

// RecvPersistent arms a continuing cleartext read notification.
func (c *Conn) RecvPersistent(cb RecvFunc) {
	c.recvCB = cb
	c.persist = true
	if c.handshakeDone {
		c.scheduleRead()
	}
}

// CancelRecv clears the cleartext read callback.
func (c *Conn) CancelRecv() {
	c.recvCB = nil
	c.persist = false
}

// Send encrypts the contents of AppOutBuffer (already flipped to its
// reading phase) and hands the ciphertext to the raw connection, notifying
// cb once fully drained.
func (c *Conn) Send(cb SendFunc) {
	c.sendCB = cb
	c.scheduleWrite()
}

// scheduleWrite submits one blocking tls.Conn.Write to the worker pool,
// preserving the "at most one in-flight wrap chain" guarantee.
func (c *Conn) scheduleWrite() {
	if c.writeInFlight || c.closed {
		return
	}
	raw := c.appOut.Raw()
	p := append([]byte(nil), raw.Bytes()...)
	if len(p) == 0 {
		cb := c.sendCB
		c.sendCB = nil
		if cb != nil {
			cb(c)
		}
		return
	}

	c.writeInFlight = true
	c.pool.Submit(func() {
		_, err := c.tls.Write(p)
		c.r.Post(func() {
			c.writeInFlight = false
			if c.closed {
				return
			}
			if err != nil {
				c.fail(fmt.Sprintf("tls write: %v", err))
				return
			}
			c.appOut.Raw().Clear()
			cb := c.sendCB
			c.sendCB = nil
			if cb != nil {
				cb(c)
			}
		})
	})
}

// onEngineWrite runs on whichever goroutine is driving the TLS engine
// (handshake or Conn.Write); it must not touch Conn state directly, so it
// only ever posts a resume task to the reactor — the net-out drain itself
// happens on the reactor thread inside flushNetOut.
func (c *Conn) onEngineWrite(ciphertext []byte) {
	c.r.Post(func() {
		if c.closed {
			return
		}
		raw := c.netOut.Raw()
		if _, err := raw.Put(ciphertext); err != nil {
			c.fail("tls net-out buffer overflow")
			return
		}
		c.flushNetOut()
	})
}

// flushNetOut hands whatever ciphertext has accumulated in netOut to the
// raw connection's send path. Only one flush is ever in flight: further
// appends while a flush is draining simply grow netOut, picked up by the
// next flushNetOut call once the current one completes.
func (c *Conn) flushNetOut() {
	raw := c.netOut.Raw()
	if raw.Position() == 0 {
		return
	}
	raw.Flip()
	c.raw.SendBuffer(func(*conn.Conn) {
		c.netOut.Raw().Clear()
		if c.closing {
			c.finishClose()
		}
	}, raw)
}

func (c *Conn) fail(reason string) {
	if c.onError != nil {
		c.onError(c, reason)
	}
}

// handlePeerClosed treats any EOF — with or without a preceding
// close_notify — as a graceful close.
func (c *Conn) handlePeerClosed() {
	if c.closed || c.peerClosed {
		return
	}
	c.peerClosed = true
	if c.onClose != nil {
		c.onClose(c)
	}
}

// Close initiates a close_notify handshake and closes the underlying raw
// connection once the notification has drained.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closing = true
	c.pool.Submit(func() {
		_ = c.tls.Close()
		c.r.Post(func() {
			if c.netOut.Raw().Position() == 0 {
				c.finishClose()
			}
		})
	})
	return nil
}

func (c *Conn) finishClose() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.bridge.Close()
	_ = c.raw.Close()
}
