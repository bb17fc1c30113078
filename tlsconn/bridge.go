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

package tlsconn

import (
	"io"
	"net"
	"sync"
	"time"
)

// bridgeConn is the net.Conn crypto/tls.Conn is built on top of. It has no
// socket of its own: PushInbound feeds ciphertext the reactor read from the
// real socket (net-in) to whatever goroutine is blocked in Read — the
// "unwrap" side — while every Write (the "wrap" side, called from that same
// background goroutine during handshake or Conn.Write) is handed to
// outboundCB synchronously, which owns getting it back onto the reactor
// thread. Go's crypto/tls gives no lower-level wrap/unwrap API than
// Read/Write on a net.Conn, so this bridge is what stands in for an
// SSLEngine's wrap/unwrap steps.
type bridgeConn struct {
	mu     sync.Mutex
	cond   *sync.Cond
	in     []byte
	closed bool

	outboundCB func([]byte)
}

func newBridgeConn(outboundCB func([]byte)) *bridgeConn {
	b := &bridgeConn{outboundCB: outboundCB}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// PushInbound appends ciphertext read from the real socket (net-in) for a
// blocked Read to consume. Safe to call from the reactor thread.
func (b *bridgeConn) PushInbound(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.in = append(b.in, p...)
	b.cond.Broadcast()
	b.mu.Unlock()
}

func (b *bridgeConn) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.in) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.in) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.in)
	b.in = b.in[n:]
	return n, nil
}

// Write hands ciphertext produced by the TLS engine (net-out) to
// outboundCB, which is responsible for getting it back to the reactor
// thread (via reactor.Post) rather than touching connection state itself.
func (b *bridgeConn) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	b.outboundCB(cp)
	return len(p), nil
}

// Close unblocks any pending Read with io.EOF. Idempotent.
func (b *bridgeConn) Close() error {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
	return nil
}

type bridgeAddr struct{}

func (bridgeAddr) Network() string { return "tls-bridge" }
func (bridgeAddr) String() string  { return "tls-bridge" }

func (b *bridgeConn) LocalAddr() net.Addr                { return bridgeAddr{} }
func (b *bridgeConn) RemoteAddr() net.Addr               { return bridgeAddr{} }
func (b *bridgeConn) SetDeadline(_ time.Time) error      { return nil }
func (b *bridgeConn) SetReadDeadline(_ time.Time) error  { return nil }
func (b *bridgeConn) SetWriteDeadline(_ time.Time) error { return nil }
