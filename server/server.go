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

// Package server ties the listener, reactor, connection layers and HTTP
// state machine together into the accept loop and lifecycle a running
// instance needs: configure (plain or TLS), listen_and_serve, stop, close.
package server

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor-httpd/conn"
	"github.com/nabbar/reactor-httpd/httpstate"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/reactor"
	"github.com/nabbar/reactor-httpd/tlsconn"
	"github.com/nabbar/reactor-httpd/workerpool"
)

// Server owns one listening socket and the reactor driving every connection
// accepted from it.
type Server struct {
	log   logging.Logger
	stats *Stats
	reg   *Registry

	tlsCfg *tls.Config
	pool   *workerpool.Pool

	maxConns    int
	bufSize     int
	idleTimeout time.Duration

	r        *reactor.Reactor
	listenFd int

	connMu sync.Mutex
	conns  map[int]closer

	stopOnce sync.Once
}

type closer interface {
	Close() error
}

// New builds a Server dispatching requests through reg. Pass a nil logger
// to discard log output.
func New(reg *Registry, log logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		log:      log,
		reg:      reg,
		conns:    make(map[int]closer),
		listenFd: -1,
	}
}

// ConfigureSSL arms TLS for every connection accepted from now on. Passing
// a nil cfg reverts to plaintext.
func (s *Server) ConfigureSSL(cfg *tls.Config) {
	s.tlsCfg = cfg
	if cfg != nil && s.pool == nil {
		s.pool = workerpool.Shared()
	}
}

// SetLimits configures the per-connection buffer size and idle timeout
// passed to every connection accepted from now on, and the maximum number
// of connections accepted concurrently. maxConns <= 0 means unbounded;
// bufSize <= 0 falls back to conn's own default; idleTimeout <= 0 disables
// idle timeouts.
func (s *Server) SetLimits(maxConns, bufSize int, idleTimeout time.Duration) {
	s.maxConns = maxConns
	s.bufSize = bufSize
	s.idleTimeout = idleTimeout
}

// SetStats attaches a metrics sink; optional.
func (s *Server) SetStats(stats *Stats) { s.stats = stats }

// ListenAndServe opens the listening socket, registers it with a fresh
// reactor, and blocks running the event loop until Stop is called.
func (s *Server) ListenAndServe(addr string, port int) error {
	fd, err := listen(addr, port)
	if err != nil {
		return fmt.Errorf("listen %s:%d: %w", addr, port, err)
	}
	s.listenFd = fd

	r, err := reactor.New()
	if err != nil {
		unix.Close(fd)
		return err
	}
	s.r = r

	_, err = r.Register(fd, reactor.OpRead, reactor.HandlerFunc(func(*reactor.Key, bool, bool) {
		s.acceptLoop()
	}), nil)
	if err != nil {
		unix.Close(fd)
		return err
	}

	s.log.Info("listening", nil, "addr", addr, "port", port, "tls", s.tlsCfg != nil)
	return r.Run()
}

// acceptLoop drains every pending connection up to maxConns (level-triggered
// epoll reports readiness again next pass if more remain, but draining now
// avoids an extra round trip through the loop), stopping early once the
// connection cap is reached. untrack calls back in once a slot frees up, so
// a backlog left unaccepted at the cap is picked up without waiting for the
// listening socket's own next readiness pass.
func (s *Server) acceptLoop() {
	for {
		if s.maxConns > 0 && s.connCount() >= s.maxConns {
			return
		}
		fd, ok, err := acceptNonblock(s.listenFd)
		if err != nil {
			s.log.Warn("accept failed", err)
			return
		}
		if !ok {
			return
		}
		s.onAccept(fd)
	}
}

func (s *Server) connCount() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}

func (s *Server) onAccept(fd int) {
	if s.stats != nil {
		s.stats.ConnsAccepted.Inc()
		s.stats.ConnsActive.Inc()
	}

	raw, err := conn.New(s.r, fd, s.bufSize, s.idleTimeout, s.log)
	if err != nil {
		s.log.Warn("register accepted connection", err)
		unix.Close(fd)
		if s.stats != nil {
			s.stats.ConnsActive.Dec()
		}
		return
	}

	if s.tlsCfg == nil {
		s.serveRaw(raw)
		return
	}
	s.serveTLS(raw)
}

func (s *Server) serveRaw(raw *conn.Conn) {
	s.track(raw.Fd(), raw)
	raw.SetOnClose(func(c *conn.Conn) {
		s.untrack(c.Fd())
		_ = c.Close()
	})
	raw.SetOnError(func(c *conn.Conn, reason string) {
		s.log.Debug("connection error", nil, "fd", c.Fd(), "reason", reason)
		if s.stats != nil {
			s.stats.ConnsErrored.Inc()
		}
		s.untrack(c.Fd())
		_ = c.Close()
	})

	m := httpstate.New(raw, s.reg.Dispatch, s.log)
	m.Start()
}

func (s *Server) serveTLS(raw *conn.Conn) {
	tc := tlsconn.Server(s.r, raw, s.tlsCfg, s.pool, s.log)
	s.track(tc.Fd(), tc)
	tc.SetOnClose(func(c *tlsconn.Conn) {
		s.untrack(c.Fd())
		_ = c.Close()
	})
	tc.SetOnError(func(c *tlsconn.Conn, reason string) {
		s.log.Debug("tls connection error", nil, "fd", c.Fd(), "reason", reason)
		if s.stats != nil {
			s.stats.TLSHandshakes.WithLabelValues("error").Inc()
			s.stats.ConnsErrored.Inc()
		}
		s.untrack(c.Fd())
		_ = c.Close()
	})

	m := httpstate.NewTLS(tc, s.reg.Dispatch, s.log)
	tc.Start()
	m.Start()
}

func (s *Server) track(fd int, c closer) {
	s.connMu.Lock()
	s.conns[fd] = c
	s.connMu.Unlock()
}

func (s *Server) untrack(fd int) {
	s.connMu.Lock()
	delete(s.conns, fd)
	s.connMu.Unlock()
	if s.stats != nil {
		s.stats.ConnsActive.Dec()
	}
	if s.maxConns > 0 {
		s.acceptLoop()
	}
}

// Stop asks the reactor to return from Run. Safe to call once; later calls
// are no-ops.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.r != nil {
			s.r.Stop()
		}
	})
}

// Close closes every live connection, the listening socket, the reactor
// and the shared TLS worker pool. Call only after ListenAndServe has
// returned.
func (s *Server) Close() error {
	s.connMu.Lock()
	conns := s.conns
	s.conns = make(map[int]closer)
	s.connMu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}

	var err error
	if s.listenFd >= 0 {
		err = unix.Close(s.listenFd)
		s.listenFd = -1
	}
	if s.r != nil {
		_ = s.r.Close()
	}
	if s.tlsCfg != nil {
		workerpool.ShutdownShared()
	}
	return err
}
