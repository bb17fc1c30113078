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

// Package httpstate implements the per-connection HTTP/1.1 request state
// machine: REQUEST_START -> REQUEST_HEADERS -> MESSAGE_BODY -> dispatch ->
// REQUEST_START, driven incrementally off whatever bytes a connection's
// in-buffer holds at each recv, and resuming after a response fully drains
// so pipelined requests are served without waiting on a fresh socket event.
package httpstate

import (
	"bytes"
	"strconv"

	"github.com/nabbar/reactor-httpd/conn"
	"github.com/nabbar/reactor-httpd/httpmsg"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/netbuf"
	"github.com/nabbar/reactor-httpd/parse"
	"github.com/nabbar/reactor-httpd/rherr"
	"github.com/nabbar/reactor-httpd/tlsconn"
)

// transport is the connection surface the state machine drives: either a
// raw conn.Conn or a TLS-wrapped tlsconn.Conn, adapted below since the two
// packages' own recv/send callbacks are parameterized over their own
// connection type rather than a shared interface.
type transport interface {
	InBuffer() *netbuf.ConnAware
	ArmRecv(cb func())
	SendFrames(cb func(), frames [][]byte)
	Close() error
}

type rawTransport struct{ c *conn.Conn }

func (t rawTransport) InBuffer() *netbuf.ConnAware { return t.c.InBuffer() }
func (t rawTransport) ArmRecv(cb func())           { t.c.RecvPersistent(func(*conn.Conn) { cb() }) }
func (t rawTransport) Close() error                { return t.c.Close() }

func (t rawTransport) SendFrames(cb func(), frames [][]byte) {
	t.c.SendScatter(func(*conn.Conn) { cb() }, frames)
}

type tlsTransport struct{ c *tlsconn.Conn }

func (t tlsTransport) InBuffer() *netbuf.ConnAware { return t.c.AppInBuffer() }
func (t tlsTransport) ArmRecv(cb func())           { t.c.RecvPersistent(func(*tlsconn.Conn) { cb() }) }
func (t tlsTransport) Close() error                { return t.c.Close() }

// SendFrames stages frames into the TLS connection's application-layer
// output buffer (there is no scatter/gather write once encryption is in
// the way) and lets the engine pick them up as one Write.
func (t tlsTransport) SendFrames(cb func(), frames [][]byte) {
	raw := t.c.AppOutBuffer().Raw()
	raw.Clear()
	for _, f := range frames {
		_, _ = raw.Put(f)
	}
	raw.Flip()
	t.c.Send(func(*tlsconn.Conn) { cb() })
}

const responseSegmentSize = 4096

type state uint8

const (
	stateRequestStart state = iota
	stateRequestHeaders
	stateMessageBody
	stateServerError
)

// Dispatch is the registered request handler: given the parsed request and
// its body bytes (empty for GET/HEAD), it composes a response into w.
type Dispatch func(req *httpmsg.Request, body []byte, w *httpmsg.Writer)

// Machine is one connection's HTTP parser/dispatcher pair. Not safe for
// concurrent use; like everything else here it only ever runs on the
// reactor thread.
type Machine struct {
	c    transport
	log  logging.Logger
	call Dispatch

	st      state
	req     *httpmsg.Request
	writer  *httpmsg.Writer
	lastHdr string
	errCode *rherr.Error
}

// New builds a state machine for a plaintext connection, dispatching
// completed requests to call.
func New(c *conn.Conn, call Dispatch, log logging.Logger) *Machine {
	return newMachine(rawTransport{c}, call, log)
}

// NewTLS builds a state machine for a TLS-wrapped connection.
func NewTLS(c *tlsconn.Conn, call Dispatch, log logging.Logger) *Machine {
	return newMachine(tlsTransport{c}, call, log)
}

func newMachine(t transport, call Dispatch, log logging.Logger) *Machine {
	if log == nil {
		log = logging.Discard()
	}
	return &Machine{
		c:      t,
		log:    log,
		call:   call,
		st:     stateRequestStart,
		req:    httpmsg.NewRequest(),
		writer: httpmsg.NewWriter(responseSegmentSize),
	}
}

// Start arms the connection's persistent recv and begins parsing.
func (m *Machine) Start() {
	m.c.ArmRecv(func() { m.drive() })
}

// drive runs the state machine as far as the currently buffered bytes
// allow, stopping either because more input is needed or because a
// response has been handed off to the connection's send path.
func (m *Machine) drive() {
	for {
		switch m.st {
		case stateRequestStart:
			if !m.stepRequestLine() {
				return
			}
		case stateRequestHeaders:
			if !m.stepHeaders() {
				return
			}
		case stateMessageBody:
			if !m.stepBody() || m.st == stateMessageBody {
				return
			}
		case stateServerError:
			m.stepError()
			return
		}
	}
}

func (m *Machine) validWindow() []byte {
	return m.c.InBuffer().Raw().Raw()[:m.c.InBuffer().WritePos()]
}

func (m *Machine) bufferFull() bool {
	nb := m.c.InBuffer()
	return nb.WritePos() >= nb.Capacity()
}

// stepRequestLine parses "METHOD SP URI SP HTTP/1.x CRLF". Returns false to
// request more input; true to continue the drive loop (either advancing to
// REQUEST_HEADERS or failing into SERVER_ERROR).
func (m *Machine) stepRequestLine() bool {
	nb := m.c.InBuffer()
	line, next, ok, err := parse.Line(m.validWindow(), nb.Start(), m.bufferFull())
	if err != nil {
		m.fail(rherr.New(rherr.CodeURITooLong, "request line exceeds buffer capacity"))
		return true
	}
	if !ok {
		return false
	}
	nb.MarkStart(next)

	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		m.fail(rherr.New(rherr.CodeBadRequest, "malformed request line"))
		return true
	}
	method := string(parts[0])
	if !parse.Method(method) {
		m.fail(rherr.New(rherr.CodeBadRequest, "unknown method"))
		return true
	}
	minor, ok := parse.Version(string(parts[2]))
	if !ok {
		m.fail(rherr.New(rherr.CodeBadRequest, "unsupported HTTP version"))
		return true
	}

	m.req.Method = method
	m.req.URI = string(parts[1])
	m.req.Minor = minor
	m.st = stateRequestHeaders
	return true
}

// stepHeaders consumes every header line currently buffered, including
// folded continuations, stopping at the bare CRLF terminator.
func (m *Machine) stepHeaders() bool {
	nb := m.c.InBuffer()
	for {
		line, next, ok, err := parse.Line(m.validWindow(), nb.Start(), m.bufferFull())
		if err != nil {
			m.fail(rherr.New(rherr.CodeURITooLong, "header line exceeds buffer capacity"))
			return true
		}
		if !ok {
			return false
		}
		nb.MarkStart(next)

		if len(line) == 0 {
			m.st = stateMessageBody
			return true
		}

		if parse.IsWhitespace(line[0]) {
			if m.lastHdr == "" {
				m.fail(rherr.New(rherr.CodeBadRequest, "continuation with no preceding header"))
				return true
			}
			m.req.Headers.AppendValue(m.lastHdr, string(parse.Text(line)))
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			m.fail(rherr.New(rherr.CodeBadRequest, "malformed header line"))
			return true
		}
		name, n := parse.Token(line[:colon])
		if n != colon || n == 0 {
			m.fail(rherr.New(rherr.CodeBadRequest, "malformed header name"))
			return true
		}
		value := parse.Text(line[colon+1:])
		canon := httpmsg.Canonicalize(string(name))
		m.req.Headers.Add(canon, string(value))
		m.lastHdr = canon

		if canon == "Content-Length" {
			n, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil || n < 0 {
				m.fail(rherr.New(rherr.CodeBadRequest, "malformed Content-Length header"))
				return true
			}
			m.req.ContentLength = n
		}
	}
}

// stepBody resolves the message body and dispatches to the registered
// handler. GET/HEAD never carry a body; Start() is already past the
// blank-line terminator, so it is left untouched rather than swallowing
// bytes of a pipelined next request that may already be buffered.
//
// For other methods: when Content-Length was present and valid, the body is
// length-delimited — stepBody waits (returning false, re-entered on the next
// recv) until that many bytes are buffered, or fails the request with 413 if
// the length can never fit the buffer's remaining room. Without a usable
// Content-Length, the single raw remaining chunk is delivered as-is; bytes
// arriving after it are not part of this request's body.
func (m *Machine) stepBody() bool {
	nb := m.c.InBuffer()

	if m.req.Method == "GET" || m.req.Method == "HEAD" {
		m.req.Disposition = httpmsg.Ignore
		m.dispatchBody(nil)
		return true
	}
	m.req.Disposition = httpmsg.Read

	if m.req.ContentLength >= 0 {
		need := m.req.ContentLength
		if need > int64(nb.Capacity()-nb.Start()) {
			m.fail(rherr.New(rherr.CodePayloadTooLarge, "request body exceeds buffer capacity"))
			return true
		}
		if int64(len(nb.Unread())) < need {
			return false
		}
		body := append([]byte(nil), nb.Unread()[:need]...)
		nb.MarkStart(nb.Start() + int(need))
		m.dispatchBody(body)
		return true
	}

	body := append([]byte(nil), nb.Unread()...)
	nb.MarkStart(nb.WritePos())
	m.dispatchBody(body)
	return true
}

func (m *Machine) dispatchBody(body []byte) {
	m.writer.Reset(m.req.Minor)
	if m.call != nil {
		m.call(m.req, body, m.writer)
	}
	m.sendResponse()
}

// stepError composes a response carrying the status of the error raised by
// an earlier phase, with the error's message as a text/plain body, and
// always closes afterward, since the
// parser's position in the stream can no longer be trusted.
func (m *Machine) stepError() {
	code := m.errCode
	m.errCode = nil

	m.writer.Reset(m.req.Minor)
	m.writer.Status(code.Status())
	m.writer.HeadersBuilder().Set("Content-Type", "text/plain; charset=utf-8")
	m.writer.SetConnectionClose()
	_, _ = m.writer.WriteString(code.Error())

	m.sendResponse()
}

func (m *Machine) sendResponse() {
	frames := m.writer.Finish()
	wantsClose := m.writer.WantsClose()

	m.c.SendFrames(func() {
		if wantsClose {
			_ = m.c.Close()
			return
		}
		m.reset()
		m.drive()
	}, frames)
}

// reset returns the machine to REQUEST_START for the next pipelined
// request.
func (m *Machine) reset() {
	m.req.Reset()
	m.lastHdr = ""
	m.st = stateRequestStart
}

func (m *Machine) fail(err *rherr.Error) {
	m.errCode = err
	m.st = stateServerError
}

// InBuffer exposes the connection's in-buffer for callers that need the
// raw netbuf.ConnAware (e.g. tests feeding bytes directly).
func (m *Machine) InBuffer() *netbuf.ConnAware { return m.c.InBuffer() }
