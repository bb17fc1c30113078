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

// Package reactor implements the single-threaded, readiness-polled event
// loop the rest of this module is built on: one thread owns a selector and
// a cross-thread task queue, dispatches readiness events to per-connection
// handlers, and is the only thread that ever touches connection state.
//
// Go exposes no portable readiness-selector API (unlike java.nio.Selector),
// so this is grounded on the same approach panjf2000/gnet's netpoller takes:
// golang.org/x/sys/unix epoll directly, woken across threads with an
// eventfd. That makes this package Linux-only; see reactor_linux.go and
// reactor_other.go.
package reactor

import "errors"

// Ops is a bitmask of readiness interests, independent of the underlying
// polling mechanism's own flag values.
type Ops uint8

const (
	OpRead Ops = 1 << iota
	OpWrite
)

// Handler is invoked by the reactor when a registered Key becomes ready for
// one of its interests. readable/writable report which interests fired in
// this pass.
type Handler interface {
	OnReady(key *Key, readable, writable bool)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(key *Key, readable, writable bool)

func (f HandlerFunc) OnReady(key *Key, readable, writable bool) { f(key, readable, writable) }

// Task is cross-thread work posted onto the reactor; it runs on the
// reactor thread, before ready-key dispatch, and so may freely touch
// connection state that is otherwise reactor-thread-only.
type Task func()

// ErrClosed is returned by operations attempted after the reactor has been
// stopped and closed.
var ErrClosed = errors.New("reactor: closed")

// ErrAlreadyRunning is returned by Run if called more than once
// concurrently.
var ErrAlreadyRunning = errors.New("reactor: already running")
