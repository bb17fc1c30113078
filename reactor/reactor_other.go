//go:build !linux

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

package reactor

import (
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned by New on platforms with no epoll
// readiness backend wired up (see reactor_linux.go). Following the
// teacher's fileDescriptor_ok/ko.go OS-split convention, this file keeps
// the package importable everywhere while the concrete implementation
// stays Linux-only.
var ErrUnsupportedPlatform = errors.New("reactor: epoll backend unavailable on this platform")

// Reactor is the non-Linux stub: every operation fails with
// ErrUnsupportedPlatform.
type Reactor struct{}

// New always fails on non-Linux platforms.
func New() (*Reactor, error) {
	return nil, ErrUnsupportedPlatform
}

func (r *Reactor) Register(fd int, initial Ops, handler Handler, userData any) (*Key, error) {
	return nil, ErrUnsupportedPlatform
}

func (r *Reactor) SetInterest(k *Key, ops Ops) error { return ErrUnsupportedPlatform }

func (r *Reactor) Cancel(k *Key) error { return ErrUnsupportedPlatform }

func (r *Reactor) Post(t Task) {}

func (r *Reactor) StopAt(deadline time.Time) {}

func (r *Reactor) Run() error { return ErrUnsupportedPlatform }

func (r *Reactor) Stop() {}

func (r *Reactor) Close() error { return nil }
