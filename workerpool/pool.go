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

// Package workerpool is the shared, process-wide, lazily started worker
// pool that runs TLS engine delegated tasks (handshake steps and any other
// blocking engine work) off the reactor thread. It is the only process-wide
// mutable state in the system and is thread-safe; the reactor's own
// per-connection state is never touched directly by a pool goroutine — task
// bodies must hand results back via reactor.Post.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const defaultMaxWorkers = 64

// Pool bounds the number of concurrently running delegated tasks.
type Pool struct {
	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New builds a pool allowing up to max concurrently running tasks.
func New(max int64) *Pool {
	if max <= 0 {
		max = defaultMaxWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{sem: semaphore.NewWeighted(max), ctx: ctx, cancel: cancel}
}

// Submit runs task on a pool goroutine once a slot is available. A no-op
// after Shutdown.
func (p *Pool) Submit(task func()) {
	if p.stopped.Load() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		task()
	}()
}

// Shutdown stops accepting new tasks and blocks until every in-flight task
// has returned. Safe to call more than once.
func (p *Pool) Shutdown() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()
}

var (
	sharedMu sync.Mutex
	shared   *Pool
)

// Shared returns the process-wide pool, starting it lazily on first use —
// the first TLS connection accepted is what brings it up.
func Shared() *Pool {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(defaultMaxWorkers)
	}
	return shared
}

// ShutdownShared stops the process-wide pool, if one was ever started, and
// clears it so a later Shared() call starts a fresh one.
func ShutdownShared() {
	sharedMu.Lock()
	s := shared
	shared = nil
	sharedMu.Unlock()
	if s != nil {
		s.Shutdown()
	}
}
