//go:build linux

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
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

const maxEpollEvents = 256

// Reactor is the epoll-backed readiness loop. Register/SetInterest/Cancel
// are only safe to call from the reactor's own goroutine (i.e. from inside
// a Handler callback, or from a Task posted with Post); everything else
// must cross into the reactor via Post.
type Reactor struct {
	epfd   int
	wakeFD int

	keys map[int]*Key

	taskMu sync.Mutex
	tasks  []Task

	done    atomic.Bool
	running atomic.Bool

	deadlineMu sync.Mutex
	deadline   *time.Time
}

// New creates an epoll instance and its cross-thread wake eventfd.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}

	r := &Reactor{
		epfd:   epfd,
		wakeFD: wfd,
		keys:   make(map[int]*Key),
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wfd),
	}); err != nil {
		unix.Close(wfd)
		unix.Close(epfd)
		return nil, err
	}

	return r, nil
}

func epollOps(ops Ops) uint32 {
	var ev uint32
	if ops&OpRead != 0 {
		ev |= unix.EPOLLIN
	}
	if ops&OpWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register attaches handler to fd with the given initial interest and
// returns the Key used to adjust interest or cancel later.
func (r *Reactor) Register(fd int, initial Ops, handler Handler, userData any) (*Key, error) {
	if r.done.Load() {
		return nil, ErrClosed
	}

	k := &Key{fd: fd, interest: initial, handler: handler, userData: userData}
	r.keys[fd] = k

	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: epollOps(initial),
		Fd:     int32(fd),
	})
	if err != nil {
		delete(r.keys, fd)
		return nil, err
	}
	return k, nil
}

// SetInterest replaces k's interest ops. Enabling read interest that is
// already enabled is idempotent at the epoll_ctl level (MOD is issued
// regardless), which is what lets callers re-arm a persistent interest
// without worrying about double-registration.
func (r *Reactor) SetInterest(k *Key, ops Ops) error {
	if k.canceled {
		return nil
	}
	k.interest = ops
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, k.fd, &unix.EpollEvent{
		Events: epollOps(ops),
		Fd:     int32(k.fd),
	})
}

// Cancel deregisters k. Safe to call more than once.
func (r *Reactor) Cancel(k *Key) error {
	if k.canceled {
		return nil
	}
	k.canceled = true
	delete(r.keys, k.fd)
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, k.fd, nil)
}

// Post enqueues a task to run on the reactor thread before the next
// ready-key dispatch, and wakes the selector if it is blocked in Wait.
// Safe to call from any goroutine.
func (r *Reactor) Post(t Task) {
	r.taskMu.Lock()
	r.tasks = append(r.tasks, t)
	r.taskMu.Unlock()
	r.wake()
}

func (r *Reactor) wake() {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], 1)
	_, _ = unix.Write(r.wakeFD, b[:])
}

func (r *Reactor) drainWake() {
	var b [8]byte
	for {
		n, err := unix.Read(r.wakeFD, b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (r *Reactor) drainTasks() {
	r.taskMu.Lock()
	pending := r.tasks
	r.tasks = nil
	r.taskMu.Unlock()

	for _, t := range pending {
		t()
	}
}

// StopAt arms the delayed-stop test primitive: Run breaks out once the
// deadline passes, even with no further readiness or posted tasks.
func (r *Reactor) StopAt(deadline time.Time) {
	r.deadlineMu.Lock()
	r.deadline = &deadline
	r.deadlineMu.Unlock()
	r.wake()
}

func (r *Reactor) waitTimeoutMillis() int {
	r.deadlineMu.Lock()
	defer r.deadlineMu.Unlock()
	if r.deadline == nil {
		return -1
	}
	d := time.Until(*r.deadline)
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^int32(0)) {
		return int(^int32(0))
	}
	return int(ms)
}

func (r *Reactor) deadlinePassed() bool {
	r.deadlineMu.Lock()
	defer r.deadlineMu.Unlock()
	return r.deadline != nil && !time.Now().Before(*r.deadline)
}

// Run blocks the calling goroutine, repeatedly: waiting for readiness or a
// wake, draining posted tasks immediately on wake, then dispatching each
// ready key exactly once for exactly the readiness this pass reported
// (never OR'd with a previous pass's bits, which is what avoids
// re-invoking a callback that canceled its own interest). Tasks run before
// the ready-key loop so a task posted in the same wake batch as a genuine
// readiness event on the same fd (e.g. the TLS driver resuming a
// previously blocked write) applies before that event's handler runs,
// never after.
func (r *Reactor) Run() error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	events := make([]unix.EpollEvent, maxEpollEvents)

	for !r.done.Load() {
		timeout := r.waitTimeoutMillis()
		n, err := unix.EpollWait(r.epfd, events, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		if r.done.Load() {
			return nil
		}

		r.drainWake()
		r.drainTasks()

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)

			if fd == r.wakeFD {
				continue
			}

			k, ok := r.keys[fd]
			if !ok || k.canceled {
				continue
			}

			readable := ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 && k.interest&OpRead != 0
			writable := ev.Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0 && k.interest&OpWrite != 0
			if readable || writable {
				k.handler.OnReady(k, readable, writable)
			}
		}

		if r.deadlinePassed() {
			return nil
		}
	}

	return nil
}

// Stop is thread-safe: it marks the reactor done and wakes the selector so
// Run returns promptly even if nothing else is happening.
func (r *Reactor) Stop() {
	r.done.Store(true)
	r.wake()
}

// Close releases the epoll and eventfd descriptors. Call only after Run
// has returned.
func (r *Reactor) Close() error {
	_ = unix.Close(r.wakeFD)
	return unix.Close(r.epfd)
}
