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

// Key is a registration handle returned by Reactor.Register, the
// equivalent of a java.nio.SelectionKey: it tracks one fd's current
// interest ops and handler, and is only ever mutated from the reactor
// thread (SetInterest/Cancel are called either from OnReady callbacks, or
// are themselves posted as a Task by code running off-thread).
type Key struct {
	fd       int
	interest Ops
	handler  Handler
	canceled bool
	userData any
}

// Fd returns the registered file descriptor.
func (k *Key) Fd() int { return k.fd }

// Interest returns the key's current interest ops.
func (k *Key) Interest() Ops { return k.interest }

// UserData returns the opaque value passed to Register, e.g. the owning
// connection.
func (k *Key) UserData() any { return k.userData }

// IsCanceled reports whether Cancel has been called on this key.
func (k *Key) IsCanceled() bool { return k.canceled }
