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

package netbuf

// ConnAware wraps a Buffer so that any resize also republishes the Buffer
// pointer to an owning connection. A resize changes the same Buffer in
// place, so the pointer handed over is the one the connection already
// holds.
type ConnAware struct {
	*Buffer
	onResize func(*Buffer)
}

// NewConnAware builds a ConnAware buffer that calls onResize after every
// resize with the (possibly new) *Buffer the owner should now hold.
func NewConnAware(capacity int, onResize func(*Buffer)) *ConnAware {
	b := New(capacity, 0)
	c := &ConnAware{Buffer: b, onResize: onResize}
	if onResize != nil {
		onResize(b)
	}
	return c
}

func (c *ConnAware) ResizeSafe(newCap int) {
	c.Buffer.ResizeSafe(newCap)
	if c.onResize != nil {
		c.onResize(c.Buffer)
	}
}

func (c *ConnAware) ResizeUnsafe(newCap int) {
	c.Buffer.ResizeUnsafe(newCap)
	if c.onResize != nil {
		c.onResize(c.Buffer)
	}
}
