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

package httpmsg

import (
	"net/http"
	"strconv"

	"github.com/nabbar/reactor-httpd/buffer"
	"github.com/nabbar/reactor-httpd/scatter"
)

// Writer composes an HTTP response into a scatter buffer chain: the body is
// streamed in directly (zero-copy for externally owned buffers), while the
// status line and headers are reserved at the front via an insertion
// cursor and only serialized once the body is known to be complete — at
// which point Content-Length can be set from the accumulated byte count.
type Writer struct {
	builder *scatter.Builder
	headers *Headers

	minor  int
	status int

	bodyBytes int
	cursor    *scatter.Cursor
	closeConn bool
}

// NewWriter returns a Writer with a fresh scatter builder of the given body
// segment size.
func NewWriter(segSize int) *Writer {
	return &Writer{
		builder: scatter.New(segSize),
		headers: NewHeaders(),
		status:  http.StatusOK,
	}
}

// Reset prepares the writer for the next pipelined response on minor
// version minor, releasing any scatter segments from the previous
// response back to their allocator.
func (w *Writer) Reset(minor int) {
	w.builder.Clear()
	w.headers.Clear()
	w.minor = minor
	w.status = http.StatusOK
	w.bodyBytes = 0
	w.cursor = nil
	w.closeConn = false
}

// Builder exposes the underlying scatter.Builder, e.g. so the connection
// can call SetAllocator with its own pool, or AppendBuffer a zero-copy
// externally owned body buffer directly.
func (w *Writer) Builder() *scatter.Builder { return w.builder }

// Status sets the response status code.
func (w *Writer) Status(code int) { w.status = code }

// HeadersBuilder returns the header map to populate before or while
// writing the body.
func (w *Writer) HeadersBuilder() *Headers { return w.headers }

// SetConnectionClose marks the response to force "Connection: close" and
// tells the connection layer to close after the response drains.
func (w *Writer) SetConnectionClose() { w.closeConn = true }

// WantsClose reports whether the handler requested a close-after-drain.
func (w *Writer) WantsClose() bool { return w.closeConn }

// commit reserves the front-of-chain insertion cursor on first use.
func (w *Writer) commit() {
	if w.cursor == nil {
		w.cursor = w.builder.Insert(scatter.Front)
	}
}

// Write appends body bytes (copied into pooled segments).
func (w *Writer) Write(p []byte) (int, error) {
	w.commit()
	w.builder.AppendBytes(p)
	w.bodyBytes += len(p)
	return len(p), nil
}

// WriteString is the string form of Write.
func (w *Writer) WriteString(s string) (int, error) { return w.Write([]byte(s)) }

// WriteExternal appends an externally owned byte buffer (already flipped
// to its reading phase) by reference, with zero copy, tracking its length
// for Content-Length.
func (w *Writer) WriteExternal(buf *buffer.Buffer) {
	w.commit()
	w.bodyBytes += buf.Remaining()
	w.builder.AppendBuffer(buf)
}

// BodyBytes returns the number of body bytes written so far.
func (w *Writer) BodyBytes() int { return w.bodyBytes }

var statusText = map[int]string{}

func init() {
	for i := 100; i < 600; i++ {
		if t := http.StatusText(i); t != "" {
			statusText[i] = t
		}
	}
}

// Finish closes the insertion cursor by emitting the status line and
// headers (Content-Length defaulted from the body byte count unless the
// handler set it explicitly, Connection: close added if requested), then
// finalizes the scatter chain and returns the ordered byte slices ready
// for the connection's scatter send.
func (w *Writer) Finish() [][]byte {
	w.commit()

	if !w.headers.Has("Content-Length") {
		w.headers.Set("Content-Length", strconv.Itoa(w.bodyBytes))
	}
	if w.closeConn {
		w.headers.Set("Connection", "close")
	}

	reason := statusText[w.status]
	if reason == "" {
		reason = "Status"
	}

	line := make([]byte, 0, 64)
	line = append(line, "HTTP/1."...)
	line = strconv.AppendInt(line, int64(w.minor), 10)
	line = append(line, ' ')
	line = strconv.AppendInt(line, int64(w.status), 10)
	line = append(line, ' ')
	line = append(line, reason...)
	line = append(line, '\r', '\n')
	line = w.headers.WriteTo(line)
	line = append(line, '\r', '\n')

	w.cursor.Write(line)
	w.cursor.Close()

	return w.builder.Build()
}
