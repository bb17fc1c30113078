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

// BodyDisposition tells the state machine how to treat the message body.
type BodyDisposition uint8

const (
	// Ignore is the default: the body bytes are skipped (GET/HEAD).
	Ignore BodyDisposition = iota
	// Read hands the body bytes to the dispatch handler as its body
	// argument.
	Read
	// Copy is declared for data-model compatibility but never produced by
	// any code path in this module.
	Copy
)

// BodyFunc is the type of Request.OnBody. The field is carried and cleared
// by Reset, but the httpstate machine never invokes it: body bytes reach
// the handler only as the body argument of its dispatch call.
type BodyFunc func(chunk []byte) (done bool)

// Request is a per-connection, per-pipelined-request HTTP request: method,
// URI, minor version, headers, body disposition and callback. It is
// allocated once per connection and Reset between pipelined requests.
type Request struct {
	Method  string
	URI     string
	Minor   int
	Headers *Headers

	Disposition BodyDisposition
	OnBody      BodyFunc

	// ContentLength is parsed from the Content-Length header if present
	// and valid; -1 means absent or unparsable, which falls back to
	// single-raw-chunk delivery.
	ContentLength int64
}

// NewRequest allocates a Request with an initialized Headers map, ready for
// reuse across a connection's pipelined requests via Reset.
func NewRequest() *Request {
	return &Request{Headers: NewHeaders(), ContentLength: -1}
}

// Reset clears the request back to its zero-ish state between pipelined
// requests, keeping the Headers map allocation.
func (r *Request) Reset() {
	r.Method = ""
	r.URI = ""
	r.Minor = 0
	r.Headers.Clear()
	r.Disposition = Ignore
	r.OnBody = nil
	r.ContentLength = -1
}
