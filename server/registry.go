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

package server

import (
	"github.com/nabbar/reactor-httpd/httpmsg"
	"github.com/nabbar/reactor-httpd/httpstate"
)

// Registry maps a URI to its handler. Unknown URIs answer 404 rather than
// being silently dropped.
type Registry struct {
	handlers map[string]httpstate.Dispatch
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]httpstate.Dispatch)}
}

// Handle registers h to serve uri.
func (reg *Registry) Handle(uri string, h httpstate.Dispatch) {
	reg.handlers[uri] = h
}

// Dispatch implements httpstate.Dispatch by looking up the request's URI
// and falling back to a 404 when no handler matches.
func (reg *Registry) Dispatch(req *httpmsg.Request, body []byte, w *httpmsg.Writer) {
	h, ok := reg.handlers[req.URI]
	if !ok {
		w.Status(404)
		w.HeadersBuilder().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.WriteString("404 not found")
		return
	}
	h(req, body, w)
}
