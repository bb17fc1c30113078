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

// Package httpmsg holds the HTTP data model shared by the state machine and
// the response writer: the canonical multi-valued header map, the request
// struct, and the response writer built on the scatter buffer builder.
package httpmsg

import "strings"

// Canonicalize normalizes a header name: the first letter and any letter
// immediately following a '-' are uppercased, everything else is
// lowercased. "hello" -> "Hello", "hello-world" -> "Hello-World",
// "-ello-world" -> "-Ello-World".
func Canonicalize(name string) string {
	b := []byte(name)
	upperNext := true
	for i, c := range b {
		switch {
		case upperNext && c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
		case !upperNext && c >= 'A' && c <= 'Z':
			b[i] = c - 'A' + 'a'
		}
		upperNext = c == '-'
	}
	return string(b)
}

// Headers is a mapping from canonicalized header name to an ordered,
// non-empty sequence of values. A key is present iff its value list is
// non-empty; Del fully removes the key rather than leaving an empty slice.
type Headers struct {
	order  []string
	values map[string][]string
}

// NewHeaders returns an empty Headers map.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// Add appends a value under name, canonicalizing name first.
func (h *Headers) Add(name, value string) {
	key := Canonicalize(name)
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = append(h.values[key], value)
}

// Set replaces any existing values under name with a single value.
func (h *Headers) Set(name, value string) {
	key := Canonicalize(name)
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = []string{value}
}

// AppendValue folds value onto the last element of name's value list,
// separated by a single space (used by header-line continuations). If
// name has no existing values, AppendValue behaves like Add.
func (h *Headers) AppendValue(name, value string) {
	key := Canonicalize(name)
	vs, ok := h.values[key]
	if !ok || len(vs) == 0 {
		h.Add(key, value)
		return
	}
	vs[len(vs)-1] = vs[len(vs)-1] + " " + value
	h.values[key] = vs
}

// Get returns the first value under name, and whether name is present.
func (h *Headers) Get(name string) (string, bool) {
	vs, ok := h.values[Canonicalize(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns every value under name, in insertion order.
func (h *Headers) Values(name string) []string {
	return h.values[Canonicalize(name)]
}

// Has reports whether name has at least one value.
func (h *Headers) Has(name string) bool {
	vs, ok := h.values[Canonicalize(name)]
	return ok && len(vs) > 0
}

// Del removes name entirely.
func (h *Headers) Del(name string) {
	key := Canonicalize(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Names returns the canonical header names, in the order they were first
// added.
func (h *Headers) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Clear empties the map in place so the Headers instance can be reused
// across pipelined requests without reallocating.
func (h *Headers) Clear() {
	h.order = h.order[:0]
	for k := range h.values {
		delete(h.values, k)
	}
}

// WriteTo serializes the headers as "Name: v1,v2,...\r\n" lines, in
// insertion order, appending to and returning a growing byte slice.
func (h *Headers) WriteTo(dst []byte) []byte {
	for _, key := range h.order {
		vs := h.values[key]
		if len(vs) == 0 {
			continue
		}
		dst = append(dst, key...)
		dst = append(dst, ':', ' ')
		dst = append(dst, strings.Join(vs, ",")...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}
