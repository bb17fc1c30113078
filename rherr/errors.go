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

// Package rherr provides the status-carrying error type used across the
// reactor, connection, TLS and HTTP state-machine layers.
//
// Every error raised by a request handler phase carries an HTTP status code
// the caller can map straight onto a response (400, 404, 413, 414, 500...),
// plus an optional wrapped cause for errors.Is/As chaining. It is a trimmed
// sibling of a larger code+trace+parent-chain error package: this domain
// only ever needs one status and one cause per error, never a merged set.
package rherr

import (
	"fmt"
	"net/http"
)

// Code is a numeric error classification, mirroring HTTP status codes.
type Code uint16

const (
	// CodeUnknown is used when no specific code applies.
	CodeUnknown Code = 0

	CodeBadRequest       Code = http.StatusBadRequest
	CodeNotFound         Code = http.StatusNotFound
	CodeURITooLong       Code = http.StatusRequestURITooLong
	CodePayloadTooLarge  Code = http.StatusRequestEntityTooLarge
	CodeInternal         Code = http.StatusInternalServerError
	CodeServiceUnavail   Code = http.StatusServiceUnavailable
)

// Error is the error type carried through the reactor/connection/HTTP
// layers. The zero value is not usable; build one with New or Wrap.
type Error struct {
	code    Code
	message string
	cause   error
}

// New builds an Error with the given status code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap builds an Error with the given status code around an existing cause.
// If err is nil, Wrap behaves like New(code, message).
func Wrap(code Code, message string, err error) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code returns the status code carried by the error, or CodeUnknown.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Status returns the HTTP status code to answer the peer with. Unrecognized
// codes fall back to 500.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.code {
	case CodeBadRequest, CodeNotFound, CodeURITooLong, CodePayloadTooLarge, CodeInternal, CodeServiceUnavail:
		return int(e.code)
	default:
		return http.StatusInternalServerError
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error carrying the same code, so callers
// can do errors.Is(err, rherr.New(rherr.CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == o.code
}
