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

// Package parse implements the line/token/text primitives the HTTP request
// state machine parses a start line and headers with: liberal (bare-LF
// accepted) line splitting with buffer-overflow detection, RFC 2616 token
// and text octet classes, and the method/version grammar.
package parse

import (
	"bytes"
	"errors"
)

// ErrBufferOverflow is raised by Line when no LF is found and the buffer
// is full from position 0 to capacity: translated by the caller into a
// 414 Request-URI Too Long (or, for an oversized header line, a similar
// overflow policy).
var ErrBufferOverflow = errors.New("parse: no line terminator within buffer capacity")

// Line scans buf for an LF starting at offset, returning the line bytes
// (without the terminator, and with a lone trailing CR stripped) and the
// offset just past the LF. If no LF is found, ok is false and line/next are
// zero; the caller is expected to request more input unless full reports
// the buffer is already exhausted, in which case Line returns
// ErrBufferOverflow.
func Line(buf []byte, offset int, full bool) (line []byte, next int, ok bool, err error) {
	idx := bytes.IndexByte(buf[offset:], '\n')
	if idx < 0 {
		if full {
			return nil, 0, false, ErrBufferOverflow
		}
		return nil, 0, false, nil
	}

	end := offset + idx
	next = end + 1
	line = buf[offset:end]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, next, true, nil
}

// IsCTL reports whether b is a control octet (<=31 or 127), per RFC 2616.
func IsCTL(b byte) bool { return b <= 31 || b == 127 }

var separators = [256]bool{
	'(': true, ')': true, '<': true, '>': true, '@': true,
	',': true, ';': true, ':': true, '\\': true, '"': true,
	'/': true, '[': true, ']': true, '?': true, '=': true,
	'{': true, '}': true, ' ': true, '\t': true,
}

// IsSeparator reports whether b is one of the RFC 2616 separator octets.
func IsSeparator(b byte) bool { return separators[b] }

// IsTokenChar reports whether b may appear in a token: not a CTL, not a
// separator.
func IsTokenChar(b byte) bool { return !IsCTL(b) && !IsSeparator(b) }

// IsTextChar reports whether b may appear in text: anything that is not a
// CTL (SP and TAB are explicitly allowed, as RFC 2616 TEXT permits LWS).
func IsTextChar(b byte) bool { return !IsCTL(b) || b == ' ' || b == '\t' }

// Token scans a token from the start of buf, returning it and the number
// of bytes consumed. An empty token (0 bytes consumed) means buf does not
// start with a token character.
func Token(buf []byte) (tok []byte, n int) {
	i := 0
	for i < len(buf) && IsTokenChar(buf[i]) {
		i++
	}
	return buf[:i], i
}

// Text trims leading and trailing whitespace (SP and HT) from buf per the
// TEXT grammar (header values are trimmed on both ends on read).
func Text(buf []byte) []byte {
	end := len(buf)
	for end > 0 && (buf[end-1] == ' ' || buf[end-1] == '\t') {
		end--
	}
	start := 0
	for start < end && (buf[start] == ' ' || buf[start] == '\t') {
		start++
	}
	return buf[start:end]
}

// IsWhitespace reports whether b is SP or TAB, the octets that introduce a
// header continuation line.
func IsWhitespace(b byte) bool { return b == ' ' || b == '\t' }

var methods = map[string]bool{
	"OPTIONS": true, "GET": true, "HEAD": true, "POST": true,
	"PUT": true, "DELETE": true, "TRACE": true, "CONNECT": true,
}

// Method validates s as one of the eight RFC 2616 methods.
func Method(s string) bool { return methods[s] }

// Version parses an "HTTP/1.X" version string, returning the minor version
// (0 or 1) and whether parsing succeeded.
func Version(s string) (minor int, ok bool) {
	const prefix = "HTTP/1."
	if len(s) != len(prefix)+1 || s[:len(prefix)] != prefix {
		return 0, false
	}
	switch s[len(prefix)] {
	case '0':
		return 0, true
	case '1':
		return 1, true
	default:
		return 0, false
	}
}
