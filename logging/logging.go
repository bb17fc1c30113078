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

// Package logging is the leveled log sink the reactor, connection and HTTP
// layers call into. It is deliberately small: five levels, an optional
// error argument, and a null implementation that is always valid so the
// core never has to nil-check its logger.
package logging

import "errors"

// Level orders the five levels the core calls.
type Level uint8

const (
	LevelVerbose Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	// levelSilent is above every real level, so a standard sink built with
	// it as its minimum writes nothing.
	levelSilent
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "silent"
	}
}

// Logger is the logging facade. Every call is non-blocking from the
// reactor's point of view: implementations must not perform I/O that can
// stall the reactor thread for long (the standard sink below buffers
// through the stdlib log.Logger, which is safe for this purpose).
type Logger interface {
	Debug(message string, err error, args ...any)
	Info(message string, err error, args ...any)
	Warn(message string, err error, args ...any)
	Error(message string, err error, args ...any)
	Verbose(message string, err error, args ...any)
}

var errNilLogger = errors.New("logging: nil logger")

// Discard returns the null Logger implementation: every call is a no-op.
// A Logger field left unset by a caller should be initialized to this, not
// left nil.
func Discard() Logger { return discard{} }

type discard struct{}

func (discard) Debug(string, error, ...any)   {}
func (discard) Info(string, error, ...any)    {}
func (discard) Warn(string, error, ...any)    {}
func (discard) Error(string, error, ...any)   {}
func (discard) Verbose(string, error, ...any) {}
