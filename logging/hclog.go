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

package logging

import "github.com/hashicorp/go-hclog"

// hcLogger adapts a github.com/hashicorp/go-hclog.Logger to Logger, for
// hosts that already standardized on hclog for their own process.
type hcLogger struct {
	l hclog.Logger
}

// NewHCLog wraps hc as a Logger. "Verbose" maps onto hclog's Trace level,
// hclog having no closer equivalent.
func NewHCLog(hc hclog.Logger) Logger {
	if hc == nil {
		return Discard()
	}
	return &hcLogger{l: hc}
}

func (h *hcLogger) args(err error, args ...any) []any {
	if err == nil {
		return args
	}
	return append(append([]any{}, args...), "error", err)
}

func (h *hcLogger) Debug(message string, err error, args ...any) {
	h.l.Debug(message, h.args(err, args...)...)
}

func (h *hcLogger) Info(message string, err error, args ...any) {
	h.l.Info(message, h.args(err, args...)...)
}

func (h *hcLogger) Warn(message string, err error, args ...any) {
	h.l.Warn(message, h.args(err, args...)...)
}

func (h *hcLogger) Error(message string, err error, args ...any) {
	h.l.Error(message, h.args(err, args...)...)
}

func (h *hcLogger) Verbose(message string, err error, args ...any) {
	h.l.Trace(message, h.args(err, args...)...)
}
