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

import (
	"fmt"
	"io"
	"log"
	"sync"
)

type standard struct {
	mu  sync.Mutex
	lvl Level
	out *log.Logger
}

// NewStandard returns a Logger writing "[level] message args: err" lines
// to out through a stdlib log.Logger, filtering anything below level.
func NewStandard(out io.Writer, level Level) Logger {
	return &standard{
		lvl: level,
		out: log.New(out, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (s *standard) log(lvl Level, message string, err error, args ...any) {
	if lvl < s.lvl {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", lvl, message)
	if len(args) > 0 {
		line += " " + fmt.Sprint(args...)
	}
	if err != nil {
		line += ": " + err.Error()
	}
	s.out.Println(line)
}

func (s *standard) Debug(message string, err error, args ...any)   { s.log(LevelDebug, message, err, args...) }
func (s *standard) Info(message string, err error, args ...any)    { s.log(LevelInfo, message, err, args...) }
func (s *standard) Warn(message string, err error, args ...any)    { s.log(LevelWarn, message, err, args...) }
func (s *standard) Error(message string, err error, args ...any)   { s.log(LevelError, message, err, args...) }
func (s *standard) Verbose(message string, err error, args ...any) { s.log(LevelVerbose, message, err, args...) }
