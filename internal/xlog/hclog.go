/*
 * MIT License
 *
 * Copyright (c) 2026 transferd authors
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

package xlog

import (
	"log"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// HCLog adapts a Logger to hclog.Logger for dependencies that only accept
// one (none ship in this module today; kept so a TVFS or ACME backend
// written against hclog can be wired without a second logging story).
// Lines hclog emits are re-parsed for their level tag and forwarded.
func HCLog(l Logger) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        "transferd",
		Level:       hclog.Trace,
		Output:      &hclogWriter{l: l},
		DisableTime: true,
	})
}

type hclogWriter struct {
	l Logger
}

func (w *hclogWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	lvl := InfoLevel
	switch {
	case strings.Contains(line, "[TRACE]"), strings.Contains(line, "[DEBUG]"):
		lvl = DebugLevel
	case strings.Contains(line, "[WARN]"):
		lvl = WarnLevel
	case strings.Contains(line, "[ERROR]"):
		lvl = ErrorLevel
	}
	w.l.Entry(lvl, line).Log()
	return len(p), nil
}

// StdLogger returns a *log.Logger that forwards every line to Logger at lvl,
// for APIs that only accept the standard library logger.
func StdLogger(l Logger, lvl Level) *log.Logger {
	return log.New(&writerFunc{l: l, lvl: lvl}, "", 0)
}

type writerFunc struct {
	l   Logger
	lvl Level
}

func (w *writerFunc) Write(p []byte) (int, error) {
	w.l.Entry(w.lvl, string(p)).Log()
	return len(p), nil
}
