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
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// FuncLog is a function returning a Logger, used for lazy/deferred
// injection so a component can be built before logging is wired.
type FuncLog func() Logger

// Logger is the logging facade used throughout the server core.
type Logger interface {
	// Entry starts a new log entry at the given level.
	Entry(lvl Level, message string) *Entry
	// SetLevel changes the minimal level that will actually be emitted.
	SetLevel(lvl Level)
	// SetOutput redirects the underlying writer (tests use this to capture output).
	SetOutput(w io.Writer)
	// Clone returns an independent copy sharing the same output configuration.
	Clone() Logger
}

type logger struct {
	mu  sync.RWMutex
	lr  *logrus.Logger
	lvl Level
}

// New returns a Logger writing colorized level names to stderr.
func New(lvl Level) Logger {
	lr := logrus.New()
	lr.SetOutput(colorable.NewColorableStderr())
	lr.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	lr.SetLevel(lvl.logrus())

	return &logger{lr: lr, lvl: lvl}
}

func (l *logger) Entry(lvl Level, message string) *Entry {
	return newEntry(l, lvl, message)
}

func (l *logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lvl = lvl
	l.lr.SetLevel(lvl.logrus())
}

func (l *logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lr.SetOutput(w)
}

func (l *logger) Clone() Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := logrus.New()
	n.SetOutput(l.lr.Out)
	n.SetFormatter(l.lr.Formatter)
	n.SetLevel(l.lr.GetLevel())
	return &logger{lr: n, lvl: l.lvl}
}

func (l *logger) minLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lvl
}

// levelColor picks the terminal tint for a level name.
func levelColor(lvl Level) *color.Color {
	switch lvl {
	case DebugLevel:
		return color.New(color.FgCyan)
	case WarnLevel:
		return color.New(color.FgYellow)
	case ErrorLevel, FatalLevel:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgGreen)
	}
}

// discard is a Logger that drops every entry; used as a safe zero value
// wherever a FuncLog has not been configured yet.
func discard() Logger {
	l := New(NilLevel)
	l.SetOutput(io.Discard)
	return l
}
