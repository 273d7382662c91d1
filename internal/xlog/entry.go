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
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is a single log record under construction: each setter returns
// the Entry so calls chain, and nothing is actually emitted until Log is
// called.
type Entry struct {
	log   *logger
	lvl   Level
	msg   string
	time  time.Time
	data  interface{}
	errs  []error
	field logrus.Fields
}

func newEntry(l *logger, lvl Level, msg string) *Entry {
	return &Entry{
		log:   l,
		lvl:   lvl,
		msg:   msg,
		time:  time.Now(),
		field: logrus.Fields{},
	}
}

// FieldAdd attaches a key/value pair to the entry.
func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	if e == nil {
		return e
	}
	e.field[key] = val
	return e
}

// DataSet attaches a structured payload logged under the "data" field.
func (e *Entry) DataSet(data interface{}) *Entry {
	if e == nil {
		return e
	}
	e.data = data
	return e
}

// ErrorAdd appends errors to the entry; nil errors are skipped when cleanNil is true.
func (e *Entry) ErrorAdd(cleanNil bool, errs ...error) *Entry {
	if e == nil {
		return e
	}
	for _, err := range errs {
		if err == nil && cleanNil {
			continue
		}
		e.errs = append(e.errs, err)
	}
	return e
}

// Check reports whether this entry would actually be emitted at lvlNoErr
// or above, without logging it.
func (e *Entry) Check(lvlNoErr Level) bool {
	if e == nil || e.log == nil {
		return false
	}
	if len(e.errs) == 0 && e.lvl < lvlNoErr {
		return false
	}
	return e.lvl >= e.log.minLevel()
}

// Log emits the entry if its level clears the logger's configured minimum.
func (e *Entry) Log() {
	if e == nil || e.log == nil {
		return
	}
	if e.lvl < e.log.minLevel() {
		return
	}

	fields := make(logrus.Fields, len(e.field)+2)
	for k, v := range e.field {
		fields[k] = v
	}
	if e.data != nil {
		fields["data"] = e.data
	}
	if len(e.errs) > 0 {
		fields["errors"] = joinErrors(e.errs)
	}

	prefix := levelColor(e.lvl).Sprint(e.lvl.String())
	entry := e.log.lr.WithFields(fields).WithTime(e.time)
	entry.Log(e.lvl.logrus(), prefix+": "+e.msg)

	if e.lvl == FatalLevel {
		entry.Logger.Exit(1)
	}
}

func joinErrors(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}
