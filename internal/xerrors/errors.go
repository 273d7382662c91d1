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

// Package xerrors provides coded, chainable errors for the server core.
//
// An Error carries an HTTP-like numeric Code, so handler code can map a
// lower layer's failure to a response without string matching. Not every
// error crossing a package boundary in this module is an Error; CodeOf
// reports CodeInternal for the others.
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a numeric error classification, modeled after HTTP status codes.
type Code uint16

const (
	CodeUnknown           Code = 0
	CodeBadRequest        Code = 400
	CodeUnauthorized      Code = 401
	CodeForbidden         Code = 403
	CodeNotFound          Code = 404
	CodeRequestTimeout    Code = 408
	CodeConflict          Code = 409
	CodeUnsupportedMedia  Code = 415
	CodeInternal          Code = 500
	CodeNotImplemented    Code = 501
	CodeResourceExhausted Code = 507
	CodeInvalidState      Code = 510 // programming error: responder state machine violation
)

// Error is a coded error that may chain to a parent error.
type Error interface {
	error
	Code() Code
	Parent() error
	Is(code Code) bool
}

type coded struct {
	code    Code
	message string
	parent  error
}

// New creates a new coded error with no parent.
func New(code Code, message string) Error {
	return &coded{code: code, message: message}
}

// Wrap attaches a code and message to an existing error, preserving it as parent.
func Wrap(code Code, message string, parent error) Error {
	return &coded{code: code, message: message, parent: parent}
}

func (e *coded) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	if e.parent != nil {
		b.WriteString(": ")
		b.WriteString(e.parent.Error())
	}
	return b.String()
}

func (e *coded) Code() Code {
	return e.code
}

func (e *coded) Parent() error {
	return e.parent
}

func (e *coded) Is(code Code) bool {
	return e.code == code
}

func (e *coded) Unwrap() error {
	return e.parent
}

// Codef is a convenience constructor mirroring fmt.Errorf.
func Codef(code Code, format string, args ...interface{}) Error {
	return &coded{code: code, message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code of err if it (or something it wraps) is an Error;
// otherwise returns CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return CodeInternal
}
