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

// Package buffer implements the byte buffer, locking buffer and adder/consumer
// primitives. Rather than propagate bare errno-style ints, the numeric
// alphabet is a small closed Result type with a documented meaning.
package buffer

// Result is the closed alphabet an Adder or Consumer returns from a single
// pump step. It is a contract between the buffer operators and the
// channel, never something returned to an HTTP/FTP client.
type Result uint8

const (
	// OK means some bytes were produced/consumed.
	OK Result = iota
	// ENoData means the adder has reached end of stream.
	ENoData
	// ENoBufs means the buffer is full; the caller should drain it and retry.
	ENoBufs
	// EAgain means the operator will signal asynchronously when ready.
	EAgain
	// ECanceled means the consumer has no more interest (a no-op step).
	ECanceled
	// EFault marks an unrecoverable internal inconsistency.
	EFault
	// EInvalid marks a programming error (e.g. an out-of-order call).
	EInvalid
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case ENoData:
		return "ENODATA"
	case ENoBufs:
		return "ENOBUFS"
	case EAgain:
		return "EAGAIN"
	case ECanceled:
		return "ECANCELED"
	case EFault:
		return "EFAULT"
	case EInvalid:
		return "EINVAL"
	default:
		return "unknown"
	}
}
